package conversation

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one persisted history entry: a single utterance by either
// side. A user/assistant exchange occupies two consecutive turns.
type Turn struct {
	Role string    `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at,omitempty"`
}

func validRole(role string) bool {
	return role == RoleUser || role == RoleAssistant
}

package relay

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zaprelay/zaprelay/llm"
)

const (
	defaultPersonaName = "Assistant"
	defaultDescription = "You are a helpful assistant."
	defaultBasePrompt  = "You are a helpful and concise AI assistant replying in a WhatsApp chat. " +
		"Do not use Markdown formatting. Keep your answers short, friendly, and easy to read. " +
		"Split long answers every 3 lines using a real newline character. " +
		"Each newline means a new WhatsApp message. Avoid long paragraphs or unnecessary explanations."
)

// Persona is the full conversational profile loaded once at startup:
// the system prompt, few-shot steering examples, the static menu and
// the escalation keyword list. Immutable after load.
type Persona struct {
	Name               string     `yaml:"name"`
	Description        string     `yaml:"description"`
	BasePrompt         string     `yaml:"base_prompt"`
	Responses          []Example  `yaml:"responses"`
	Menu               Menu       `yaml:"menu"`
	EscalationKeywords []string   `yaml:"escalation_keywords"`
	Apologies          ApologySet `yaml:"apologies"`
}

// Example is one few-shot input/output pair fed to the generation
// backend before real history.
type Example struct {
	Input  string `yaml:"input"`
	Output string `yaml:"output"`
}

type Menu struct {
	Enabled          bool                  `yaml:"enabled"`
	WelcomeMessage   string                `yaml:"welcome_message"`
	GreetingKeywords []string              `yaml:"greeting_keywords"`
	Options          map[string]MenuOption `yaml:"options"`
}

type MenuOption struct {
	Title              string `yaml:"title"`
	Response           string `yaml:"response"`
	RequiresEscalation bool   `yaml:"requires_escalation"`
}

// ApologySet holds the degraded-mode replies. Empty fields fall back to
// the stock wording.
type ApologySet struct {
	NotConfigured string `yaml:"not_configured"`
	EmptyResponse string `yaml:"empty_response"`
	RequestFailed string `yaml:"request_failed"`
}

func defaultPersona() Persona {
	return Persona{
		Name:        defaultPersonaName,
		Description: defaultDescription,
		BasePrompt:  defaultBasePrompt,
		Menu:        Menu{Enabled: false},
	}
}

// LoadPersona reads the persona file. A missing or unparseable file
// degrades to the default persona with the menu disabled; the relay
// must keep serving either way.
func LoadPersona(path string, logger *slog.Logger) Persona {
	if logger == nil {
		logger = slog.Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("persona_load_failed", "path", path, "error", err.Error())
		return defaultPersona()
	}
	var p Persona
	if err := yaml.Unmarshal(data, &p); err != nil {
		logger.Warn("persona_parse_failed", "path", path, "error", err.Error())
		return defaultPersona()
	}
	if strings.TrimSpace(p.Name) == "" {
		p.Name = defaultPersonaName
	}
	if strings.TrimSpace(p.Description) == "" {
		p.Description = defaultDescription
	}
	if strings.TrimSpace(p.BasePrompt) == "" {
		p.BasePrompt = defaultBasePrompt
	}
	logger.Info("persona_loaded",
		"name", p.Name,
		"examples", len(p.Responses),
		"menu_enabled", p.Menu.Enabled,
		"menu_options", len(p.Menu.Options),
	)
	return p
}

// SystemPrompt combines the base prompt and the persona description
// into the system instruction for the generation backend.
func (p Persona) SystemPrompt() string {
	return fmt.Sprintf("%s\n\n%s", p.BasePrompt, p.Description)
}

// FewShotHistory converts the examples into alternating user/assistant
// messages, skipping incomplete pairs.
func (p Persona) FewShotHistory() []llm.Message {
	history := make([]llm.Message, 0, len(p.Responses)*2)
	for _, ex := range p.Responses {
		if ex.Input == "" || ex.Output == "" {
			continue
		}
		history = append(history,
			llm.Message{Role: llm.RoleUser, Content: ex.Input},
			llm.Message{Role: llm.RoleAssistant, Content: ex.Output},
		)
	}
	return history
}

func (a ApologySet) notConfigured() string {
	if a.NotConfigured != "" {
		return a.NotConfigured
	}
	return "Sorry, I'm having trouble connecting to my brain right now (API key issue)."
}

func (a ApologySet) emptyResponse() string {
	if a.EmptyResponse != "" {
		return a.EmptyResponse
	}
	return "I received an empty or unexpected response. Please try again."
}

func (a ApologySet) requestFailed() string {
	if a.RequestFailed != "" {
		return a.RequestFailed
	}
	return "I'm having trouble processing that request with my AI brain. Please try again later."
}

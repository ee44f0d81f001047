package conversation

import "strings"

// NormalizeKey maps a provider sender identity onto a filesystem- and
// lock-safe token: every character outside [a-z0-9] becomes an
// underscore. The mapping is deterministic so the same sender always
// lands on the same record regardless of the storage backend.
func NormalizeKey(identity string) string {
	identity = strings.ToLower(strings.TrimSpace(identity))
	var sb strings.Builder
	sb.Grow(len(identity))
	for _, r := range identity {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

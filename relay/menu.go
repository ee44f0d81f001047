package relay

import "strings"

// circledDigits maps the keycap emoji forms onto plain digit keys so a
// user tapping 3️⃣ selects option "3".
var circledDigits = map[string]string{
	"1️⃣": "1", "2️⃣": "2", "3️⃣": "3", "4️⃣": "4",
	"5️⃣": "5", "6️⃣": "6", "7️⃣": "7", "8️⃣": "8", "9️⃣": "9",
}

// IsGreeting reports whether text contains any configured greeting
// keyword, case-insensitively. Always false when the menu is disabled.
func (m Menu) IsGreeting(text string) bool {
	if !m.Enabled || strings.TrimSpace(text) == "" {
		return false
	}
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, keyword := range m.GreetingKeywords {
		if keyword == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

// MatchOption resolves text to a configured option key, accepting both
// the verbatim key and its keycap emoji form.
func (m Menu) MatchOption(text string) (string, bool) {
	if !m.Enabled || len(m.Options) == 0 {
		return "", false
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", false
	}
	if _, ok := m.Options[trimmed]; ok {
		return trimmed, true
	}
	if key, ok := circledDigits[trimmed]; ok {
		if _, configured := m.Options[key]; configured {
			return key, true
		}
	}
	return "", false
}

// ResponseFor returns the canned response for key, if configured.
func (m Menu) ResponseFor(key string) (string, bool) {
	opt, ok := m.Options[key]
	if !ok || opt.Response == "" {
		return "", false
	}
	return opt.Response, true
}

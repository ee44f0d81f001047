package relay

import "strings"

const (
	defaultMaxLinesPerChunk = 3
	defaultMaxCharsPerLine  = 100
)

// SplitMessage breaks a reply into WhatsApp-sized chunks: the text is
// split on newlines, lines longer than maxChars are word-wrapped (a
// single word longer than the budget is hard-cut), and lines are then
// grouped maxLines per chunk. Chunks preserve reading order and are
// never empty.
func SplitMessage(text string, maxLines, maxChars int) []string {
	if maxLines <= 0 {
		maxLines = defaultMaxLinesPerChunk
	}
	if maxChars <= 0 {
		maxChars = defaultMaxCharsPerLine
	}

	var lines []string
	for _, raw := range strings.Split(text, "\n") {
		raw = strings.TrimRight(raw, " \t")
		if strings.TrimSpace(raw) == "" {
			continue
		}
		lines = append(lines, wrapLine(raw, maxChars)...)
	}
	if len(lines) == 0 {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		lines = wrapLine(trimmed, maxChars)
	}

	chunks := make([]string, 0, (len(lines)+maxLines-1)/maxLines)
	for start := 0; start < len(lines); start += maxLines {
		end := start + maxLines
		if end > len(lines) {
			end = len(lines)
		}
		chunks = append(chunks, strings.Join(lines[start:end], "\n"))
	}
	return chunks
}

// wrapLine wraps one logical line at word boundaries within the
// character budget, counted in runes so accented text is not cut short.
func wrapLine(line string, maxChars int) []string {
	if runeLen(line) <= maxChars {
		return []string{line}
	}

	var wrapped []string
	var current string
	for _, word := range strings.Fields(line) {
		for runeLen(word) > maxChars {
			if current != "" {
				wrapped = append(wrapped, current)
				current = ""
			}
			runes := []rune(word)
			wrapped = append(wrapped, string(runes[:maxChars]))
			word = string(runes[maxChars:])
		}
		switch {
		case current == "":
			current = word
		case runeLen(current)+1+runeLen(word) <= maxChars:
			current += " " + word
		default:
			wrapped = append(wrapped, current)
			current = word
		}
	}
	if current != "" {
		wrapped = append(wrapped, current)
	}
	return wrapped
}

func runeLen(s string) int {
	return len([]rune(s))
}

package relay

import (
	"strings"
	"testing"
)

func TestSplitMessageGroupsLines(t *testing.T) {
	t.Parallel()

	text := "um\ndois\ntrês\nquatro\ncinco"
	chunks := SplitMessage(text, 3, 100)
	if len(chunks) != 2 {
		t.Fatalf("SplitMessage() chunks = %d, want 2", len(chunks))
	}
	if chunks[0] != "um\ndois\ntrês" {
		t.Fatalf("SplitMessage() chunk[0] = %q", chunks[0])
	}
	if chunks[1] != "quatro\ncinco" {
		t.Fatalf("SplitMessage() chunk[1] = %q", chunks[1])
	}
}

func TestSplitMessageRespectsLimits(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("palavra ", 60) + "\ncurta\n" + strings.Repeat("x", 250)
	chunks := SplitMessage(text, 3, 100)
	if len(chunks) == 0 {
		t.Fatalf("SplitMessage() returned no chunks")
	}
	for i, chunk := range chunks {
		lines := strings.Split(chunk, "\n")
		if len(lines) > 3 {
			t.Fatalf("chunk %d has %d lines, want <= 3", i, len(lines))
		}
		for _, line := range lines {
			if got := len([]rune(line)); got > 100 {
				t.Fatalf("chunk %d line length = %d, want <= 100", i, got)
			}
			if strings.TrimSpace(line) == "" {
				t.Fatalf("chunk %d contains empty line", i)
			}
		}
	}
}

func TestSplitMessagePreservesWordSequence(t *testing.T) {
	t.Parallel()

	text := "Olá! Seu orçamento ficou pronto.\nSão três lentes com antirreflexo, entrega em cinco dias úteis.\nQualquer dúvida é só chamar aqui no WhatsApp que a gente resolve rapidinho para você."
	chunks := SplitMessage(text, 2, 40)

	var got []string
	for _, chunk := range chunks {
		got = append(got, strings.Fields(chunk)...)
	}
	want := strings.Fields(text)
	if len(got) != len(want) {
		t.Fatalf("word count = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("word[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplitMessageHardCutsLongWord(t *testing.T) {
	t.Parallel()

	word := strings.Repeat("a", 130)
	chunks := SplitMessage(word, 3, 50)
	joined := strings.ReplaceAll(strings.Join(chunks, "\n"), "\n", "")
	if joined != word {
		t.Fatalf("SplitMessage() lost characters from oversized word")
	}
}

func TestSplitMessageEmpty(t *testing.T) {
	t.Parallel()

	if chunks := SplitMessage("   \n  ", 3, 100); chunks != nil {
		t.Fatalf("SplitMessage() = %v, want nil for blank text", chunks)
	}
}

func TestSplitMessageSingleShortText(t *testing.T) {
	t.Parallel()

	chunks := SplitMessage("oi", 3, 100)
	if len(chunks) != 1 || chunks[0] != "oi" {
		t.Fatalf("SplitMessage() = %v, want [oi]", chunks)
	}
}

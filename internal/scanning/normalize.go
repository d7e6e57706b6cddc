package scanning

import (
	"strings"
)

// NormalizeText converts line endings to LF, trims trailing whitespace on
// every line and trims blank lines from both ends
func NormalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\f", "\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t ")
	}

	return strings.Trim(strings.Join(lines, "\n"), "\n \t")
}

// cleanTranscript strips the markdown fences vision models like to wrap output in
func cleanTranscript(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		if nl := strings.Index(text, "\n"); nl != -1 {
			text = text[nl+1:]
		} else {
			text = strings.TrimPrefix(text, "```")
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}

	return strings.TrimSpace(text)
}

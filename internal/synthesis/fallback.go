package synthesis

import (
	"strings"
)

const (
	untitled      = "Analyzed document"
	excerptLength = 300
	ellipsis      = "..."
)

var keyConcepts = []string{
	"Important theoretical elements",
	"Practical applications",
	"Methodologies presented",
}

// Fallback builds the network-free synthesis for raw. It is pure: the same
// input always yields the same output.
func Fallback(raw string) string {
	lines := nonBlankLines(raw)

	title := untitled
	if len(lines) > 0 {
		title = lines[0]
	}

	var points []string
	if len(lines) > 1 {
		points = lines[1:min(len(lines), 4)]
	}

	var b strings.Builder
	b.WriteString("📚 SYNTHESIS: ")
	b.WriteString(title)
	b.WriteString("\n\n🎯 Main points identified:\n")
	b.WriteString(bullets(points))
	b.WriteString("\n\n📝 Summary:\n")
	b.WriteString(excerpt(raw))
	b.WriteString(ellipsis)
	b.WriteString("\n\n🔑 Key concepts:\n")
	b.WriteString(bullets(keyConcepts))
	b.WriteString("\n\n💡 Takeaway:\n")
	b.WriteString("This synthesis was generated automatically from the scanned content. ")
	b.WriteString("For a deeper analysis, refer to the original document.")
	return b.String()
}

// nonBlankLines splits text on newlines, trims every line and drops blanks
func nonBlankLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func bullets(items []string) string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = "• " + item
	}
	return strings.Join(out, "\n")
}

// excerpt returns the first excerptLength characters of the untouched input
func excerpt(raw string) string {
	runes := []rune(raw)
	if len(runes) <= excerptLength {
		return raw
	}
	return string(runes[:excerptLength])
}

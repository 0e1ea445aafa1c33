package extract

import (
	"regexp"
	"strings"
)

var horizontalSpace = regexp.MustCompile("[ \t\u00a0]+")

// NormalizeWhitespace converts line endings to \n, collapses runs of spaces, tabs and
// non-breaking spaces, trims every line and trims the text edges. Newlines are kept.
func NormalizeWhitespace(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = horizontalSpace.ReplaceAllString(text, " ")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

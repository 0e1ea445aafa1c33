// Package redact removes personal contact details from extracted text before it is
// chunked, embedded or sent to the language model.
package redact

import (
	"regexp"
	"strings"
)

// Replacement markers.
const (
	EmailMarker = "[REDACTED_EMAIL]"
	PhoneMarker = "[REDACTED_PHONE]"
)

var (
	emailRe = regexp.MustCompile(`\b[a-zA-Z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	// A phone number is an optional +, a digit, at least six digits/dashes/spaces, and a
	// closing digit. Matches touching another digit are left alone.
	phoneRe = regexp.MustCompile(`\+?\d[\d\-\s]{6,}\d`)
)

// Scrub replaces email addresses and phone numbers in text.
func Scrub(text string) string {
	if text == "" {
		return text
	}
	text = emailRe.ReplaceAllString(text, EmailMarker)
	return scrubPhones(text)
}

func scrubPhones(text string) string {
	matches := phoneRe.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text
	}
	var b strings.Builder
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		if start > 0 && isDigit(text[start-1]) {
			continue
		}
		if end < len(text) && isDigit(text[end]) {
			continue
		}
		b.WriteString(text[last:start])
		b.WriteString(PhoneMarker)
		last = end
	}
	b.WriteString(text[last:])
	return b.String()
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

package policy

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/hyperjump/policysimplify/internal/models"
)

var (
	ownerRe  = regexp.MustCompile(`(?i)(Owner)\s*[:\-–—]?\s*([^—–\-|]+)`)
	dueRe    = regexp.MustCompile(`(?i)(Due)\s*[:\-–—]?\s*([^—–\-|]+)`)
	dayMonRe = regexp.MustCompile(`(?i)\b(\d{1,2})\s+(January|February|March|April|May|June|July|August|September|October|November|December)\b`)
	annualRe = regexp.MustCompile(`(?i)\b(each year|annually|annual)\b`)
	splitRe  = regexp.MustCompile(`\s[—–-]\s`)
)

var months = map[string]int{
	"january": 1, "february": 2, "march": 3, "april": 4, "may": 5, "june": 6,
	"july": 7, "august": 8, "september": 9, "october": 10, "november": 11, "december": 12,
}

// ExtractTasks parses bullet or numbered checklist lines into tasks. Lines that are not
// list items are skipped.
func ExtractTasks(checklist string) []models.Task {
	tasks := []models.Task{}
	for _, raw := range strings.Split(checklist, "\n") {
		line := strings.TrimSpace(raw)
		if !isListItem(line) {
			continue
		}
		task := models.Task{Action: cleanAction(line)}
		if m := ownerRe.FindStringSubmatch(line); m != nil {
			task.Owner = strings.Trim(m[2], " .;")
		}
		if m := dueRe.FindStringSubmatch(line); m != nil {
			task.Due = normalizeDue(strings.Trim(m[2], " .;"))
		}
		tasks = append(tasks, task)
	}
	return tasks
}

func isListItem(line string) bool {
	if line == "" {
		return false
	}
	if strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*") || strings.HasPrefix(line, "•") {
		return true
	}
	r := []rune(line)[0]
	return unicode.IsDigit(r)
}

// normalizeDue rewrites "15 March" as "03-15" and marks recurring dates.
func normalizeDue(due string) string {
	if due == "" {
		return ""
	}
	m := dayMonRe.FindStringSubmatch(due)
	if m == nil {
		return due
	}
	day, err := strconv.Atoi(m[1])
	if err != nil {
		return due
	}
	out := fmt.Sprintf("%02d-%02d", months[strings.ToLower(m[2])], day)
	if annualRe.MatchString(due) {
		out += " (annual)"
	}
	return out
}

func cleanAction(line string) string {
	s := strings.TrimLeft(strings.TrimSpace(line), "-*• ")
	parts := splitRe.Split(s, 2)
	return strings.TrimSpace(parts[0])
}

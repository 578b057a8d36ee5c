package student

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

// minFuzzyInput is the shortest input for which the typo-tolerant fallback runs.
const minFuzzyInput = 3

// Suggest returns autocomplete lines for input. A student matches when its ID
// starts with input, or when "first last" or "last first" contains input
// case-insensitively. If nothing matches, names are ranked with a fuzzy matcher
// so small typos still find the student.
func Suggest(students []Student, input string) []string {
	lower := strings.ToLower(input)

	var out []string
	for _, s := range students {
		if matches(s, input, lower) {
			out = append(out, s.Suggestion())
		}
	}
	if len(out) > 0 || len(strings.TrimSpace(input)) < minFuzzyInput {
		return out
	}

	for _, m := range fuzzy.FindFrom(lower, nameSource(students)) {
		out = append(out, students[m.Index].Suggestion())
	}
	return out
}

// IdentifierFromSuggestion extracts the identifier from a line produced by
// Suggest, or from free-form input by taking its first eight characters after
// trimming.
func IdentifierFromSuggestion(line string) string {
	trimmed := strings.TrimSpace(line)
	if id, _, ok := strings.Cut(trimmed, " - "); ok {
		trimmed = strings.TrimSpace(id)
	}
	runes := []rune(trimmed)
	if len(runes) > IdentifierLength {
		runes = runes[:IdentifierLength]
	}
	return string(runes)
}

func matches(s Student, input, lower string) bool {
	if strings.HasPrefix(s.ID, input) {
		return true
	}
	first := strings.ToLower(s.FirstName)
	last := strings.ToLower(s.LastName)
	return strings.Contains(first+" "+last, lower) || strings.Contains(last+" "+first, lower)
}

type nameSource []Student

func (n nameSource) String(i int) string {
	return strings.ToLower(n[i].FirstName + " " + n[i].LastName)
}

func (n nameSource) Len() int { return len(n) }

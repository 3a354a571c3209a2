package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeName lowercases a column or field name and strips all whitespace.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

// CleanList trims every entry and drops the empty ones. Entries are never split, titles
// like "TAKEDOWN (JEONGYEON, JIHYO, CHAEYOUNG)" keep their commas.
func CleanList(entries []string) []string {
	var out []string
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry != "" {
			out = append(out, entry)
		}
	}
	return out
}

// Package series canonicalizes series names and extracts series membership
// from book titles.
package series

import (
	"regexp"
	"strings"
)

var (
	leadingArticle = regexp.MustCompile(`(?i)^(?:the|a|an)\s+`)
	trailingVolume = regexp.MustCompile(`(?i),\s*(?:book|vol\.|volume)\s*$`)
	trailingKind   = regexp.MustCompile(`(?i)\s+(?:series|saga|trilogy)\s*$`)
	multiSpace     = regexp.MustCompile(`\s+`)
)

// Normalize canonicalizes a series name so that variants from different
// catalogs group together. Leading articles, trailing ", Book" style markers
// and trailing Series/Saga/Trilogy suffixes are removed without changing the
// case of what remains. The second return is false when nothing is left.
func Normalize(name string) (string, bool) {
	n := strings.TrimSpace(name)
	n = leadingArticle.ReplaceAllString(n, "")
	n = trailingVolume.ReplaceAllString(n, "")
	n = trailingKind.ReplaceAllString(n, "")
	n = multiSpace.ReplaceAllString(n, " ")
	n = strings.TrimSpace(n)
	if n == "" {
		return "", false
	}
	return n, true
}

// NormalizeOrEmpty is Normalize for callers that store absence as "".
func NormalizeOrEmpty(name string) string {
	n, _ := Normalize(name)
	return n
}

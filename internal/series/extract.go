package series

import (
	"regexp"
	"strings"
)

type entry struct {
	name     string
	position string
}

// known covers titles whose catalogs carry no series data.
var known = map[string]entry{
	"A Game of Thrones":    {"A Song of Ice and Fire", "1"},
	"A Clash of Kings":     {"A Song of Ice and Fire", "2"},
	"A Storm of Swords":    {"A Song of Ice and Fire", "3"},
	"A Feast for Crows":    {"A Song of Ice and Fire", "4"},
	"A Dance with Dragons": {"A Song of Ice and Fire", "5"},
	"The Winds of Winter":  {"A Song of Ice and Fire", "6"},
	"A Dream of Spring":    {"A Song of Ice and Fire", "7"},
	"Dragon Keeper":        {"Rain Wild Chronicles", "1"},
	"Dragon Haven":         {"Rain Wild Chronicles", "2"},
	"City of Dragons":      {"Rain Wild Chronicles", "3"},
	"Blood of Dragons":     {"Rain Wild Chronicles", "4"},
	"Fool's Errand":        {"Tawny Man", "1"},
	"Golden Fool":          {"Tawny Man", "2"},
	"Fool's Fate":          {"Tawny Man", "3"},
}

type titlePattern struct {
	re      *regexp.Regexp
	nameIdx int
	posIdx  int
}

// Ordered; the first pattern yielding a name wins.
var titlePatterns = []titlePattern{
	{regexp.MustCompile(`(?i)\(([^)]+?)[,\s]+#?(\d+)\)`), 1, 2},
	{regexp.MustCompile(`(?i)\(([^)]+?)\s+Book\s+(\d+)\)`), 1, 2},
	{regexp.MustCompile(`(?i)^([^:]+?):\s+`), 1, 0},
	{regexp.MustCompile(`(?i)^([^-]+?)\s+-\s+`), 1, 0},
	{regexp.MustCompile(`(?i)^(.+?)\s+(?:Book|Vol\.?|Volume)\s+(\d+)`), 1, 2},
	{regexp.MustCompile(`(?i)^(.+?)\s+#(\d+)`), 1, 2},
	{regexp.MustCompile(`(?i)Part\s+(\d+)`), 0, 1},
}

var positionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Book\s+(\d+)`),
	regexp.MustCompile(`#(\d+)`),
	regexp.MustCompile(`(?i)Vol\.?\s+(\d+)`),
	regexp.MustCompile(`(?i)Volume\s+(\d+)`),
	regexp.MustCompile(`\((\d+)\)`),
}

var seriesKeywords = []string{"series", "saga", "trilogy", "chronicles"}

// Extract guesses series membership from a title, subtitle and category
// list. It returns empty strings when nothing is recognized. Names are
// returned as found; callers run Normalize before storing them.
func Extract(title, subtitle string, categories []string) (name, position string) {
	if e, ok := known[strings.TrimSpace(title)]; ok {
		return e.name, e.position
	}

	full := title
	if subtitle != "" {
		full = title + " " + subtitle
	}

	for _, p := range titlePatterns {
		m := p.re.FindStringSubmatch(full)
		if m == nil {
			continue
		}
		if p.nameIdx > 0 {
			name = strings.TrimSpace(m[p.nameIdx])
		}
		if p.posIdx > 0 {
			position = m[p.posIdx]
		}
		if name != "" {
			return name, position
		}
	}

	for _, c := range categories {
		if !strings.Contains(c, "/") {
			continue
		}
		for _, part := range strings.Split(c, "/") {
			part = strings.TrimSpace(part)
			lower := strings.ToLower(part)
			for _, kw := range seriesKeywords {
				if strings.Contains(lower, kw) {
					return part, position
				}
			}
		}
	}
	return "", position
}

// PositionFromTitle pulls a series position such as "Book 3" or "#3" out of
// a title.
func PositionFromTitle(title string) string {
	for _, re := range positionPatterns {
		if m := re.FindStringSubmatch(title); m != nil {
			return m[1]
		}
	}
	return ""
}

// FromSubjects finds a "series:Name" subject tag, as used by Open Library.
func FromSubjects(subjects []string) string {
	for _, s := range subjects {
		if len(s) > 7 && strings.EqualFold(s[:7], "series:") {
			return strings.TrimSpace(s[7:])
		}
	}
	return ""
}

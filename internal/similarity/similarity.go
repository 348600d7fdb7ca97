// Package similarity scores how likely two book records describe the same
// work, using token-set overlap on titles and author names.
package similarity

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/bookmeta/internal/model"
)

// Default thresholds for Policy.
const (
	DefaultTitleThreshold  = 0.6
	DefaultAuthorThreshold = 0.5
)

var nonAlnum = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// NormalizeText folds diacritics, lowercases, replaces every run of
// non-alphanumeric characters with one space and trims.
func NormalizeText(s string) string {
	stripAccents := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripAccents, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	folded = nonAlnum.ReplaceAllString(folded, " ")
	return strings.TrimSpace(folded)
}

// Title returns the Jaccard similarity of the word sets of two titles.
// Either title being empty yields 0.
func Title(a, b string) float64 {
	return jaccard(wordSet(a), wordSet(b))
}

// Authors returns the Jaccard similarity of two author lists, comparing
// normalized full names. Either list being empty yields 0.
func Authors(a, b []string) float64 {
	return jaccard(nameSet(a), nameSet(b))
}

// Policy holds the thresholds a supplementary record must meet to be merged
// into a canonical one.
type Policy struct {
	TitleThreshold  float64 `yaml:"title_threshold" mapstructure:"title_threshold"`
	AuthorThreshold float64 `yaml:"author_threshold" mapstructure:"author_threshold"`
}

// DefaultPolicy returns the standard thresholds.
func DefaultPolicy() Policy {
	return Policy{
		TitleThreshold:  DefaultTitleThreshold,
		AuthorThreshold: DefaultAuthorThreshold,
	}
}

// Verdict is the outcome of a consistency check.
type Verdict struct {
	TitleScore   float64
	AuthorScore  float64
	AuthorsKnown bool
	Consistent   bool
}

// Check compares a candidate against the canonical record. Authors only count
// against the candidate when both sides list them.
func (p Policy) Check(canonical, candidate model.Book) Verdict {
	v := Verdict{
		TitleScore:   Title(canonical.Title, candidate.Title),
		AuthorsKnown: len(nameSet(canonical.Authors)) > 0 && len(nameSet(candidate.Authors)) > 0,
	}
	if v.AuthorsKnown {
		v.AuthorScore = Authors(canonical.Authors, candidate.Authors)
	}
	v.Consistent = v.TitleScore >= p.TitleThreshold &&
		(!v.AuthorsKnown || v.AuthorScore >= p.AuthorThreshold)
	return v
}

// IsConsistent applies DefaultPolicy.
func IsConsistent(canonical, candidate model.Book) bool {
	return DefaultPolicy().Check(canonical, candidate).Consistent
}

func wordSet(s string) map[string]bool {
	n := NormalizeText(s)
	if n == "" {
		return nil
	}
	set := make(map[string]bool)
	for _, w := range strings.Fields(n) {
		set[w] = true
	}
	return set
}

func nameSet(names []string) map[string]bool {
	set := make(map[string]bool)
	for _, name := range names {
		if n := NormalizeText(name); n != "" {
			set[n] = true
		}
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if b[w] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

package reconcile

import (
	"time"

	"github.com/sells-group/bookmeta/internal/model"
)

// Outcome says how a lookup ended.
type Outcome string

// Lookup outcomes.
const (
	OutcomeCached    Outcome = "cached"
	OutcomeNoSources Outcome = "no_sources"
	OutcomeNotFound  Outcome = "not_found"
	OutcomeMerged    Outcome = "merged"
)

// SourceStatus is what one source contributed to a run.
type SourceStatus string

// Source statuses.
const (
	StatusFound   SourceStatus = "found"
	StatusEmpty   SourceStatus = "empty"
	StatusFailed  SourceStatus = "failed"
	StatusSkipped SourceStatus = "skipped"
)

// RejectReason says why a candidate was not merged.
type RejectReason string

// Rejection reasons.
const (
	ReasonMissingISBN      RejectReason = "missing_isbn"
	ReasonIdentityMismatch RejectReason = "identity_mismatch"
	ReasonInconsistent     RejectReason = "inconsistent"
)

// SourceReport records one source's part in a run.
type SourceReport struct {
	Source   string        `json:"source"`
	Priority int           `json:"priority"`
	Status   SourceStatus  `json:"status"`
	Error    string        `json:"error,omitempty"`
	Elapsed  time.Duration `json:"elapsed_ns"`
}

// Rejection records a discarded candidate.
type Rejection struct {
	Source      string       `json:"source"`
	Reason      RejectReason `json:"reason"`
	ISBN        string       `json:"isbn,omitempty"`
	TitleScore  float64      `json:"title_score,omitempty"`
	AuthorScore float64      `json:"author_score,omitempty"`
}

// Result is the outcome of an ISBN lookup. Book is nil unless Outcome is
// OutcomeCached or OutcomeMerged.
type Result struct {
	Book       *model.Book    `json:"book,omitempty"`
	Outcome    Outcome        `json:"outcome"`
	Sources    []SourceReport `json:"sources,omitempty"`
	Rejections []Rejection    `json:"rejections,omitempty"`
}

// Found reports whether the lookup produced a record.
func (r *Result) Found() bool {
	return r != nil && r.Book != nil
}

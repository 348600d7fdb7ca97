package model

// Book is one bibliographic record. Sources produce Books as candidates and
// the reconciler produces a Book as the merged result. Empty strings, nil
// slices and a nil PageCount all mean "absent".
type Book struct {
	Title            string   `json:"title,omitempty"`
	Subtitle         string   `json:"subtitle,omitempty"`
	Authors          []string `json:"authors,omitempty"`
	Description      string   `json:"description,omitempty"`
	Publisher        string   `json:"publisher,omitempty"`
	PublishedDate    string   `json:"published_date,omitempty"`
	PageCount        *int     `json:"page_count,omitempty"`
	Categories       []string `json:"categories,omitempty"`
	CoverImageURL    string   `json:"cover_image_url,omitempty"`
	ISBN             string   `json:"isbn,omitempty"`
	SeriesName       string   `json:"series_name,omitempty"`
	SeriesPosition   string   `json:"series_position,omitempty"`
	Edition          string   `json:"edition,omitempty"`
	Format           string   `json:"format,omitempty"`
	SourceIdentifier string   `json:"source_identifier,omitempty"`
}

// Clone returns a deep copy of b.
func (b Book) Clone() Book {
	out := b
	if b.Authors != nil {
		out.Authors = append([]string(nil), b.Authors...)
	}
	if b.Categories != nil {
		out.Categories = append([]string(nil), b.Categories...)
	}
	if b.PageCount != nil {
		n := *b.PageCount
		out.PageCount = &n
	}
	return out
}

// FirstAuthor returns the first listed author or "".
func (b Book) FirstAuthor() string {
	if len(b.Authors) == 0 {
		return ""
	}
	return b.Authors[0]
}

// IntPtr returns a pointer to n. Used for PageCount literals.
func IntPtr(n int) *int {
	return &n
}

// Candidate is one source's opinion about a book, attributed to that source.
type Candidate struct {
	Source   string `json:"source"`
	Priority int    `json:"priority"`
	Book     Book   `json:"book"`
}

package reconcile

import (
	"github.com/sells-group/bookmeta/internal/model"
)

// Field names a mergeable Book field.
type Field string

// Mergeable fields. ISBN is not listed: the engine sets it from the search.
const (
	FieldTitle            Field = "title"
	FieldSubtitle         Field = "subtitle"
	FieldAuthors          Field = "authors"
	FieldDescription      Field = "description"
	FieldPublisher        Field = "publisher"
	FieldPublishedDate    Field = "published_date"
	FieldPageCount        Field = "page_count"
	FieldCategories       Field = "categories"
	FieldCoverImageURL    Field = "cover_image_url"
	FieldSeriesName       Field = "series_name"
	FieldSeriesPosition   Field = "series_position"
	FieldEdition          Field = "edition"
	FieldFormat           Field = "format"
	FieldSourceIdentifier Field = "source_identifier"
)

// Protected reports whether f belongs to the canonical source. Supplements
// may fill a protected field the canonical record left empty but never
// change or extend it.
func (f Field) Protected() bool {
	switch f {
	case FieldTitle, FieldAuthors, FieldPublisher, FieldPublishedDate:
		return true
	}
	return false
}

type mode int

const (
	// fill empty dst values from src; union non-protected lists
	modeSupplement mode = iota
	// replace dst values with non-empty src values
	modeOverlay
)

// reducer folds src into dst for one field.
type reducer func(dst *model.Book, src model.Book, protected bool, m mode)

func textField(get func(*model.Book) *string) reducer {
	return func(dst *model.Book, src model.Book, _ bool, m mode) {
		d, s := get(dst), *get(&src)
		if s != "" && (*d == "" || m == modeOverlay) {
			*d = s
		}
	}
}

func intField(get func(*model.Book) **int) reducer {
	return func(dst *model.Book, src model.Book, _ bool, m mode) {
		d, s := get(dst), *get(&src)
		if s != nil && (*d == nil || m == modeOverlay) {
			n := *s
			*d = &n
		}
	}
}

func listField(get func(*model.Book) *[]string) reducer {
	return func(dst *model.Book, src model.Book, protected bool, m mode) {
		d, s := get(dst), *get(&src)
		switch {
		case len(s) == 0:
		case len(*d) == 0 || m == modeOverlay:
			*d = append([]string(nil), s...)
		case !protected:
			*d = union(*d, s)
		}
	}
}

// fields is the declared merge order.
var fields = []struct {
	name   Field
	reduce reducer
}{
	{FieldTitle, textField(func(b *model.Book) *string { return &b.Title })},
	{FieldSubtitle, textField(func(b *model.Book) *string { return &b.Subtitle })},
	{FieldAuthors, listField(func(b *model.Book) *[]string { return &b.Authors })},
	{FieldDescription, textField(func(b *model.Book) *string { return &b.Description })},
	{FieldPublisher, textField(func(b *model.Book) *string { return &b.Publisher })},
	{FieldPublishedDate, textField(func(b *model.Book) *string { return &b.PublishedDate })},
	{FieldPageCount, intField(func(b *model.Book) **int { return &b.PageCount })},
	{FieldCategories, listField(func(b *model.Book) *[]string { return &b.Categories })},
	{FieldCoverImageURL, textField(func(b *model.Book) *string { return &b.CoverImageURL })},
	{FieldSeriesName, textField(func(b *model.Book) *string { return &b.SeriesName })},
	{FieldSeriesPosition, textField(func(b *model.Book) *string { return &b.SeriesPosition })},
	{FieldEdition, textField(func(b *model.Book) *string { return &b.Edition })},
	{FieldFormat, textField(func(b *model.Book) *string { return &b.Format })},
	{FieldSourceIdentifier, textField(func(b *model.Book) *string { return &b.SourceIdentifier })},
}

// Fields returns the merge field list in order.
func Fields() []Field {
	out := make([]Field, len(fields))
	for i, f := range fields {
		out[i] = f.name
	}
	return out
}

// supplement returns a copy of base with src folded in field by field.
func supplement(base, src model.Book) model.Book {
	return fold(base, src, modeSupplement)
}

// overlay returns a copy of base with every non-empty field of src applied.
func overlay(base, src model.Book) model.Book {
	return fold(base, src, modeOverlay)
}

func fold(base, src model.Book, m mode) model.Book {
	out := base.Clone()
	for _, f := range fields {
		f.reduce(&out, src, f.name.Protected(), m)
	}
	return out
}

// union appends the entries of b missing from a, keeping first-seen order
// and dropping duplicates.
func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

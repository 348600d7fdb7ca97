package source

import (
	"context"
	"strconv"

	"github.com/sells-group/bookmeta/internal/model"
	"github.com/sells-group/bookmeta/pkg/hardcover"
)

const maxGenres = 3

// Hardcover adapts the Hardcover GraphQL search.
type Hardcover struct {
	name   string
	client hardcover.Client
}

// NewHardcover creates the adapter under the configured source name.
func NewHardcover(name string, client hardcover.Client) *Hardcover {
	if name == "" {
		name = model.SourceHardcover
	}
	return &Hardcover{name: name, client: client}
}

// Name implements Adapter.
func (h *Hardcover) Name() string { return h.name }

// SearchByISBN implements Adapter. Hits without ISBNs are attributed to the
// searched code; hits listing only other ISBNs keep their own so that the
// caller rejects them.
func (h *Hardcover) SearchByISBN(ctx context.Context, code string) (*model.Book, error) {
	docs, err := h.client.Search(ctx, code, 1)
	if err != nil || len(docs) == 0 {
		return nil, err
	}
	d := docs[0]
	if d.Title == "" {
		return nil, nil
	}
	b := documentToBook(d)
	if len(d.ISBNs) == 0 {
		b.ISBN = code
	} else {
		b.ISBN = matchingISBN(d.ISBNs, code)
	}
	return &b, nil
}

// SearchByTitle implements Adapter.
func (h *Hardcover) SearchByTitle(ctx context.Context, query string, maxResults int) ([]model.Book, error) {
	docs, err := h.client.Search(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}
	out := make([]model.Book, 0, len(docs))
	for _, d := range docs {
		if d.Title == "" {
			continue
		}
		b := documentToBook(d)
		b.ISBN = preferISBN13(d.ISBNs)
		out = append(out, b)
	}
	return out, nil
}

func documentToBook(d hardcover.Document) model.Book {
	b := model.Book{
		Title:          d.Title,
		Subtitle:       d.Subtitle,
		Authors:        d.AuthorNames,
		Description:    d.Description,
		PageCount:      pageCount(d.Pages),
		Categories:     firstN(d.Genres, maxGenres),
		CoverImageURL:  d.ImageURL(),
		SeriesName:     d.SeriesName(),
		SeriesPosition: d.SeriesPosition(),
	}
	if d.ReleaseYear > 0 {
		b.PublishedDate = strconv.Itoa(d.ReleaseYear)
	}
	if len(d.ID) > 0 {
		b.SourceIdentifier = string(d.ID)
	}
	return b
}

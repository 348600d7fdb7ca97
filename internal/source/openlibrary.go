package source

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/sells-group/bookmeta/internal/model"
	"github.com/sells-group/bookmeta/internal/series"
	"github.com/sells-group/bookmeta/pkg/openlibrary"
)

const maxSubjects = 5

// OpenLibrary adapts the Open Library books and search APIs.
type OpenLibrary struct {
	client    openlibrary.Client
	coversURL string
}

// NewOpenLibrary creates the adapter. coversURL is the covers API base used
// for search hits that carry only a cover id.
func NewOpenLibrary(client openlibrary.Client, coversURL string) *OpenLibrary {
	if coversURL == "" {
		coversURL = "https://covers.openlibrary.org/b"
	}
	return &OpenLibrary{client: client, coversURL: coversURL}
}

// Name implements Adapter.
func (o *OpenLibrary) Name() string { return model.SourceOpenLibrary }

// SearchByISBN implements Adapter.
func (o *OpenLibrary) SearchByISBN(ctx context.Context, code string) (*model.Book, error) {
	ed, err := o.client.BookByISBN(ctx, code)
	if err != nil || ed == nil {
		return nil, err
	}

	b := model.Book{
		Title:            ed.Title,
		Subtitle:         ed.Subtitle,
		PublishedDate:    ed.PublishDate,
		PageCount:        pageCount(ed.NumberOfPages),
		ISBN:             ed.ISBN(),
		Format:           ed.PhysicalFormat,
		SourceIdentifier: ed.Key,
	}
	if b.ISBN == "" {
		// Bibkey lookups are exact, so the edition is the searched one.
		b.ISBN = code
	}
	for _, a := range ed.Authors {
		if a.Name != "" {
			b.Authors = append(b.Authors, a.Name)
		}
	}
	if len(ed.Publishers) > 0 {
		b.Publisher = ed.Publishers[0].Name
	}
	for _, s := range ed.Subjects {
		if len(b.Categories) == maxSubjects {
			break
		}
		if s.Name != "" {
			b.Categories = append(b.Categories, s.Name)
		}
	}
	for _, size := range []string{"large", "medium", "small"} {
		if u := ed.Cover[size]; u != "" {
			b.CoverImageURL = u
			break
		}
	}

	b.SeriesName, b.SeriesPosition = openLibrarySeries(ctx, o.client, code)
	return &b, nil
}

// SearchByTitle implements Adapter.
func (o *OpenLibrary) SearchByTitle(ctx context.Context, query string, maxResults int) ([]model.Book, error) {
	docs, err := o.client.Search(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}
	out := make([]model.Book, 0, len(docs))
	for _, d := range docs {
		if d.Title == "" {
			continue
		}
		b := model.Book{
			Title:            d.Title,
			Subtitle:         d.Subtitle,
			Authors:          d.AuthorName,
			PageCount:        pageCount(d.NumberOfPagesMed),
			Categories:       firstN(d.Subject, maxSubjects),
			ISBN:             preferISBN13(d.ISBN),
			SourceIdentifier: d.Key,
		}
		if len(d.Publisher) > 0 {
			b.Publisher = d.Publisher[0]
		}
		if d.FirstPublishYear > 0 {
			b.PublishedDate = strconv.Itoa(d.FirstPublishYear)
		}
		if d.CoverI > 0 {
			b.CoverImageURL = o.coversURL + "/id/" + strconv.Itoa(d.CoverI) + "-L.jpg"
		}
		out = append(out, b)
	}
	return out, nil
}

// openLibrarySeries finds the work behind code and reads its "series:"
// subject. Failures yield empty strings.
func openLibrarySeries(ctx context.Context, client openlibrary.Client, code string) (name, position string) {
	docs, err := client.Search(ctx, "isbn:"+code, 1)
	if err != nil || len(docs) == 0 || docs[0].Key == "" {
		if err != nil {
			zap.L().Debug("source: open library series search failed", zap.String("isbn", code), zap.Error(err))
		}
		return "", ""
	}
	work, err := client.Work(ctx, docs[0].Key)
	if err != nil || work == nil {
		return "", ""
	}
	name = series.FromSubjects(work.Subjects)
	if name == "" {
		return "", ""
	}
	return name, series.PositionFromTitle(work.Title)
}

package source

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/bookmeta/internal/model"
	"github.com/sells-group/bookmeta/internal/series"
	"github.com/sells-group/bookmeta/pkg/googlebooks"
	"github.com/sells-group/bookmeta/pkg/openlibrary"
)

// GoogleBooks adapts the Google Books volumes API. When covers is set, Open
// Library fills in missing cover images and series names.
type GoogleBooks struct {
	client googlebooks.Client
	covers openlibrary.Client
}

// NewGoogleBooks creates the adapter. covers may be nil.
func NewGoogleBooks(client googlebooks.Client, covers openlibrary.Client) *GoogleBooks {
	return &GoogleBooks{client: client, covers: covers}
}

// Name implements Adapter.
func (g *GoogleBooks) Name() string { return model.SourceGoogleBooks }

// SearchByISBN implements Adapter.
func (g *GoogleBooks) SearchByISBN(ctx context.Context, code string) (*model.Book, error) {
	vol, err := g.client.SearchISBN(ctx, code)
	if err != nil || vol == nil {
		return nil, err
	}

	b := volumeToBook(*vol)
	if b.ISBN == "" {
		// The query was isbn-scoped, so the hit belongs to the searched code.
		zap.L().Debug("source: google books returned no identifiers, using searched isbn",
			zap.String("isbn", code),
		)
		b.ISBN = code
	}
	if b.CoverImageURL == "" {
		b.CoverImageURL = g.coverFallback(ctx, code)
	}
	if b.SeriesName == "" && g.covers != nil {
		name, pos := openLibrarySeries(ctx, g.covers, code)
		if name != "" {
			b.SeriesName = name
			if pos != "" {
				b.SeriesPosition = pos
			}
		}
	}
	return &b, nil
}

// SearchByTitle implements Adapter.
func (g *GoogleBooks) SearchByTitle(ctx context.Context, query string, maxResults int) ([]model.Book, error) {
	vols, err := g.client.Search(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}
	out := make([]model.Book, 0, len(vols))
	for _, v := range vols {
		b := volumeToBook(v)
		if b.Title == "" {
			continue
		}
		if b.CoverImageURL == "" && b.ISBN != "" {
			b.CoverImageURL = g.coverFallback(ctx, b.ISBN)
		}
		out = append(out, b)
	}
	return out, nil
}

func (g *GoogleBooks) coverFallback(ctx context.Context, code string) string {
	if g.covers == nil {
		return ""
	}
	u, err := g.covers.CoverURL(ctx, code)
	if err != nil {
		zap.L().Debug("source: cover fallback failed", zap.String("isbn", code), zap.Error(err))
		return ""
	}
	return u
}

func volumeToBook(v googlebooks.Volume) model.Book {
	info := v.VolumeInfo
	b := model.Book{
		Title:            info.Title,
		Subtitle:         info.Subtitle,
		Authors:          info.Authors,
		Description:      info.Description,
		Publisher:        info.Publisher,
		PublishedDate:    info.PublishedDate,
		PageCount:        pageCount(info.PageCount),
		Categories:       info.Categories,
		CoverImageURL:    info.Thumbnail(),
		ISBN:             info.ISBN(),
		Format:           info.PrintType,
		SourceIdentifier: v.ID,
	}
	b.SeriesName, b.SeriesPosition = series.Extract(info.Title, info.Subtitle, info.Categories)
	return b
}

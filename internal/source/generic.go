package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/bookmeta/internal/fetcher"
	"github.com/sells-group/bookmeta/internal/model"
)

// Generic queries an arbitrary catalog by trying the URL shapes common to
// book APIs and reading whatever field names the reply uses. It never
// returns an error; unreachable or unparseable catalogs yield no records.
type Generic struct {
	name    string
	baseURL string
	apiKey  string
	fetch   *fetcher.Client
}

// NewGeneric creates a Generic adapter for cfg.
func NewGeneric(cfg model.SourceConfig, fetch *fetcher.Client) *Generic {
	if fetch == nil {
		fetch = fetcher.New(fetcher.Options{Service: cfg.Name})
	}
	return &Generic{
		name:    cfg.Name,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		fetch:   fetch,
	}
}

// Name implements Adapter.
func (g *Generic) Name() string { return g.name }

// SearchByISBN implements Adapter.
func (g *Generic) SearchByISBN(ctx context.Context, code string) (*model.Book, error) {
	if g.baseURL == "" {
		return nil, nil
	}
	esc := url.QueryEscape(code)
	urls := []string{
		g.baseURL + "/isbn/" + url.PathEscape(code),
		g.baseURL + "/search?isbn=" + esc,
		g.baseURL + "/volumes?q=isbn:" + esc,
	}
	data, ok := g.firstOK(ctx, urls)
	if !ok {
		return nil, nil
	}
	obj, ok := data.(map[string]any)
	if !ok {
		return nil, nil
	}
	return ParseRecord(obj), nil
}

// SearchByTitle implements Adapter.
func (g *Generic) SearchByTitle(ctx context.Context, query string, maxResults int) ([]model.Book, error) {
	if g.baseURL == "" {
		return nil, nil
	}
	q := url.QueryEscape(query)
	urls := []string{
		fmt.Sprintf("%s/search?q=%s&limit=%d", g.baseURL, q, maxResults),
		fmt.Sprintf("%s/volumes?q=%s&maxResults=%d", g.baseURL, q, maxResults),
	}
	data, ok := g.firstOK(ctx, urls)
	if !ok {
		return nil, nil
	}
	obj, ok := data.(map[string]any)
	if !ok {
		return nil, nil
	}
	return ParseResults(obj), nil
}

// firstOK returns the decoded body of the first URL that answers 2xx.
func (g *Generic) firstOK(ctx context.Context, urls []string) (any, bool) {
	header := http.Header{}
	if g.apiKey != "" {
		header.Set("Authorization", "Bearer "+g.apiKey)
		header.Set("X-API-Key", g.apiKey)
	}
	for _, u := range urls {
		var data any
		if err := g.fetch.GetJSON(ctx, u, header, &data); err != nil {
			zap.L().Debug("source: generic url failed",
				zap.String("source", g.name),
				zap.String("url", u),
				zap.Error(err),
			)
			if ctx.Err() != nil {
				return nil, false
			}
			continue
		}
		return data, true
	}
	return nil, false
}

type fieldKind int

const (
	kindText fieldKind = iota
	kindList
	kindInt
	kindImage
	kindCode
)

// alias maps one Book field to the payload keys that may carry it. Keys are
// tried in order and the first non-empty value wins.
type alias struct {
	keys []string
	kind fieldKind
	set  func(b *model.Book, v any)
}

var aliases = []alias{
	{[]string{"title", "name", "book_title"}, kindText, func(b *model.Book, v any) { b.Title = v.(string) }},
	{[]string{"subtitle", "subTitle"}, kindText, func(b *model.Book, v any) { b.Subtitle = v.(string) }},
	{[]string{"authors", "author", "author_name", "creators"}, kindList, func(b *model.Book, v any) { b.Authors = v.([]string) }},
	{[]string{"description", "summary", "synopsis"}, kindText, func(b *model.Book, v any) { b.Description = v.(string) }},
	{[]string{"publisher", "publisherName"}, kindText, func(b *model.Book, v any) { b.Publisher = v.(string) }},
	{[]string{"publishedDate", "published_date", "publication_date", "publish_date"}, kindText, func(b *model.Book, v any) { b.PublishedDate = v.(string) }},
	{[]string{"pageCount", "page_count", "pages", "number_of_pages"}, kindInt, func(b *model.Book, v any) { b.PageCount = model.IntPtr(v.(int)) }},
	{[]string{"categories", "genres", "subjects"}, kindList, func(b *model.Book, v any) { b.Categories = v.([]string) }},
	{[]string{"thumbnail", "cover", "image", "cover_url", "imageLinks"}, kindImage, func(b *model.Book, v any) { b.CoverImageURL = v.(string) }},
	{[]string{"isbn", "isbn13", "isbn_13"}, kindCode, func(b *model.Book, v any) { b.ISBN = v.(string) }},
}

// ParseRecord maps an arbitrary JSON object to a Book. Google-style
// volumeInfo and items wrappers are unwrapped first. It returns nil when no
// title can be found.
func ParseRecord(data map[string]any) *model.Book {
	data = unwrap(data)

	var b model.Book
	for _, a := range aliases {
		for _, k := range a.keys {
			if v, ok := coerce(data[k], a.kind); ok {
				a.set(&b, v)
				break
			}
		}
	}
	if links, ok := data["imageLinks"].(map[string]any); ok {
		if u := imageURL(links); u != "" {
			b.CoverImageURL = u
		}
	}
	if b.Title == "" {
		return nil
	}
	return &b
}

// ParseResults reads a result list from items, docs or results and parses
// each entry. Entries without a title are skipped.
func ParseResults(data map[string]any) []model.Book {
	var list []any
	for _, k := range []string{"items", "docs", "results"} {
		if l, ok := data[k].([]any); ok {
			list = l
			break
		}
	}
	out := make([]model.Book, 0, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if b := ParseRecord(obj); b != nil {
			out = append(out, *b)
		}
	}
	return out
}

func unwrap(data map[string]any) map[string]any {
	if vi, ok := data["volumeInfo"].(map[string]any); ok {
		return vi
	}
	if items, ok := data["items"].([]any); ok && len(items) > 0 {
		if first, ok := items[0].(map[string]any); ok {
			if vi, ok := first["volumeInfo"].(map[string]any); ok {
				return vi
			}
			return first
		}
	}
	return data
}

func coerce(v any, kind fieldKind) (any, bool) {
	if v == nil {
		return nil, false
	}
	switch kind {
	case kindText:
		s := scalarText(v)
		return s, s != ""
	case kindList:
		l := textList(v)
		return l, len(l) > 0
	case kindInt:
		n, ok := intValue(v)
		return n, ok && n > 0
	case kindImage:
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case map[string]any:
			s = imageURL(t)
		}
		return s, s != ""
	case kindCode:
		var s string
		switch t := v.(type) {
		case []any:
			codes := textList(t)
			s = preferISBN13(codes)
		default:
			s = scalarText(t)
		}
		return s, s != ""
	}
	return nil, false
}

func scalarText(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

func textList(v any) []string {
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
	case []any:
		var out []string
		for _, item := range t {
			switch it := item.(type) {
			case string:
				if s := strings.TrimSpace(it); s != "" {
					out = append(out, s)
				}
			case map[string]any:
				if s := scalarText(it["name"]); s != "" {
					out = append(out, s)
				}
			}
		}
		return out
	case map[string]any:
		if s := scalarText(t["name"]); s != "" {
			return []string{s}
		}
	}
	return nil
}

func intValue(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	}
	return 0, false
}

func imageURL(m map[string]any) string {
	for _, k := range []string{"thumbnail", "smallThumbnail", "url", "large", "medium", "small"} {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

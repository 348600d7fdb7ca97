// Package openlibrary is a client for the Open Library books, search, works
// and covers APIs.
package openlibrary

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bookmeta/internal/fetcher"
	"github.com/sells-group/bookmeta/internal/resilience"
)

const (
	defaultBaseURL   = "https://openlibrary.org"
	defaultCoversURL = "https://covers.openlibrary.org/b"
)

// Client performs Open Library API operations.
type Client interface {
	// BookByISBN returns the edition indexed under isbn, or nil.
	BookByISBN(ctx context.Context, isbn string) (*Edition, error)
	// Search runs a free-text search.
	Search(ctx context.Context, query string, limit int) ([]Doc, error)
	// Work fetches a work by key, e.g. "/works/OL257943W".
	Work(ctx context.Context, key string) (*Work, error)
	// CoverURL returns the large cover URL for isbn if one exists, or "".
	CoverURL(ctx context.Context, isbn string) (string, error)
}

// Named is an {"name": ...} object used throughout the books API.
type Named struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// Edition is one record from /api/books with jscmd=data.
type Edition struct {
	Key            string              `json:"key"`
	Title          string              `json:"title"`
	Subtitle       string              `json:"subtitle"`
	Authors        []Named             `json:"authors"`
	Publishers     []Named             `json:"publishers"`
	PublishDate    string              `json:"publish_date"`
	NumberOfPages  int                 `json:"number_of_pages"`
	Subjects       []Named             `json:"subjects"`
	Cover          map[string]string   `json:"cover"`
	Identifiers    map[string][]string `json:"identifiers"`
	PhysicalFormat string              `json:"physical_format"`
}

// ISBN returns the first ISBN-13, falling back to ISBN-10.
func (e Edition) ISBN() string {
	if v := e.Identifiers["isbn_13"]; len(v) > 0 {
		return v[0]
	}
	if v := e.Identifiers["isbn_10"]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// Doc is one search hit.
type Doc struct {
	Key              string   `json:"key"`
	Title            string   `json:"title"`
	Subtitle         string   `json:"subtitle"`
	AuthorName       []string `json:"author_name"`
	Publisher        []string `json:"publisher"`
	FirstPublishYear int      `json:"first_publish_year"`
	NumberOfPagesMed int      `json:"number_of_pages_median"`
	ISBN             []string `json:"isbn"`
	Subject          []string `json:"subject"`
	CoverI           int      `json:"cover_i"`
}

// SearchResponse is the /search.json payload.
type SearchResponse struct {
	NumFound int   `json:"numFound"`
	Docs     []Doc `json:"docs"`
}

// Work is a work record.
type Work struct {
	Key      string   `json:"key"`
	Title    string   `json:"title"`
	Subjects []string `json:"subjects"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithCoversURL overrides the covers base URL.
func WithCoversURL(u string) Option {
	return func(c *httpClient) {
		c.coversURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.hc = hc
	}
}

// WithRatePerSec sets the per-host request rate.
func WithRatePerSec(r float64) Option {
	return func(c *httpClient) {
		c.rate = r
	}
}

// WithRetry overrides the retry policy for transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	baseURL   string
	coversURL string
	hc        *http.Client
	rate      float64
	retry     resilience.RetryConfig
	fetch     *fetcher.Client
}

// NewClient creates an Open Library client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL:   defaultBaseURL,
		coversURL: defaultCoversURL,
		rate:      5,
		retry:     resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	c.fetch = fetcher.New(fetcher.Options{
		Service:    "open library",
		Timeout:    10 * time.Second,
		RatePerSec: c.rate,
		Retry:      c.retry,
		HTTPClient: c.hc,
	})
	return c
}

func (c *httpClient) BookByISBN(ctx context.Context, isbn string) (*Edition, error) {
	key := "ISBN:" + isbn
	params := url.Values{}
	params.Set("bibkeys", key)
	params.Set("format", "json")
	params.Set("jscmd", "data")

	var out map[string]Edition
	if err := c.fetch.GetJSON(ctx, c.baseURL+"/api/books?"+params.Encode(), nil, &out); err != nil {
		return nil, eris.Wrap(err, "open library: books")
	}
	ed, ok := out[key]
	if !ok {
		return nil, nil
	}
	return &ed, nil
}

func (c *httpClient) Search(ctx context.Context, query string, limit int) ([]Doc, error) {
	params := url.Values{}
	params.Set("q", query)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var out SearchResponse
	if err := c.fetch.GetJSON(ctx, c.baseURL+"/search.json?"+params.Encode(), nil, &out); err != nil {
		return nil, eris.Wrap(err, "open library: search")
	}
	return out.Docs, nil
}

func (c *httpClient) Work(ctx context.Context, key string) (*Work, error) {
	if !strings.HasPrefix(key, "/works/") {
		return nil, eris.Errorf("open library: not a work key: %q", key)
	}
	var out Work
	if err := c.fetch.GetJSON(ctx, c.baseURL+key+".json", nil, &out); err != nil {
		if resilience.IsNotFound(err) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "open library: work")
	}
	return &out, nil
}

func (c *httpClient) CoverURL(ctx context.Context, isbn string) (string, error) {
	coverURL := c.coversURL + "/isbn/" + url.PathEscape(isbn) + "-L.jpg"
	code, err := c.fetch.Head(ctx, coverURL+"?default=false")
	if err != nil {
		return "", eris.Wrap(err, "open library: cover")
	}
	if code != http.StatusOK {
		return "", nil
	}
	return coverURL, nil
}

// Package hardcover is a client for the Hardcover GraphQL search API.
package hardcover

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bookmeta/internal/fetcher"
	"github.com/sells-group/bookmeta/internal/resilience"
)

const defaultBaseURL = "https://api.hardcover.app/v1/graphql"

// ErrNoToken is returned when the client has no API token.
var ErrNoToken = eris.New("hardcover: api token not configured")

const searchQuery = `query Search($query: String!, $perPage: Int!, $page: Int!) {
  search(query: $query, query_type: "books", per_page: $perPage, page: $page) {
    results
  }
}`

// Client performs Hardcover API operations.
type Client interface {
	// Search runs a books search and returns the matched documents.
	Search(ctx context.Context, query string, perPage int) ([]Document, error)
	// Token returns the configured API token.
	Token() string
}

// Document is one book in a search hit.
type Document struct {
	ID             json.RawMessage `json:"id"`
	Title          string          `json:"title"`
	Subtitle       string          `json:"subtitle"`
	AuthorNames    []string        `json:"author_names"`
	Description    string          `json:"description"`
	Pages          int             `json:"pages"`
	ReleaseYear    int             `json:"release_year"`
	Image          json.RawMessage `json:"image"`
	Genres         []string        `json:"genres"`
	ISBNs          []string        `json:"isbns"`
	FeaturedSeries *FeaturedSeries `json:"featured_series"`
	Slug           string          `json:"slug"`
}

// FeaturedSeries links a document to its primary series.
type FeaturedSeries struct {
	Series struct {
		Name string `json:"name"`
	} `json:"series"`
	Position json.RawMessage `json:"position"`
}

// ImageURL returns the cover URL whether image is an object or a string.
func (d Document) ImageURL() string {
	if len(d.Image) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(d.Image, &s); err == nil {
		return s
	}
	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(d.Image, &obj); err == nil {
		return obj.URL
	}
	return ""
}

// SeriesPosition renders the featured series position as text.
func (d Document) SeriesPosition() string {
	if d.FeaturedSeries == nil || len(d.FeaturedSeries.Position) == 0 {
		return ""
	}
	var f float64
	if err := json.Unmarshal(d.FeaturedSeries.Position, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	var s string
	if err := json.Unmarshal(d.FeaturedSeries.Position, &s); err == nil {
		return s
	}
	return ""
}

// SeriesName returns the featured series name.
func (d Document) SeriesName() string {
	if d.FeaturedSeries == nil {
		return ""
	}
	return d.FeaturedSeries.Series.Name
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type searchResponse struct {
	Data struct {
		Search struct {
			Results struct {
				Hits []struct {
					Document Document `json:"document"`
				} `json:"hits"`
			} `json:"results"`
		} `json:"search"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default GraphQL endpoint.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.hc = hc
	}
}

// WithRetry overrides the retry policy for transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	token   string
	baseURL string
	hc      *http.Client
	retry   resilience.RetryConfig
	fetch   *fetcher.Client
}

// NewClient creates a Hardcover client. A "Bearer " prefix is added to
// token when missing.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: defaultBaseURL,
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	c.fetch = fetcher.New(fetcher.Options{
		Service:    "hardcover",
		Timeout:    30 * time.Second,
		Retry:      c.retry,
		HTTPClient: c.hc,
	})
	return c
}

func (c *httpClient) Token() string {
	return c.token
}

func (c *httpClient) Search(ctx context.Context, query string, perPage int) ([]Document, error) {
	if c.token == "" {
		return nil, ErrNoToken
	}
	if perPage <= 0 {
		perPage = 10
	}

	auth := c.token
	if !strings.HasPrefix(auth, "Bearer ") {
		auth = "Bearer " + auth
	}

	req := fetcher.Request{
		Method: http.MethodPost,
		URL:    c.baseURL,
		Header: http.Header{"Authorization": {auth}},
		Body: graphQLRequest{
			Query: searchQuery,
			Variables: map[string]any{
				"query":   query,
				"perPage": perPage,
				"page":    1,
			},
		},
	}

	var out searchResponse
	if err := c.fetch.Do(ctx, req, &out); err != nil {
		return nil, eris.Wrap(err, "hardcover: search")
	}
	if len(out.Errors) > 0 {
		return nil, eris.Errorf("hardcover: graphql error: %s", out.Errors[0].Message)
	}

	hits := out.Data.Search.Results.Hits
	docs := make([]Document, 0, len(hits))
	for _, h := range hits {
		docs = append(docs, h.Document)
	}
	return docs, nil
}

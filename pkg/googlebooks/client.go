// Package googlebooks is a client for the Google Books volumes API.
package googlebooks

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bookmeta/internal/fetcher"
	"github.com/sells-group/bookmeta/internal/resilience"
)

const (
	defaultBaseURL = "https://www.googleapis.com/books/v1"

	// MaxResults is the largest page the volumes API serves.
	MaxResults = 40
)

// Client performs Google Books API operations.
type Client interface {
	// SearchISBN returns the first volume indexed under isbn, or nil.
	SearchISBN(ctx context.Context, isbn string) (*Volume, error)
	// Search runs a free-text volumes query.
	Search(ctx context.Context, query string, maxResults int) ([]Volume, error)
}

// VolumesResponse is the volumes list payload.
type VolumesResponse struct {
	TotalItems int      `json:"totalItems"`
	Items      []Volume `json:"items"`
}

// Volume is one Google Books volume.
type Volume struct {
	ID         string     `json:"id"`
	VolumeInfo VolumeInfo `json:"volumeInfo"`
}

// VolumeInfo holds the bibliographic fields of a volume.
type VolumeInfo struct {
	Title               string               `json:"title"`
	Subtitle            string               `json:"subtitle"`
	Authors             []string             `json:"authors"`
	Publisher           string               `json:"publisher"`
	PublishedDate       string               `json:"publishedDate"`
	Description         string               `json:"description"`
	PageCount           int                  `json:"pageCount"`
	PrintType           string               `json:"printType"`
	Categories          []string             `json:"categories"`
	ImageLinks          *ImageLinks          `json:"imageLinks"`
	IndustryIdentifiers []IndustryIdentifier `json:"industryIdentifiers"`
}

// ImageLinks lists cover image URLs.
type ImageLinks struct {
	SmallThumbnail string `json:"smallThumbnail"`
	Thumbnail      string `json:"thumbnail"`
}

// IndustryIdentifier is an ISBN or other identifier.
type IndustryIdentifier struct {
	Type       string `json:"type"`
	Identifier string `json:"identifier"`
}

// ISBN returns the ISBN_13 identifier, falling back to ISBN_10.
func (v VolumeInfo) ISBN() string {
	var isbn10 string
	for _, id := range v.IndustryIdentifiers {
		switch id.Type {
		case "ISBN_13":
			return id.Identifier
		case "ISBN_10":
			if isbn10 == "" {
				isbn10 = id.Identifier
			}
		}
	}
	return isbn10
}

// Thumbnail returns the larger available cover image.
func (v VolumeInfo) Thumbnail() string {
	if v.ImageLinks == nil {
		return ""
	}
	if v.ImageLinks.Thumbnail != "" {
		return v.ImageLinks.Thumbnail
	}
	return v.ImageLinks.SmallThumbnail
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
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
	apiKey  string
	baseURL string
	hc      *http.Client
	retry   resilience.RetryConfig
	fetch   *fetcher.Client
}

// NewClient creates a Google Books client. apiKey may be empty; the API
// serves unauthenticated requests at a lower quota.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	c.fetch = fetcher.New(fetcher.Options{
		Service:    "google books",
		Timeout:    10 * time.Second,
		Retry:      c.retry,
		HTTPClient: c.hc,
	})
	return c
}

func (c *httpClient) SearchISBN(ctx context.Context, isbn string) (*Volume, error) {
	resp, err := c.volumes(ctx, "isbn:"+isbn, 0)
	if err != nil {
		return nil, err
	}
	if resp.TotalItems == 0 || len(resp.Items) == 0 {
		return nil, nil
	}
	return &resp.Items[0], nil
}

func (c *httpClient) Search(ctx context.Context, query string, maxResults int) ([]Volume, error) {
	if maxResults <= 0 || maxResults > MaxResults {
		maxResults = MaxResults
	}
	resp, err := c.volumes(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (c *httpClient) volumes(ctx context.Context, q string, maxResults int) (*VolumesResponse, error) {
	params := url.Values{}
	params.Set("q", q)
	if maxResults > 0 {
		params.Set("maxResults", strconv.Itoa(maxResults))
	}
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	var out VolumesResponse
	if err := c.fetch.GetJSON(ctx, c.baseURL+"/volumes?"+params.Encode(), nil, &out); err != nil {
		return nil, eris.Wrap(err, "google books: volumes")
	}
	return &out, nil
}

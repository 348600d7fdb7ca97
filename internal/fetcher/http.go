// Package fetcher sends rate-limited JSON requests to catalog APIs and
// streams batch input files.
package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/bookmeta/internal/resilience"
)

// maxBody bounds how much of a response is read.
const maxBody = 8 << 20

// Options configures a Client.
type Options struct {
	// Service names the upstream in errors and logs.
	Service   string
	UserAgent string
	Timeout   time.Duration
	// RatePerSec limits requests per host. Zero means 10.
	RatePerSec float64
	Retry      resilience.RetryConfig
	HTTPClient *http.Client
}

// Client issues JSON requests with per-host adaptive rate limiting and
// bounded retries of 429/5xx replies.
type Client struct {
	opts Options
	http *http.Client

	mu       sync.Mutex
	limiters map[string]*AdaptiveLimiter
}

// New returns a Client. A nil HTTPClient gets one with opts.Timeout.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "bookmeta/1.0"
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 10
	}
	if opts.Service == "" {
		opts.Service = "fetcher"
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		opts:     opts,
		http:     hc,
		limiters: make(map[string]*AdaptiveLimiter),
	}
}

// Request describes one JSON call.
type Request struct {
	Method string
	URL    string
	Header http.Header
	// Body, if non-nil, is JSON encoded.
	Body any
}

// GetJSON fetches rawURL and decodes the reply into out.
func (c *Client) GetJSON(ctx context.Context, rawURL string, header http.Header, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, URL: rawURL, Header: header}, out)
}

// Do sends req and decodes a 2xx reply into out. Non-2xx replies become
// *resilience.StatusError.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	lim := c.limiterFor(req.URL)

	var payload []byte
	if req.Body != nil {
		var err error
		if payload, err = json.Marshal(req.Body); err != nil {
			return eris.Wrapf(err, "%s: encode request", c.opts.Service)
		}
	}

	body, err := resilience.Retry(ctx, c.opts.Retry, c.opts.Service, func(ctx context.Context) ([]byte, error) {
		if err := lim.Wait(ctx); err != nil {
			return nil, eris.Wrapf(err, "%s: rate limiter wait", c.opts.Service)
		}
		b, err := c.send(ctx, req, payload)
		var se *resilience.StatusError
		switch {
		case errors.As(err, &se) && se.StatusCode == http.StatusTooManyRequests:
			lim.OnRateLimit()
		case err == nil:
			lim.OnSuccess()
		}
		return b, err
	})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrapf(err, "%s: decode response", c.opts.Service)
	}
	return nil
}

// Head issues a HEAD request and returns the status code.
func (c *Client) Head(ctx context.Context, rawURL string) (int, error) {
	if err := c.limiterFor(rawURL).Wait(ctx); err != nil {
		return 0, eris.Wrapf(err, "%s: rate limiter wait", c.opts.Service)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return 0, eris.Wrapf(err, "%s: create head request", c.opts.Service)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, eris.Wrapf(err, "%s: head request", c.opts.Service)
	}
	defer resp.Body.Close() //nolint:errcheck
	return resp.StatusCode, nil
}

func (c *Client) send(ctx context.Context, r Request, payload []byte) ([]byte, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.URL, body)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: create request", c.opts.Service)
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: send request", c.opts.Service)
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, eris.Wrapf(err, "%s: read response", c.opts.Service)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resilience.NewStatusError(c.opts.Service, resp.StatusCode, data)
	}
	return data, nil
}

func (c *Client) limiterFor(rawURL string) *AdaptiveLimiter {
	host := ""
	if u, err := url.Parse(rawURL); err == nil {
		host = u.Host
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	lim, ok := c.limiters[host]
	if !ok {
		r := rate.Limit(c.opts.RatePerSec)
		lim = NewAdaptiveLimiter(host, r, int(c.opts.RatePerSec))
		c.limiters[host] = lim
	}
	return lim
}

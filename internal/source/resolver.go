package source

import (
	"net/http"
	"sync"

	"github.com/sells-group/bookmeta/internal/fetcher"
	"github.com/sells-group/bookmeta/internal/model"
	"github.com/sells-group/bookmeta/internal/resilience"
	"github.com/sells-group/bookmeta/pkg/googlebooks"
	"github.com/sells-group/bookmeta/pkg/hardcover"
	"github.com/sells-group/bookmeta/pkg/openlibrary"
)

// Settings carries endpoints and tuning for the built-in adapters. Empty
// URLs select each client's public default.
type Settings struct {
	GoogleBooksURL string
	// GoogleBooksKey is used when the source row carries no key.
	GoogleBooksKey  string
	OpenLibraryURL  string
	CoversURL       string
	OpenLibraryRate float64
	HardcoverURL    string
	Retry           resilience.RetryConfig
	HTTPClient      *http.Client
}

// Factory builds an adapter for a configured source.
type Factory func(cfg model.SourceConfig) Adapter

type instance struct {
	fingerprint string
	adapter     Adapter
}

// Resolver maps configured sources to adapters. Built-in names get typed
// adapters and anything else gets a Generic adapter. Instances are reused
// until the source's credential or base URL changes.
type Resolver struct {
	settings Settings

	mu        sync.Mutex
	factories map[string]Factory
	instances map[string]instance
	ol        openlibrary.Client
}

// NewResolver creates a Resolver with the built-in adapters registered.
func NewResolver(s Settings) *Resolver {
	r := &Resolver{
		settings:  s,
		factories: make(map[string]Factory),
		instances: make(map[string]instance),
	}
	r.Register(model.SourceGoogleBooks, r.newGoogleBooks)
	r.Register(model.SourceOpenLibrary, r.newOpenLibrary)
	r.Register(model.SourceHardcover, r.newHardcover)
	r.Register(model.SourceHardcoverAPI, r.newHardcover)
	return r
}

// Register installs or replaces the factory for a source name and drops any
// cached instance for it.
func (r *Resolver) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
	delete(r.instances, name)
}

// Resolve returns the adapter for cfg.
func (r *Resolver) Resolve(cfg model.SourceConfig) Adapter {
	fp := cfg.APIKey + "\x00" + cfg.BaseURL

	r.mu.Lock()
	if inst, ok := r.instances[cfg.Name]; ok && inst.fingerprint == fp {
		r.mu.Unlock()
		return inst.adapter
	}
	f, ok := r.factories[cfg.Name]
	r.mu.Unlock()
	if !ok {
		f = r.newGeneric
	}

	a := f(cfg)

	r.mu.Lock()
	defer r.mu.Unlock()
	if inst, ok := r.instances[cfg.Name]; ok && inst.fingerprint == fp {
		return inst.adapter
	}
	r.instances[cfg.Name] = instance{fingerprint: fp, adapter: a}
	return a
}

// Known reports whether name has a typed adapter.
func (r *Resolver) Known(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.factories[name]
	return ok
}

func (r *Resolver) openLibrary() openlibrary.Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ol == nil {
		r.ol = r.buildOpenLibrary(r.settings.OpenLibraryURL)
	}
	return r.ol
}

func (r *Resolver) buildOpenLibrary(baseURL string) openlibrary.Client {
	opts := []openlibrary.Option{openlibrary.WithRetry(r.settings.Retry)}
	if baseURL != "" {
		opts = append(opts, openlibrary.WithBaseURL(baseURL))
	}
	if r.settings.CoversURL != "" {
		opts = append(opts, openlibrary.WithCoversURL(r.settings.CoversURL))
	}
	if r.settings.OpenLibraryRate > 0 {
		opts = append(opts, openlibrary.WithRatePerSec(r.settings.OpenLibraryRate))
	}
	if r.settings.HTTPClient != nil {
		opts = append(opts, openlibrary.WithHTTPClient(r.settings.HTTPClient))
	}
	return openlibrary.NewClient(opts...)
}

func (r *Resolver) newGoogleBooks(cfg model.SourceConfig) Adapter {
	key := cfg.APIKey
	if key == "" {
		key = r.settings.GoogleBooksKey
	}
	opts := []googlebooks.Option{googlebooks.WithRetry(r.settings.Retry)}
	switch {
	case cfg.BaseURL != "":
		opts = append(opts, googlebooks.WithBaseURL(cfg.BaseURL))
	case r.settings.GoogleBooksURL != "":
		opts = append(opts, googlebooks.WithBaseURL(r.settings.GoogleBooksURL))
	}
	if r.settings.HTTPClient != nil {
		opts = append(opts, googlebooks.WithHTTPClient(r.settings.HTTPClient))
	}
	return NewGoogleBooks(googlebooks.NewClient(key, opts...), r.openLibrary())
}

func (r *Resolver) newOpenLibrary(cfg model.SourceConfig) Adapter {
	client := r.openLibrary()
	if cfg.BaseURL != "" {
		client = r.buildOpenLibrary(cfg.BaseURL)
	}
	return NewOpenLibrary(client, r.settings.CoversURL)
}

func (r *Resolver) newHardcover(cfg model.SourceConfig) Adapter {
	opts := []hardcover.Option{hardcover.WithRetry(r.settings.Retry)}
	switch {
	case cfg.BaseURL != "":
		opts = append(opts, hardcover.WithBaseURL(cfg.BaseURL))
	case r.settings.HardcoverURL != "":
		opts = append(opts, hardcover.WithBaseURL(r.settings.HardcoverURL))
	}
	if r.settings.HTTPClient != nil {
		opts = append(opts, hardcover.WithHTTPClient(r.settings.HTTPClient))
	}
	return NewHardcover(cfg.Name, hardcover.NewClient(cfg.APIKey, opts...))
}

func (r *Resolver) newGeneric(cfg model.SourceConfig) Adapter {
	return NewGeneric(cfg, fetcher.New(fetcher.Options{
		Service:    cfg.Name,
		Retry:      r.settings.Retry,
		HTTPClient: r.settings.HTTPClient,
	}))
}

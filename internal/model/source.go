package model

import "time"

// Well-known source names. Any other name is served by the generic adapter.
const (
	SourceGoogleBooks  = "google_books"
	SourceOpenLibrary  = "open_library"
	SourceHardcover    = "hardcover"
	SourceHardcoverAPI = "hardcover_api"
)

// SourceConfig is one configured catalog. Lower Priority wins.
type SourceConfig struct {
	ID          string    `json:"id" yaml:"-"`
	Name        string    `json:"name" yaml:"name"`
	DisplayName string    `json:"display_name" yaml:"display_name"`
	Enabled     bool      `json:"enabled" yaml:"enabled"`
	Priority    int       `json:"priority" yaml:"priority"`
	APIKey      string    `json:"-" yaml:"api_key"`
	BaseURL     string    `json:"base_url,omitempty" yaml:"base_url"`
	CreatedAt   time.Time `json:"created_at" yaml:"-"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"-"`
}

// HasCredential reports whether the source carries an API key.
func (s SourceConfig) HasCredential() bool {
	return s.APIKey != ""
}

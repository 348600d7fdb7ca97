package main

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/bookmeta/internal/config"
	"github.com/sells-group/bookmeta/internal/model"
	"github.com/sells-group/bookmeta/internal/source"
	"github.com/sells-group/bookmeta/internal/store"
)

const hobbitISBN = "9780261103344"

// setTestConfig points the package config at a fresh SQLite file.
func setTestConfig(t *testing.T) {
	t.Helper()
	cfg = &config.Config{
		Store: config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "test.db")},
		Cache: config.CacheConfig{Enabled: true, Namespace: "bookmeta", TTLSecs: 3600},
		Reconcile: config.ReconcileConfig{
			SourceTimeoutSecs: 2,
			TitleThreshold:    0.6,
			AuthorThreshold:   0.5,
			DefaultMaxResults: 10,
			MaxMaxResults:     40,
		},
		Resilience: config.ResilienceConfig{FailureThreshold: 5, ResetTimeoutSecs: 30, MaxAttempts: 1},
		Batch:      config.BatchConfig{MaxConcurrent: 3},
		Server:     config.ServerConfig{Port: 8080},
		Log:        config.LogConfig{Level: "info", Format: "json"},
	}
}

type stubAdapter struct {
	name  string
	book  *model.Book
	books []model.Book
	err   error
	calls atomic.Int32
}

func (s *stubAdapter) Name() string { return s.name }

func (s *stubAdapter) SearchByISBN(context.Context, string) (*model.Book, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	if s.book == nil {
		return nil, nil
	}
	b := s.book.Clone()
	return &b, nil
}

func (s *stubAdapter) SearchByTitle(_ context.Context, _ string, maxResults int) ([]model.Book, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.books) > maxResults {
		return s.books[:maxResults], nil
	}
	return s.books, nil
}

// newTestEnv builds an appEnv on SQLite with one enabled source per adapter,
// in priority order.
func newTestEnv(t *testing.T, adapters ...*stubAdapter) *appEnv {
	t.Helper()
	setTestConfig(t)
	ctx := context.Background()

	st, err := store.NewSQLite(cfg.Store.DatabaseURL)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(ctx))

	env := newEnv(st)
	for i, a := range adapters {
		_, err := st.UpsertSource(ctx, model.SourceConfig{Name: a.name, DisplayName: a.name, Enabled: true, Priority: i + 1})
		require.NoError(t, err)
		env.Resolver.Register(a.name, func(model.SourceConfig) source.Adapter { return a })
	}
	return env
}

func hobbit() *model.Book {
	return &model.Book{
		Title:         "The Hobbit",
		Authors:       []string{"J.R.R. Tolkien"},
		Publisher:     "HarperCollins",
		PublishedDate: "1995",
		ISBN:          hobbitISBN,
	}
}

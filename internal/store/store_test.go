package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bookmeta/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("UpsertAndGetSource", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		got, err := s.UpsertSource(ctx, model.SourceConfig{
			Name:        model.SourceGoogleBooks,
			DisplayName: "Google Books",
			Enabled:     true,
			Priority:    1,
			APIKey:      "secret",
		})
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.NotEmpty(t, got.ID)
		assert.Equal(t, "Google Books", got.DisplayName)
		assert.Equal(t, "secret", got.APIKey)
		assert.True(t, got.Enabled)

		again, err := s.UpsertSource(ctx, model.SourceConfig{
			Name:        model.SourceGoogleBooks,
			DisplayName: "Google",
			Enabled:     false,
			Priority:    3,
		})
		require.NoError(t, err)
		assert.Equal(t, got.ID, again.ID, "upsert keeps the row id")
		assert.Equal(t, "Google", again.DisplayName)
		assert.False(t, again.Enabled)
		assert.Equal(t, 3, again.Priority)
	})

	t.Run("GetSourceMissing", func(t *testing.T) {
		s := newStore(t)
		got, err := s.GetSource(context.Background(), "nope")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("UpsertSourceEmptyName", func(t *testing.T) {
		s := newStore(t)
		_, err := s.UpsertSource(context.Background(), model.SourceConfig{})
		assert.Error(t, err)
	})

	t.Run("ListOrdersByPriority", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for _, src := range []model.SourceConfig{
			{Name: "zeta", Enabled: true, Priority: 2},
			{Name: "alpha", Enabled: true, Priority: 2},
			{Name: model.SourceOpenLibrary, Enabled: false, Priority: 0},
			{Name: model.SourceGoogleBooks, Enabled: true, Priority: 1},
		} {
			_, err := s.UpsertSource(ctx, src)
			require.NoError(t, err)
		}

		all, err := s.ListSources(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{model.SourceOpenLibrary, model.SourceGoogleBooks, "alpha", "zeta"}, sourceNames(all))

		enabled, err := s.ListEnabledSources(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{model.SourceGoogleBooks, "alpha", "zeta"}, sourceNames(enabled))
	})

	t.Run("SetEnabledAndPriority", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, err := s.UpsertSource(ctx, model.SourceConfig{Name: "custom", Enabled: true, Priority: 5})
		require.NoError(t, err)

		require.NoError(t, s.SetSourceEnabled(ctx, "custom", false))
		require.NoError(t, s.SetSourcePriority(ctx, "custom", 9))

		got, err := s.GetSource(ctx, "custom")
		require.NoError(t, err)
		assert.False(t, got.Enabled)
		assert.Equal(t, 9, got.Priority)

		assert.ErrorIs(t, s.SetSourceEnabled(ctx, "missing", true), ErrNotFound)
		assert.ErrorIs(t, s.SetSourcePriority(ctx, "missing", 1), ErrNotFound)
	})

	t.Run("RecordCacheRoundTrip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		data, err := s.GetCachedRecord(ctx, "bookmeta:isbn:9780553582017")
		require.NoError(t, err)
		assert.Nil(t, data)

		require.NoError(t, s.SetCachedRecord(ctx, "bookmeta:isbn:9780553582017", []byte(`{"title":"Dragon Keeper"}`), time.Hour))
		require.NoError(t, s.SetCachedRecord(ctx, "bookmeta:isbn:9780553582017", []byte(`{"title":"Dragon Keeper 2"}`), time.Hour))

		data, err = s.GetCachedRecord(ctx, "bookmeta:isbn:9780553582017")
		require.NoError(t, err)
		assert.JSONEq(t, `{"title":"Dragon Keeper 2"}`, string(data), "last writer wins")

		require.NoError(t, s.DeleteCachedRecord(ctx, "bookmeta:isbn:9780553582017"))
		data, err = s.GetCachedRecord(ctx, "bookmeta:isbn:9780553582017")
		require.NoError(t, err)
		assert.Nil(t, data)
	})

	t.Run("RecordCacheExpiry", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.SetCachedRecord(ctx, "k:old", []byte(`{}`), -time.Hour))
		require.NoError(t, s.SetCachedRecord(ctx, "k:new", []byte(`{}`), time.Hour))

		data, err := s.GetCachedRecord(ctx, "k:old")
		require.NoError(t, err)
		assert.Nil(t, data)

		n, err := s.DeleteExpiredRecords(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		data, err = s.GetCachedRecord(ctx, "k:new")
		require.NoError(t, err)
		assert.NotNil(t, data)
	})

	t.Run("PurgeRecordsByPrefix", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for _, k := range []string{"a_b:isbn:1", "a_b:isbn:2", "axb:isbn:3", "other:isbn:4"} {
			require.NoError(t, s.SetCachedRecord(ctx, k, []byte(`{}`), time.Hour))
		}
		n, err := s.PurgeRecords(ctx, "a_b:")
		require.NoError(t, err)
		assert.Equal(t, 2, n, "underscore is matched literally")

		data, err := s.GetCachedRecord(ctx, "axb:isbn:3")
		require.NoError(t, err)
		assert.NotNil(t, data)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, newStore(t).Ping(context.Background()))
	})
}

func sourceNames(srcs []model.SourceConfig) []string {
	out := make([]string, len(srcs))
	for i, s := range srcs {
		out[i] = s.Name
	}
	return out
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}

func TestOpen(t *testing.T) {
	s, err := Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "open.db"), nil)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(context.Background(), "mysql", "", nil)
	assert.Error(t, err)
}

func TestLikePrefix(t *testing.T) {
	assert.Equal(t, `a\_b\%c\\%`, likePrefix(`a_b%c\`))
	assert.Equal(t, "%", likePrefix(""))
}

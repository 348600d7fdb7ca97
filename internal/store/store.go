// Package store persists the source registry and the reconciled record
// cache in SQLite or Postgres.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bookmeta/internal/model"
)

// ErrNotFound is returned when an update targets a missing row.
var ErrNotFound = eris.New("store: not found")

// SourceStore is the source registry.
type SourceStore interface {
	// ListSources returns every source ordered by ascending priority, then name.
	ListSources(ctx context.Context) ([]model.SourceConfig, error)
	// ListEnabledSources is ListSources restricted to enabled sources.
	ListEnabledSources(ctx context.Context) ([]model.SourceConfig, error)
	// GetSource returns nil, nil when name is not registered.
	GetSource(ctx context.Context, name string) (*model.SourceConfig, error)
	// UpsertSource inserts cfg or updates the row with the same name.
	UpsertSource(ctx context.Context, cfg model.SourceConfig) (*model.SourceConfig, error)
	SetSourceEnabled(ctx context.Context, name string, enabled bool) error
	SetSourcePriority(ctx context.Context, name string, priority int) error
}

// RecordCache stores serialized records under opaque keys with an expiry.
type RecordCache interface {
	// GetCachedRecord returns nil, nil on a miss or an expired entry.
	GetCachedRecord(ctx context.Context, key string) ([]byte, error)
	SetCachedRecord(ctx context.Context, key string, data []byte, ttl time.Duration) error
	DeleteCachedRecord(ctx context.Context, key string) error
	DeleteExpiredRecords(ctx context.Context) (int, error)
	// PurgeRecords deletes every entry whose key starts with prefix.
	PurgeRecords(ctx context.Context, prefix string) (int, error)
}

// Store is the full persistence interface.
type Store interface {
	SourceStore
	RecordCache

	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// Open returns the Store for driver ("sqlite" or "postgres").
func Open(ctx context.Context, driver, dsn string, poolCfg *PoolConfig) (Store, error) {
	switch driver {
	case "", "sqlite":
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn, poolCfg)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}

func notFound(entity, id string) error {
	return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
}

// likePrefix escapes LIKE metacharacters in prefix and appends a wildcard.
func likePrefix(prefix string) string {
	r := make([]rune, 0, len(prefix)+1)
	for _, c := range prefix {
		if c == '%' || c == '_' || c == '\\' {
			r = append(r, '\\')
		}
		r = append(r, c)
	}
	return string(r) + "%"
}

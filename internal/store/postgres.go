package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/bookmeta/internal/db"
	"github.com/sells-group/bookmeta/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const (
	pgListSources        = `SELECT ` + sourceColumns + ` FROM sources ORDER BY priority ASC, name ASC`
	pgListEnabledSources = `SELECT ` + sourceColumns + ` FROM sources WHERE enabled ORDER BY priority ASC, name ASC`
	pgGetSource          = `SELECT ` + sourceColumns + ` FROM sources WHERE name = $1`
	pgSetEnabled         = `UPDATE sources SET enabled = $1, updated_at = $2 WHERE name = $3`
	pgSetPriority        = `UPDATE sources SET priority = $1, updated_at = $2 WHERE name = $3`
	pgGetCachedRecord    = `SELECT data FROM record_cache WHERE cache_key = $1 AND expires_at > now()`
	pgDeleteRecord       = `DELETE FROM record_cache WHERE cache_key = $1`
	pgDeleteExpired      = `DELETE FROM record_cache WHERE expires_at <= now()`
	pgPurgeRecords       = `DELETE FROM record_cache WHERE cache_key LIKE $1 ESCAPE '\'`
)

var (
	pgUpsertSource = db.MustUpsertSQL(db.UpsertConfig{
		Table:        "sources",
		Columns:      []string{"id", "name", "display_name", "enabled", "priority", "api_key", "base_url", "created_at", "updated_at"},
		ConflictKeys: []string{"name"},
		UpdateCols:   []string{"display_name", "enabled", "priority", "api_key", "base_url", "updated_at"},
	}, db.Dollar) + ` RETURNING ` + sourceColumns

	pgUpsertRecord = db.MustUpsertSQL(db.UpsertConfig{
		Table:        "record_cache",
		Columns:      []string{"id", "cache_key", "data", "cached_at", "expires_at"},
		ConflictKeys: []string{"cache_key"},
		UpdateCols:   []string{"data", "cached_at", "expires_at"},
	}, db.Dollar)
)

// preparedStatements lists queries to prepare on each new connection for
// the hot lookup path.
var preparedStatements = map[string]string{
	"list_enabled_sources": pgListEnabledSources,
	"get_cached_record":    pgGetCachedRecord,
	"set_cached_record":    pgUpsertRecord,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS sources (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name         TEXT NOT NULL UNIQUE,
	display_name TEXT NOT NULL DEFAULT '',
	enabled      BOOLEAN NOT NULL DEFAULT true,
	priority     INTEGER NOT NULL DEFAULT 100,
	api_key      TEXT NOT NULL DEFAULT '',
	base_url     TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_sources_enabled_priority ON sources(enabled, priority);

CREATE TABLE IF NOT EXISTS record_cache (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	cache_key  TEXT NOT NULL UNIQUE,
	data       JSONB NOT NULL,
	cached_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_record_cache_expires_at ON record_cache(expires_at);
`

// Ping checks the connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

// Migrate creates the schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) ListSources(ctx context.Context) ([]model.SourceConfig, error) {
	return s.listSources(ctx, pgListSources)
}

func (s *PostgresStore) ListEnabledSources(ctx context.Context) ([]model.SourceConfig, error) {
	return s.listSources(ctx, pgListEnabledSources)
}

func (s *PostgresStore) listSources(ctx context.Context, query string) ([]model.SourceConfig, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list sources")
	}
	defer rows.Close()

	var out []model.SourceConfig
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan source")
		}
		out = append(out, *src)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate sources")
}

func (s *PostgresStore) GetSource(ctx context.Context, name string) (*model.SourceConfig, error) {
	src, err := scanSource(s.pool.QueryRow(ctx, pgGetSource, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get source %s", name)
	}
	return src, nil
}

func (s *PostgresStore) UpsertSource(ctx context.Context, cfg model.SourceConfig) (*model.SourceConfig, error) {
	if cfg.Name == "" {
		return nil, eris.New("postgres: upsert source: empty name")
	}
	now := time.Now().UTC()
	src, err := scanSource(s.pool.QueryRow(ctx, pgUpsertSource,
		uuid.New().String(), cfg.Name, cfg.DisplayName, cfg.Enabled, cfg.Priority,
		cfg.APIKey, cfg.BaseURL, now, now,
	))
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: upsert source %s", cfg.Name)
	}
	return src, nil
}

func (s *PostgresStore) SetSourceEnabled(ctx context.Context, name string, enabled bool) error {
	tag, err := s.pool.Exec(ctx, pgSetEnabled, enabled, time.Now().UTC(), name)
	if err != nil {
		return eris.Wrapf(err, "postgres: set enabled %s", name)
	}
	if tag.RowsAffected() == 0 {
		return notFound("source", name)
	}
	return nil
}

func (s *PostgresStore) SetSourcePriority(ctx context.Context, name string, priority int) error {
	tag, err := s.pool.Exec(ctx, pgSetPriority, priority, time.Now().UTC(), name)
	if err != nil {
		return eris.Wrapf(err, "postgres: set priority %s", name)
	}
	if tag.RowsAffected() == 0 {
		return notFound("source", name)
	}
	return nil
}

func (s *PostgresStore) GetCachedRecord(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, pgGetCachedRecord, key).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get cached record")
	}
	return data, nil
}

func (s *PostgresStore) SetCachedRecord(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx, pgUpsertRecord, uuid.New().String(), key, data, now, now.Add(ttl))
	return eris.Wrap(err, "postgres: set cached record")
}

func (s *PostgresStore) DeleteCachedRecord(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, pgDeleteRecord, key)
	return eris.Wrap(err, "postgres: delete cached record")
}

func (s *PostgresStore) DeleteExpiredRecords(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, pgDeleteExpired)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired records")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) PurgeRecords(ctx context.Context, prefix string) (int, error) {
	tag, err := s.pool.Exec(ctx, pgPurgeRecords, likePrefix(prefix))
	if err != nil {
		return 0, eris.Wrap(err, "postgres: purge records")
	}
	return int(tag.RowsAffected()), nil
}

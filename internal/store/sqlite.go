package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite" // driver

	"github.com/sells-group/bookmeta/internal/db"
	"github.com/sells-group/bookmeta/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		dsn = "bookmeta.db"
	}
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: conn}, nil
}

// expires_at holds unix seconds so expiry checks compare integers.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS sources (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL UNIQUE,
	display_name TEXT NOT NULL DEFAULT '',
	enabled      INTEGER NOT NULL DEFAULT 1,
	priority     INTEGER NOT NULL DEFAULT 100,
	api_key      TEXT NOT NULL DEFAULT '',
	base_url     TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_sources_enabled_priority ON sources(enabled, priority);

CREATE TABLE IF NOT EXISTS record_cache (
	id         TEXT PRIMARY KEY,
	cache_key  TEXT NOT NULL UNIQUE,
	data       TEXT NOT NULL,
	cached_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_record_cache_expires_at ON record_cache(expires_at);
`

var (
	sqliteUpsertSource = db.MustUpsertSQL(db.UpsertConfig{
		Table:        "sources",
		Columns:      []string{"id", "name", "display_name", "enabled", "priority", "api_key", "base_url", "created_at", "updated_at"},
		ConflictKeys: []string{"name"},
		UpdateCols:   []string{"display_name", "enabled", "priority", "api_key", "base_url", "updated_at"},
	}, db.Question)

	sqliteUpsertRecord = db.MustUpsertSQL(db.UpsertConfig{
		Table:        "record_cache",
		Columns:      []string{"id", "cache_key", "data", "cached_at", "expires_at"},
		ConflictKeys: []string{"cache_key"},
		UpdateCols:   []string{"data", "cached_at", "expires_at"},
	}, db.Question)
)

const sourceColumns = `id, name, display_name, enabled, priority, api_key, base_url, created_at, updated_at`

// Ping checks the connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

// Migrate creates the schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ListSources(ctx context.Context) ([]model.SourceConfig, error) {
	return s.listSources(ctx, `SELECT `+sourceColumns+` FROM sources ORDER BY priority ASC, name ASC`)
}

func (s *SQLiteStore) ListEnabledSources(ctx context.Context) ([]model.SourceConfig, error) {
	return s.listSources(ctx, `SELECT `+sourceColumns+` FROM sources WHERE enabled = 1 ORDER BY priority ASC, name ASC`)
}

func (s *SQLiteStore) listSources(ctx context.Context, query string) ([]model.SourceConfig, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sources")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.SourceConfig
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan source")
		}
		out = append(out, *src)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate sources")
}

func (s *SQLiteStore) GetSource(ctx context.Context, name string) (*model.SourceConfig, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sourceColumns+` FROM sources WHERE name = ?`, name)
	src, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get source %s", name)
	}
	return src, nil
}

func (s *SQLiteStore) UpsertSource(ctx context.Context, cfg model.SourceConfig) (*model.SourceConfig, error) {
	if cfg.Name == "" {
		return nil, eris.New("sqlite: upsert source: empty name")
	}
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, sqliteUpsertSource,
		uuid.New().String(), cfg.Name, cfg.DisplayName, cfg.Enabled, cfg.Priority,
		cfg.APIKey, cfg.BaseURL, now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: upsert source %s", cfg.Name)
	}
	return s.GetSource(ctx, cfg.Name)
}

func (s *SQLiteStore) SetSourceEnabled(ctx context.Context, name string, enabled bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sources SET enabled = ?, updated_at = ? WHERE name = ?`,
		enabled, time.Now().UTC(), name,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set enabled %s", name)
	}
	return checkRowsAffected(res, "source", name)
}

func (s *SQLiteStore) SetSourcePriority(ctx context.Context, name string, priority int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sources SET priority = ?, updated_at = ? WHERE name = ?`,
		priority, time.Now().UTC(), name,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set priority %s", name)
	}
	return checkRowsAffected(res, "source", name)
}

func (s *SQLiteStore) GetCachedRecord(ctx context.Context, key string) ([]byte, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM record_cache WHERE cache_key = ? AND expires_at > ?`,
		key, time.Now().Unix(),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cached record")
	}
	return []byte(data), nil
}

func (s *SQLiteStore) SetCachedRecord(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, sqliteUpsertRecord,
		uuid.New().String(), key, string(data), now, now.Add(ttl).Unix(),
	)
	return eris.Wrap(err, "sqlite: set cached record")
}

func (s *SQLiteStore) DeleteCachedRecord(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM record_cache WHERE cache_key = ?`, key)
	return eris.Wrap(err, "sqlite: delete cached record")
}

func (s *SQLiteStore) DeleteExpiredRecords(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM record_cache WHERE expires_at <= ?`, time.Now().Unix(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired records")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) PurgeRecords(ctx context.Context, prefix string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM record_cache WHERE cache_key LIKE ? ESCAPE '\'`, likePrefix(prefix),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: purge records")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return notFound(entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSource(row scannable) (*model.SourceConfig, error) {
	var src model.SourceConfig
	err := row.Scan(&src.ID, &src.Name, &src.DisplayName, &src.Enabled, &src.Priority,
		&src.APIKey, &src.BaseURL, &src.CreatedAt, &src.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &src, nil
}

// Package cache memoizes reconciled records by ISBN.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/bookmeta/internal/isbn"
	"github.com/sells-group/bookmeta/internal/model"
	"github.com/sells-group/bookmeta/internal/store"
)

// Defaults for StoreCache.
const (
	DefaultNamespace = "bookmeta"
	DefaultTTL       = time.Hour
)

// Cache maps an ISBN to its reconciled record. Implementations never fail:
// backend errors degrade to a miss or a dropped write.
type Cache interface {
	Get(ctx context.Context, code string) (*model.Book, bool)
	Set(ctx context.Context, code string, b model.Book)
	Delete(ctx context.Context, code string)
}

// Nop is the cache used when no backend is configured.
type Nop struct{}

// Get always misses.
func (Nop) Get(context.Context, string) (*model.Book, bool) { return nil, false }

// Set discards b.
func (Nop) Set(context.Context, string, model.Book) {}

// Delete does nothing.
func (Nop) Delete(context.Context, string) {}

var unavailableOnce sync.Once

// New returns a StoreCache over rc, or Nop when rc is nil. The missing
// backend is logged once per process.
func New(rc store.RecordCache, namespace string, ttl time.Duration) Cache {
	if rc == nil {
		unavailableOnce.Do(func() {
			zap.L().Info("cache: backend unavailable, results will not be cached")
		})
		return Nop{}
	}
	return NewStoreCache(rc, namespace, ttl)
}

// StoreCache keeps records in a store.RecordCache as JSON.
type StoreCache struct {
	rc        store.RecordCache
	namespace string
	ttl       time.Duration
}

// NewStoreCache creates a StoreCache. Empty namespace and non-positive ttl
// take the defaults.
func NewStoreCache(rc store.RecordCache, namespace string, ttl time.Duration) *StoreCache {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &StoreCache{rc: rc, namespace: namespace, ttl: ttl}
}

// Key returns the storage key for code.
func (c *StoreCache) Key(code string) string {
	return c.namespace + ":isbn:" + isbn.Normalize(code)
}

// Prefix is the key prefix shared by every entry in the namespace.
func (c *StoreCache) Prefix() string {
	return c.namespace + ":"
}

// Get implements Cache.
func (c *StoreCache) Get(ctx context.Context, code string) (*model.Book, bool) {
	key := c.Key(code)
	data, err := c.rc.GetCachedRecord(ctx, key)
	if err != nil {
		zap.L().Warn("cache: get failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if data == nil {
		return nil, false
	}
	var b model.Book
	if err := json.Unmarshal(data, &b); err != nil {
		zap.L().Warn("cache: decode failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &b, true
}

// Set implements Cache.
func (c *StoreCache) Set(ctx context.Context, code string, b model.Book) {
	key := c.Key(code)
	data, err := json.Marshal(b)
	if err != nil {
		zap.L().Warn("cache: encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.rc.SetCachedRecord(ctx, key, data, c.ttl); err != nil {
		zap.L().Warn("cache: set failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete implements Cache.
func (c *StoreCache) Delete(ctx context.Context, code string) {
	key := c.Key(code)
	if err := c.rc.DeleteCachedRecord(ctx, key); err != nil {
		zap.L().Warn("cache: delete failed", zap.String("key", key), zap.Error(err))
	}
}

// Purge removes every entry in the namespace.
func (c *StoreCache) Purge(ctx context.Context) (int, error) {
	return c.rc.PurgeRecords(ctx, c.Prefix())
}

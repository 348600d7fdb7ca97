package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bookmeta/internal/cache"
	"github.com/sells-group/bookmeta/internal/reconcile"
	"github.com/sells-group/bookmeta/internal/resilience"
	"github.com/sells-group/bookmeta/internal/source"
	"github.com/sells-group/bookmeta/internal/store"
)

// appEnv holds the store, cache and engine shared by the lookup commands
// and the HTTP server.
type appEnv struct {
	Store    store.Store
	Cache    cache.Cache
	Resolver *source.Resolver
	Engine   *reconcile.Engine
}

// Close releases the store.
func (ae *appEnv) Close() {
	if ae.Store != nil {
		_ = ae.Store.Close()
	}
}

// initEnv validates config for mode, opens and migrates the store and builds
// the engine. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	st, err := openStore(ctx, mode)
	if err != nil {
		return nil, err
	}
	return newEnv(st), nil
}

// openStore validates config for mode and returns a migrated store.
func openStore(ctx context.Context, mode string) (store.Store, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// newEnv wires the cache, resolver and engine around an open store.
func newEnv(st store.Store) *appEnv {
	var rc store.RecordCache
	if cfg.Cache.Enabled {
		rc = st
	} else {
		zap.L().Debug("record cache disabled by config")
	}
	c := cache.New(rc, cfg.Cache.Namespace, cfg.Cache.TTL())

	breakerCfg := cfg.Resilience.Breaker()
	breakerCfg.OnStateChange = func(src string, from, to resilience.State) {
		zap.L().Warn("source circuit changed state",
			zap.String("source", src),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}

	resolver := source.NewResolver(source.Settings{
		GoogleBooksURL:  cfg.GoogleBooks.BaseURL,
		GoogleBooksKey:  cfg.GoogleBooks.Key,
		OpenLibraryURL:  cfg.OpenLibrary.BaseURL,
		CoversURL:       cfg.OpenLibrary.CoversURL,
		OpenLibraryRate: cfg.OpenLibrary.RatePerSec,
		HardcoverURL:    cfg.Hardcover.BaseURL,
		Retry:           cfg.Resilience.Retry(),
	})

	engine := reconcile.New(st, resolver, c,
		reconcile.WithPolicy(cfg.Reconcile.Policy()),
		reconcile.WithSourceTimeout(cfg.Reconcile.SourceTimeout()),
		reconcile.WithBreakers(resilience.NewBreakers(breakerCfg)),
	)

	return &appEnv{
		Store:    st,
		Cache:    c,
		Resolver: resolver,
		Engine:   engine,
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, &store.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "open %s store", cfg.Store.Driver)
	}
	return st, nil
}

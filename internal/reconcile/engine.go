// Package reconcile fans a lookup out to every enabled catalog, discards
// records that describe a different book, and merges the rest under a
// canonical-source-wins policy.
package reconcile

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/bookmeta/internal/cache"
	"github.com/sells-group/bookmeta/internal/isbn"
	"github.com/sells-group/bookmeta/internal/model"
	"github.com/sells-group/bookmeta/internal/resilience"
	"github.com/sells-group/bookmeta/internal/series"
	"github.com/sells-group/bookmeta/internal/similarity"
	"github.com/sells-group/bookmeta/internal/source"
)

// Defaults for Engine options.
const (
	DefaultSourceTimeout = 8 * time.Second
	DefaultMaxResults    = 10
)

var (
	// ErrEmptyISBN is returned for a blank ISBN argument.
	ErrEmptyISBN = eris.New("reconcile: empty isbn")
	// ErrEmptyQuery is returned for a blank title query.
	ErrEmptyQuery = eris.New("reconcile: empty query")
)

// SourceLister reads the enabled sources in ascending priority order.
type SourceLister interface {
	ListEnabledSources(ctx context.Context) ([]model.SourceConfig, error)
}

// AdapterResolver maps a configured source to its adapter.
type AdapterResolver interface {
	Resolve(cfg model.SourceConfig) source.Adapter
}

// Engine reconciles book metadata across sources. It is safe for
// concurrent use.
type Engine struct {
	sources  SourceLister
	resolver AdapterResolver
	cache    cache.Cache
	policy   similarity.Policy
	timeout  time.Duration
	breakers *resilience.Breakers
}

// Option configures an Engine.
type Option func(*Engine)

// WithPolicy sets the consistency thresholds.
func WithPolicy(p similarity.Policy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithSourceTimeout bounds each adapter call.
func WithSourceTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithBreakers shares circuit breakers across engines.
func WithBreakers(bs *resilience.Breakers) Option {
	return func(e *Engine) {
		if bs != nil {
			e.breakers = bs
		}
	}
}

// New creates an Engine. A nil cache disables caching.
func New(sources SourceLister, resolver AdapterResolver, c cache.Cache, opts ...Option) *Engine {
	if c == nil {
		c = cache.New(nil, "", 0)
	}
	e := &Engine{
		sources:  sources,
		resolver: resolver,
		cache:    c,
		policy:   similarity.DefaultPolicy(),
		timeout:  DefaultSourceTimeout,
		breakers: resilience.NewBreakers(resilience.DefaultBreakerConfig()),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Breakers exposes the per-source circuit breakers.
func (e *Engine) Breakers() *resilience.Breakers { return e.breakers }

// ReconcileByISBN returns the merged record for code. Source failures and
// rejected candidates shape the Result; the error is reserved for a blank
// ISBN or an unreadable source registry.
func (e *Engine) ReconcileByISBN(ctx context.Context, code string) (*Result, error) {
	want := isbn.Normalize(code)
	if want == "" {
		return nil, ErrEmptyISBN
	}
	log := zap.L().With(zap.String("isbn", want))

	if b, ok := e.cache.Get(ctx, want); ok {
		log.Debug("reconcile: cache hit")
		return &Result{Book: b, Outcome: OutcomeCached}, nil
	}

	srcs, err := e.sources.ListEnabledSources(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "reconcile: list sources")
	}
	byPriority(srcs)
	if len(srcs) == 0 {
		log.Info("reconcile: no enabled sources")
		return &Result{Outcome: OutcomeNoSources}, nil
	}

	calls := fanOut(ctx, e, srcs, func(ctx context.Context, a source.Adapter) (*model.Book, error) {
		return a.SearchByISBN(ctx, want)
	}, func(b *model.Book) bool { return b == nil })

	res := &Result{Sources: make([]SourceReport, len(calls))}
	var survivors []model.Candidate
	for i, c := range calls {
		res.Sources[i] = c.report
		if c.value == nil {
			continue
		}
		if rej, ok := checkIdentity(c.report.Source, *c.value, want); !ok {
			log.Info("reconcile: candidate rejected",
				zap.String("source", rej.Source),
				zap.String("reason", string(rej.Reason)),
				zap.String("candidate_isbn", rej.ISBN),
			)
			res.Rejections = append(res.Rejections, rej)
			continue
		}
		survivors = append(survivors, model.Candidate{
			Source:   c.report.Source,
			Priority: c.report.Priority,
			Book:     *c.value,
		})
	}

	if len(survivors) == 0 {
		res.Outcome = OutcomeNotFound
		return res, nil
	}

	merged, rejections := e.merge(survivors, want)
	res.Rejections = append(res.Rejections, rejections...)
	res.Book = &merged
	res.Outcome = OutcomeMerged

	e.cache.Set(ctx, want, merged)
	log.Info("reconcile: merged",
		zap.String("canonical", survivors[0].Source),
		zap.Int("candidates", len(survivors)),
		zap.Int("rejected", len(res.Rejections)),
	)
	return res, nil
}

// RefreshExisting re-reconciles a stored book. Callers must keep their
// stored ISBN; see ApplyRefresh.
func (e *Engine) RefreshExisting(ctx context.Context, code string) (*Result, error) {
	return e.ReconcileByISBN(ctx, code)
}

// ReconcileByTitle searches every enabled source and returns the distinct
// hits in source priority order, truncated to maxResults. Records are not
// merged across sources.
func (e *Engine) ReconcileByTitle(ctx context.Context, query string, maxResults int) ([]model.Book, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	srcs, err := e.sources.ListEnabledSources(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "reconcile: list sources")
	}
	byPriority(srcs)
	if len(srcs) == 0 {
		zap.L().Info("reconcile: no enabled sources", zap.String("query", query))
		return nil, nil
	}

	calls := fanOut(ctx, e, srcs, func(ctx context.Context, a source.Adapter) ([]model.Book, error) {
		return a.SearchByTitle(ctx, query, maxResults)
	}, func(bs []model.Book) bool { return len(bs) == 0 })

	seen := make(map[string]bool)
	var out []model.Book
	for _, c := range calls {
		for _, b := range c.value {
			key := dedupKey(b)
			if seen[key] {
				continue
			}
			seen[key] = true
			b.SeriesName = series.NormalizeOrEmpty(b.SeriesName)
			out = append(out, b)
			if len(out) == maxResults {
				return out, nil
			}
		}
	}
	return out, nil
}

// ApplyRefresh lays fresh over stored and then restores the stored ISBN.
// Empty fields in fresh keep the stored value.
func ApplyRefresh(stored, fresh model.Book) model.Book {
	out := overlay(stored, fresh)
	out.ISBN = stored.ISBN
	return out
}

// merge folds survivors (priority ordered, identity checked) into the
// canonical record.
func (e *Engine) merge(survivors []model.Candidate, want string) (model.Book, []Rejection) {
	canonical := survivors[0].Book
	result := canonical.Clone()
	var rejections []Rejection

	for _, c := range survivors[1:] {
		if rej, ok := checkIdentity(c.Source, c.Book, want); !ok {
			rejections = append(rejections, rej)
			continue
		}
		v := e.policy.Check(canonical, c.Book)
		if !v.Consistent {
			zap.L().Info("reconcile: inconsistent candidate discarded",
				zap.String("isbn", want),
				zap.String("source", c.Source),
				zap.String("canonical_title", canonical.Title),
				zap.String("candidate_title", c.Book.Title),
				zap.Float64("title_score", v.TitleScore),
				zap.Float64("author_score", v.AuthorScore),
			)
			rejections = append(rejections, Rejection{
				Source:      c.Source,
				Reason:      ReasonInconsistent,
				ISBN:        c.Book.ISBN,
				TitleScore:  v.TitleScore,
				AuthorScore: v.AuthorScore,
			})
			continue
		}
		result = supplement(result, c.Book)
	}

	result.ISBN = want
	result.SeriesName = series.NormalizeOrEmpty(result.SeriesName)
	return result, rejections
}

// checkIdentity rejects candidates without an ISBN or with one that does
// not match want.
func checkIdentity(src string, b model.Book, want string) (Rejection, bool) {
	if b.ISBN == "" {
		return Rejection{Source: src, Reason: ReasonMissingISBN}, false
	}
	if !isbn.Match(b.ISBN, want) {
		return Rejection{Source: src, Reason: ReasonIdentityMismatch, ISBN: b.ISBN}, false
	}
	return Rejection{}, true
}

// byPriority orders srcs by ascending priority, keeping the lister's order
// among equal priorities.
func byPriority(srcs []model.SourceConfig) {
	sort.SliceStable(srcs, func(i, j int) bool { return srcs[i].Priority < srcs[j].Priority })
}

func dedupKey(b model.Book) string {
	if b.ISBN != "" {
		return "isbn:" + isbn.To13(b.ISBN)
	}
	return "title:" + b.Title + "_" + b.FirstAuthor()
}

type call[T any] struct {
	value  T
	report SourceReport
}

// fanOut runs fn once per source concurrently and returns the results in
// source order. Failures are logged and reported, never returned.
func fanOut[T any](ctx context.Context, e *Engine, srcs []model.SourceConfig, fn func(context.Context, source.Adapter) (T, error), empty func(T) bool) []call[T] {
	out := make([]call[T], len(srcs))
	var g errgroup.Group
	for i, cfg := range srcs {
		out[i].report = SourceReport{Source: cfg.Name, Priority: cfg.Priority}
		g.Go(func() error {
			start := time.Now()
			v, err := invoke(ctx, e, cfg, fn)
			r := &out[i].report
			r.Elapsed = time.Since(start)
			switch {
			case errors.Is(err, resilience.ErrCircuitOpen):
				r.Status = StatusSkipped
				r.Error = err.Error()
			case err != nil:
				zap.L().Warn("reconcile: source failed",
					zap.String("source", cfg.Name),
					zap.Duration("elapsed", r.Elapsed),
					zap.Error(err),
				)
				r.Status = StatusFailed
				r.Error = err.Error()
			case empty(v):
				r.Status = StatusEmpty
			default:
				r.Status = StatusFound
				out[i].value = v
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// invoke calls fn for one source under its timeout and circuit breaker.
// An adapter that ignores ctx is abandoned at the deadline; a panicking
// adapter counts as a failure.
func invoke[T any](ctx context.Context, e *Engine, cfg model.SourceConfig, fn func(context.Context, source.Adapter) (T, error)) (T, error) {
	a := e.resolver.Resolve(cfg)
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return resilience.Call(ctx, e.breakers.Get(cfg.Name), func(ctx context.Context) (T, error) {
		type reply struct {
			v   T
			err error
		}
		done := make(chan reply, 1)
		go func() {
			var r reply
			defer func() {
				if p := recover(); p != nil {
					r.err = eris.Errorf("reconcile: adapter %s panicked: %v", cfg.Name, p)
				}
				done <- r
			}()
			r.v, r.err = fn(ctx, a)
		}()
		select {
		case r := <-done:
			return r.v, r.err
		case <-ctx.Done():
			var zero T
			return zero, eris.Wrapf(ctx.Err(), "reconcile: source %s", cfg.Name)
		}
	})
}

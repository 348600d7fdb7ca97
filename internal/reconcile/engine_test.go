package reconcile

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sells-group/bookmeta/internal/isbn"
	"github.com/sells-group/bookmeta/internal/model"
	"github.com/sells-group/bookmeta/internal/resilience"
	"github.com/sells-group/bookmeta/internal/similarity"
	"github.com/sells-group/bookmeta/internal/source"
)

const hobbitISBN = "9780547928227"

type fakeAdapter struct {
	name   string
	book   *model.Book
	titles []model.Book
	err    error
	delay  time.Duration
	panics bool
	calls  atomic.Int32
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) wait(ctx context.Context) error {
	f.calls.Add(1)
	if f.panics {
		panic("adapter exploded")
	}
	if f.delay == 0 {
		return nil
	}
	select {
	case <-time.After(f.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeAdapter) SearchByISBN(ctx context.Context, _ string) (*model.Book, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.book == nil {
		return nil, nil
	}
	b := f.book.Clone()
	return &b, nil
}

func (f *fakeAdapter) SearchByTitle(ctx context.Context, _ string, _ int) ([]model.Book, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.titles, f.err
}

type fakeRegistry struct {
	adapters []*fakeAdapter
	err      error
}

func (r *fakeRegistry) ListEnabledSources(context.Context) ([]model.SourceConfig, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := make([]model.SourceConfig, len(r.adapters))
	for i, a := range r.adapters {
		out[i] = model.SourceConfig{Name: a.name, Enabled: true, Priority: i + 1}
	}
	return out, nil
}

func (r *fakeRegistry) Resolve(cfg model.SourceConfig) source.Adapter {
	for _, a := range r.adapters {
		if a.name == cfg.Name {
			return a
		}
	}
	return nil
}

type memCache struct {
	mu   sync.Mutex
	data map[string]model.Book
}

func newMemCache() *memCache { return &memCache{data: map[string]model.Book{}} }

func (c *memCache) Get(_ context.Context, code string) (*model.Book, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[code]
	if !ok {
		return nil, false
	}
	return &b, true
}

func (c *memCache) Set(_ context.Context, code string, b model.Book) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[code] = b
}

func (c *memCache) Delete(_ context.Context, code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, code)
}

func newEngine(t *testing.T, adapters ...*fakeAdapter) (*Engine, *memCache) {
	t.Helper()
	reg := &fakeRegistry{adapters: adapters}
	c := newMemCache()
	return New(reg, reg, c, WithSourceTimeout(200*time.Millisecond)), c
}

func hobbit() *model.Book {
	return &model.Book{
		Title:         "The Hobbit",
		Authors:       []string{"J.R.R. Tolkien"},
		Publisher:     "Houghton Mifflin",
		PublishedDate: "2012-09-18",
		Categories:    []string{"Fantasy"},
		ISBN:          hobbitISBN,
	}
}

func TestReconcileByISBN_CanonicalFieldsProtected(t *testing.T) {
	t.Parallel()

	supp := &model.Book{
		Title:         "the hobbit.",
		Authors:       []string{"J. R. R. Tolkien", "Christopher Tolkien"},
		Publisher:     "Del Rey",
		PublishedDate: "1937",
		Description:   "A hobbit goes on an adventure.",
		ISBN:          hobbitISBN,
	}
	e, _ := newEngine(t,
		&fakeAdapter{name: "google_books", book: hobbit()},
		&fakeAdapter{name: "open_library", book: supp},
	)

	res, err := e.ReconcileByISBN(context.Background(), hobbitISBN)
	require.NoError(t, err)
	require.Equal(t, OutcomeMerged, res.Outcome)
	assert.Equal(t, "The Hobbit", res.Book.Title)
	assert.Equal(t, []string{"J.R.R. Tolkien"}, res.Book.Authors)
	assert.Equal(t, "Houghton Mifflin", res.Book.Publisher)
	assert.Equal(t, "2012-09-18", res.Book.PublishedDate)
	assert.Equal(t, "A hobbit goes on an adventure.", res.Book.Description)
	assert.Empty(t, res.Rejections)
}

func TestReconcileByISBN_ProtectedFieldsFilledWhenCanonicalEmpty(t *testing.T) {
	t.Parallel()

	canon := &model.Book{Title: "The Hobbit", ISBN: hobbitISBN}
	supp := &model.Book{Title: "The Hobbit", Authors: []string{"J.R.R. Tolkien"}, Publisher: "Del Rey", ISBN: hobbitISBN}
	e, _ := newEngine(t,
		&fakeAdapter{name: "a", book: canon},
		&fakeAdapter{name: "b", book: supp},
	)

	res, err := e.ReconcileByISBN(context.Background(), hobbitISBN)
	require.NoError(t, err)
	assert.Equal(t, []string{"J.R.R. Tolkien"}, res.Book.Authors)
	assert.Equal(t, "Del Rey", res.Book.Publisher)
}

func TestReconcileByISBN_ContaminationPrevented(t *testing.T) {
	t.Parallel()

	canon := &model.Book{Title: "The Hobbit", Authors: []string{"J.R.R. Tolkien"}, ISBN: hobbitISBN}
	wrong := &model.Book{
		Title:       "Advanced Quantum Mechanics",
		Authors:     []string{"J.J. Sakurai"},
		Publisher:   "Addison-Wesley",
		Description: "Relativistic quantum mechanics.",
		Categories:  []string{"Science"},
		PageCount:   model.IntPtr(336),
		ISBN:        hobbitISBN,
	}
	e, _ := newEngine(t,
		&fakeAdapter{name: "a", book: canon},
		&fakeAdapter{name: "b", book: wrong},
	)

	res, err := e.ReconcileByISBN(context.Background(), hobbitISBN)
	require.NoError(t, err)
	require.Equal(t, OutcomeMerged, res.Outcome)
	assert.Empty(t, res.Book.Description)
	assert.Empty(t, res.Book.Categories)
	assert.Empty(t, res.Book.Publisher)
	assert.Nil(t, res.Book.PageCount)

	require.Len(t, res.Rejections, 1)
	assert.Equal(t, ReasonInconsistent, res.Rejections[0].Reason)
	assert.Equal(t, "b", res.Rejections[0].Source)
	assert.Less(t, res.Rejections[0].TitleScore, 0.6)
}

func TestReconcileByISBN_FillOnlyWhenEmpty(t *testing.T) {
	t.Parallel()

	supp := hobbit()
	supp.PageCount = model.IntPtr(310)

	e, _ := newEngine(t,
		&fakeAdapter{name: "a", book: hobbit()},
		&fakeAdapter{name: "b", book: supp},
	)
	res, err := e.ReconcileByISBN(context.Background(), hobbitISBN)
	require.NoError(t, err)
	require.NotNil(t, res.Book.PageCount)
	assert.Equal(t, 310, *res.Book.PageCount)

	canon := hobbit()
	canon.PageCount = model.IntPtr(300)
	e, _ = newEngine(t,
		&fakeAdapter{name: "a", book: canon},
		&fakeAdapter{name: "b", book: supp},
	)
	res, err = e.ReconcileByISBN(context.Background(), hobbitISBN)
	require.NoError(t, err)
	assert.Equal(t, 300, *res.Book.PageCount)
}

func TestReconcileByISBN_ListUnion(t *testing.T) {
	t.Parallel()

	supp := hobbit()
	supp.Categories = []string{"Fantasy", "Adventure", "Fantasy"}

	e, _ := newEngine(t,
		&fakeAdapter{name: "a", book: hobbit()},
		&fakeAdapter{name: "b", book: supp},
	)
	res, err := e.ReconcileByISBN(context.Background(), hobbitISBN)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fantasy", "Adventure"}, res.Book.Categories)
}

func TestReconcileByISBN_IdentityFiltering(t *testing.T) {
	t.Parallel()

	noISBN := hobbit()
	noISBN.ISBN = ""
	noISBN.Description = "no isbn"

	other := hobbit()
	other.ISBN = "9780261102217"
	other.Description = "other edition"

	ten := hobbit()
	ten.ISBN = isbn.To10(hobbitISBN)
	ten.Description = "ten digit form"

	e, _ := newEngine(t,
		&fakeAdapter{name: "a", book: noISBN},
		&fakeAdapter{name: "b", book: other},
		&fakeAdapter{name: "c", book: ten},
	)

	res, err := e.ReconcileByISBN(context.Background(), hobbitISBN)
	require.NoError(t, err)
	require.Equal(t, OutcomeMerged, res.Outcome)
	assert.Equal(t, "ten digit form", res.Book.Description, "ISBN-10 form of the same book is accepted")
	assert.Equal(t, hobbitISBN, res.Book.ISBN)

	require.Len(t, res.Rejections, 2)
	assert.Equal(t, Rejection{Source: "a", Reason: ReasonMissingISBN}, res.Rejections[0])
	assert.Equal(t, Rejection{Source: "b", Reason: ReasonIdentityMismatch, ISBN: "9780261102217"}, res.Rejections[1])
}

func TestReconcileByISBN_CanonicalIsLowestSurvivingPriority(t *testing.T) {
	t.Parallel()

	mismatch := hobbit()
	mismatch.ISBN = "9780261102217"
	mismatch.Title = "Wrong Edition"

	second := hobbit()
	second.Publisher = "Second Publisher"

	third := hobbit()
	third.Publisher = "Third Publisher"

	e, _ := newEngine(t,
		&fakeAdapter{name: "first", book: mismatch},
		&fakeAdapter{name: "second", book: second, delay: 50 * time.Millisecond},
		&fakeAdapter{name: "third", book: third},
	)

	res, err := e.ReconcileByISBN(context.Background(), hobbitISBN)
	require.NoError(t, err)
	assert.Equal(t, "Second Publisher", res.Book.Publisher, "priority order survives completion order")
	assert.Equal(t, "The Hobbit", res.Book.Title)
}

func TestReconcileByISBN_SourceFailuresIsolated(t *testing.T) {
	t.Parallel()

	e, _ := newEngine(t,
		&fakeAdapter{name: "broken", err: errors.New("503 from upstream")},
		&fakeAdapter{name: "panicky", panics: true},
		&fakeAdapter{name: "slow", book: hobbit(), delay: 5 * time.Second},
		&fakeAdapter{name: "good", book: hobbit()},
	)

	start := time.Now()
	res, err := e.ReconcileByISBN(context.Background(), hobbitISBN)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	require.Equal(t, OutcomeMerged, res.Outcome)
	assert.Equal(t, "The Hobbit", res.Book.Title)

	require.Len(t, res.Sources, 4)
	assert.Equal(t, StatusFailed, res.Sources[0].Status)
	assert.Contains(t, res.Sources[0].Error, "503")
	assert.Equal(t, StatusFailed, res.Sources[1].Status)
	assert.Contains(t, res.Sources[1].Error, "panicked")
	assert.Equal(t, StatusFailed, res.Sources[2].Status)
	assert.Equal(t, StatusFound, res.Sources[3].Status)
}

func TestReconcileByISBN_AdapterIgnoringContextIsAbandoned(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	stuck := &blockingAdapter{release: block}

	reg := &mixedRegistry{adapters: map[string]source.Adapter{"stuck": stuck}, order: []string{"stuck"}}
	e := New(reg, reg, newMemCache(), WithSourceTimeout(50*time.Millisecond))

	res, err := e.ReconcileByISBN(context.Background(), hobbitISBN)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, res.Outcome)
	assert.Equal(t, StatusFailed, res.Sources[0].Status)
}

type blockingAdapter struct{ release chan struct{} }

func (b *blockingAdapter) Name() string { return "stuck" }

func (b *blockingAdapter) SearchByISBN(context.Context, string) (*model.Book, error) {
	<-b.release
	return nil, nil
}

func (b *blockingAdapter) SearchByTitle(context.Context, string, int) ([]model.Book, error) {
	<-b.release
	return nil, nil
}

type mixedRegistry struct {
	adapters map[string]source.Adapter
	order    []string
}

func (r *mixedRegistry) ListEnabledSources(context.Context) ([]model.SourceConfig, error) {
	out := make([]model.SourceConfig, len(r.order))
	for i, n := range r.order {
		out[i] = model.SourceConfig{Name: n, Enabled: true, Priority: i}
	}
	return out, nil
}

func (r *mixedRegistry) Resolve(cfg model.SourceConfig) source.Adapter { return r.adapters[cfg.Name] }

func TestReconcileByISBN_Outcomes(t *testing.T) {
	t.Parallel()

	e, _ := newEngine(t)
	res, err := e.ReconcileByISBN(context.Background(), hobbitISBN)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoSources, res.Outcome)
	assert.False(t, res.Found())

	e, _ = newEngine(t, &fakeAdapter{name: "a"}, &fakeAdapter{name: "b"})
	res, err = e.ReconcileByISBN(context.Background(), hobbitISBN)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, res.Outcome)
	assert.Nil(t, res.Book)
	assert.Equal(t, StatusEmpty, res.Sources[0].Status)

	_, err = e.ReconcileByISBN(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyISBN)

	reg := &fakeRegistry{err: errors.New("db down")}
	_, err = New(reg, reg, nil).ReconcileByISBN(context.Background(), hobbitISBN)
	assert.Error(t, err)
}

func TestReconcileByISBN_CacheHitBypassesSources(t *testing.T) {
	t.Parallel()

	a := &fakeAdapter{name: "a", book: hobbit()}
	e, c := newEngine(t, a)

	res, err := e.ReconcileByISBN(context.Background(), "978-0-547-92822-7")
	require.NoError(t, err)
	require.Equal(t, OutcomeMerged, res.Outcome)
	assert.Equal(t, hobbitISBN, res.Book.ISBN)
	assert.Contains(t, c.data, hobbitISBN)

	res, err = e.ReconcileByISBN(context.Background(), hobbitISBN)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCached, res.Outcome)
	assert.Equal(t, "The Hobbit", res.Book.Title)
	assert.Equal(t, int32(1), a.calls.Load())
}

func TestReconcileByISBN_SeriesNormalized(t *testing.T) {
	t.Parallel()

	b := hobbit()
	b.SeriesName = "The Middle-earth Saga"
	e, _ := newEngine(t, &fakeAdapter{name: "a", book: b})

	res, err := e.ReconcileByISBN(context.Background(), hobbitISBN)
	require.NoError(t, err)
	assert.Equal(t, "Middle-earth", res.Book.SeriesName)
}

func TestReconcileByISBN_CircuitOpensOnRepeatedFailure(t *testing.T) {
	t.Parallel()

	broken := &fakeAdapter{name: "broken", err: errors.New("boom")}
	reg := &fakeRegistry{adapters: []*fakeAdapter{broken, {name: "good", book: hobbit()}}}
	e := New(reg, reg, nil, WithBreakers(resilience.NewBreakers(resilience.BreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     time.Hour,
	})))

	for i := 0; i < 2; i++ {
		_, err := e.ReconcileByISBN(context.Background(), hobbitISBN)
		require.NoError(t, err)
	}
	res, err := e.ReconcileByISBN(context.Background(), hobbitISBN)
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, res.Sources[0].Status)
	assert.Equal(t, int32(2), broken.calls.Load())
	assert.Equal(t, resilience.Open, e.Breakers().Get("broken").State())
}

func TestReconcileByISBN_CustomPolicy(t *testing.T) {
	t.Parallel()

	supp := &model.Book{Title: "Hobbit", Description: "short title", ISBN: hobbitISBN}
	reg := &fakeRegistry{adapters: []*fakeAdapter{
		{name: "a", book: &model.Book{Title: "The Hobbit", ISBN: hobbitISBN}},
		{name: "b", book: supp},
	}}

	strict := New(reg, reg, nil)
	res, err := strict.ReconcileByISBN(context.Background(), hobbitISBN)
	require.NoError(t, err)
	assert.Empty(t, res.Book.Description)

	lenient := New(reg, reg, nil, WithPolicy(similarity.Policy{TitleThreshold: 0.5, AuthorThreshold: 0.5}))
	res, err = lenient.ReconcileByISBN(context.Background(), hobbitISBN)
	require.NoError(t, err)
	assert.Equal(t, "short title", res.Book.Description)
}

func TestRefreshExisting(t *testing.T) {
	t.Parallel()

	e, _ := newEngine(t, &fakeAdapter{name: "a", book: hobbit()})
	res, err := e.RefreshExisting(context.Background(), hobbitISBN)
	require.NoError(t, err)
	assert.Equal(t, OutcomeMerged, res.Outcome)
}

func TestReconcileByTitle(t *testing.T) {
	t.Parallel()

	first := &fakeAdapter{name: "first", delay: 40 * time.Millisecond, titles: []model.Book{
		{Title: "The Hobbit", Authors: []string{"J.R.R. Tolkien"}, ISBN: hobbitISBN},
		{Title: "The Hobbit Companion", Authors: []string{"David Day"}, SeriesName: "Tolkien Trilogy"},
	}}
	second := &fakeAdapter{name: "second", titles: []model.Book{
		{Title: "The Hobbit (annotated)", ISBN: isbn.To10(hobbitISBN)},
		{Title: "The Hobbit Companion", Authors: []string{"David Day"}, Description: "dup"},
		{Title: "The Hobbit Companion", Authors: []string{"Someone Else"}},
		{Title: "Roverandom", ISBN: "9780261103535"},
	}}
	e, _ := newEngine(t, first, second)

	books, err := e.ReconcileByTitle(context.Background(), "hobbit", 10)
	require.NoError(t, err)
	require.Len(t, books, 4)
	assert.Equal(t, "The Hobbit", books[0].Title)
	assert.Equal(t, "The Hobbit Companion", books[1].Title)
	assert.Equal(t, "Tolkien", books[1].SeriesName)
	assert.Equal(t, []string{"Someone Else"}, books[2].Authors)
	assert.Equal(t, "Roverandom", books[3].Title)

	books, err = e.ReconcileByTitle(context.Background(), "hobbit", 2)
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "The Hobbit Companion", books[1].Title)
}

func TestReconcileByTitle_DuplicateISBNCollapses(t *testing.T) {
	t.Parallel()

	e, _ := newEngine(t,
		&fakeAdapter{name: "a", titles: []model.Book{{Title: "The Hobbit", ISBN: "9780547928227"}}},
		&fakeAdapter{name: "b", titles: []model.Book{{Title: "Hobbit, The", ISBN: "9780547928227"}}},
	)
	books, err := e.ReconcileByTitle(context.Background(), "hobbit", 0)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "The Hobbit", books[0].Title)
}

func TestReconcileByTitle_Errors(t *testing.T) {
	t.Parallel()

	e, _ := newEngine(t, &fakeAdapter{name: "a", err: errors.New("down")})
	books, err := e.ReconcileByTitle(context.Background(), "hobbit", 5)
	require.NoError(t, err)
	assert.Empty(t, books)

	_, err = e.ReconcileByTitle(context.Background(), "", 5)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestApplyRefresh_KeepsStoredISBN(t *testing.T) {
	t.Parallel()

	stored := model.Book{Title: "Old Title", Description: "kept", ISBN: "054792822X", Categories: []string{"Old"}}
	fresh := model.Book{Title: "New Title", ISBN: "9780547928227", Categories: []string{"New"}, PageCount: model.IntPtr(300)}

	out := ApplyRefresh(stored, fresh)
	assert.Equal(t, "054792822X", out.ISBN)
	assert.Equal(t, "New Title", out.Title)
	assert.Equal(t, "kept", out.Description)
	assert.Equal(t, []string{"New"}, out.Categories)
	assert.Equal(t, 300, *out.PageCount)
	assert.Equal(t, []string{"Old"}, stored.Categories, "stored is not mutated")
}

func TestReconcileByISBN_AuthorMismatchRejected(t *testing.T) {
	t.Parallel()

	const code = "9780553808124"
	a := &model.Book{Title: "Dragon Keeper", Authors: []string{"Robin Hobb"}, ISBN: code}
	b := &model.Book{
		Title:       "Dragon Keeper",
		Authors:     []string{"Different Author"},
		Description: "A story about dragons.",
		ISBN:        code,
	}
	e, _ := newEngine(t,
		&fakeAdapter{name: "a", book: a},
		&fakeAdapter{name: "b", book: b},
	)

	res, err := e.ReconcileByISBN(context.Background(), code)
	require.NoError(t, err)
	require.Equal(t, OutcomeMerged, res.Outcome)
	assert.Equal(t, []string{"Robin Hobb"}, res.Book.Authors)
	assert.Empty(t, res.Book.Description)

	require.Len(t, res.Rejections, 1)
	rej := res.Rejections[0]
	assert.Equal(t, "b", rej.Source)
	assert.Equal(t, ReasonInconsistent, rej.Reason)
	assert.InDelta(t, 1.0, rej.TitleScore, 1e-9)
	assert.InDelta(t, 0.0, rej.AuthorScore, 1e-9)
}

// unorderedRegistry lists its sources with the highest priority number
// first.
type unorderedRegistry struct {
	fakeRegistry
}

func (r *unorderedRegistry) ListEnabledSources(ctx context.Context) ([]model.SourceConfig, error) {
	srcs, err := r.fakeRegistry.ListEnabledSources(ctx)
	for i, j := 0, len(srcs)-1; i < j; i, j = i+1, j-1 {
		srcs[i], srcs[j] = srcs[j], srcs[i]
	}
	return srcs, err
}

func TestReconcileByISBN_OrdersUnsortedSourcesByPriority(t *testing.T) {
	t.Parallel()

	first := hobbit()
	first.Publisher = "First Publisher"
	second := hobbit()
	second.Publisher = "Second Publisher"

	reg := &unorderedRegistry{fakeRegistry{adapters: []*fakeAdapter{
		{name: "first", book: first},
		{name: "second", book: second},
	}}}
	e := New(reg, reg, newMemCache(), WithSourceTimeout(200*time.Millisecond))

	res, err := e.ReconcileByISBN(context.Background(), hobbitISBN)
	require.NoError(t, err)
	assert.Equal(t, "First Publisher", res.Book.Publisher)
	require.Len(t, res.Sources, 2)
	assert.Equal(t, "first", res.Sources[0].Source)
	assert.Equal(t, 1, res.Sources[0].Priority)
}

func TestReconcileByTitle_OrdersUnsortedSourcesByPriority(t *testing.T) {
	t.Parallel()

	reg := &unorderedRegistry{fakeRegistry{adapters: []*fakeAdapter{
		{name: "first", titles: []model.Book{{Title: "From First", ISBN: "9780547928227"}}},
		{name: "second", titles: []model.Book{{Title: "From Second", ISBN: "9780547928227"}}},
	}}}
	e := New(reg, reg, newMemCache(), WithSourceTimeout(200*time.Millisecond))

	books, err := e.ReconcileByTitle(context.Background(), "hobbit", 5)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "From First", books[0].Title)
}

func TestReconcileByTitle_NoSourcesLogged(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	e, _ := newEngine(t)
	books, err := e.ReconcileByTitle(context.Background(), "hobbit", 5)
	require.NoError(t, err)
	assert.Nil(t, books)

	entries := logs.FilterMessage("reconcile: no enabled sources").FilterField(zap.String("query", "hobbit"))
	assert.Equal(t, 1, entries.Len())
}

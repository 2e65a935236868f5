package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebeliceyang/lazyweave/internal/models"
)

// memSource serves objects from memory. Each tenant ("" for none) holds its
// own objects. A non-nil hold channel blocks ListObjects until released.
type memSource struct {
	mu       sync.Mutex
	objects  map[string][]models.Object
	tenants  []models.Tenant
	listErr  error
	countErr error
	hits     []models.Object
	lists    []models.FetchKey
	counts   int
	searches int

	hold    chan struct{}
	entered chan models.FetchKey

	searchHold    chan struct{}
	searchEntered chan models.SearchQuery
}

func newMemSource(n int) *memSource {
	return &memSource{objects: map[string][]models.Object{"": makeObjects("obj", n)}}
}

func makeObjects(prefix string, n int) []models.Object {
	out := make([]models.Object, n)
	for i := range out {
		out[i] = models.Object{ID: fmt.Sprintf("%s-%03d", prefix, i+1), Collection: "Books"}
	}
	return out
}

func (m *memSource) ListObjects(ctx context.Context, key models.FetchKey) (models.Page, error) {
	m.mu.Lock()
	m.lists = append(m.lists, key)
	hold, entered := m.hold, m.entered
	err := m.listErr
	objs := m.objects[key.Tenant]
	m.mu.Unlock()

	if entered != nil {
		entered <- key
	}
	if hold != nil {
		<-hold
	}
	if err != nil {
		return models.Page{}, err
	}

	start := 0
	if key.Cursor != "" {
		for i, o := range objs {
			if o.ID == key.Cursor {
				start = i + 1
				break
			}
		}
	}
	end := min(start+key.PageSize, len(objs))
	page := models.Page{Objects: append([]models.Object(nil), objs[start:end]...)}
	if len(page.Objects) > 0 {
		page.NextCursor = page.Objects[len(page.Objects)-1].ID
	}
	return page, nil
}

func (m *memSource) Count(_ context.Context, _ int64, _, tenant string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts++
	if m.countErr != nil {
		return 0, m.countErr
	}
	return int64(len(m.objects[tenant])), nil
}

func (m *memSource) Tenants(context.Context, int64, string) ([]models.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Tenant(nil), m.tenants...), nil
}

func (m *memSource) Search(_ context.Context, q models.SearchQuery) (models.SearchResult, error) {
	m.mu.Lock()
	m.searches++
	hold, entered := m.searchHold, m.searchEntered
	hits := append([]models.Object(nil), m.hits...)
	m.mu.Unlock()

	if entered != nil {
		entered <- q
	}
	if hold != nil {
		<-hold
	}
	return models.SearchResult{Objects: hits, ExecutionTime: 12 * time.Millisecond}, nil
}

func (m *memSource) listCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lists)
}

func (m *memSource) setHold(hold chan struct{}, entered chan models.FetchKey) {
	m.mu.Lock()
	m.hold, m.entered = hold, entered
	m.mu.Unlock()
}

var books = Target{ConnectionID: 1, Collection: "Books"}

func newLoaded(t *testing.T, src *memSource, target Target) *Controller {
	t.Helper()
	c := NewController(src, NewCountCache(16, time.Minute), target, Options{}, nil)
	require.NoError(t, c.Load(context.Background()))
	return c
}

func firstID(c *Controller) string {
	p := c.Page()
	if len(p.Objects) == 0 {
		return ""
	}
	return p.Objects[0].ID
}

func TestController_FivePagesScenario(t *testing.T) {
	src := newMemSource(120)
	c := newLoaded(t, src, books)
	ctx := context.Background()

	st := c.State()
	assert.Equal(t, 25, st.PageSize)
	assert.Equal(t, 5, st.TotalPages())
	assert.Equal(t, 1, st.CurrentPage())

	for i := 0; i < 4; i++ {
		require.NoError(t, c.Next(ctx))
	}
	assert.Equal(t, 5, c.State().CurrentPage())
	assert.Equal(t, "obj-101", firstID(c))
	assert.Len(t, c.Page().Objects, 20)

	calls := src.listCalls()
	require.NoError(t, c.Next(ctx))
	assert.Equal(t, 5, c.State().CurrentPage(), "next on the last page is a no-op")
	assert.Equal(t, calls, src.listCalls())
}

func TestController_NextPreviousSymmetry(t *testing.T) {
	src := newMemSource(120)
	c := newLoaded(t, src, books)
	ctx := context.Background()

	require.NoError(t, c.Next(ctx))
	before := c.State().Cursors

	require.NoError(t, c.Next(ctx))
	require.NoError(t, c.Previous(ctx))

	assert.Equal(t, before, c.State().Cursors)
	assert.Equal(t, "obj-026", firstID(c))
}

func TestController_PreviousOnFirstPage(t *testing.T) {
	src := newMemSource(30)
	c := newLoaded(t, src, books)
	calls := src.listCalls()

	require.NoError(t, c.Previous(context.Background()))

	assert.Empty(t, c.State().Cursors)
	assert.Equal(t, calls, src.listCalls())
}

func TestController_SetPageSizeClearsHistory(t *testing.T) {
	src := newMemSource(120)
	c := newLoaded(t, src, books)
	ctx := context.Background()
	require.NoError(t, c.Next(ctx))
	require.NoError(t, c.Next(ctx))

	require.NoError(t, c.SetPageSize(ctx, 50))

	st := c.State()
	assert.Empty(t, st.Cursors)
	assert.Equal(t, 50, st.PageSize)
	assert.Equal(t, 3, st.TotalPages())
	assert.Equal(t, "obj-001", firstID(c))
	assert.Len(t, c.Page().Objects, 50)
}

func TestController_SetPageSizeRejectsUnknownSize(t *testing.T) {
	c := newLoaded(t, newMemSource(10), books)
	err := c.SetPageSize(context.Background(), 33)
	assert.True(t, models.IsValidation(err))
	assert.Equal(t, 25, c.State().PageSize)
}

func TestController_UnknownTotalStopsOnShortPage(t *testing.T) {
	src := newMemSource(30)
	src.countErr = errors.New("aggregate disabled")
	c := NewController(src, nil, books, Options{}, nil)
	ctx := context.Background()

	err := c.Load(ctx)
	var ferr *models.FetchError
	require.ErrorAs(t, err, &ferr)
	assert.Len(t, c.Page().Objects, 25, "page still loads without a count")
	assert.Equal(t, 0, c.State().TotalPages())

	require.NoError(t, c.Next(ctx))
	assert.Equal(t, 2, c.State().CurrentPage())
	require.NoError(t, c.Next(ctx))
	assert.Equal(t, 2, c.State().CurrentPage(), "short page is the last one")
}

func TestController_NextIsNoopWhileLoading(t *testing.T) {
	src := newMemSource(120)
	c := newLoaded(t, src, books)
	ctx := context.Background()

	hold := make(chan struct{})
	entered := make(chan models.FetchKey, 1)
	src.setHold(hold, entered)

	done := make(chan error, 1)
	go func() { done <- c.Next(ctx) }()
	<-entered
	assert.True(t, c.Loading())

	require.NoError(t, c.Next(ctx))
	require.NoError(t, c.Previous(ctx))
	assert.Len(t, c.State().Cursors, 1)

	close(hold)
	require.NoError(t, <-done)
	assert.False(t, c.Loading())
	assert.Equal(t, 2, c.State().CurrentPage())
}

func TestController_StalePageDiscarded(t *testing.T) {
	src := newMemSource(120)
	c := newLoaded(t, src, books)
	ctx := context.Background()

	hold := make(chan struct{})
	entered := make(chan models.FetchKey, 2)
	src.setHold(hold, entered)

	// Page-2 fetch in flight...
	nextDone := make(chan error, 1)
	go func() { nextDone <- c.Next(ctx) }()
	<-entered

	// ...then the user changes the page size, going back to page one
	sizeDone := make(chan error, 1)
	go func() { sizeDone <- c.SetPageSize(ctx, 10) }()
	<-entered

	close(hold)
	require.NoError(t, <-nextDone)
	require.NoError(t, <-sizeDone)

	st := c.State()
	assert.Empty(t, st.Cursors)
	assert.Equal(t, 10, st.PageSize)
	assert.Equal(t, "obj-001", firstID(c))
	assert.Len(t, c.Page().Objects, 10)
}

func TestController_FetchErrorKeepsStaleData(t *testing.T) {
	src := newMemSource(120)
	c := newLoaded(t, src, books)
	ctx := context.Background()

	var reported []error
	c.OnError(func(err error) { reported = append(reported, err) })
	src.mu.Lock()
	src.listErr = errors.New("timeout")
	src.mu.Unlock()

	err := c.Next(ctx)

	var ferr *models.FetchError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, "obj-001", firstID(c), "previous page stays visible")
	assert.Equal(t, 2, c.State().CurrentPage())
	assert.Len(t, reported, 1)
	assert.Equal(t, err, c.Err())

	// A refresh after recovery loads the page the cursor points at
	src.mu.Lock()
	src.listErr = nil
	src.mu.Unlock()
	require.NoError(t, c.Refresh(ctx))
	assert.Equal(t, "obj-026", firstID(c))
	assert.NoError(t, c.Err())
}

func TestController_CountCached(t *testing.T) {
	src := newMemSource(50)
	counts := NewCountCache(16, time.Minute)

	a := NewController(src, counts, books, Options{}, nil)
	require.NoError(t, a.Load(context.Background()))
	b := NewController(src, counts, books, Options{}, nil)
	require.NoError(t, b.Load(context.Background()))

	assert.Equal(t, 1, src.counts)
	assert.Equal(t, int64(50), b.State().Total)

	require.NoError(t, b.Refresh(context.Background()))
	assert.Equal(t, 2, src.counts, "refresh bypasses the cache")
}

func TestController_MultiTenant(t *testing.T) {
	src := &memSource{
		objects: map[string][]models.Object{
			"tenant-2":  makeObjects("t2", 60),
			"tenant-10": makeObjects("t10", 5),
		},
		tenants: []models.Tenant{{Name: "tenant-10"}, {Name: "tenant-2"}},
	}
	target := Target{ConnectionID: 1, Collection: "Reviews", MultiTenant: true}
	c := newLoaded(t, src, target)
	ctx := context.Background()

	assert.Equal(t, []models.Tenant{{Name: "tenant-2"}, {Name: "tenant-10"}}, c.Tenants())
	st := c.State()
	assert.Equal(t, "tenant-2", st.Tenant, "first tenant is selected")
	assert.Equal(t, 3, st.TotalPages())

	require.NoError(t, c.SetPageSize(ctx, 10))
	require.NoError(t, c.Next(ctx))

	require.NoError(t, c.SetTenant(ctx, "tenant-10"))

	st = c.State()
	assert.Empty(t, st.Cursors)
	assert.Equal(t, models.DefaultPageSize, st.PageSize, "tenant change resets the page size")
	assert.Equal(t, int64(5), st.Total)
	assert.Equal(t, "t10-001", firstID(c))
}

func TestController_MultiTenantWithoutTenantsFetchesNothing(t *testing.T) {
	src := &memSource{objects: map[string][]models.Object{}}
	c := newLoaded(t, src, Target{ConnectionID: 1, Collection: "Reviews", MultiTenant: true})

	assert.Equal(t, 0, src.listCalls())
	assert.Empty(t, c.Page().Objects)
}

func TestSearch_ResetPreservesPage(t *testing.T) {
	src := newMemSource(120)
	src.hits = makeObjects("hit", 3)
	c := newLoaded(t, src, books)
	s := NewSearch(src, c, 0)
	ctx := context.Background()

	require.NoError(t, c.Next(ctx))
	require.NoError(t, c.Next(ctx))
	require.Len(t, c.State().Cursors, 2)
	calls := src.listCalls()

	require.NoError(t, s.Run(ctx, "dune"))
	st := c.State()
	assert.True(t, st.Searching)
	require.NotNil(t, st.SearchTime)
	assert.Equal(t, 12*time.Millisecond, *st.SearchTime)
	res, ok := s.Result()
	require.True(t, ok)
	assert.Len(t, res.Objects, 3)

	// Paging is suspended while searching
	require.NoError(t, c.Next(ctx))
	require.NoError(t, c.Previous(ctx))
	assert.Len(t, c.State().Cursors, 2)

	require.NoError(t, s.Reset(ctx))

	st = c.State()
	assert.False(t, st.Searching)
	assert.Nil(t, st.SearchTime)
	assert.Len(t, st.Cursors, 2)
	assert.Equal(t, 3, st.CurrentPage())
	assert.Equal(t, "obj-051", firstID(c))
	assert.Equal(t, calls, src.listCalls(), "page three is shown again without a refetch")
	_, ok = s.Result()
	assert.False(t, ok)
}

func TestSearch_BlankQueryResets(t *testing.T) {
	src := newMemSource(10)
	c := newLoaded(t, src, books)
	s := NewSearch(src, c, 0)
	ctx := context.Background()

	require.NoError(t, s.Run(ctx, "dune"))
	require.NoError(t, s.Run(ctx, "   "))

	assert.False(t, c.State().Searching)
	assert.Equal(t, 1, src.searches)
}

func TestSearch_PageSizeChangedDuringSearchRefetchesOnReset(t *testing.T) {
	src := newMemSource(120)
	c := newLoaded(t, src, books)
	s := NewSearch(src, c, 0)
	ctx := context.Background()

	require.NoError(t, s.Run(ctx, "dune"))
	calls := src.listCalls()
	require.NoError(t, c.SetPageSize(ctx, 50))
	assert.Equal(t, calls, src.listCalls(), "no paging fetch while searching")

	require.NoError(t, s.Reset(ctx))
	assert.Equal(t, calls+1, src.listCalls())
	assert.Len(t, c.Page().Objects, 50)
}

func TestSearch_TenantSwitchDiscardsRunningSearch(t *testing.T) {
	src := &memSource{
		objects: map[string][]models.Object{"a": makeObjects("a", 5), "b": makeObjects("b", 5)},
		tenants: []models.Tenant{{Name: "a"}, {Name: "b"}},
		hits:    makeObjects("hit-from-a", 1),
	}
	c := newLoaded(t, src, Target{ConnectionID: 1, Collection: "Reviews", MultiTenant: true})
	s := NewSearch(src, c, 0)
	ctx := context.Background()

	hold := make(chan struct{})
	entered := make(chan models.SearchQuery, 1)
	src.mu.Lock()
	src.searchHold, src.searchEntered = hold, entered
	src.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, "dune") }()
	q := <-entered
	assert.Equal(t, "a", q.Tenant)

	require.NoError(t, c.SetTenant(ctx, "b"))
	close(hold)
	require.NoError(t, <-done)

	st := c.State()
	assert.Equal(t, "b", st.Tenant)
	assert.False(t, st.Searching)
	assert.Nil(t, st.SearchTime)
	_, ok := s.Result()
	assert.False(t, ok)
	assert.Equal(t, "b-001", firstID(c))
}

func TestSearch_ConcurrentRunAndResetStayConsistent(t *testing.T) {
	src := newMemSource(60)
	src.hits = makeObjects("hit", 2)
	c := newLoaded(t, src, books)
	s := NewSearch(src, c, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.Run(ctx, "dune")
		}()
		go func() {
			defer wg.Done()
			_ = s.Reset(ctx)
		}()
	}
	wg.Wait()

	// Search mode is on exactly when a result is held
	_, ok := s.Result()
	assert.Equal(t, c.State().Searching, ok)

	require.NoError(t, s.Reset(ctx))
	require.NoError(t, c.Next(ctx))
	assert.Equal(t, 2, c.State().CurrentPage(), "paging works after the last reset")
}

func TestView_SetTenantDropsSearch(t *testing.T) {
	src := &memSource{
		objects: map[string][]models.Object{"a": makeObjects("a", 30), "b": makeObjects("b", 30)},
		tenants: []models.Tenant{{Name: "a"}, {Name: "b"}},
		hits:    makeObjects("hit", 2),
	}
	v := NewView(src, nil, Target{ConnectionID: 1, Collection: "Reviews", MultiTenant: true}, ViewOptions{}, nil)
	defer v.Close()
	ctx := context.Background()
	require.NoError(t, v.Start(ctx))

	require.NoError(t, v.Search.Run(ctx, "dune"))
	assert.Len(t, v.Objects(), 2)

	require.NoError(t, v.SetTenant(ctx, "b"))

	assert.False(t, v.Pages.State().Searching)
	assert.Equal(t, "", v.Search.Query())
	assert.Len(t, v.Objects(), 25)
	assert.Equal(t, "b-001", v.Objects()[0].ID)
}

func TestView_FetchErrorDisablesPollingUntilRetry(t *testing.T) {
	src := newMemSource(40)
	v := NewView(src, nil, books, ViewOptions{RefreshInterval: time.Hour}, nil)
	defer v.Close()
	ctx := context.Background()
	require.NoError(t, v.Start(ctx))

	src.mu.Lock()
	src.listErr = errors.New("connection reset")
	src.mu.Unlock()
	require.Error(t, v.Pages.Next(ctx))
	assert.True(t, v.PollingDisabled())

	src.mu.Lock()
	src.listErr = nil
	src.mu.Unlock()
	require.NoError(t, v.Retry(ctx))
	assert.False(t, v.PollingDisabled())
	assert.Equal(t, "obj-026", firstID(v.Pages))
}

func TestView_ClosedDuringStartDoesNotPoll(t *testing.T) {
	src := newMemSource(40)
	v := NewView(src, nil, books, ViewOptions{RefreshInterval: 5 * time.Millisecond}, nil)
	ctx := context.Background()

	// The tab is closed while the first load is still running
	v.Close()
	require.NoError(t, v.Start(ctx))
	calls := src.listCalls()

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, calls, src.listCalls())
}

func TestCountCache_InvalidateConnection(t *testing.T) {
	cc := NewCountCache(8, time.Minute)
	cc.Add(1, "A", "", 10)
	cc.Add(1, "B", "t", 20)
	cc.Add(2, "A", "", 30)

	cc.InvalidateConnection(1)

	_, ok := cc.Get(1, "A", "")
	assert.False(t, ok)
	n, ok := cc.Get(2, "A", "")
	assert.True(t, ok)
	assert.Equal(t, int64(30), n)
	assert.Equal(t, 1, cc.Len())
}

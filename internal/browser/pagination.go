// Package browser pages through the objects of one collection and runs
// keyword searches against it.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/rebeliceyang/lazyweave/internal/models"
	"github.com/rebeliceyang/lazyweave/internal/natsort"
)

// Source reads objects from a connected instance
type Source interface {
	ListObjects(ctx context.Context, key models.FetchKey) (models.Page, error)
	Count(ctx context.Context, connID int64, collection, tenant string) (int64, error)
	Tenants(ctx context.Context, connID int64, collection string) ([]models.Tenant, error)
	Search(ctx context.Context, q models.SearchQuery) (models.SearchResult, error)
}

// Target is the collection a controller browses
type Target struct {
	ConnectionID int64
	Collection   string
	MultiTenant  bool
}

// Options tune a controller. Zero values fall back to the package defaults.
type Options struct {
	PageSizes       []int
	DefaultPageSize int
}

func (o Options) normalize() Options {
	if len(o.PageSizes) == 0 {
		o.PageSizes = models.PageSizes
	}
	if !models.ValidPageSize(o.PageSizes, o.DefaultPageSize) {
		o.DefaultPageSize = models.DefaultPageSize
		if !models.ValidPageSize(o.PageSizes, o.DefaultPageSize) {
			o.DefaultPageSize = o.PageSizes[0]
		}
	}
	return o
}

// Controller owns the pagination state of one open collection view.
//
// Every remote call is made outside the lock. Its result is applied only if
// the tenant has not been switched since (epoch) and the fetch key it was
// issued for is still the current one. Anything else is dropped.
type Controller struct {
	mu sync.Mutex

	src    Source
	counts *CountCache
	opts   Options
	log    *slog.Logger

	target Target
	// epoch is bumped on every tenant switch
	epoch uint64
	state models.PaginationState

	page    models.Page
	pageKey models.FetchKey
	hasPage bool

	inflight *models.FetchKey
	tenants  []models.Tenant
	err      error

	// onError is told about every failed fetch
	onError func(error)
}

// NewController creates a controller for target. Nothing is fetched until Load.
func NewController(src Source, counts *CountCache, target Target, opts Options, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	if counts == nil {
		counts = NewCountCache(0, 0)
	}
	opts = opts.normalize()
	return &Controller{
		src:    src,
		counts: counts,
		opts:   opts,
		log:    log.With("component", "pagination"),
		target: target,
		state:  models.NewPaginationState(opts.DefaultPageSize),
	}
}

// OnError registers fn to be called with every FetchError
func (c *Controller) OnError(fn func(error)) {
	c.mu.Lock()
	c.onError = fn
	c.mu.Unlock()
}

// currentKey must be called with the lock held
func (c *Controller) currentKey() models.FetchKey {
	return models.FetchKey{
		ConnectionID: c.target.ConnectionID,
		Collection:   c.target.Collection,
		Cursor:       c.state.LastCursor(),
		PageSize:     c.state.PageSize,
		Tenant:       c.state.Tenant,
	}
}

// fetchable reports whether the paging fetch may run. Caller holds the lock.
func (c *Controller) fetchable() bool {
	if c.state.Searching {
		return false
	}
	// Multi-tenant collections can't be listed without a tenant
	return !c.target.MultiTenant || c.state.Tenant != ""
}

// Load reads tenants (for multi-tenant collections), the total count and the
// current page.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	multi := c.target.MultiTenant
	c.mu.Unlock()

	if multi {
		if err := c.LoadTenants(ctx); err != nil {
			return err
		}
	}
	return c.refresh(ctx, false)
}

// Refresh re-reads the total count and the current page without moving
func (c *Controller) Refresh(ctx context.Context) error {
	return c.refresh(ctx, true)
}

func (c *Controller) refresh(ctx context.Context, force bool) error {
	p := pool.New().WithContext(ctx).WithFirstError()
	p.Go(func(ctx context.Context) error { return c.loadCount(ctx, force) })
	p.Go(func(ctx context.Context) error { return c.fetch(ctx) })
	return p.Wait()
}

// fetch loads the page for the current key
func (c *Controller) fetch(ctx context.Context) error {
	c.mu.Lock()
	if !c.fetchable() {
		c.mu.Unlock()
		return nil
	}
	key := c.currentKey()
	if c.inflight != nil && *c.inflight == key {
		// Same key is already on its way
		c.mu.Unlock()
		return nil
	}
	c.inflight = &key
	epoch := c.epoch
	c.mu.Unlock()

	page, err := c.src.ListObjects(ctx, key)

	c.mu.Lock()
	if c.epoch != epoch || c.inflight == nil || *c.inflight != key {
		c.mu.Unlock()
		c.log.Debug("discarding stale page", "collection", key.Collection, "cursor", key.Cursor, "page_size", key.PageSize, "tenant", key.Tenant)
		return nil
	}
	c.inflight = nil
	if key != c.currentKey() {
		c.mu.Unlock()
		c.log.Debug("discarding page for old key", "collection", key.Collection)
		return nil
	}
	if err != nil {
		ferr := &models.FetchError{Op: "list objects", Err: err}
		c.err = ferr
		onError := c.onError
		c.mu.Unlock()
		if onError != nil {
			onError(ferr)
		}
		return ferr
	}
	c.page = page
	c.pageKey = key
	c.hasPage = true
	c.err = nil
	c.mu.Unlock()
	return nil
}

// ensure fetches only if the displayed page isn't the one for the current key
func (c *Controller) ensure(ctx context.Context) error {
	c.mu.Lock()
	current := c.hasPage && c.pageKey == c.currentKey()
	c.mu.Unlock()
	if current {
		return nil
	}
	return c.fetch(ctx)
}

func (c *Controller) loadCount(ctx context.Context, force bool) error {
	c.mu.Lock()
	if c.target.MultiTenant && c.state.Tenant == "" {
		c.mu.Unlock()
		return nil
	}
	t, tenant, epoch := c.target, c.state.Tenant, c.epoch
	c.mu.Unlock()

	if !force {
		if n, ok := c.counts.Get(t.ConnectionID, t.Collection, tenant); ok {
			c.applyCount(epoch, tenant, n)
			return nil
		}
	}

	n, err := c.src.Count(ctx, t.ConnectionID, t.Collection, tenant)
	if err != nil {
		ferr := &models.FetchError{Op: "count objects", Err: err}
		c.mu.Lock()
		stale := c.epoch != epoch || c.state.Tenant != tenant
		if !stale {
			c.err = ferr
		}
		onError := c.onError
		c.mu.Unlock()
		if stale {
			return nil
		}
		if onError != nil {
			onError(ferr)
		}
		return ferr
	}
	c.counts.Add(t.ConnectionID, t.Collection, tenant, n)
	c.applyCount(epoch, tenant, n)
	return nil
}

func (c *Controller) applyCount(epoch uint64, tenant string, n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch || c.state.Tenant != tenant {
		return
	}
	c.state.Total = n
	c.state.TotalKnown = true
}

// LoadTenants lists the tenants of a multi-tenant collection. The first
// tenant is selected when none is. The list does not depend on the selected
// tenant, so a switch meanwhile doesn't make it stale.
func (c *Controller) LoadTenants(ctx context.Context) error {
	c.mu.Lock()
	t := c.target
	c.mu.Unlock()

	tenants, err := c.src.Tenants(ctx, t.ConnectionID, t.Collection)
	if err != nil {
		ferr := &models.FetchError{Op: "list tenants", Err: err}
		c.mu.Lock()
		c.err = ferr
		onError := c.onError
		c.mu.Unlock()
		if onError != nil {
			onError(ferr)
		}
		return ferr
	}
	natsort.SortFunc(tenants, func(t models.Tenant) string { return t.Name })

	c.mu.Lock()
	defer c.mu.Unlock()
	c.tenants = tenants
	if c.state.Tenant == "" && len(tenants) > 0 {
		c.state.Tenant = tenants[0].Name
		c.state.Cursors = nil
	}
	return nil
}

// lastPage reports whether the displayed page is the final one.
// Caller holds the lock.
func (c *Controller) lastPage() bool {
	if c.state.TotalKnown {
		return c.state.CurrentPage() >= c.state.TotalPages()
	}
	// Without a count, a short page is the last one
	return len(c.page.Objects) < c.state.PageSize
}

// Next moves one page forward. It does nothing while searching, while a
// fetch is in flight, on the last page, or before the current page loaded.
func (c *Controller) Next(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Searching || c.inflight != nil || !c.hasPage || c.pageKey != c.currentKey() ||
		c.lastPage() || c.page.NextCursor == "" {
		c.mu.Unlock()
		return nil
	}
	c.state.Cursors = append(c.state.Cursors, c.page.NextCursor)
	c.mu.Unlock()

	return c.fetch(ctx)
}

// Previous moves one page back. It does nothing while searching, while a
// fetch is in flight, or on the first page.
func (c *Controller) Previous(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Searching || c.inflight != nil || len(c.state.Cursors) == 0 {
		c.mu.Unlock()
		return nil
	}
	c.state.Cursors = c.state.Cursors[:len(c.state.Cursors)-1]
	c.mu.Unlock()

	return c.fetch(ctx)
}

// SetPageSize changes the page size and goes back to page one
func (c *Controller) SetPageSize(ctx context.Context, n int) error {
	if !models.ValidPageSize(c.opts.PageSizes, n) {
		return &models.ValidationError{Field: "page_size", Message: fmt.Sprintf("page size %d is not allowed", n)}
	}
	c.mu.Lock()
	c.state.PageSize = n
	c.state.Cursors = nil
	c.mu.Unlock()

	return c.fetch(ctx)
}

// SetTenant switches tenant. Cursor history, page size and the cached total
// are reset and an active search ends, then the count and first page are
// fetched. Nothing still in flight for the old tenant is applied.
func (c *Controller) SetTenant(ctx context.Context, tenant string) error {
	c.mu.Lock()
	if tenant == c.state.Tenant {
		c.mu.Unlock()
		return nil
	}
	c.epoch++
	c.state.Searching = false
	c.state.SearchTime = nil
	c.state.Tenant = tenant
	c.state.Cursors = nil
	c.state.PageSize = c.opts.DefaultPageSize
	c.state.Total = 0
	c.state.TotalKnown = false
	t := c.target
	c.mu.Unlock()

	c.counts.Invalidate(t.ConnectionID, t.Collection, tenant)
	return c.refresh(ctx, true)
}

// beginSearch suspends paging. It returns the query scope and the epoch to
// validate the result against.
func (c *Controller) beginSearch() (models.SearchQuery, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Searching = true
	c.state.SearchTime = nil
	return models.SearchQuery{
		ConnectionID: c.target.ConnectionID,
		Collection:   c.target.Collection,
		Tenant:       c.state.Tenant,
		Limit:        c.state.PageSize,
	}, c.epoch
}

// searchDone records the execution time if the search is still current:
// search mode is on and neither the tenant nor the epoch changed since
// beginSearch.
func (c *Controller) searchDone(q models.SearchQuery, epoch uint64, res models.SearchResult, err error) bool {
	c.mu.Lock()
	if c.epoch != epoch || c.state.Tenant != q.Tenant || !c.state.Searching {
		c.mu.Unlock()
		return false
	}
	if err != nil {
		c.err = err
		onError := c.onError
		c.mu.Unlock()
		if onError != nil {
			onError(err)
		}
		return true
	}
	d := res.ExecutionTime
	c.state.SearchTime = &d
	c.err = nil
	c.mu.Unlock()
	return true
}

// endSearch resumes paging at the position held before the search
func (c *Controller) endSearch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Searching = false
	c.state.SearchTime = nil
}

// State returns a copy of the pagination state
func (c *Controller) State() models.PaginationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Page returns the displayed page. It may be stale after a failed fetch.
func (c *Controller) Page() models.Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.Page{
		Objects:    append([]models.Object(nil), c.page.Objects...),
		NextCursor: c.page.NextCursor,
	}
}

func (c *Controller) Target() Target {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

func (c *Controller) Tenants() []models.Tenant {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Tenant(nil), c.tenants...)
}

// Loading reports whether a page fetch is in flight
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight != nil
}

// Err returns the last fetch error, nil after a successful fetch
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Controller) PageSizes() []int {
	return append([]int(nil), c.opts.PageSizes...)
}

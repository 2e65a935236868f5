package browser

import (
	"context"
	"log/slog"
	"time"

	"github.com/rebeliceyang/lazyweave/internal/models"
	"github.com/rebeliceyang/lazyweave/internal/poll"
)

// ViewOptions configure a collection view
type ViewOptions struct {
	Options
	SearchLimit      int
	RefreshInterval  time.Duration
	FailureThreshold int
}

// View is everything one open collection tab needs: paging, search and a
// periodic refresh that stops after a fetch error until Retry.
type View struct {
	Pages  *Controller
	Search *Search

	poller *poll.Poller
	log    *slog.Logger
}

func NewView(src Source, counts *CountCache, target Target, opts ViewOptions, log *slog.Logger) *View {
	if log == nil {
		log = slog.Default()
	}
	ctrl := NewController(src, counts, target, opts.Options, log)
	v := &View{
		Pages:  ctrl,
		Search: NewSearch(src, ctrl, opts.SearchLimit),
		log:    log,
	}
	v.poller = poll.New("collection", opts.RefreshInterval, opts.FailureThreshold, v.refresh, log)
	ctrl.OnError(v.poller.Disable)
	return v
}

// refresh is the polling body. Paging is left alone while searching.
func (v *View) refresh(ctx context.Context) error {
	if v.Pages.State().Searching {
		return nil
	}
	return v.Pages.Refresh(ctx)
}

// Start loads the first page and begins periodic refresh
func (v *View) Start(ctx context.Context) error {
	err := v.Pages.Load(ctx)
	v.poller.Start(ctx)
	return err
}

// OnRefresh registers fn to be called after each automatic refresh
func (v *View) OnRefresh(fn func(error)) {
	v.poller.OnResult = fn
}

// Retry refetches the current position and re-enables polling on success
func (v *View) Retry(ctx context.Context) error {
	if v.Pages.State().Searching {
		if q := v.Search.Query(); q != "" {
			return v.Search.Run(ctx, q)
		}
	}
	// Tenants may never have loaded
	if t := v.Pages.Target(); t.MultiTenant && v.Pages.State().Tenant == "" {
		if err := v.Pages.LoadTenants(ctx); err != nil {
			return err
		}
	}
	return v.poller.Retry(ctx)
}

// PollingDisabled reports whether automatic refresh is off after an error
func (v *View) PollingDisabled() bool {
	return v.poller.Disabled()
}

// SetTenant switches the tenant. A running or finished search is dropped
// together with its query text.
func (v *View) SetTenant(ctx context.Context, tenant string) error {
	if v.Pages.State().Tenant == tenant {
		return nil
	}
	v.Search.clear()
	return v.Pages.SetTenant(ctx, tenant)
}

// Objects returns what the view displays: the search hits while searching,
// otherwise the current page.
func (v *View) Objects() []models.Object {
	if v.Pages.State().Searching {
		if res, ok := v.Search.Result(); ok {
			return res.Objects
		}
	}
	return v.Pages.Page().Objects
}

// Close stops the refresh loop
func (v *View) Close() {
	v.poller.Stop()
}

// Package session builds the application state services once at startup
// and tears them down in a fixed order.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/rebeliceyang/lazyweave/internal/browser"
	"github.com/rebeliceyang/lazyweave/internal/config"
	"github.com/rebeliceyang/lazyweave/internal/models"
	"github.com/rebeliceyang/lazyweave/internal/notify"
	"github.com/rebeliceyang/lazyweave/internal/poll"
	"github.com/rebeliceyang/lazyweave/internal/registry"
	"github.com/rebeliceyang/lazyweave/internal/storage/secrets"
	"github.com/rebeliceyang/lazyweave/internal/storage/sqlite"
	"github.com/rebeliceyang/lazyweave/internal/weaviate"
	"github.com/rebeliceyang/lazyweave/internal/workspace"
)

// Client is everything the session needs from the database client
type Client interface {
	registry.Client
	browser.Source
	BackupClient
	Nodes(ctx context.Context, id int64) ([]models.Node, error)
}

// Deps are the external collaborators of a session
type Deps struct {
	Repo   registry.Repository
	Client Client
	// Store is closed last, may be nil
	Store io.Closer
}

// Session holds the services shared by every screen
type Session struct {
	Tabs          *workspace.Workspace
	Connections   *registry.Registry
	Backups       *Backups
	Notifications *notify.Notifier
	Counts        *browser.CountCache

	client Client
	store  io.Closer
	status *poll.Poller
	log    *slog.Logger

	mu     sync.Mutex
	cfg    *config.Config
	views  map[models.TabKey]*browser.View
	closed bool
}

// Open builds a session backed by the sqlite store, the OS keyring and a
// Weaviate client manager.
func Open(cfg *config.Config, log *slog.Logger) (*Session, error) {
	if log == nil {
		log = slog.Default()
	}
	path, err := cfg.DatabasePath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}
	store, err := sqlite.NewStore(path,
		sqlite.WithSecrets(secrets.New(cfg.Storage.KeyringService)),
		sqlite.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection store: %w", err)
	}
	client := weaviate.NewManager(cfg.RequestTimeout(), log)
	return New(cfg, Deps{Repo: store, Client: client, Store: store}, log), nil
}

func New(cfg *config.Config, deps Deps, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	if cfg == nil {
		cfg = config.GetDefaults()
	}
	s := &Session{
		Tabs:          workspace.New(log),
		Notifications: notify.New(cfg.NotificationTTL(), log),
		Counts:        browser.NewCountCache(cfg.Data.CountCacheSize, cfg.CountCacheTTL()),
		client:        deps.Client,
		store:         deps.Store,
		log:           log.With("component", "session"),
		cfg:           cfg,
		views:         make(map[models.TabKey]*browser.View),
	}
	s.Connections = registry.New(deps.Repo, deps.Client, cascade{s}, log)
	s.Backups = NewBackups(deps.Client, s.Connections, 0, log)
	s.status = poll.New("status", cfg.StatusInterval(), cfg.Polling.FailureThreshold, s.checkHealth, log)
	return s
}

// Start loads saved connections and begins live-checking connected instances
func (s *Session) Start(ctx context.Context) error {
	if err := s.Connections.Load(ctx); err != nil {
		return err
	}
	s.status.Start(ctx)
	return nil
}

// OnHealth registers fn to be called after every live-check round.
// Must be called before Start.
func (s *Session) OnHealth(fn func(error)) {
	s.status.OnResult = fn
}

// checkHealth never reports failure to the poller: an unhealthy instance is
// recorded on its connection and must keep being checked.
func (s *Session) checkHealth(ctx context.Context) error {
	if err := s.Connections.CheckHealth(ctx); err != nil {
		s.log.Warn("live check failed", "error", err)
	}
	return nil
}

func (s *Session) Config() *config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// ApplyConfig takes over settings that can change while running. Open views
// keep their page sizes.
func (s *Session) ApplyConfig(cfg *config.Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	s.Notifications.SetTTL(cfg.NotificationTTL())
}

func (s *Session) viewOptions() browser.ViewOptions {
	cfg := s.cfg
	return browser.ViewOptions{
		Options: browser.Options{
			PageSizes:       cfg.Data.PageSizes,
			DefaultPageSize: cfg.Data.DefaultPageSize,
		},
		SearchLimit:      cfg.Data.SearchLimit,
		RefreshInterval:  cfg.ViewInterval(),
		FailureThreshold: cfg.Polling.FailureThreshold,
	}
}

func connectionTab(conn models.Connection, view models.View, icon, title, name string) models.Tab {
	return models.Tab{
		Label: models.TabLabel{
			Icon:           icon,
			Title:          title,
			ConnectionName: conn.Name,
			Color:          conn.Color,
		},
		View:       view,
		Connection: &models.ConnectionRef{ID: conn.ID, Name: conn.Name},
		Name:       name,
	}
}

func (s *Session) connected(id int64) (models.Connection, error) {
	conn, ok := s.Connections.Get(id)
	if !ok {
		return models.Connection{}, models.ErrConnectionNotFound
	}
	if conn.Status != models.Connected {
		return models.Connection{}, models.ErrNotConnected
	}
	return conn, nil
}

// OpenCollection activates the tab browsing a collection, opening it first
// if needed. created is true when the returned view has not been started.
func (s *Session) OpenCollection(connID int64, name string) (key models.TabKey, view *browser.View, created bool, err error) {
	conn, err := s.connected(connID)
	if err != nil {
		return models.NoTab, nil, false, err
	}
	col, ok := conn.Collection(name)
	if !ok {
		return models.NoTab, nil, false, fmt.Errorf("collection %q not found", name)
	}

	target := browser.Target{ConnectionID: conn.ID, Collection: col.Name, MultiTenant: col.MultiTenant}
	tab := connectionTab(conn, models.CollectionView{
		ConnectionID: conn.ID,
		Collection:   col.Name,
		MultiTenant:  col.MultiTenant,
	}, "▤", col.Name, col.Name)
	key, _ = s.Tabs.Open(tab)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return models.NoTab, nil, false, errors.New("session closed")
	}
	view, ok = s.views[key]
	if !ok {
		view = browser.NewView(s.client, s.Counts, target, s.viewOptions(), s.log)
		s.views[key] = view
		created = true
	}
	s.mu.Unlock()

	// A disconnect may have closed the tab before the view was registered
	if _, ok := s.Tabs.Get(key); !ok {
		s.dropView(key)
		return models.NoTab, nil, false, models.ErrNotConnected
	}
	return key, view, created, nil
}

// OpenCluster activates the node status tab of a connection
func (s *Session) OpenCluster(connID int64) (models.TabKey, error) {
	conn, err := s.connected(connID)
	if err != nil {
		return models.NoTab, err
	}
	key, _ := s.Tabs.Open(connectionTab(conn, models.ClusterView{ConnectionID: conn.ID}, "◎", "Cluster", "cluster"))
	return key, nil
}

// OpenBackups activates the backups tab of a connection
func (s *Session) OpenBackups(connID int64) (models.TabKey, error) {
	conn, err := s.connected(connID)
	if err != nil {
		return models.NoTab, err
	}
	backend := ""
	if len(conn.BackupModules) > 0 {
		backend = weaviate.BackendName(conn.BackupModules[0])
	}
	view := models.BackupsView{ConnectionID: conn.ID, Backend: backend}
	key, _ := s.Tabs.Open(connectionTab(conn, view, "⛁", "Backups", "backups"))
	return key, nil
}

// View returns the collection view behind a tab
func (s *Session) View(key models.TabKey) (*browser.View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.views[key]
	return v, ok
}

// CloseTab removes a tab and stops its view
func (s *Session) CloseTab(key models.TabKey) bool {
	removed := s.Tabs.Remove(key)
	s.dropView(key)
	return removed
}

// Nodes returns node status for a connected instance
func (s *Session) Nodes(ctx context.Context, connID int64) ([]models.Node, error) {
	if _, err := s.connected(connID); err != nil {
		return nil, err
	}
	nodes, err := s.client.Nodes(ctx, connID)
	if err != nil {
		return nil, &models.FetchError{Op: "node status", Err: err}
	}
	return nodes, nil
}

func (s *Session) dropView(key models.TabKey) {
	s.mu.Lock()
	v, ok := s.views[key]
	delete(s.views, key)
	s.mu.Unlock()
	if ok {
		v.Close()
	}
}

// pruneViews stops the views whose tab is gone
func (s *Session) pruneViews() {
	open := make(map[models.TabKey]bool)
	for _, t := range s.Tabs.Tabs() {
		open[t.Key] = true
	}

	var stale []*browser.View
	s.mu.Lock()
	for key, v := range s.views {
		if !open[key] {
			delete(s.views, key)
			stale = append(stale, v)
		}
	}
	s.mu.Unlock()

	for _, v := range stale {
		v.Close()
	}
}

// Close stops polling and every view, disconnects all live sessions and
// closes the store. It is safe to call more than once.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	views := s.views
	s.views = make(map[models.TabKey]*browser.View)
	s.mu.Unlock()

	s.status.Stop()
	for _, v := range views {
		v.Close()
	}
	s.Notifications.Close()

	var errs []error
	if err := s.Connections.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("disconnect: %w", err))
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}

// cascade keeps tabs, views and cached counts in step with the registry
type cascade struct {
	s *Session
}

func (c cascade) RemoveByConnection(id int64) int {
	n := c.s.Tabs.RemoveByConnection(id)
	c.s.Counts.InvalidateConnection(id)
	c.s.pruneViews()
	return n
}

func (c cascade) UpdateByConnection(id int64, name, color string) int {
	return c.s.Tabs.UpdateByConnection(id, name, color)
}

func (c cascade) RemoveByResource(id int64, kind models.ViewKind, name string) int {
	n := c.s.Tabs.RemoveByResource(id, kind, name)
	c.s.pruneViews()
	return n
}

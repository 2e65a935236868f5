package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/sourcegraph/conc/pool"
	"golang.org/x/sync/singleflight"

	"github.com/rebeliceyang/lazyweave/internal/models"
	"github.com/rebeliceyang/lazyweave/internal/natsort"
)

// Repository persists connection records. IDs are assigned by Create.
type Repository interface {
	List(ctx context.Context) ([]models.ConnectionRecord, error)
	Create(ctx context.Context, rec models.ConnectionRecord) (int64, error)
	Update(ctx context.Context, rec models.ConnectionRecord) error
	Delete(ctx context.Context, id int64) error
}

// Client talks to database instances on behalf of saved connections
type Client interface {
	Connect(ctx context.Context, id int64, uri string, apiKey *string) error
	Disconnect(ctx context.Context, id int64) error
	TestConnection(ctx context.Context, uri string, apiKey *string) error
	ListCollections(ctx context.Context, id int64) ([]models.Collection, error)
	UsersEnabled(ctx context.Context, id int64) (bool, error)
	BackupModules(ctx context.Context, id int64) ([]string, error)
	DeleteCollection(ctx context.Context, id int64, name string) error
	Live(ctx context.Context, id int64) error
}

// TabCascade is the part of the workspace the registry keeps consistent
// with its own state.
type TabCascade interface {
	RemoveByConnection(id int64) int
	UpdateByConnection(id int64, name, color string) int
	RemoveByResource(id int64, kind models.ViewKind, name string) int
}

type entry struct {
	conn models.Connection
	// gen is bumped when a connect starts and when a disconnect or remove
	// has taken effect. A remote call only applies its result if gen is
	// unchanged when it returns.
	gen uint64
}

// Registry owns the known connections and their live status
type Registry struct {
	mu    sync.RWMutex
	conns map[int64]*entry

	repo   Repository
	client Client
	tabs   TabCascade
	log    *slog.Logger

	flight singleflight.Group
}

// New creates an empty registry. Call Load to read saved connections.
func New(repo Repository, client Client, tabs TabCascade, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		conns:  make(map[int64]*entry),
		repo:   repo,
		client: client,
		tabs:   tabs,
		log:    log.With("component", "registry"),
	}
}

// Load reads saved records. Runtime state of connections already known is kept.
func (r *Registry) Load(ctx context.Context) error {
	recs, err := r.repo.List(ctx)
	if err != nil {
		return &models.RemoteOperationError{Op: "load", Err: err}
	}

	r.mu.Lock()
	seen := make(map[int64]bool, len(recs))
	for _, rec := range recs {
		seen[rec.ID] = true
		if e, ok := r.conns[rec.ID]; ok {
			e.conn.ConnectionRecord = rec
			continue
		}
		r.conns[rec.ID] = &entry{conn: models.Connection{ConnectionRecord: rec}}
	}
	var live []int64
	for id, e := range r.conns {
		if seen[id] {
			continue
		}
		if e.conn.Status != models.Disconnected {
			live = append(live, id)
		}
		r.dropLocked(id)
	}
	r.mu.Unlock()

	for _, id := range live {
		if err := r.client.Disconnect(ctx, id); err != nil {
			r.log.Warn("disconnect of vanished connection failed", "connection_id", id, "error", err)
		}
	}
	r.log.Info("connections loaded", "count", len(recs), "dropped_live", len(live))
	return nil
}

// Save validates and persists a new record, returning its id
func (r *Registry) Save(ctx context.Context, rec models.ConnectionRecord) (int64, error) {
	if err := rec.Validate(); err != nil {
		return 0, err
	}
	rec.ID = 0
	id, err := r.repo.Create(ctx, rec)
	if err != nil {
		return 0, &models.RemoteOperationError{Op: "save", Err: err}
	}
	rec.ID = id

	r.mu.Lock()
	r.conns[id] = &entry{conn: models.Connection{ConnectionRecord: copyRecord(rec)}}
	r.mu.Unlock()

	r.log.Info("connection saved", "connection_id", id, "name", rec.Name)
	return id, nil
}

// Update persists a changed record and relabels tabs of that connection.
// A changed uri or api key takes effect on the next connect.
func (r *Registry) Update(ctx context.Context, rec models.ConnectionRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if _, ok := r.Get(rec.ID); !ok {
		return &models.RemoteOperationError{Op: "update", ConnectionID: rec.ID, Err: models.ErrConnectionNotFound}
	}
	if err := r.repo.Update(ctx, rec); err != nil {
		return &models.RemoteOperationError{Op: "update", ConnectionID: rec.ID, Err: err}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[rec.ID]
	if !ok {
		// Removed while the update was in flight
		return nil
	}
	e.conn.ConnectionRecord = copyRecord(rec)
	if r.tabs != nil {
		r.tabs.UpdateByConnection(rec.ID, rec.Name, rec.Color)
	}
	return nil
}

// SetFavorite persists the favorite flag
func (r *Registry) SetFavorite(ctx context.Context, id int64, favorite bool) error {
	c, ok := r.Get(id)
	if !ok {
		return &models.RemoteOperationError{Op: "favorite", ConnectionID: id, Err: models.ErrConnectionNotFound}
	}
	rec := c.ConnectionRecord
	rec.Favorite = favorite
	if err := r.repo.Update(ctx, rec); err != nil {
		return &models.RemoteOperationError{Op: "favorite", ConnectionID: id, Err: err}
	}

	r.mu.Lock()
	if e, ok := r.conns[id]; ok {
		e.conn.Favorite = favorite
	}
	r.mu.Unlock()
	return nil
}

// Remove deletes the connection. Its tabs are closed in the same critical
// section that drops the entry, and any live session is closed afterwards.
func (r *Registry) Remove(ctx context.Context, id int64) error {
	if _, ok := r.Get(id); !ok {
		return &models.RemoteOperationError{Op: "remove", ConnectionID: id, Err: models.ErrConnectionNotFound}
	}
	if err := r.repo.Delete(ctx, id); err != nil {
		return &models.RemoteOperationError{Op: "remove", ConnectionID: id, Err: err}
	}

	r.mu.Lock()
	e, ok := r.conns[id]
	live := ok && e.conn.Status != models.Disconnected
	r.dropLocked(id)
	r.mu.Unlock()

	if live {
		if err := r.client.Disconnect(ctx, id); err != nil {
			r.log.Warn("disconnect after remove failed", "connection_id", id, "error", err)
		}
	}
	r.log.Info("connection removed", "connection_id", id)
	return nil
}

// dropLocked removes the entry and cascades into the workspace.
// Caller must hold the write lock.
func (r *Registry) dropLocked(id int64) {
	if e, ok := r.conns[id]; ok {
		// Invalidate in-flight connects that still hold the entry
		e.gen++
	}
	delete(r.conns, id)
	if r.tabs != nil {
		r.tabs.RemoveByConnection(id)
	}
}

type connectResult struct {
	collections   []models.Collection
	usersEnabled  bool
	backupModules []string
}

// Connect establishes a session and resolves collections. Concurrent calls
// for the same id share one attempt. On failure the previous status is
// restored and a RemoteOperationError is returned. If a disconnect or remove
// lands while the attempt runs, the session is closed again and the error
// wraps models.ErrSuperseded.
func (r *Registry) Connect(ctx context.Context, id int64) error {
	_, err, _ := r.flight.Do("connect:"+strconv.FormatInt(id, 10), func() (any, error) {
		return nil, r.connect(ctx, id)
	})
	return err
}

func (r *Registry) connect(ctx context.Context, id int64) error {
	r.mu.Lock()
	e, ok := r.conns[id]
	if !ok {
		r.mu.Unlock()
		return &models.RemoteOperationError{Op: "connect", ConnectionID: id, Err: models.ErrConnectionNotFound}
	}
	if e.conn.Status == models.Connected {
		r.mu.Unlock()
		return nil
	}
	e.gen++
	gen := e.gen
	prev := e.conn.Status
	e.conn.Status = models.Connecting
	rec := copyRecord(e.conn.ConnectionRecord)
	r.mu.Unlock()

	res, err := r.establish(ctx, rec)

	r.mu.Lock()
	e, ok = r.conns[id]
	if !ok || e.gen != gen {
		r.mu.Unlock()
		r.log.Debug("discarding stale connect result", "connection_id", id)
		if err == nil {
			r.closeIfNotConnected(ctx, id)
		}
		return &models.RemoteOperationError{Op: "connect", ConnectionID: id, Err: models.ErrSuperseded}
	}
	if err != nil {
		e.conn.Status = prev
		r.mu.Unlock()
		r.log.Warn("connect failed", "connection_id", id, "error", err)
		return &models.RemoteOperationError{Op: "connect", ConnectionID: id, Err: err}
	}
	e.conn.Status = models.Connected
	e.conn.Healthy = true
	e.conn.Collections = res.collections
	e.conn.UsersEnabled = res.usersEnabled
	e.conn.BackupModules = res.backupModules
	r.mu.Unlock()

	r.log.Info("connected", "connection_id", id, "collections", len(res.collections))
	return nil
}

// establish opens the session then resolves everything the UI needs in
// parallel. Any failure fails the whole attempt and closes the session.
func (r *Registry) establish(ctx context.Context, rec models.ConnectionRecord) (connectResult, error) {
	var res connectResult
	if err := r.client.Connect(ctx, rec.ID, rec.URI, rec.APIKey); err != nil {
		return res, err
	}

	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	p.Go(func(ctx context.Context) error {
		cols, err := r.client.ListCollections(ctx, rec.ID)
		if err != nil {
			return fmt.Errorf("list collections: %w", err)
		}
		natsort.SortFunc(cols, func(c models.Collection) string { return c.Name })
		res.collections = cols
		return nil
	})
	p.Go(func(ctx context.Context) error {
		enabled, err := r.client.UsersEnabled(ctx, rec.ID)
		if err != nil {
			return fmt.Errorf("users enabled: %w", err)
		}
		res.usersEnabled = enabled
		return nil
	})
	p.Go(func(ctx context.Context) error {
		mods, err := r.client.BackupModules(ctx, rec.ID)
		if err != nil {
			return fmt.Errorf("backup modules: %w", err)
		}
		res.backupModules = mods
		return nil
	})
	if err := p.Wait(); err != nil {
		if derr := r.client.Disconnect(context.WithoutCancel(ctx), rec.ID); derr != nil {
			r.log.Debug("cleanup disconnect failed", "connection_id", rec.ID, "error", derr)
		}
		return connectResult{}, err
	}
	return res, nil
}

// closeIfNotConnected drops a session that was opened by a connect whose
// result arrived after a newer disconnect or remove.
func (r *Registry) closeIfNotConnected(ctx context.Context, id int64) {
	r.mu.RLock()
	e, ok := r.conns[id]
	connected := ok && e.conn.Status != models.Disconnected
	r.mu.RUnlock()
	if connected {
		return
	}
	if err := r.client.Disconnect(context.WithoutCancel(ctx), id); err != nil {
		r.log.Debug("closing orphaned session failed", "connection_id", id, "error", err)
	}
}

// Disconnect closes the session. On success the status and resolved
// collections are cleared together and every tab of the connection is closed.
// A failed disconnect changes nothing, so a connect running alongside still
// applies its result.
func (r *Registry) Disconnect(ctx context.Context, id int64) error {
	_, err, _ := r.flight.Do("disconnect:"+strconv.FormatInt(id, 10), func() (any, error) {
		return nil, r.disconnect(ctx, id)
	})
	return err
}

func (r *Registry) disconnect(ctx context.Context, id int64) error {
	r.mu.Lock()
	e, ok := r.conns[id]
	if !ok {
		r.mu.Unlock()
		return &models.RemoteOperationError{Op: "disconnect", ConnectionID: id, Err: models.ErrConnectionNotFound}
	}
	gen := e.gen
	r.mu.Unlock()

	if err := r.client.Disconnect(ctx, id); err != nil {
		r.log.Warn("disconnect failed", "connection_id", id, "error", err)
		return &models.RemoteOperationError{Op: "disconnect", ConnectionID: id, Err: err}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok = r.conns[id]
	if !ok || e.gen != gen {
		r.log.Debug("discarding stale disconnect result", "connection_id", id)
		return nil
	}
	// Only now does an in-flight connect become stale
	e.gen++
	clearRuntime(&e.conn)
	if r.tabs != nil {
		r.tabs.RemoveByConnection(id)
	}
	r.log.Info("disconnected", "connection_id", id)
	return nil
}

func clearRuntime(c *models.Connection) {
	c.Status = models.Disconnected
	c.Collections = nil
	c.BackupModules = nil
	c.UsersEnabled = false
	c.Healthy = false
	c.BackupInProgress = false
	c.ActiveRestore = nil
}

// Patch merges ephemeral fields that are never persisted
func (r *Registry) Patch(id int64, patch models.ConnectionPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[id]
	if !ok {
		return models.ErrConnectionNotFound
	}
	patch.Apply(&e.conn)
	return nil
}

// RefreshCollections re-reads the collection list of a connected instance
func (r *Registry) RefreshCollections(ctx context.Context, id int64) error {
	gen, err := r.connectedGen(id)
	if err != nil {
		return &models.RemoteOperationError{Op: "refresh collections", ConnectionID: id, Err: err}
	}
	cols, err := r.client.ListCollections(ctx, id)
	if err != nil {
		return &models.RemoteOperationError{Op: "refresh collections", ConnectionID: id, Err: err}
	}
	natsort.SortFunc(cols, func(c models.Collection) string { return c.Name })

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.conns[id]; ok && e.gen == gen && e.conn.Status == models.Connected {
		e.conn.Collections = cols
	}
	return nil
}

// DeleteCollection drops a collection on the instance, removes it from the
// resolved list and closes tabs showing it.
func (r *Registry) DeleteCollection(ctx context.Context, id int64, name string) error {
	gen, err := r.connectedGen(id)
	if err != nil {
		return &models.RemoteOperationError{Op: "delete collection", ConnectionID: id, Err: err}
	}
	if err := r.client.DeleteCollection(ctx, id, name); err != nil {
		return &models.RemoteOperationError{Op: "delete collection", ConnectionID: id, Err: err}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[id]
	if !ok || e.gen != gen {
		return nil
	}
	kept := e.conn.Collections[:0:0]
	for _, c := range e.conn.Collections {
		if c.Name != name {
			kept = append(kept, c)
		}
	}
	e.conn.Collections = kept
	if r.tabs != nil {
		r.tabs.RemoveByResource(id, models.CollectionKind, name)
	}
	r.log.Info("collection deleted", "connection_id", id, "collection", name)
	return nil
}

func (r *Registry) connectedGen(id int64) (uint64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[id]
	if !ok {
		return 0, models.ErrConnectionNotFound
	}
	if e.conn.Status != models.Connected {
		return 0, models.ErrNotConnected
	}
	return e.gen, nil
}

// TestConnection checks that an instance is reachable without registering it
func (r *Registry) TestConnection(ctx context.Context, uri string, apiKey *string) error {
	if err := (models.ConnectionRecord{Name: "test", URI: uri, APIKey: apiKey}).Validate(); err != nil {
		return err
	}
	if err := r.client.TestConnection(ctx, uri, apiKey); err != nil {
		return &models.RemoteOperationError{Op: "test", Err: err}
	}
	return nil
}

// CheckHealth live-checks every connected instance and records the result.
// It returns an error only when every check failed.
func (r *Registry) CheckHealth(ctx context.Context) error {
	ids := r.ConnectedIDs()
	if len(ids) == 0 {
		return nil
	}

	type result struct {
		id  int64
		gen uint64
		err error
	}
	gens := make(map[int64]uint64, len(ids))
	r.mu.RLock()
	for _, id := range ids {
		if e, ok := r.conns[id]; ok {
			gens[id] = e.gen
		}
	}
	r.mu.RUnlock()

	p := pool.NewWithResults[result]().WithMaxGoroutines(4)
	for _, id := range ids {
		p.Go(func() result {
			return result{id: id, gen: gens[id], err: r.client.Live(ctx, id)}
		})
	}
	results := p.Wait()

	var errs []error
	r.mu.Lock()
	for _, res := range results {
		e, ok := r.conns[res.id]
		if !ok || e.gen != res.gen || e.conn.Status != models.Connected {
			continue
		}
		e.conn.Healthy = res.err == nil
		if res.err != nil {
			errs = append(errs, fmt.Errorf("connection %d: %w", res.id, res.err))
		}
	}
	r.mu.Unlock()

	if len(errs) > 0 && len(errs) == len(results) {
		return errors.Join(errs...)
	}
	return nil
}

// Get returns a copy of the connection
func (r *Registry) Get(id int64) (models.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[id]
	if !ok {
		return models.Connection{}, false
	}
	return e.conn.Clone(), true
}

// List returns copies of all connections, favorites first, then by name
func (r *Registry) List() []models.Connection {
	r.mu.RLock()
	out := make([]models.Connection, 0, len(r.conns))
	for _, e := range r.conns {
		out = append(out, e.conn.Clone())
	}
	r.mu.RUnlock()

	sortConnections(out)
	return out
}

// ConnectedIDs returns the ids of connections that hold a live session
func (r *Registry) ConnectedIDs() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []int64
	for id, e := range r.conns {
		if e.conn.Status == models.Connected {
			ids = append(ids, id)
		}
	}
	return ids
}

// Close disconnects every live session without touching the workspace
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	var ids []int64
	for id, e := range r.conns {
		if e.conn.Status != models.Disconnected {
			ids = append(ids, id)
		}
		e.gen++
		clearRuntime(&e.conn)
	}
	r.mu.Unlock()

	var errs []error
	for _, id := range ids {
		if err := r.client.Disconnect(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("connection %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func copyRecord(rec models.ConnectionRecord) models.ConnectionRecord {
	if rec.APIKey != nil {
		key := *rec.APIKey
		rec.APIKey = &key
	}
	return rec
}

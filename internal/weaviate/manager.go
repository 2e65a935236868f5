package weaviate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rebeliceyang/lazyweave/internal/models"
)

// Session is a client bound to a saved connection
type Session struct {
	ID          int64
	Client      *Client
	Version     string
	ConnectedAt time.Time
}

// Manager keeps one session per connected connection id
type Manager struct {
	sessions map[int64]*Session
	timeout  time.Duration
	logger   *slog.Logger
	mu       sync.RWMutex
}

// NewManager creates a manager whose clients use timeout per request
func NewManager(timeout time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		sessions: make(map[int64]*Session),
		timeout:  timeout,
		logger:   logger,
	}
}

// Connect verifies the instance answers and registers a session for id,
// replacing any previous one.
func (m *Manager) Connect(ctx context.Context, id int64, uri string, apiKey *string) error {
	client, err := New(uri, apiKey, m.timeout, m.logger)
	if err != nil {
		return err
	}
	meta, err := client.Meta(ctx)
	if err != nil {
		return fmt.Errorf("failed connecting to %s: %w", uri, err)
	}

	m.mu.Lock()
	m.sessions[id] = &Session{
		ID:          id,
		Client:      client,
		Version:     meta.Version,
		ConnectedAt: time.Now(),
	}
	m.mu.Unlock()

	m.logger.Info("session opened", "connection_id", id, "version", meta.Version)
	return nil
}

// Disconnect drops the session. Unknown ids are ignored.
func (m *Manager) Disconnect(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; ok {
		delete(m.sessions, id)
		m.logger.Info("session closed", "connection_id", id)
	}
	return nil
}

// TestConnection checks an instance without registering a session
func (m *Manager) TestConnection(ctx context.Context, uri string, apiKey *string) error {
	client, err := New(uri, apiKey, m.timeout, m.logger)
	if err != nil {
		return err
	}
	_, err = client.Meta(ctx)
	return err
}

// Session returns the session for id
func (m *Manager) Session(id int64) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("connection %d: %w", id, models.ErrNotConnected)
	}
	return s, nil
}

func (m *Manager) client(id int64) (*Client, error) {
	s, err := m.Session(id)
	if err != nil {
		return nil, err
	}
	return s.Client, nil
}

func (m *Manager) Live(ctx context.Context, id int64) error {
	c, err := m.client(id)
	if err != nil {
		return err
	}
	return c.Live(ctx)
}

func (m *Manager) ListCollections(ctx context.Context, id int64) ([]models.Collection, error) {
	c, err := m.client(id)
	if err != nil {
		return nil, err
	}
	return c.Collections(ctx)
}

func (m *Manager) UsersEnabled(ctx context.Context, id int64) (bool, error) {
	c, err := m.client(id)
	if err != nil {
		return false, err
	}
	return c.UsersEnabled(ctx)
}

func (m *Manager) BackupModules(ctx context.Context, id int64) ([]string, error) {
	c, err := m.client(id)
	if err != nil {
		return nil, err
	}
	return c.BackupModules(ctx)
}

func (m *Manager) DeleteCollection(ctx context.Context, id int64, name string) error {
	c, err := m.client(id)
	if err != nil {
		return err
	}
	return c.DeleteCollection(ctx, name)
}

// ListObjects fetches the page identified by key
func (m *Manager) ListObjects(ctx context.Context, key models.FetchKey) (models.Page, error) {
	c, err := m.client(key.ConnectionID)
	if err != nil {
		return models.Page{}, err
	}
	return c.ListObjects(ctx, key.Collection, key.Cursor, key.PageSize, key.Tenant)
}

func (m *Manager) Count(ctx context.Context, id int64, collection, tenant string) (int64, error) {
	c, err := m.client(id)
	if err != nil {
		return 0, err
	}
	return c.Count(ctx, collection, tenant)
}

func (m *Manager) Tenants(ctx context.Context, id int64, collection string) ([]models.Tenant, error) {
	c, err := m.client(id)
	if err != nil {
		return nil, err
	}
	return c.Tenants(ctx, collection)
}

func (m *Manager) Search(ctx context.Context, q models.SearchQuery) (models.SearchResult, error) {
	c, err := m.client(q.ConnectionID)
	if err != nil {
		return models.SearchResult{}, err
	}
	return c.Search(ctx, q.Collection, q.Tenant, q.Query, q.Limit)
}

func (m *Manager) Nodes(ctx context.Context, id int64) ([]models.Node, error) {
	c, err := m.client(id)
	if err != nil {
		return nil, err
	}
	return c.Nodes(ctx)
}

// ListBackups lists backups across all given backup modules
func (m *Manager) ListBackups(ctx context.Context, id int64, modules []string) ([]models.Backup, error) {
	c, err := m.client(id)
	if err != nil {
		return nil, err
	}
	var out []models.Backup
	for _, mod := range modules {
		bs, err := c.ListBackups(ctx, BackendName(mod))
		if err != nil {
			return nil, err
		}
		out = append(out, bs...)
	}
	return out, nil
}

// CreateBackup starts a backup. A random id is generated when req.ID is empty.
func (m *Manager) CreateBackup(ctx context.Context, id int64, req BackupRequest) (models.Backup, error) {
	c, err := m.client(id)
	if err != nil {
		return models.Backup{}, err
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	return c.CreateBackup(ctx, req)
}

func (m *Manager) BackupStatus(ctx context.Context, id int64, backend, backupID string) (models.Backup, error) {
	c, err := m.client(id)
	if err != nil {
		return models.Backup{}, err
	}
	return c.BackupStatus(ctx, backend, backupID)
}

func (m *Manager) CancelBackup(ctx context.Context, id int64, backend, backupID string) error {
	c, err := m.client(id)
	if err != nil {
		return err
	}
	return c.CancelBackup(ctx, backend, backupID)
}

func (m *Manager) Restore(ctx context.Context, id int64, req BackupRequest) (models.Backup, error) {
	c, err := m.client(id)
	if err != nil {
		return models.Backup{}, err
	}
	return c.Restore(ctx, req)
}

func (m *Manager) RestoreStatus(ctx context.Context, id int64, backend, backupID string) (models.Backup, error) {
	c, err := m.client(id)
	if err != nil {
		return models.Backup{}, err
	}
	return c.RestoreStatus(ctx, backend, backupID)
}

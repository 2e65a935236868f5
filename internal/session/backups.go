package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rebeliceyang/lazyweave/internal/models"
	"github.com/rebeliceyang/lazyweave/internal/weaviate"
)

// BackupClient is the backup surface of the database client
type BackupClient interface {
	ListBackups(ctx context.Context, id int64, modules []string) ([]models.Backup, error)
	CreateBackup(ctx context.Context, id int64, req weaviate.BackupRequest) (models.Backup, error)
	BackupStatus(ctx context.Context, id int64, backend, backupID string) (models.Backup, error)
	CancelBackup(ctx context.Context, id int64, backend, backupID string) error
	Restore(ctx context.Context, id int64, req weaviate.BackupRequest) (models.Backup, error)
	RestoreStatus(ctx context.Context, id int64, backend, backupID string) (models.Backup, error)
}

// Connections is what backup tracking needs from the registry
type Connections interface {
	Get(id int64) (models.Connection, bool)
	Patch(id int64, patch models.ConnectionPatch) error
}

// Backups runs backup operations and mirrors their progress in the
// connection's ephemeral flags.
type Backups struct {
	client   BackupClient
	conns    Connections
	interval time.Duration
	log      *slog.Logger
}

func NewBackups(client BackupClient, conns Connections, interval time.Duration, log *slog.Logger) *Backups {
	if log == nil {
		log = slog.Default()
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Backups{
		client:   client,
		conns:    conns,
		interval: interval,
		log:      log.With("component", "backups"),
	}
}

func (b *Backups) connected(id int64) (models.Connection, error) {
	conn, ok := b.conns.Get(id)
	if !ok {
		return models.Connection{}, models.ErrConnectionNotFound
	}
	if conn.Status != models.Connected {
		return models.Connection{}, models.ErrNotConnected
	}
	return conn, nil
}

// List returns the backups on every backend the instance has enabled
func (b *Backups) List(ctx context.Context, id int64) ([]models.Backup, error) {
	conn, err := b.connected(id)
	if err != nil {
		return nil, err
	}
	if len(conn.BackupModules) == 0 {
		return nil, nil
	}
	backups, err := b.client.ListBackups(ctx, id, conn.BackupModules)
	if err != nil {
		return nil, &models.FetchError{Op: "list backups", Err: err}
	}
	return backups, nil
}

// Create starts a backup and marks the connection busy until Wait or
// Cancel observes the end of it.
func (b *Backups) Create(ctx context.Context, id int64, req weaviate.BackupRequest) (models.Backup, error) {
	if _, err := b.connected(id); err != nil {
		return models.Backup{}, err
	}
	if req.Backend == "" {
		return models.Backup{}, &models.ValidationError{Field: "backend", Message: "backend is required"}
	}

	b.setInProgress(id, true)
	backup, err := b.client.CreateBackup(ctx, id, req)
	if err != nil {
		b.setInProgress(id, false)
		return models.Backup{}, &models.RemoteOperationError{Op: "backup", ConnectionID: id, Err: err}
	}
	b.log.Info("backup started", "connection_id", id, "backend", req.Backend, "backup_id", backup.ID)
	return backup, nil
}

// Wait polls a backup until it reaches a terminal state, then clears the
// busy flag.
func (b *Backups) Wait(ctx context.Context, id int64, backend, backupID string) (models.Backup, error) {
	backup, err := b.poll(ctx, func(ctx context.Context) (models.Backup, error) {
		return b.client.BackupStatus(ctx, id, backend, backupID)
	})
	if ctx.Err() == nil {
		b.setInProgress(id, false)
	}
	if err != nil {
		return backup, &models.FetchError{Op: "backup status", Err: err}
	}
	if backup.Status == models.BackupFailed {
		return backup, fmt.Errorf("backup %s failed: %s", backupID, backup.Error)
	}
	return backup, nil
}

// Cancel aborts a running backup
func (b *Backups) Cancel(ctx context.Context, id int64, backend, backupID string) error {
	if _, err := b.connected(id); err != nil {
		return err
	}
	if err := b.client.CancelBackup(ctx, id, backend, backupID); err != nil {
		return &models.RemoteOperationError{Op: "cancel backup", ConnectionID: id, Err: err}
	}
	b.setInProgress(id, false)
	return nil
}

// Restore starts a restore and records it as the connection's active restore
func (b *Backups) Restore(ctx context.Context, id int64, req weaviate.BackupRequest) (models.Backup, error) {
	conn, err := b.connected(id)
	if err != nil {
		return models.Backup{}, err
	}
	if conn.ActiveRestore != nil {
		return models.Backup{}, &models.ValidationError{
			Field:   "backup",
			Message: fmt.Sprintf("restore of %s is already running", conn.ActiveRestore.BackupID),
		}
	}

	desc := models.RestoreDescriptor{Backend: req.Backend, BackupID: req.ID}
	if err := b.conns.Patch(id, models.ConnectionPatch{ActiveRestore: &desc}); err != nil {
		return models.Backup{}, err
	}
	backup, err := b.client.Restore(ctx, id, req)
	if err != nil {
		_ = b.conns.Patch(id, models.ConnectionPatch{ClearRestore: true})
		return models.Backup{}, &models.RemoteOperationError{Op: "restore", ConnectionID: id, Err: err}
	}
	b.log.Info("restore started", "connection_id", id, "backend", req.Backend, "backup_id", req.ID)
	return backup, nil
}

// WaitRestore polls a restore until it finishes and clears the active restore
func (b *Backups) WaitRestore(ctx context.Context, id int64, backend, backupID string) (models.Backup, error) {
	backup, err := b.poll(ctx, func(ctx context.Context) (models.Backup, error) {
		return b.client.RestoreStatus(ctx, id, backend, backupID)
	})
	if ctx.Err() == nil {
		_ = b.conns.Patch(id, models.ConnectionPatch{ClearRestore: true})
	}
	if err != nil {
		return backup, &models.FetchError{Op: "restore status", Err: err}
	}
	if backup.Status == models.BackupFailed {
		return backup, fmt.Errorf("restore of %s failed: %s", backupID, backup.Error)
	}
	return backup, nil
}

func (b *Backups) poll(ctx context.Context, status func(context.Context) (models.Backup, error)) (models.Backup, error) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		backup, err := status(ctx)
		if err != nil || backup.Done() {
			return backup, err
		}
		select {
		case <-ctx.Done():
			return backup, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (b *Backups) setInProgress(id int64, v bool) {
	// The connection may have been removed meanwhile
	if err := b.conns.Patch(id, models.ConnectionPatch{BackupInProgress: &v}); err != nil {
		b.log.Debug("backup flag not applied", "connection_id", id, "error", err)
	}
}

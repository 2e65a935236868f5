package weaviate

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rebeliceyang/lazyweave/internal/models"
)

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Nodes returns verbose node status for the cluster
func (c *Client) Nodes(ctx context.Context) ([]models.Node, error) {
	resp, err := c.w.Cluster().NodesStatusGetter().WithOutput("verbose").Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("get node status: %w", err)
	}

	out := make([]models.Node, 0, len(resp.Nodes))
	for _, n := range resp.Nodes {
		if n == nil {
			continue
		}
		node := models.Node{
			Name:    n.Name,
			Status:  deref(n.Status),
			Version: n.Version,
			GitHash: n.GitHash,
		}
		if n.Stats != nil {
			node.ObjectCount = n.Stats.ObjectCount
			node.ShardCount = n.Stats.ShardCount
		}
		out = append(out, node)
	}
	return out, nil
}

func newBackup(backend, id, status, path, errMsg string, classes []string) models.Backup {
	b := models.Backup{
		ID:          id,
		Backend:     backend,
		Status:      status,
		Path:        path,
		Collections: slices.Clone(classes),
		Error:       errMsg,
	}
	slices.Sort(b.Collections)
	return b
}

// ListBackups lists backups on one backend, newest first
func (c *Client) ListBackups(ctx context.Context, backend string) ([]models.Backup, error) {
	raw, err := c.w.Backup().Lister().WithBackend(backend).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("list backups on %s: %w", backend, err)
	}
	out := make([]models.Backup, 0, len(raw))
	for _, item := range raw {
		if item == nil {
			continue
		}
		b := newBackup(backend, item.ID, item.Status, "", "", item.Classes)
		b.StartedAt = time.Time(item.StartedAt)
		b.CompletedAt = time.Time(item.CompletedAt)
		out = append(out, b)
	}
	slices.SortStableFunc(out, func(a, b models.Backup) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	return out, nil
}

// BackupRequest starts a backup or restore. Empty Include means all collections.
type BackupRequest struct {
	Backend string
	ID      string
	Include []string
	Exclude []string
}

// CreateBackup starts a backup without waiting for it to complete
func (c *Client) CreateBackup(ctx context.Context, req BackupRequest) (models.Backup, error) {
	creator := c.w.Backup().Creator().
		WithBackend(req.Backend).
		WithBackupID(req.ID).
		WithWaitForCompletion(false)
	if len(req.Include) > 0 {
		creator = creator.WithIncludeClassNames(req.Include...)
	}
	if len(req.Exclude) > 0 {
		creator = creator.WithExcludeClassNames(req.Exclude...)
	}

	resp, err := creator.Do(ctx)
	if err != nil {
		return models.Backup{}, fmt.Errorf("create backup %s: %w", req.ID, err)
	}
	return newBackup(req.Backend, resp.ID, deref(resp.Status), resp.Path, resp.Error, resp.Classes), nil
}

// BackupStatus returns the creation status of a backup
func (c *Client) BackupStatus(ctx context.Context, backend, id string) (models.Backup, error) {
	resp, err := c.w.Backup().CreateStatusGetter().
		WithBackend(backend).
		WithBackupID(id).
		Do(ctx)
	if err != nil {
		return models.Backup{}, fmt.Errorf("get backup status %s: %w", id, err)
	}
	return newBackup(backend, resp.ID, deref(resp.Status), resp.Path, resp.Error, nil), nil
}

func (c *Client) CancelBackup(ctx context.Context, backend, id string) error {
	err := c.w.Backup().Canceler().
		WithBackend(backend).
		WithBackupID(id).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("cancel backup %s: %w", id, err)
	}
	return nil
}

// Restore starts restoring a backup without waiting for it to complete
func (c *Client) Restore(ctx context.Context, req BackupRequest) (models.Backup, error) {
	restorer := c.w.Backup().Restorer().
		WithBackend(req.Backend).
		WithBackupID(req.ID).
		WithWaitForCompletion(false)
	if len(req.Include) > 0 {
		restorer = restorer.WithIncludeClassNames(req.Include...)
	}
	if len(req.Exclude) > 0 {
		restorer = restorer.WithExcludeClassNames(req.Exclude...)
	}

	resp, err := restorer.Do(ctx)
	if err != nil {
		return models.Backup{}, fmt.Errorf("restore backup %s: %w", req.ID, err)
	}
	return newBackup(req.Backend, resp.ID, deref(resp.Status), resp.Path, resp.Error, resp.Classes), nil
}

// RestoreStatus returns the status of a running or finished restore
func (c *Client) RestoreStatus(ctx context.Context, backend, id string) (models.Backup, error) {
	resp, err := c.w.Backup().RestoreStatusGetter().
		WithBackend(backend).
		WithBackupID(id).
		Do(ctx)
	if err != nil {
		return models.Backup{}, fmt.Errorf("get restore status %s: %w", id, err)
	}
	return newBackup(backend, resp.ID, deref(resp.Status), resp.Path, resp.Error, nil), nil
}

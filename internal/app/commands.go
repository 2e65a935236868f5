package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/rebeliceyang/lazyweave/internal/config"
	"github.com/rebeliceyang/lazyweave/internal/export"
	"github.com/rebeliceyang/lazyweave/internal/models"
	"github.com/rebeliceyang/lazyweave/internal/notify"
	"github.com/rebeliceyang/lazyweave/internal/weaviate"
)

// connectionsChangedMsg asks for the sidebar to be rebuilt
type connectionsChangedMsg struct{}

// notificationsChangedMsg is sent when a notification appears or expires
type notificationsChangedMsg struct{}

// copiedExpiredMsg is sent when the "copied" marker turns off
type copiedExpiredMsg struct{}

// startedMsg is sent once saved connections are loaded
type startedMsg struct {
	Err error
}

// opDoneMsg reports the end of a background operation
type opDoneMsg struct {
	Op      string
	Success string
	Err     error
}

// viewRefreshedMsg is sent after a collection view fetched data
type viewRefreshedMsg struct {
	Key models.TabKey
	Err error
}

type nodesLoadedMsg struct {
	ConnectionID int64
	Nodes        []models.Node
	Err          error
}

type backupsLoadedMsg struct {
	ConnectionID int64
	Backups      []models.Backup
	Err          error
}

// connectionTestedMsg carries the outcome of a form connection test
type connectionTestedMsg struct {
	Err error
}

// connectionSavedMsg closes the form on success
type connectionSavedMsg struct {
	Err error
}

// ConfigChangedMsg is sent when the config file was rewritten
type ConfigChangedMsg struct {
	Config *config.Config
	Err    error
}

// emit queues msg for the event loop. Messages are dropped when the queue is
// full; every one of them only asks for a redraw.
func (a *App) emit(msg tea.Msg) {
	select {
	case a.events <- msg:
	default:
	}
}

// eventMsg wraps a message queued by a background service
type eventMsg struct {
	msg tea.Msg
}

// listen waits for the next event from a background service. It is issued
// again after every eventMsg so exactly one listener is running.
func (a *App) listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-a.events:
			return eventMsg{msg: msg}
		case <-a.ctx.Done():
			return nil
		}
	}
}

func (a *App) start() tea.Cmd {
	return func() tea.Msg {
		return startedMsg{Err: a.sess.Start(a.ctx)}
	}
}

func (a *App) op(name, success string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		err := fn(a.ctx)
		if errors.Is(err, models.ErrSuperseded) {
			// A newer operation already reported the outcome
			a.log.Debug("operation superseded", "op", name)
			return opDoneMsg{Op: name}
		}
		if err != nil {
			a.log.Warn("operation failed", "op", name, "error", err)
		}
		return opDoneMsg{Op: name, Success: success, Err: err}
	}
}

func (a *App) connect(id int64) tea.Cmd {
	conn, _ := a.sess.Connections.Get(id)
	return tea.Batch(
		a.op("connect", "Connected to "+conn.Name, func(ctx context.Context) error {
			return a.sess.Connections.Connect(ctx, id)
		}),
		// Show the connecting state while the attempt runs
		tea.Tick(50*time.Millisecond, func(time.Time) tea.Msg { return connectionsChangedMsg{} }),
	)
}

func (a *App) disconnect(id int64) tea.Cmd {
	conn, _ := a.sess.Connections.Get(id)
	return a.op("disconnect", "Disconnected from "+conn.Name, func(ctx context.Context) error {
		return a.sess.Connections.Disconnect(ctx, id)
	})
}

func (a *App) toggleFavorite(conn models.Connection) tea.Cmd {
	return a.op("favorite", "", func(ctx context.Context) error {
		return a.sess.Connections.SetFavorite(ctx, conn.ID, !conn.Favorite)
	})
}

func (a *App) removeConnection(conn models.Connection) tea.Cmd {
	return a.op("remove", "Removed "+conn.Name, func(ctx context.Context) error {
		return a.sess.Connections.Remove(ctx, conn.ID)
	})
}

func (a *App) reloadCollections(id int64) tea.Cmd {
	return a.op("reload", "", func(ctx context.Context) error {
		return a.sess.Connections.RefreshCollections(ctx, id)
	})
}

func (a *App) deleteCollection(id int64, name string) tea.Cmd {
	return a.op("delete collection", "Deleted collection "+name, func(ctx context.Context) error {
		return a.sess.Connections.DeleteCollection(ctx, id, name)
	})
}

func (a *App) saveConnection(rec models.ConnectionRecord) tea.Cmd {
	return func() tea.Msg {
		var err error
		if rec.ID == 0 {
			_, err = a.sess.Connections.Save(a.ctx, rec)
		} else {
			err = a.sess.Connections.Update(a.ctx, rec)
		}
		return connectionSavedMsg{Err: err}
	}
}

func (a *App) testConnection(uri string, apiKey *string) tea.Cmd {
	return func() tea.Msg {
		return connectionTestedMsg{Err: a.sess.Connections.TestConnection(a.ctx, uri, apiKey)}
	}
}

// viewOp runs fn against the view behind key and reports a refresh
func (a *App) viewOp(key models.TabKey, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return viewRefreshedMsg{Key: key, Err: fn(a.ctx)}
	}
}

func (a *App) openCollection(connID int64, name string) tea.Cmd {
	key, view, created, err := a.sess.OpenCollection(connID, name)
	if err != nil {
		return a.fail(err)
	}
	a.syncTable()
	if !created {
		return nil
	}
	view.OnRefresh(func(err error) {
		a.emit(viewRefreshedMsg{Key: key, Err: err})
	})
	a.table.Reset()
	return a.viewOp(key, view.Start)
}

func (a *App) loadNodes(connID int64) tea.Cmd {
	return func() tea.Msg {
		nodes, err := a.sess.Nodes(a.ctx, connID)
		return nodesLoadedMsg{ConnectionID: connID, Nodes: nodes, Err: err}
	}
}

func (a *App) loadBackups(connID int64) tea.Cmd {
	return func() tea.Msg {
		backups, err := a.sess.Backups.List(a.ctx, connID)
		return backupsLoadedMsg{ConnectionID: connID, Backups: backups, Err: err}
	}
}

// createBackup starts a backup of every collection and waits for it in the
// background.
func (a *App) createBackup(connID int64, backend string) tea.Cmd {
	req := weaviate.BackupRequest{
		Backend: backend,
		ID:      "lazyweave-" + strings.ToLower(uuid.NewString()[:8]),
	}
	return func() tea.Msg {
		backup, err := a.sess.Backups.Create(a.ctx, connID, req)
		if err != nil {
			return opDoneMsg{Op: "backup", Err: err}
		}
		a.emit(connectionsChangedMsg{})
		a.sess.Notifications.Publish(notify.Info, fmt.Sprintf("Backup %s started", backup.ID))
		if _, err := a.sess.Backups.Wait(a.ctx, connID, backend, backup.ID); err != nil {
			return opDoneMsg{Op: "backup", Err: err}
		}
		a.emit(backupsLoadedMsg{ConnectionID: connID, Backups: a.listBackupsQuiet(connID)})
		return opDoneMsg{Op: "backup", Success: fmt.Sprintf("Backup %s completed", backup.ID)}
	}
}

func (a *App) cancelBackup(connID int64, b models.Backup) tea.Cmd {
	return a.op("cancel backup", "Backup "+b.ID+" canceled", func(ctx context.Context) error {
		return a.sess.Backups.Cancel(ctx, connID, b.Backend, b.ID)
	})
}

func (a *App) restoreBackup(connID int64, b models.Backup) tea.Cmd {
	req := weaviate.BackupRequest{Backend: b.Backend, ID: b.ID}
	return func() tea.Msg {
		if _, err := a.sess.Backups.Restore(a.ctx, connID, req); err != nil {
			return opDoneMsg{Op: "restore", Err: err}
		}
		a.emit(connectionsChangedMsg{})
		if _, err := a.sess.Backups.WaitRestore(a.ctx, connID, b.Backend, b.ID); err != nil {
			return opDoneMsg{Op: "restore", Err: err}
		}
		// Restored collections show up in the sidebar
		if err := a.sess.Connections.RefreshCollections(a.ctx, connID); err != nil {
			a.log.Warn("refresh after restore failed", "connection_id", connID, "error", err)
		}
		return opDoneMsg{Op: "restore", Success: "Restored " + b.ID}
	}
}

func (a *App) listBackupsQuiet(connID int64) []models.Backup {
	backups, err := a.sess.Backups.List(a.ctx, connID)
	if err != nil {
		a.log.Debug("backup list failed", "connection_id", connID, "error", err)
	}
	return backups
}

// exportObjects writes the displayed objects of the active collection to the
// working directory.
func (a *App) exportObjects(format export.Format) tea.Cmd {
	tab, ok := a.sess.Tabs.GetActiveTab()
	if !ok {
		return nil
	}
	view, ok := a.sess.View(tab.Key)
	if !ok {
		return nil
	}
	objs := view.Objects()
	name := fmt.Sprintf("%s-%s.%s", tab.Name, time.Now().Format("20060102-150405"), format)
	path := filepath.Join(a.exportDir, name)
	return a.op("export", fmt.Sprintf("Exported %d objects to %s", len(objs), path), func(context.Context) error {
		return export.Objects(objs, path, format)
	})
}

// copyObject puts the selected object id, or the whole object as JSON, on
// the clipboard.
func (a *App) copyObject(whole bool) tea.Cmd {
	obj, ok := a.table.SelectedObject()
	if !ok {
		return nil
	}
	text := obj.ID
	if whole {
		data, err := json.MarshalIndent(obj, "", "  ")
		if err != nil {
			return a.fail(err)
		}
		text = string(data)
	}
	if err := clipboard.WriteAll(text); err != nil {
		return a.fail(fmt.Errorf("copy to clipboard: %w", err))
	}
	a.copied.Set(2*time.Second, func() { a.emit(copiedExpiredMsg{}) })
	return nil
}

// fail publishes err as a notification
func (a *App) fail(err error) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{Err: err}
	}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rebeliceyang/lazyweave/internal/export"
	"github.com/rebeliceyang/lazyweave/internal/models"
	"github.com/rebeliceyang/lazyweave/internal/notify"
	"github.com/rebeliceyang/lazyweave/internal/session"
	"github.com/rebeliceyang/lazyweave/internal/ui/components"
	"github.com/rebeliceyang/lazyweave/internal/ui/theme"
)

type focus int

const (
	focusSidebar focus = iota
	focusContent
)

type overlay int

const (
	overlayNone overlay = iota
	overlayHelp
	overlayConnection
	overlayConfirm
	overlaySearch
)

// confirmation is a pending destructive operation
type confirmation struct {
	prompt string
	run    tea.Cmd
}

// App is the main application model
type App struct {
	ctx    context.Context
	cancel context.CancelFunc
	sess   *session.Session
	theme  theme.Theme
	log    *slog.Logger
	events chan tea.Msg

	width   int
	height  int
	focus   focus
	overlay overlay
	confirm confirmation

	sidebar components.Panel
	content components.Panel
	nav     *components.Navigator
	tabBar  *components.TabBar
	table   *components.TableView
	detail  *components.DetailPane
	search  *components.SearchInput
	dialog  *components.ConnectionDialog

	nodes        map[int64][]models.Node
	backups      map[int64][]models.Backup
	backupCursor int
	copied       notify.Flag
	// fetchFailed marks views whose failing fetch was already reported
	fetchFailed  map[models.TabKey]bool

	exportDir string
}

// New creates the application model on top of an open session. Background
// services report to the model through an event queue, so the callbacks are
// registered here, before the session is started by Init.
func New(ctx context.Context, sess *session.Session, log *slog.Logger) *App {
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(ctx)
	th := theme.GetTheme(sess.Config().UI.Theme)

	a := &App{
		ctx:         ctx,
		cancel:      cancel,
		sess:        sess,
		theme:       th,
		log:         log.With("component", "app"),
		events:      make(chan tea.Msg, 64),
		nav:         components.NewNavigator(th),
		tabBar:      components.NewTabBar(th),
		table:       components.NewTableView(th),
		detail:      components.NewDetailPane(th),
		search:      components.NewSearchInput(th),
		dialog:      components.NewConnectionDialog(th),
		nodes:       make(map[int64][]models.Node),
		backups:     make(map[int64][]models.Backup),
		fetchFailed: make(map[models.TabKey]bool),
		exportDir:   ".",
	}
	a.sidebar = components.Panel{Title: "Connections", Theme: th, Focused: true}
	a.content = components.Panel{Theme: th}

	sess.OnHealth(func(error) { a.emit(connectionsChangedMsg{}) })
	sess.Notifications.OnChange(func() { a.emit(notificationsChangedMsg{}) })
	return a
}

// SetExportDir changes where exported files are written
func (a *App) SetExportDir(dir string) {
	a.exportDir = dir
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.listen(), a.start())
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		_, cmd := a.Update(msg.msg)
		return a, tea.Batch(cmd, a.listen())

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.updatePanelDimensions()
		return a, nil

	case startedMsg:
		if msg.Err != nil {
			a.publishError(msg.Err)
		}
		a.refreshNav()
		return a, nil

	case connectionsChangedMsg, notificationsChangedMsg, copiedExpiredMsg:
		a.refreshNav()
		return a, nil

	case opDoneMsg:
		if msg.Err != nil {
			a.publishError(msg.Err)
		} else if msg.Success != "" {
			a.sess.Notifications.Publish(notify.Success, msg.Success)
		}
		a.refreshNav()
		a.syncTable()
		return a, nil

	case viewRefreshedMsg:
		a.reportFetch(msg.Key, msg.Err)
		if msg.Key == a.sess.Tabs.Active() {
			a.syncTable()
		}
		return a, nil

	case nodesLoadedMsg:
		if msg.Err != nil {
			a.publishError(msg.Err)
			return a, nil
		}
		a.nodes[msg.ConnectionID] = msg.Nodes
		return a, nil

	case backupsLoadedMsg:
		if msg.Err != nil {
			a.publishError(msg.Err)
			return a, nil
		}
		a.backups[msg.ConnectionID] = msg.Backups
		a.backupCursor = min(a.backupCursor, max(len(msg.Backups)-1, 0))
		a.refreshNav()
		return a, nil

	case connectionTestedMsg:
		if msg.Err != nil {
			a.dialog.SetError(msg.Err)
		} else {
			a.dialog.SetStatus("Connection successful", true)
		}
		return a, nil

	case connectionSavedMsg:
		if msg.Err != nil {
			a.dialog.SetError(msg.Err)
			return a, nil
		}
		a.overlay = overlayNone
		a.refreshNav()
		return a, nil

	case ConfigChangedMsg:
		if msg.Err != nil {
			a.sess.Notifications.Publish(notify.Warning, fmt.Sprintf("Config not reloaded: %v", msg.Err))
			return a, nil
		}
		a.sess.ApplyConfig(msg.Config)
		a.setTheme(theme.GetTheme(msg.Config.UI.Theme))
		a.updatePanelDimensions()
		a.syncTable()
		return a, nil

	case components.ConnectionSubmitMsg:
		return a, a.saveConnection(msg.Record)

	case components.ConnectionTestMsg:
		return a, a.testConnection(msg.URI, msg.APIKey)

	case components.ConnectionCancelMsg:
		a.overlay = overlayNone
		return a, nil

	case components.SearchInputMsg:
		a.overlay = overlayNone
		return a, a.runSearch(msg.Query)

	case components.CloseSearchMsg:
		a.overlay = overlayNone
		return a, nil

	case components.NavSelectedMsg:
		return a, a.selectNavItem(msg.Item)

	case tea.MouseMsg:
		return a, a.handleMouse(msg)

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	// Cursor blinks and the like belong to the open input
	var cmd tea.Cmd
	switch a.overlay {
	case overlayConnection:
		a.dialog, cmd = a.dialog.Update(msg)
	case overlaySearch:
		a.search, cmd = a.search.Update(msg)
	}
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return a, a.quit()
	}

	switch a.overlay {
	case overlayConnection:
		var cmd tea.Cmd
		a.dialog, cmd = a.dialog.Update(msg)
		return a, cmd
	case overlaySearch:
		var cmd tea.Cmd
		a.search, cmd = a.search.Update(msg)
		return a, cmd
	case overlayConfirm:
		switch key {
		case "y", "Y", "enter":
			a.overlay = overlayNone
			return a, a.confirm.run
		case "n", "N", "esc", "q":
			a.overlay = overlayNone
		}
		return a, nil
	case overlayHelp:
		if key == "?" || key == "esc" || key == "q" {
			a.overlay = overlayNone
		}
		return a, nil
	}

	switch key {
	case "q":
		return a, a.quit()
	case "?":
		a.overlay = overlayHelp
		return a, nil
	case "tab":
		if a.focus == focusSidebar && a.sess.Tabs.Len() > 0 {
			a.setFocus(focusContent)
		} else {
			a.setFocus(focusSidebar)
		}
		return a, nil
	case "[":
		a.sess.Tabs.Cycle(-1)
		return a, a.tabChanged()
	case "]":
		a.sess.Tabs.Cycle(1)
		return a, a.tabChanged()
	case "<", ">":
		a.moveActiveTab(key == ">")
		return a, nil
	case "ctrl+w":
		a.sess.CloseTab(a.sess.Tabs.Active())
		if a.sess.Tabs.Len() == 0 {
			a.setFocus(focusSidebar)
		}
		return a, a.tabChanged()
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		tabs := a.sess.Tabs.Tabs()
		if i := int(key[0] - '1'); i < len(tabs) {
			a.sess.Tabs.SetActive(tabs[i].Key)
			a.setFocus(focusContent)
			return a, a.tabChanged()
		}
		return a, nil
	}

	if a.focus == focusSidebar {
		return a, a.handleSidebarKey(msg)
	}
	return a, a.handleContentKey(msg)
}

func (a *App) handleSidebarKey(msg tea.KeyMsg) tea.Cmd {
	conn, hasConn := a.nav.SelectedConnection()
	item, _ := a.nav.Selected()

	switch msg.String() {
	case "a":
		return a.openDialog(models.ConnectionRecord{})
	case "esc":
		if n, ok := a.sess.Notifications.Latest(); ok {
			a.sess.Notifications.Dismiss(n.ID)
		}
		return nil
	}
	if !hasConn {
		var cmd tea.Cmd
		a.nav, cmd = a.nav.Update(msg)
		return cmd
	}

	switch msg.String() {
	case "e":
		return a.openDialog(conn.ConnectionRecord)
	case "d":
		if conn.Status != models.Disconnected {
			return a.disconnect(conn.ID)
		}
		return nil
	case "f":
		return a.toggleFavorite(conn)
	case "x":
		return a.confirmThen(fmt.Sprintf("Delete connection %q?", conn.Name), a.removeConnection(conn))
	case "D":
		if item.Kind == components.NavCollection {
			return a.confirmThen(
				fmt.Sprintf("Delete collection %q and all its objects?", item.Name),
				a.deleteCollection(conn.ID, item.Name),
			)
		}
		return nil
	case "R":
		if conn.Status == models.Connected {
			return a.reloadCollections(conn.ID)
		}
		return nil
	}

	var cmd tea.Cmd
	a.nav, cmd = a.nav.Update(msg)
	return cmd
}

func (a *App) selectNavItem(item components.NavItem) tea.Cmd {
	conn, ok := a.sess.Connections.Get(item.ConnectionID)
	if !ok {
		return nil
	}
	switch item.Kind {
	case components.NavConnection:
		if conn.Status == models.Disconnected {
			return a.connect(conn.ID)
		}
		return nil
	case components.NavCluster:
		if _, err := a.sess.OpenCluster(conn.ID); err != nil {
			return a.fail(err)
		}
		a.setFocus(focusContent)
		return a.loadNodes(conn.ID)
	case components.NavBackups:
		if _, err := a.sess.OpenBackups(conn.ID); err != nil {
			return a.fail(err)
		}
		a.setFocus(focusContent)
		a.backupCursor = 0
		return a.loadBackups(conn.ID)
	case components.NavCollection:
		cmd := a.openCollection(conn.ID, item.Name)
		a.setFocus(focusContent)
		return cmd
	}
	return nil
}

func (a *App) handleContentKey(msg tea.KeyMsg) tea.Cmd {
	tab, ok := a.sess.Tabs.GetActiveTab()
	if !ok {
		return nil
	}
	switch v := tab.View.(type) {
	case models.CollectionView:
		return a.handleCollectionKey(tab.Key, msg)
	case models.ClusterView:
		if msg.String() == "r" {
			return a.loadNodes(v.ConnectionID)
		}
	case models.BackupsView:
		return a.handleBackupsKey(v, msg)
	}
	return nil
}

func (a *App) handleCollectionKey(key models.TabKey, msg tea.KeyMsg) tea.Cmd {
	view, ok := a.sess.View(key)
	if !ok {
		return nil
	}
	state := view.Pages.State()

	switch msg.String() {
	case "up", "k":
		a.table.MoveSelection(-1)
	case "down", "j":
		a.table.MoveSelection(1)
	case "pgup", "ctrl+u":
		a.table.PageUp()
	case "pgdown", "ctrl+d":
		a.table.PageDown()
	case "n", "right", "l":
		if !state.Searching {
			a.table.Reset()
			return a.viewOp(key, view.Pages.Next)
		}
	case "p", "left", "h":
		if !state.Searching {
			a.table.Reset()
			return a.viewOp(key, view.Pages.Previous)
		}
	case "s":
		next := nextPageSize(view.Pages.PageSizes(), state.PageSize)
		a.table.Reset()
		return a.viewOp(key, func(ctx context.Context) error {
			return view.Pages.SetPageSize(ctx, next)
		})
	case "t":
		tenant, ok := nextTenant(view.Pages.Tenants(), state.Tenant)
		if !ok {
			return nil
		}
		a.table.Reset()
		return a.viewOp(key, func(ctx context.Context) error {
			return view.SetTenant(ctx, tenant)
		})
	case "/":
		a.overlay = overlaySearch
		return a.search.Open(view.Search.Query())
	case "esc":
		if state.Searching {
			a.table.Reset()
			return a.viewOp(key, view.Search.Reset)
		}
	case "r":
		if view.PollingDisabled() || view.Pages.Err() != nil {
			return a.viewOp(key, view.Retry)
		}
		return a.viewOp(key, view.Pages.Refresh)
	case "v":
		a.detail.Toggle()
	case "J":
		a.detail.ScrollDown()
	case "K":
		a.detail.ScrollUp()
	case "y":
		return a.copyObject(false)
	case "Y":
		return a.copyObject(true)
	case "E":
		return a.exportObjects(export.JSON)
	case "C":
		return a.exportObjects(export.CSV)
	}
	return nil
}

func (a *App) handleBackupsKey(v models.BackupsView, msg tea.KeyMsg) tea.Cmd {
	backups := a.backups[v.ConnectionID]
	var selected *models.Backup
	if a.backupCursor < len(backups) {
		selected = &backups[a.backupCursor]
	}

	switch msg.String() {
	case "up", "k":
		a.backupCursor = max(a.backupCursor-1, 0)
	case "down", "j":
		a.backupCursor = min(a.backupCursor+1, max(len(backups)-1, 0))
	case "r":
		return a.loadBackups(v.ConnectionID)
	case "b":
		if v.Backend == "" {
			return a.fail(fmt.Errorf("no backup module is enabled"))
		}
		return a.createBackup(v.ConnectionID, v.Backend)
	case "c":
		if selected != nil && !selected.Done() {
			return a.cancelBackup(v.ConnectionID, *selected)
		}
	case "u":
		if selected != nil && selected.Status == models.BackupSuccess {
			return a.confirmThen(
				fmt.Sprintf("Restore backup %s? Existing collections are not overwritten.", selected.ID),
				a.restoreBackup(v.ConnectionID, *selected),
			)
		}
	}
	return nil
}

func (a *App) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if a.overlay != overlayNone || msg.Action != tea.MouseActionPress {
		return nil
	}
	onSidebar := msg.X < a.sidebar.Width+2
	switch msg.Button {
	case tea.MouseButtonWheelUp, tea.MouseButtonWheelDown:
		delta := 1
		if msg.Button == tea.MouseButtonWheelUp {
			delta = -1
		}
		if onSidebar {
			key := tea.KeyMsg{Type: tea.KeyDown}
			if delta < 0 {
				key = tea.KeyMsg{Type: tea.KeyUp}
			}
			a.nav, _ = a.nav.Update(key)
		} else {
			a.table.MoveSelection(delta)
		}
	case tea.MouseButtonLeft:
		if onSidebar {
			a.setFocus(focusSidebar)
		} else if a.sess.Tabs.Len() > 0 {
			a.setFocus(focusContent)
		}
	}
	return nil
}

// runSearch starts or, for an empty query, leaves keyword search
func (a *App) runSearch(query string) tea.Cmd {
	key := a.sess.Tabs.Active()
	view, ok := a.sess.View(key)
	if !ok {
		return nil
	}
	a.table.Reset()
	return a.viewOp(key, func(ctx context.Context) error {
		return view.Search.Run(ctx, query)
	})
}

// tabChanged redraws for a new active tab and loads what it shows
func (a *App) tabChanged() tea.Cmd {
	a.table.Reset()
	a.syncTable()
	tab, ok := a.sess.Tabs.GetActiveTab()
	if !ok {
		return nil
	}
	switch v := tab.View.(type) {
	case models.ClusterView:
		if _, loaded := a.nodes[v.ConnectionID]; !loaded {
			return a.loadNodes(v.ConnectionID)
		}
	case models.BackupsView:
		a.backupCursor = 0
		if _, loaded := a.backups[v.ConnectionID]; !loaded {
			return a.loadBackups(v.ConnectionID)
		}
	}
	return nil
}

func (a *App) moveActiveTab(right bool) {
	tabs := a.sess.Tabs.Tabs()
	active := a.sess.Tabs.Active()
	for i, t := range tabs {
		if t.Key != active {
			continue
		}
		j := i - 1
		if right {
			j = i + 1
		}
		if j >= 0 && j < len(tabs) {
			a.sess.Tabs.Reorder(active, tabs[j].Key)
		}
		return
	}
}

func (a *App) openDialog(rec models.ConnectionRecord) tea.Cmd {
	a.overlay = overlayConnection
	return a.dialog.Load(rec)
}

// confirmThen runs cmd, asking first when destructive operations need
// confirmation.
func (a *App) confirmThen(prompt string, cmd tea.Cmd) tea.Cmd {
	if !a.sess.Config().General.ConfirmDestructiveOps {
		return cmd
	}
	a.confirm = confirmation{prompt: prompt, run: cmd}
	a.overlay = overlayConfirm
	return nil
}

func (a *App) publishError(err error) {
	if _, perr := a.sess.Notifications.PublishError(err); perr != nil {
		// Validation errors outside a form still need to be seen
		a.sess.Notifications.Publish(notify.Warning, err.Error())
	}
}

// reportFetch notifies about the first failed fetch of a view. Later
// failures stay quiet until a fetch of that view succeeds again.
func (a *App) reportFetch(key models.TabKey, err error) {
	if err == nil {
		delete(a.fetchFailed, key)
		return
	}
	var ferr *models.FetchError
	if !errors.As(err, &ferr) {
		a.publishError(err)
		return
	}
	if a.fetchFailed[key] {
		return
	}
	a.fetchFailed[key] = true
	a.publishError(err)
}

func (a *App) refreshNav() {
	a.nav.SetConnections(a.sess.Connections.List())
	if a.sess.Tabs.Len() == 0 && a.focus == focusContent {
		a.setFocus(focusSidebar)
	}
}

func (a *App) setFocus(f focus) {
	a.focus = f
	a.sidebar.Focused = f == focusSidebar
	a.content.Focused = f == focusContent
}

func (a *App) setTheme(th theme.Theme) {
	a.theme = th
	a.sidebar.Theme = th
	a.content.Theme = th
	a.nav.Theme = th
	a.tabBar.Theme = th
	a.table.Theme = th
	a.detail.Theme = th
	a.search.Theme = th
	a.dialog.Theme = th
}

func (a *App) quit() tea.Cmd {
	a.copied.Stop()
	a.cancel()
	return tea.Quit
}

func nextPageSize(sizes []int, current int) int {
	for i, s := range sizes {
		if s == current {
			return sizes[(i+1)%len(sizes)]
		}
	}
	return sizes[0]
}

// nextTenant returns the tenant after current, wrapping around
func nextTenant(tenants []models.Tenant, current string) (string, bool) {
	if len(tenants) == 0 {
		return "", false
	}
	for i, t := range tenants {
		if t.Name == current {
			return tenants[(i+1)%len(tenants)].Name, true
		}
	}
	return tenants[0].Name, true
}

package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/rebeliceyang/lazyweave/internal/browser"
	"github.com/rebeliceyang/lazyweave/internal/models"
	"github.com/rebeliceyang/lazyweave/internal/notify"
	"github.com/rebeliceyang/lazyweave/internal/ui/help"
)

// View implements tea.Model
func (a *App) View() string {
	if a.width <= 0 || a.height <= 0 {
		return ""
	}

	switch a.overlay {
	case overlayHelp:
		return help.Render(a.width, a.height, a.theme)
	case overlayConnection:
		a.dialog.Width = min(70, a.width-4)
		a.dialog.Height = min(20, a.height-2)
		return a.centered(a.dialog.View())
	case overlayConfirm:
		return a.centered(a.renderConfirm())
	}

	return a.renderNormalView()
}

func (a *App) centered(content string) string {
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, content)
}

// renderNormalView renders the sidebar, the tab bar and the active tab
func (a *App) renderNormalView() string {
	tabs := a.sess.Tabs.Tabs()
	topBar := lipgloss.NewStyle().
		Width(a.width).
		Background(a.theme.Selection).
		Render(a.tabBar.Render(tabs, a.sess.Tabs.Active(), a.width))
	if len(tabs) == 0 {
		topBar = lipgloss.NewStyle().
			Width(a.width).
			Background(a.theme.BorderFocused).
			Foreground(a.theme.Background).
			Padding(0, 2).
			Render("lazyweave")
	}

	a.nav.Width = a.sidebar.Width
	a.nav.Height = a.sidebar.Height
	a.sidebar.Content = a.nav.View()

	a.content.Title, a.content.Content = a.renderContent()

	panels := lipgloss.JoinHorizontal(lipgloss.Top, a.sidebar.View(), a.content.View())

	return lipgloss.JoinVertical(lipgloss.Left, topBar, panels, a.renderBottomBar())
}

func (a *App) renderContent() (title, body string) {
	tab, ok := a.sess.Tabs.GetActiveTab()
	if !ok {
		return "Welcome", a.renderWelcome()
	}

	switch v := tab.View.(type) {
	case models.CollectionView:
		a.table.Width = a.content.Width
		a.table.Height = a.content.Height - 1 - a.detail.Height()
		body := a.table.View()
		if a.detail.Visible {
			a.detail.Width = a.content.Width
			a.detail.SetObject(a.table.SelectedObject())
			body = lipgloss.JoinVertical(lipgloss.Left, body, a.detail.View())
		}
		if a.overlay == overlaySearch {
			a.search.Width = a.content.Width - 4
			body = a.search.View() + "\n" + body
		}
		return v.Collection, body
	case models.ClusterView:
		return "Cluster", a.renderNodes(v.ConnectionID)
	case models.BackupsView:
		return "Backups (" + v.Backend + ")", a.renderBackups(v.ConnectionID)
	}
	return tab.Label.Title, ""
}

func (a *App) renderWelcome() string {
	muted := lipgloss.NewStyle().Foreground(a.theme.Muted)
	lines := []string{
		lipgloss.NewStyle().Bold(true).Foreground(a.theme.BorderFocused).Render("lazyweave"),
		"",
		muted.Render("Select a connection and press Enter to connect."),
		muted.Render("Press 'a' to add a connection, '?' for help."),
	}
	return strings.Join(lines, "\n")
}

// syncTable loads the active collection view into the table
func (a *App) syncTable() {
	key := a.sess.Tabs.Active()
	view, ok := a.sess.View(key)
	if !ok {
		a.table.SetObjects(nil, 0)
		a.table.Status = ""
		return
	}
	a.table.SetObjects(view.Objects(), a.sess.Config().Data.MaxCellDisplayLength)
	a.table.Status = collectionStatus(view)
}

// collectionStatus describes paging or search state under the table
func collectionStatus(view *browser.View) string {
	state := view.Pages.State()

	var parts []string
	if state.Searching {
		q := view.Search.Query()
		switch {
		case view.Search.Err() != nil:
			parts = append(parts, fmt.Sprintf("Search %q failed: %v", q, view.Search.Err()))
		case state.SearchTime != nil:
			res, _ := view.Search.Result()
			parts = append(parts, fmt.Sprintf("Search %q: %d hits in %s", q, len(res.Objects), state.SearchTime.Round(time.Millisecond)))
		default:
			parts = append(parts, fmt.Sprintf("Searching %q...", q))
		}
		parts = append(parts, "esc to leave")
		return strings.Join(parts, " · ")
	}

	page := fmt.Sprintf("Page %d", state.CurrentPage())
	if total := state.TotalPages(); total > 0 {
		page += fmt.Sprintf(" of %d", total)
	}
	parts = append(parts, page, fmt.Sprintf("%d per page", state.PageSize))
	if state.TotalKnown {
		parts = append(parts, fmt.Sprintf("%d objects", state.Total))
	}
	if state.Tenant != "" {
		parts = append(parts, "tenant "+state.Tenant)
	} else if view.Pages.Target().MultiTenant {
		parts = append(parts, "no tenant selected")
	}
	if view.Pages.Loading() {
		parts = append(parts, "loading")
	}
	if err := view.Pages.Err(); err != nil {
		parts = append(parts, fmt.Sprintf("error: %v (r to retry)", err))
	} else if view.PollingDisabled() {
		parts = append(parts, "auto-refresh off")
	}
	return strings.Join(parts, " · ")
}

func (a *App) renderNodes(connID int64) string {
	nodes, ok := a.nodes[connID]
	if !ok {
		return lipgloss.NewStyle().Foreground(a.theme.Muted).Render("Loading nodes...")
	}
	if len(nodes) == 0 {
		return lipgloss.NewStyle().Foreground(a.theme.Muted).Render("No nodes reported")
	}

	header := lipgloss.NewStyle().Bold(true).Foreground(a.theme.TableHeader)
	var b strings.Builder
	b.WriteString(header.Render(fmt.Sprintf("%-24s %-10s %-10s %10s %8s", "NODE", "STATUS", "VERSION", "OBJECTS", "SHARDS")))
	b.WriteString("\n")
	for _, n := range nodes {
		color := a.theme.Success
		if n.Status != "HEALTHY" {
			color = a.theme.Error
		}
		status := lipgloss.NewStyle().Foreground(color).Render(fmt.Sprintf("%-10s", n.Status))
		fmt.Fprintf(&b, "%-24s %s %-10s %10d %8d\n", n.Name, status, n.Version, n.ObjectCount, n.ShardCount)
	}
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(a.theme.Muted).Render("r: reload"))
	return b.String()
}

func (a *App) renderBackups(connID int64) string {
	var b strings.Builder

	if conn, ok := a.sess.Connections.Get(connID); ok {
		if conn.BackupInProgress {
			b.WriteString(lipgloss.NewStyle().Foreground(a.theme.Warning).Render("Backup in progress..."))
			b.WriteString("\n")
		}
		if r := conn.ActiveRestore; r != nil {
			b.WriteString(lipgloss.NewStyle().Foreground(a.theme.Warning).Render("Restoring " + r.BackupID + "..."))
			b.WriteString("\n")
		}
	}

	backups, ok := a.backups[connID]
	switch {
	case !ok:
		b.WriteString(lipgloss.NewStyle().Foreground(a.theme.Muted).Render("Loading backups..."))
	case len(backups) == 0:
		b.WriteString(lipgloss.NewStyle().Foreground(a.theme.Muted).Render("No backups"))
	default:
		header := lipgloss.NewStyle().Bold(true).Foreground(a.theme.TableHeader)
		b.WriteString(header.Render(fmt.Sprintf("%-28s %-12s %-14s %s", "ID", "BACKEND", "STATUS", "COLLECTIONS")))
		b.WriteString("\n")
		for i, bk := range backups {
			line := fmt.Sprintf("%-28s %-12s %-14s %s", bk.ID, bk.Backend, bk.Status, strings.Join(bk.Collections, ", "))
			style := lipgloss.NewStyle()
			if bk.Status == models.BackupFailed {
				style = style.Foreground(a.theme.Error)
			}
			if i == a.backupCursor {
				style = style.Background(a.theme.TableRowSelected).Bold(true)
			}
			b.WriteString(style.Render(line))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(a.theme.Muted).Render("b: backup · c: cancel · u: restore · r: reload"))
	return b.String()
}

func (a *App) renderConfirm() string {
	body := lipgloss.NewStyle().Bold(true).Render(a.confirm.prompt) + "\n\n" +
		lipgloss.NewStyle().Foreground(a.theme.Muted).Render("y/Enter: confirm · n/Esc: cancel")
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(a.theme.Warning).
		Padding(1, 2).
		Render(body)
}

func (a *App) renderBottomBar() string {
	left := "[tab] Switch panel | [?] Help | [q] Quit"
	if a.focus == focusContent {
		left = "[n/p] Page | [/] Search | [r] Refresh | [ctrl+w] Close tab"
	}
	fg := a.theme.Foreground

	if n, ok := a.sess.Notifications.Latest(); ok {
		left = n.Message
		switch n.Level {
		case notify.Success:
			fg = a.theme.Success
		case notify.Warning:
			fg = a.theme.Warning
		case notify.Error:
			fg = a.theme.Error
		default:
			fg = a.theme.Info
		}
	}

	right := fmt.Sprintf("%d connected", len(a.sess.Connections.ConnectedIDs()))
	if a.copied.On() {
		right = "Copied! · " + right
	}

	return lipgloss.NewStyle().
		Width(a.width).
		Background(a.theme.Selection).
		Foreground(fg).
		Padding(0, 2).
		Render(a.formatStatusBar(left, right))
}

// formatStatusBar formats a status bar with left and right aligned content
func (a *App) formatStatusBar(left, right string) string {
	// Account for padding (2 chars on each side = 4 total)
	availableWidth := max(a.width-4, 0)
	leftLen := lipgloss.Width(left)
	rightLen := lipgloss.Width(right)

	if leftLen+rightLen+1 > availableWidth {
		maxLeft := max(availableWidth-rightLen-1, 0)
		left = runewidth.Truncate(left, maxLeft, "…")
		leftLen = lipgloss.Width(left)
	}

	spacing := max(availableWidth-leftLen-rightLen, 0)
	return left + strings.Repeat(" ", spacing) + right
}

// updatePanelDimensions calculates panel sizes based on window size
func (a *App) updatePanelDimensions() {
	if a.width <= 0 || a.height <= 0 {
		return
	}

	// Top bar and bottom bar take one line each, borders two more
	contentHeight := max(a.height-4, 5)

	leftWidth := max(a.width*a.sess.Config().UI.PanelWidthRatio/100, 20)
	rightWidth := a.width - leftWidth - 4
	if rightWidth < 20 {
		rightWidth = 20
		leftWidth = max(a.width-rightWidth-4, 10)
	}

	a.sidebar.Width = leftWidth
	a.sidebar.Height = contentHeight
	a.content.Width = rightWidth
	a.content.Height = contentHeight
}

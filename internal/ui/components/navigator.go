package components

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/rebeliceyang/lazyweave/internal/models"
	"github.com/rebeliceyang/lazyweave/internal/ui/theme"
)

// NavKind is the type of a navigator row
type NavKind int

const (
	NavConnection NavKind = iota
	NavCluster
	NavBackups
	NavCollection
)

// NavItem is one row of the navigator
type NavItem struct {
	Kind         NavKind
	ConnectionID int64
	// Name is the collection name for NavCollection rows
	Name string
}

// NavSelectedMsg is sent when Enter is pressed on a row
type NavSelectedMsg struct {
	Item NavItem
}

// Navigator lists saved connections and, under each connected one, its
// cluster and backup screens and its collections.
type Navigator struct {
	Width        int
	Height       int
	Theme        theme.Theme
	CursorIndex  int
	ScrollOffset int

	conns     map[int64]models.Connection
	collapsed map[int64]bool
	items     []NavItem
}

func NewNavigator(th theme.Theme) *Navigator {
	return &Navigator{
		Theme:     th,
		conns:     make(map[int64]models.Connection),
		collapsed: make(map[int64]bool),
	}
}

// SetConnections replaces the listed connections, keeping the cursor on
// the same row when it still exists.
func (n *Navigator) SetConnections(conns []models.Connection) {
	current, hadCurrent := n.Selected()

	n.conns = make(map[int64]models.Connection, len(conns))
	n.items = n.items[:0]
	for _, c := range conns {
		n.conns[c.ID] = c
		n.items = append(n.items, NavItem{Kind: NavConnection, ConnectionID: c.ID})
		if c.Status != models.Connected || n.collapsed[c.ID] {
			continue
		}
		n.items = append(n.items, NavItem{Kind: NavCluster, ConnectionID: c.ID})
		if len(c.BackupModules) > 0 {
			n.items = append(n.items, NavItem{Kind: NavBackups, ConnectionID: c.ID})
		}
		for _, col := range c.Collections {
			n.items = append(n.items, NavItem{Kind: NavCollection, ConnectionID: c.ID, Name: col.Name})
		}
	}

	if hadCurrent {
		if i := n.indexOf(current); i >= 0 {
			n.CursorIndex = i
			return
		}
		// Fall back to the row's connection
		if i := n.indexOf(NavItem{Kind: NavConnection, ConnectionID: current.ConnectionID}); i >= 0 {
			n.CursorIndex = i
			return
		}
	}
	n.CursorIndex = min(max(n.CursorIndex, 0), max(len(n.items)-1, 0))
}

func (n *Navigator) indexOf(item NavItem) int {
	for i, it := range n.items {
		if it == item {
			return i
		}
	}
	return -1
}

// Items returns the visible rows
func (n *Navigator) Items() []NavItem {
	return n.items
}

// Selected returns the row under the cursor
func (n *Navigator) Selected() (NavItem, bool) {
	if n.CursorIndex < 0 || n.CursorIndex >= len(n.items) {
		return NavItem{}, false
	}
	return n.items[n.CursorIndex], true
}

// SelectedConnection returns the connection the cursor row belongs to
func (n *Navigator) SelectedConnection() (models.Connection, bool) {
	item, ok := n.Selected()
	if !ok {
		return models.Connection{}, false
	}
	c, ok := n.conns[item.ConnectionID]
	return c, ok
}

// Update handles keyboard input for navigation
func (n *Navigator) Update(msg tea.KeyMsg) (*Navigator, tea.Cmd) {
	if len(n.items) == 0 {
		return n, nil
	}

	var cmd tea.Cmd
	switch msg.String() {
	case "up", "k":
		if n.CursorIndex > 0 {
			n.CursorIndex--
		}
	case "down", "j":
		if n.CursorIndex < len(n.items)-1 {
			n.CursorIndex++
		}
	case "g":
		n.CursorIndex = 0
		n.ScrollOffset = 0
	case "G":
		n.CursorIndex = len(n.items) - 1
	case "right", "l", " ":
		item := n.items[n.CursorIndex]
		if item.Kind == NavConnection && n.collapsed[item.ConnectionID] {
			delete(n.collapsed, item.ConnectionID)
			n.refresh()
		}
	case "left", "h":
		item := n.items[n.CursorIndex]
		if item.Kind != NavConnection {
			// Move to the owning connection
			n.CursorIndex = n.indexOf(NavItem{Kind: NavConnection, ConnectionID: item.ConnectionID})
		} else if !n.collapsed[item.ConnectionID] {
			n.collapsed[item.ConnectionID] = true
			n.refresh()
		}
	case "enter":
		item := n.items[n.CursorIndex]
		cmd = func() tea.Msg { return NavSelectedMsg{Item: item} }
	}
	return n, cmd
}

func (n *Navigator) refresh() {
	conns := make([]models.Connection, 0, len(n.conns))
	for _, it := range n.items {
		if it.Kind == NavConnection {
			conns = append(conns, n.conns[it.ConnectionID])
		}
	}
	n.SetConnections(conns)
}

// View renders the rows visible in the viewport
func (n *Navigator) View() string {
	if len(n.items) == 0 {
		return lipgloss.NewStyle().
			Foreground(n.Theme.Muted).
			Italic(true).
			Render("No connections\nPress 'a' to add one")
	}

	viewHeight := max(n.Height-2, 1)
	n.adjustScrollOffset(viewHeight)

	end := min(n.ScrollOffset+viewHeight, len(n.items))
	lines := make([]string, 0, viewHeight)
	for i := n.ScrollOffset; i < end; i++ {
		lines = append(lines, n.renderItem(n.items[i], i == n.CursorIndex))
	}
	return strings.Join(lines, "\n")
}

func (n *Navigator) renderItem(item NavItem, selected bool) string {
	conn := n.conns[item.ConnectionID]

	var content string
	fg := n.Theme.Foreground
	switch item.Kind {
	case NavConnection:
		icon, color := "○", n.Theme.Disconnected
		switch conn.Status {
		case models.Connecting:
			icon, color = "◌", n.Theme.Connecting
		case models.Connected:
			icon, color = "●", n.Theme.Connected
			if !n.collapsed[conn.ID] {
				icon = "▾"
			}
		}
		if conn.Status == models.Connected && n.collapsed[conn.ID] {
			icon = "▸"
		}
		label := conn.Name
		if conn.Favorite {
			label = "★ " + label
		}
		var flags []string
		if conn.BackupInProgress {
			flags = append(flags, "backup")
		}
		if conn.ActiveRestore != nil {
			flags = append(flags, "restoring")
		}
		if conn.Status == models.Connected && !conn.Healthy {
			flags = append(flags, "unreachable")
		}
		if len(flags) > 0 {
			label += fmt.Sprintf(" (%s)", strings.Join(flags, ", "))
		}
		content = lipgloss.NewStyle().Foreground(color).Render(icon) + " " + label
		fg = n.Theme.TagColor(conn.Color)
	case NavCluster:
		content = "  ◎ Cluster"
	case NavBackups:
		content = "  ⛁ Backups"
	case NavCollection:
		icon := "▤"
		if col, ok := conn.Collection(item.Name); ok && col.MultiTenant {
			icon = "▥"
		}
		content = "  " + icon + " " + item.Name
		fg = n.Theme.Collection
	}

	maxWidth := max(n.Width-2, 4)
	content = runewidth.Truncate(content, maxWidth, "…")

	style := lipgloss.NewStyle().Foreground(fg).Width(maxWidth)
	if selected {
		style = style.Background(n.Theme.Selection).Bold(true)
	}
	return style.Render(content)
}

// adjustScrollOffset adjusts the scroll offset to keep the cursor visible
func (n *Navigator) adjustScrollOffset(viewHeight int) {
	if n.CursorIndex < n.ScrollOffset {
		n.ScrollOffset = n.CursorIndex
	}
	if n.CursorIndex >= n.ScrollOffset+viewHeight {
		n.ScrollOffset = n.CursorIndex - viewHeight + 1
	}
	maxScroll := max(len(n.items)-viewHeight, 0)
	n.ScrollOffset = min(max(n.ScrollOffset, 0), maxScroll)
}

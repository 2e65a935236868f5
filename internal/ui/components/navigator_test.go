package components

import (
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebeliceyang/lazyweave/internal/models"
	"github.com/rebeliceyang/lazyweave/internal/ui/theme"
)

func testConnections(collections ...string) []models.Connection {
	local := models.Connection{
		ConnectionRecord: models.ConnectionRecord{ID: 1, Name: "local", URI: "http://localhost:8080", Favorite: true},
		Status:           models.Connected,
		Healthy:          true,
		BackupModules:    []string{"backup-filesystem"},
	}
	for _, name := range collections {
		local.Collections = append(local.Collections, models.Collection{Name: name})
	}
	remote := models.Connection{
		ConnectionRecord: models.ConnectionRecord{ID: 2, Name: "remote", URI: "https://remote.example.com"},
	}
	return []models.Connection{local, remote}
}

func press(n *Navigator, key string) tea.Cmd {
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	_, cmd := n.Update(msg)
	return cmd
}

func TestNavigator_Rows(t *testing.T) {
	n := NewNavigator(theme.DefaultTheme())
	n.SetConnections(testConnections("Articles", "Books"))

	assert.Equal(t, []NavItem{
		{Kind: NavConnection, ConnectionID: 1},
		{Kind: NavCluster, ConnectionID: 1},
		{Kind: NavBackups, ConnectionID: 1},
		{Kind: NavCollection, ConnectionID: 1, Name: "Articles"},
		{Kind: NavCollection, ConnectionID: 1, Name: "Books"},
		{Kind: NavConnection, ConnectionID: 2},
	}, n.Items())
}

func TestNavigator_NoBackupRowWithoutModules(t *testing.T) {
	conns := testConnections("Articles")
	conns[0].BackupModules = nil

	n := NewNavigator(theme.DefaultTheme())
	n.SetConnections(conns)

	for _, it := range n.Items() {
		assert.NotEqual(t, NavBackups, it.Kind)
	}
	assert.Len(t, n.Items(), 4)
}

func TestNavigator_KeepsCursorOnSameRow(t *testing.T) {
	n := NewNavigator(theme.DefaultTheme())
	n.SetConnections(testConnections("Articles", "Books"))
	n.CursorIndex = 4

	n.SetConnections(testConnections("Books"))
	item, ok := n.Selected()
	require.True(t, ok)
	assert.Equal(t, "Books", item.Name)
	assert.Equal(t, 3, n.CursorIndex)

	// The collection is gone, so the cursor falls back to its connection
	n.SetConnections(testConnections())
	item, ok = n.Selected()
	require.True(t, ok)
	assert.Equal(t, NavItem{Kind: NavConnection, ConnectionID: 1}, item)
}

func TestNavigator_CollapseAndExpand(t *testing.T) {
	n := NewNavigator(theme.DefaultTheme())
	n.SetConnections(testConnections("Articles", "Books"))

	press(n, "h")
	assert.Len(t, n.Items(), 2)

	press(n, "l")
	assert.Len(t, n.Items(), 6)

	// Left on a child row jumps to the connection
	n.CursorIndex = 3
	press(n, "h")
	assert.Equal(t, 0, n.CursorIndex)
	assert.Len(t, n.Items(), 6)
}

func TestNavigator_Movement(t *testing.T) {
	n := NewNavigator(theme.DefaultTheme())
	n.SetConnections(testConnections("Articles"))

	press(n, "up")
	assert.Equal(t, 0, n.CursorIndex)

	press(n, "down")
	press(n, "j")
	assert.Equal(t, 2, n.CursorIndex)

	press(n, "G")
	assert.Equal(t, len(n.Items())-1, n.CursorIndex)
	press(n, "down")
	assert.Equal(t, len(n.Items())-1, n.CursorIndex)

	press(n, "g")
	assert.Equal(t, 0, n.CursorIndex)
}

func TestNavigator_EnterSendsSelection(t *testing.T) {
	n := NewNavigator(theme.DefaultTheme())
	n.SetConnections(testConnections("Articles"))
	n.CursorIndex = 3

	cmd := press(n, "enter")
	require.NotNil(t, cmd)
	assert.Equal(t, NavSelectedMsg{Item: NavItem{Kind: NavCollection, ConnectionID: 1, Name: "Articles"}}, cmd())

	conn, ok := n.SelectedConnection()
	require.True(t, ok)
	assert.Equal(t, "local", conn.Name)
}

func TestNavigator_View(t *testing.T) {
	n := NewNavigator(theme.DefaultTheme())
	n.Width = 40
	n.Height = 20

	assert.Contains(t, n.View(), "No connections")

	conns := testConnections("Articles")
	conns[0].BackupInProgress = true
	n.SetConnections(conns)

	view := n.View()
	assert.Contains(t, view, "★ local (backup)")
	assert.Contains(t, view, "Cluster")
	assert.Contains(t, view, "Articles")
	assert.Contains(t, view, "remote")
}

func TestNavigator_ScrollFollowsCursor(t *testing.T) {
	names := make([]string, 30)
	for i := range names {
		names[i] = fmt.Sprintf("Collection%02d", i)
	}
	n := NewNavigator(theme.DefaultTheme())
	n.Width = 40
	n.Height = 10
	n.SetConnections(testConnections(names...))

	press(n, "G")
	n.View()
	assert.Equal(t, len(n.Items())-8, n.ScrollOffset)

	press(n, "g")
	n.View()
	assert.Equal(t, 0, n.ScrollOffset)
}

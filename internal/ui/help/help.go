package help

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rebeliceyang/lazyweave/internal/ui/theme"
)

// KeyBinding represents a keyboard shortcut
type KeyBinding struct {
	Key         string
	Description string
}

// Section is a titled group of bindings
type Section struct {
	Title string
	Keys  []KeyBinding
}

// GetGlobalKeys returns global key bindings
func GetGlobalKeys() []KeyBinding {
	return []KeyBinding{
		{"?", "Toggle help"},
		{"q, Ctrl+C", "Quit application"},
		{"Tab", "Switch panel focus"},
		{"[ / ]", "Previous / next tab"},
		{"1-9", "Jump to tab"},
		{"< / >", "Move tab left / right"},
		{"Ctrl+W", "Close tab"},
		{"Esc", "Dismiss notification"},
	}
}

// GetConnectionKeys returns sidebar key bindings
func GetConnectionKeys() []KeyBinding {
	return []KeyBinding{
		{"↑/k ↓/j", "Move"},
		{"←/h →/l", "Collapse / expand"},
		{"Enter", "Connect or open"},
		{"a", "New connection"},
		{"e", "Edit connection"},
		{"d", "Disconnect"},
		{"f", "Toggle favorite"},
		{"x", "Delete connection"},
		{"D", "Delete collection"},
		{"R", "Reload collections"},
	}
}

// GetDataViewKeys returns collection view key bindings
func GetDataViewKeys() []KeyBinding {
	return []KeyBinding{
		{"↑/k ↓/j", "Move selection"},
		{"n / p", "Next / previous page"},
		{"s", "Cycle page size"},
		{"t", "Cycle tenant"},
		{"/", "Keyword search"},
		{"Esc", "Leave search"},
		{"r", "Refresh or retry"},
		{"v", "Toggle object details"},
		{"J / K", "Scroll object details"},
		{"y", "Copy object id"},
		{"Y", "Copy object as JSON"},
		{"E / C", "Export page as JSON / CSV"},
	}
}

// GetClusterKeys returns cluster and backup view key bindings
func GetClusterKeys() []KeyBinding {
	return []KeyBinding{
		{"r", "Reload"},
		{"b", "Create backup"},
		{"c", "Cancel selected backup"},
		{"u", "Restore selected backup"},
	}
}

// Sections returns every help section in display order
func Sections() []Section {
	return []Section{
		{"Global", GetGlobalKeys()},
		{"Connections", GetConnectionKeys()},
		{"Collection", GetDataViewKeys()},
		{"Cluster & Backups", GetClusterKeys()},
	}
}

// Render creates the help view
func Render(width, height int, th theme.Theme) string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(th.BorderFocused).
		Padding(1, 0)

	sectionStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(th.Info).
		Padding(0, 0, 0, 2)

	keyStyle := lipgloss.NewStyle().
		Foreground(th.Warning).
		Width(20)

	descStyle := lipgloss.NewStyle().
		Foreground(th.Foreground)

	var b strings.Builder

	b.WriteString(titleStyle.Render("lazyweave - Keyboard Shortcuts"))
	b.WriteString("\n\n")

	for _, sec := range Sections() {
		b.WriteString(sectionStyle.Render(sec.Title))
		b.WriteString("\n")
		for _, kb := range sec.Keys {
			b.WriteString("  ")
			b.WriteString(keyStyle.Render(kb.Key))
			b.WriteString(descStyle.Render(kb.Description))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(lipgloss.NewStyle().Foreground(th.Muted).Render("Press '?' or Esc to close help"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(th.BorderFocused).
		Padding(1, 2).
		Width(max(width-4, 20)).
		Height(max(height-4, 10))

	return boxStyle.Render(b.String())
}

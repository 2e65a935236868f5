package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/rebeliceyang/lazyweave/internal/models"
	"github.com/rebeliceyang/lazyweave/internal/ui/theme"
)

// TabBar renders the workspace tabs in sequence order
type TabBar struct {
	Theme theme.Theme
}

func NewTabBar(th theme.Theme) *TabBar {
	return &TabBar{Theme: th}
}

// Label formats a tab as "[n] icon title · connection"
func Label(i int, tab models.Tab) string {
	label := fmt.Sprintf("[%d]", i+1)
	if tab.Label.Icon != "" {
		label += " " + tab.Label.Icon
	}
	label += " " + tab.Label.Title
	if tab.Label.ConnectionName != "" {
		label += " · " + tab.Label.ConnectionName
	}
	return label
}

// Render draws tabs highlighting the one with the active key
func (tb *TabBar) Render(tabs []models.Tab, active models.TabKey, width int) string {
	if len(tabs) == 0 {
		return ""
	}

	maxLabelLen := width / len(tabs)
	if maxLabelLen < 15 {
		maxLabelLen = 15
	}

	var tabViews []string
	for i, tab := range tabs {
		label := Label(i, tab)
		if runewidth.StringWidth(label) > maxLabelLen {
			// Drop the connection name first
			label = fmt.Sprintf("[%d] %s", i+1, tab.Label.Title)
			label = runewidth.Truncate(label, maxLabelLen, "...")
		}

		var style lipgloss.Style
		if tab.Key == active {
			style = lipgloss.NewStyle().
				Foreground(tb.Theme.Background).
				Background(tb.Theme.Info).
				Bold(true).
				Padding(0, 1)
		} else {
			style = lipgloss.NewStyle().
				Foreground(tb.Theme.TagColor(tab.Label.Color)).
				Background(tb.Theme.Selection).
				Padding(0, 1)
		}

		tabViews = append(tabViews, style.Render(label))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, tabViews...)
}

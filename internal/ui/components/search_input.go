package components

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rebeliceyang/lazyweave/internal/ui/theme"
)

// SearchInputMsg is sent when search should be executed. An empty query
// means leave search mode.
type SearchInputMsg struct {
	Query string
}

// CloseSearchMsg is sent when the box is closed without searching
type CloseSearchMsg struct{}

// SearchInput is the keyword search box of a collection view
type SearchInput struct {
	Input   textinput.Model
	Theme   theme.Theme
	Width   int
	Visible bool
}

// NewSearchInput creates a new search input
func NewSearchInput(th theme.Theme) *SearchInput {
	ti := textinput.New()
	ti.Placeholder = "Keyword search..."
	ti.CharLimit = 256
	ti.Width = 40

	return &SearchInput{
		Input: ti,
		Theme: th,
	}
}

// Open shows the box with the current query
func (s *SearchInput) Open(query string) tea.Cmd {
	s.Visible = true
	s.Input.SetValue(query)
	s.Input.CursorEnd()
	return s.Input.Focus()
}

// Close hides the box
func (s *SearchInput) Close() {
	s.Visible = false
	s.Input.Blur()
}

// Reset clears the search input
func (s *SearchInput) Reset() {
	s.Input.SetValue("")
}

// Update handles messages
func (s *SearchInput) Update(msg tea.Msg) (*SearchInput, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "enter":
			query := s.Input.Value()
			s.Close()
			return s, func() tea.Msg {
				return SearchInputMsg{Query: query}
			}
		case "esc":
			s.Close()
			return s, func() tea.Msg {
				return CloseSearchMsg{}
			}
		}
	}

	var cmd tea.Cmd
	s.Input, cmd = s.Input.Update(msg)
	return s, cmd
}

// View renders the search input
func (s *SearchInput) View() string {
	s.Input.Width = max(s.Width-10, 20)

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(s.Theme.BorderFocused).
		Padding(0, 1).
		Width(s.Width)

	helpStyle := lipgloss.NewStyle().
		Foreground(s.Theme.Muted).
		Italic(true)

	content := "🔍 " + s.Input.View()
	helpText := helpStyle.Render("Enter: search (empty to reset) │ Esc: close")

	return boxStyle.Render(content + "\n" + helpText)
}

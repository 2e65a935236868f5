package components

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rebeliceyang/lazyweave/internal/models"
	"github.com/rebeliceyang/lazyweave/internal/ui/theme"
)

// ConnectionSubmitMsg is sent when the form passes validation
type ConnectionSubmitMsg struct {
	Record models.ConnectionRecord
}

// ConnectionTestMsg asks for the form's uri and key to be tried
type ConnectionTestMsg struct {
	URI    string
	APIKey *string
}

// ConnectionCancelMsg is sent when the form is closed
type ConnectionCancelMsg struct{}

const (
	fieldName = iota
	fieldURI
	fieldAPIKey
	fieldColor
	fieldCount
)

var fieldKeys = [fieldCount]string{"name", "uri", "api_key", "color"}

// ConnectionDialog is the create/edit form for a saved connection.
// Validation errors are shown next to the field they belong to.
type ConnectionDialog struct {
	Width  int
	Height int
	Theme  theme.Theme

	inputs      [fieldCount]textinput.Model
	activeField int
	editing     models.ConnectionRecord

	fieldErr *models.ValidationError
	status   string
	statusOK bool
}

// NewConnectionDialog creates an empty form
func NewConnectionDialog(th theme.Theme) *ConnectionDialog {
	c := &ConnectionDialog{Theme: th}
	placeholders := [fieldCount]string{"production", "http://localhost:8080", "optional", "red, green, blue, #ff8800"}
	for i := range c.inputs {
		ti := textinput.New()
		ti.Placeholder = placeholders[i]
		ti.CharLimit = 512
		c.inputs[i] = ti
	}
	c.inputs[fieldAPIKey].EchoMode = textinput.EchoPassword
	c.inputs[fieldAPIKey].EchoCharacter = '•'
	return c
}

// Load fills the form from rec. A zero ID means a new connection.
func (c *ConnectionDialog) Load(rec models.ConnectionRecord) tea.Cmd {
	c.editing = rec
	c.fieldErr = nil
	c.status = ""
	c.inputs[fieldName].SetValue(rec.Name)
	c.inputs[fieldURI].SetValue(rec.URI)
	key := ""
	if rec.APIKey != nil {
		key = *rec.APIKey
	}
	c.inputs[fieldAPIKey].SetValue(key)
	c.inputs[fieldColor].SetValue(rec.Color)
	return c.focus(fieldName)
}

func (c *ConnectionDialog) focus(field int) tea.Cmd {
	c.activeField = field
	for i := range c.inputs {
		c.inputs[i].Blur()
	}
	return c.inputs[field].Focus()
}

// Record returns the record described by the form and its validation error
func (c *ConnectionDialog) Record() (models.ConnectionRecord, error) {
	rec := c.editing
	rec.Name = strings.TrimSpace(c.inputs[fieldName].Value())
	rec.URI = strings.TrimSpace(c.inputs[fieldURI].Value())
	rec.Color = strings.TrimSpace(c.inputs[fieldColor].Value())
	rec.APIKey = nil
	if key := c.inputs[fieldAPIKey].Value(); key != "" {
		rec.APIKey = &key
	}
	return rec, rec.Validate()
}

// SetError shows err in the form. Validation errors go next to their field.
func (c *ConnectionDialog) SetError(err error) {
	c.fieldErr = nil
	c.status = ""
	if err == nil {
		return
	}
	var v *models.ValidationError
	if errors.As(err, &v) {
		c.fieldErr = v
		for i, key := range fieldKeys {
			if key == v.Field {
				c.focus(i)
			}
		}
		return
	}
	c.status = err.Error()
	c.statusOK = false
}

// SetStatus shows a one-line message under the fields
func (c *ConnectionDialog) SetStatus(msg string, ok bool) {
	c.status = msg
	c.statusOK = ok
}

// IsNew reports whether the form creates a connection
func (c *ConnectionDialog) IsNew() bool {
	return c.editing.ID == 0
}

// Update handles key input
func (c *ConnectionDialog) Update(msg tea.Msg) (*ConnectionDialog, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "esc":
			return c, func() tea.Msg { return ConnectionCancelMsg{} }
		case "tab", "down":
			return c, c.focus((c.activeField + 1) % fieldCount)
		case "shift+tab", "up":
			return c, c.focus((c.activeField + fieldCount - 1) % fieldCount)
		case "ctrl+t":
			rec, err := c.Record()
			if err != nil {
				c.SetError(err)
				return c, nil
			}
			c.SetStatus("Testing connection...", true)
			return c, func() tea.Msg { return ConnectionTestMsg{URI: rec.URI, APIKey: rec.APIKey} }
		case "enter":
			rec, err := c.Record()
			if err != nil {
				c.SetError(err)
				return c, nil
			}
			c.fieldErr = nil
			return c, func() tea.Msg { return ConnectionSubmitMsg{Record: rec} }
		}
	}

	var cmd tea.Cmd
	c.inputs[c.activeField], cmd = c.inputs[c.activeField].Update(msg)
	return c, cmd
}

// View renders the form
func (c *ConnectionDialog) View() string {
	if c.Width <= 0 || c.Height <= 0 {
		return ""
	}

	var b strings.Builder

	title := "New Connection"
	if !c.IsNew() {
		title = "Edit Connection"
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(c.Theme.BorderFocused)
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")

	labels := [fieldCount]string{"Name:", "URI:", "API key:", "Color:"}
	labelStyle := lipgloss.NewStyle().Width(10)
	errStyle := lipgloss.NewStyle().Foreground(c.Theme.Error).PaddingLeft(12)

	for i := range c.inputs {
		prefix := "  "
		if i == c.activeField {
			prefix = "> "
		}
		c.inputs[i].Width = max(c.Width-16, 10)
		b.WriteString(prefix + labelStyle.Render(labels[i]) + c.inputs[i].View() + "\n")
		if c.fieldErr != nil && c.fieldErr.Field == fieldKeys[i] {
			b.WriteString(errStyle.Render(c.fieldErr.Message) + "\n")
		}
	}

	if c.status != "" {
		color := c.Theme.Error
		if c.statusOK {
			color = c.Theme.Success
		}
		b.WriteString("\n" + lipgloss.NewStyle().Foreground(color).Render(c.status) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(c.Theme.Muted).
		Render("Tab/↑↓: Navigate | Enter: Save | Ctrl+T: Test | Esc: Cancel"))

	style := lipgloss.NewStyle().
		Width(c.Width).
		Height(c.Height).
		Padding(1, 2).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(c.Theme.BorderFocused)

	return style.Render(b.String())
}

package theme

import "github.com/charmbracelet/lipgloss"

// Theme defines the color scheme and styling
type Theme struct {
	Name string

	// Background colors
	Background lipgloss.Color
	Foreground lipgloss.Color
	Muted      lipgloss.Color

	// UI elements
	Border        lipgloss.Color
	BorderFocused lipgloss.Color
	Selection     lipgloss.Color
	Cursor        lipgloss.Color

	// Status colors
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Info    lipgloss.Color

	// Table colors
	TableHeader      lipgloss.Color
	TableRowSelected lipgloss.Color

	// Navigator colors
	Connected    lipgloss.Color
	Connecting   lipgloss.Color
	Disconnected lipgloss.Color
	Favorite     lipgloss.Color
	Collection   lipgloss.Color

	// Connection color tags, keyed by the name saved on the record
	Tags map[string]lipgloss.Color
}

// Names lists the selectable themes
func Names() []string {
	return []string{"default", "catppuccin-mocha"}
}

// GetTheme returns a theme by name
func GetTheme(name string) Theme {
	switch name {
	case "catppuccin-mocha", "catppuccin":
		return CatppuccinMochaTheme()
	default:
		return DefaultTheme()
	}
}

// TagColor resolves a connection color tag. Unknown tags fall back to the
// foreground color; hex values are used as is.
func (t Theme) TagColor(tag string) lipgloss.Color {
	if tag == "" {
		return t.Foreground
	}
	if c, ok := t.Tags[tag]; ok {
		return c
	}
	if tag[0] == '#' {
		return lipgloss.Color(tag)
	}
	return t.Foreground
}

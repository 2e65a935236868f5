package theme

import "github.com/charmbracelet/lipgloss"

// DefaultTheme returns the default dark theme
func DefaultTheme() Theme {
	return Theme{
		Name: "default",

		Background: lipgloss.Color("235"),
		Foreground: lipgloss.Color("252"),
		Muted:      lipgloss.Color("245"),

		Border:        lipgloss.Color("240"),
		BorderFocused: lipgloss.Color("62"),
		Selection:     lipgloss.Color("237"),
		Cursor:        lipgloss.Color("248"),

		Success: lipgloss.Color("42"),
		Warning: lipgloss.Color("220"),
		Error:   lipgloss.Color("196"),
		Info:    lipgloss.Color("75"),

		TableHeader:      lipgloss.Color("105"),
		TableRowSelected: lipgloss.Color("25"),

		Connected:    lipgloss.Color("42"),
		Connecting:   lipgloss.Color("220"),
		Disconnected: lipgloss.Color("244"),
		Favorite:     lipgloss.Color("220"),
		Collection:   lipgloss.Color("117"),

		Tags: map[string]lipgloss.Color{
			"red":    lipgloss.Color("203"),
			"orange": lipgloss.Color("209"),
			"yellow": lipgloss.Color("221"),
			"green":  lipgloss.Color("114"),
			"blue":   lipgloss.Color("75"),
			"purple": lipgloss.Color("141"),
		},
	}
}

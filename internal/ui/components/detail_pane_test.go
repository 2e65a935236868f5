package components

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rebeliceyang/lazyweave/internal/models"
	"github.com/rebeliceyang/lazyweave/internal/ui/theme"
)

func TestDetailPane_Hidden(t *testing.T) {
	p := NewDetailPane(theme.DefaultTheme())
	assert.Equal(t, 0, p.Height())
	assert.Empty(t, p.View())

	p.Toggle()
	assert.Equal(t, p.MaxHeight, p.Height())
	assert.Contains(t, p.View(), "No object selected")
}

func TestDetailPane_ShowsProperties(t *testing.T) {
	p := NewDetailPane(theme.DefaultTheme())
	p.Toggle()
	p.SetObject(models.Object{
		ID:          "6f1c",
		Tenant:      "tenantA",
		CreatedUnix: 1700000000000,
		Properties: map[string]any{
			"title": "Hello",
			"tags":  []any{"a", "b"},
		},
	}, true)

	view := p.View()
	assert.Equal(t, "6f1c", p.ObjectID())
	assert.Contains(t, view, "Object 6f1c")
	assert.Contains(t, view, "tenant: tenantA")
	assert.Contains(t, view, "created: 2023-11-14T22:13:20Z")
	assert.Contains(t, view, "title: Hello")
	assert.Contains(t, view, "tags: [")
}

func TestDetailPane_Scroll(t *testing.T) {
	p := NewDetailPane(theme.DefaultTheme())
	p.Toggle()

	nested := make(map[string]any)
	for _, k := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"} {
		nested[k] = k
	}
	p.SetObject(models.Object{ID: "x", Properties: map[string]any{"nested": nested}}, true)

	p.ScrollUp()
	assert.Equal(t, 0, p.scrollY)

	for range 50 {
		p.ScrollDown()
	}
	// 14 lines of JSON, 9 visible
	assert.Equal(t, 5, p.scrollY)

	// Same object keeps the position, a new one resets it
	p.SetObject(models.Object{ID: "x"}, true)
	assert.Equal(t, 5, p.scrollY)
	p.SetObject(models.Object{ID: "y"}, true)
	assert.Equal(t, 0, p.scrollY)
}

func TestWrapText(t *testing.T) {
	assert.Equal(t, []string{"abcd", "ef", "gh"}, wrapText([]string{"abcdef", "gh"}, 4))
	assert.Equal(t, []string{"日本", "語"}, wrapText([]string{"日本語"}, 4))
}

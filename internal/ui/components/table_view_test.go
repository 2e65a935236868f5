package components

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebeliceyang/lazyweave/internal/models"
	"github.com/rebeliceyang/lazyweave/internal/ui/theme"
)

func testObjects(n int) []models.Object {
	objs := make([]models.Object, n)
	for i := range objs {
		objs[i] = models.Object{
			ID: "obj-" + string(rune('a'+i)),
			Properties: map[string]any{
				"title": "Title " + string(rune('A'+i)),
				"body":  strings.Repeat("x", 80),
			},
		}
	}
	return objs
}

func TestTableView_Columns(t *testing.T) {
	tv := NewTableView(theme.DefaultTheme())
	tv.SetObjects(testObjects(3), 20)

	assert.Equal(t, []string{"id", "body", "title"}, tv.Columns)
	require.Len(t, tv.Rows, 3)
	assert.Equal(t, "obj-a", tv.Rows[0][0])
	assert.LessOrEqual(t, len([]rune(tv.Rows[0][1])), 20)
}

func TestTableView_Selection(t *testing.T) {
	tv := NewTableView(theme.DefaultTheme())
	tv.SetObjects(testObjects(5), 20)

	tv.MoveSelection(3)
	obj, ok := tv.SelectedObject()
	require.True(t, ok)
	assert.Equal(t, "obj-d", obj.ID)

	tv.MoveSelection(10)
	assert.Equal(t, 4, tv.SelectedRow)

	// A shorter page clamps the selection
	tv.SetObjects(testObjects(2), 20)
	assert.Equal(t, 1, tv.SelectedRow)

	tv.Reset()
	assert.Equal(t, 0, tv.SelectedRow)

	tv.SetObjects(nil, 20)
	_, ok = tv.SelectedObject()
	assert.False(t, ok)
}

func TestTableView_View(t *testing.T) {
	tv := NewTableView(theme.DefaultTheme())
	tv.Width, tv.Height = 120, 10
	tv.Status = "Page 1 of 3"

	assert.Contains(t, tv.View(), "No objects")

	tv.SetObjects(testObjects(2), 20)
	view := tv.View()
	assert.Contains(t, view, "obj-a")
	assert.Contains(t, view, "Title B")
	assert.Contains(t, view, "Page 1 of 3")
}

func TestTableView_ScrollKeepsSelectionVisible(t *testing.T) {
	tv := NewTableView(theme.DefaultTheme())
	tv.Width, tv.Height = 120, 6
	tv.SetObjects(testObjects(10), 20)
	tv.View()
	require.Equal(t, 3, tv.VisibleRows)

	tv.MoveSelection(5)
	assert.Equal(t, 3, tv.TopRow)

	tv.PageUp()
	assert.Equal(t, 2, tv.SelectedRow)
	assert.Equal(t, 2, tv.TopRow)
}

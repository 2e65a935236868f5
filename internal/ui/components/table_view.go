package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/rebeliceyang/lazyweave/internal/models"
	"github.com/rebeliceyang/lazyweave/internal/props"
	"github.com/rebeliceyang/lazyweave/internal/ui/theme"
)

// TableView displays a page of objects with virtual scrolling
type TableView struct {
	Columns []string
	Rows    [][]string
	Width   int
	Height  int
	Theme   theme.Theme

	// Status is shown below the rows, e.g. the page position
	Status string

	// Virtual scrolling state
	TopRow      int
	VisibleRows int
	SelectedRow int

	// Column widths (calculated)
	ColumnWidths []int

	objects []models.Object
}

// NewTableView creates a new table view
func NewTableView(th theme.Theme) *TableView {
	return &TableView{Theme: th}
}

// SetObjects shows objs, one column per property after the id. Cells are
// cut to maxCell runes. The selection is kept when the row still exists.
func (tv *TableView) SetObjects(objs []models.Object, maxCell int) {
	tv.objects = objs
	cols := props.Columns(objs)
	tv.Columns = append([]string{"id"}, cols...)

	tv.Rows = make([][]string, len(objs))
	for i, obj := range objs {
		row := make([]string, 0, len(tv.Columns))
		row = append(row, obj.ID)
		for _, col := range cols {
			row = append(row, props.Cell(obj, col, maxCell))
		}
		tv.Rows[i] = row
	}

	if tv.SelectedRow >= len(tv.Rows) {
		tv.SelectedRow = max(len(tv.Rows)-1, 0)
	}
	if tv.TopRow > tv.SelectedRow {
		tv.TopRow = tv.SelectedRow
	}
	tv.calculateColumnWidths()
}

// Reset moves the selection back to the first row
func (tv *TableView) Reset() {
	tv.SelectedRow = 0
	tv.TopRow = 0
}

// SelectedObject returns the object under the cursor
func (tv *TableView) SelectedObject() (models.Object, bool) {
	if tv.SelectedRow < 0 || tv.SelectedRow >= len(tv.objects) {
		return models.Object{}, false
	}
	return tv.objects[tv.SelectedRow], true
}

// calculateColumnWidths calculates optimal column widths
func (tv *TableView) calculateColumnWidths() {
	tv.ColumnWidths = make([]int, len(tv.Columns))

	for i, col := range tv.Columns {
		tv.ColumnWidths[i] = runewidth.StringWidth(col)
	}
	for _, row := range tv.Rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > tv.ColumnWidths[i] {
				tv.ColumnWidths[i] = w
			}
		}
	}

	for i := range tv.ColumnWidths {
		tv.ColumnWidths[i] = min(max(tv.ColumnWidths[i], 10), 50)
	}
}

// View renders the table
func (tv *TableView) View() string {
	if len(tv.Rows) == 0 {
		empty := lipgloss.NewStyle().Foreground(tv.Theme.Muted).Italic(true).Render("No objects")
		return empty + "\n" + tv.renderStatus()
	}

	var b strings.Builder

	b.WriteString(tv.renderHeader())
	b.WriteString("\n")
	b.WriteString(tv.renderSeparator())
	b.WriteString("\n")

	// Header + separator + status
	tv.VisibleRows = max(tv.Height-3, 1)

	endRow := min(tv.TopRow+tv.VisibleRows, len(tv.Rows))
	for i := tv.TopRow; i < endRow; i++ {
		b.WriteString(tv.renderRow(tv.Rows[i], i == tv.SelectedRow))
		if i < endRow-1 {
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(tv.renderStatus())

	return lipgloss.NewStyle().MaxWidth(tv.Width).Render(b.String())
}

func (tv *TableView) renderHeader() string {
	var parts []string
	for i, col := range tv.Columns {
		parts = append(parts, pad(col, tv.ColumnWidths[i]))
	}
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(tv.Theme.TableHeader).
		Background(tv.Theme.Selection)
	return headerStyle.Render(" " + strings.Join(parts, " │ ") + " ")
}

func (tv *TableView) renderSeparator() string {
	var parts []string
	for _, width := range tv.ColumnWidths {
		parts = append(parts, strings.Repeat("─", width))
	}
	return lipgloss.NewStyle().
		Foreground(tv.Theme.Border).
		Render("─" + strings.Join(parts, "─┼─") + "─")
}

func (tv *TableView) renderRow(row []string, selected bool) string {
	var parts []string
	for i, cell := range row {
		if i >= len(tv.ColumnWidths) {
			break
		}
		parts = append(parts, pad(cell, tv.ColumnWidths[i]))
	}

	line := " " + strings.Join(parts, " │ ") + " "
	if selected {
		return lipgloss.NewStyle().
			Background(tv.Theme.TableRowSelected).
			Foreground(tv.Theme.Foreground).
			Bold(true).
			Render(line)
	}
	return line
}

func (tv *TableView) renderStatus() string {
	return lipgloss.NewStyle().
		Foreground(tv.Theme.Muted).
		Italic(true).
		Render(" " + tv.Status)
}

func pad(s string, width int) string {
	if runewidth.StringWidth(s) > width {
		return runewidth.Truncate(s, width, "...")
	}
	return runewidth.FillRight(s, width)
}

// MoveSelection moves the selection up or down
func (tv *TableView) MoveSelection(delta int) {
	if len(tv.Rows) == 0 {
		return
	}
	tv.SelectedRow = min(max(tv.SelectedRow+delta, 0), len(tv.Rows)-1)

	if tv.SelectedRow < tv.TopRow {
		tv.TopRow = tv.SelectedRow
	}
	if tv.VisibleRows > 0 && tv.SelectedRow >= tv.TopRow+tv.VisibleRows {
		tv.TopRow = tv.SelectedRow - tv.VisibleRows + 1
	}
}

// PageUp/PageDown
func (tv *TableView) PageUp() {
	tv.MoveSelection(-max(tv.VisibleRows, 1))
}

func (tv *TableView) PageDown() {
	tv.MoveSelection(max(tv.VisibleRows, 1))
}

package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/rebeliceyang/lazyweave/internal/models"
	"github.com/rebeliceyang/lazyweave/internal/props"
	"github.com/rebeliceyang/lazyweave/internal/ui/theme"
)

// DetailPane shows every property of the selected object under the table
type DetailPane struct {
	Width     int
	MaxHeight int
	Visible   bool
	Theme     theme.Theme

	objectID  string
	raw       []string
	lines     []string // raw wrapped to wrappedAt
	wrappedAt int
	scrollY   int
}

func NewDetailPane(th theme.Theme) *DetailPane {
	return &DetailPane{
		Width:     80,
		MaxHeight: 12,
		Theme:     th,
	}
}

func (p *DetailPane) style() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.Theme.Border).
		Padding(0, 1)
}

// SetObject replaces the content. Selecting the same object again keeps
// the scroll position.
func (p *DetailPane) SetObject(obj models.Object, ok bool) {
	if !ok {
		p.objectID, p.raw, p.lines, p.scrollY = "", nil, nil, 0
		return
	}
	if obj.ID == p.objectID && p.raw != nil {
		return
	}
	p.objectID = obj.ID
	p.scrollY = 0
	p.lines = nil

	var raw []string
	if obj.Tenant != "" {
		raw = append(raw, "tenant: "+obj.Tenant)
	}
	if obj.CreatedUnix > 0 {
		raw = append(raw, "created: "+time.UnixMilli(obj.CreatedUnix).UTC().Format(time.RFC3339))
	}
	if obj.UpdatedUnix > 0 {
		raw = append(raw, "updated: "+time.UnixMilli(obj.UpdatedUnix).UTC().Format(time.RFC3339))
	}
	for _, name := range props.Columns([]models.Object{obj}) {
		text, err := props.Format(obj.Properties[name])
		if err != nil {
			text = fmt.Sprintf("%v", obj.Properties[name])
		}
		body := strings.Split(text, "\n")
		raw = append(raw, name+": "+body[0])
		raw = append(raw, body[1:]...)
	}
	p.raw = raw
}

// ObjectID is the id of the object on display
func (p *DetailPane) ObjectID() string {
	return p.objectID
}

func (p *DetailPane) Toggle() {
	p.Visible = !p.Visible
	p.scrollY = 0
}

// Height is the rendered height, zero when hidden
func (p *DetailPane) Height() int {
	if !p.Visible {
		return 0
	}
	return p.MaxHeight
}

func (p *DetailPane) contentWidth() int {
	return max(p.Width-p.style().GetHorizontalFrameSize(), 10)
}

// visibleLines is the number of content lines below the header
func (p *DetailPane) visibleLines() int {
	return max(p.MaxHeight-p.style().GetVerticalFrameSize()-1, 1)
}

func (p *DetailPane) wrapped() []string {
	w := p.contentWidth()
	if p.lines == nil || p.wrappedAt != w {
		p.lines = wrapText(p.raw, w)
		p.wrappedAt = w
	}
	return p.lines
}

func (p *DetailPane) ScrollUp() {
	if p.scrollY > 0 {
		p.scrollY--
	}
}

func (p *DetailPane) ScrollDown() {
	maxScroll := max(len(p.wrapped())-p.visibleLines(), 0)
	if p.scrollY < maxScroll {
		p.scrollY++
	}
}

// wrapText breaks lines wider than width at rune boundaries
func wrapText(lines []string, width int) []string {
	var out []string
	for _, line := range lines {
		if runewidth.StringWidth(line) <= width {
			out = append(out, line)
			continue
		}
		var cur strings.Builder
		curWidth := 0
		for _, r := range line {
			rw := runewidth.RuneWidth(r)
			if curWidth+rw > width {
				out = append(out, cur.String())
				cur.Reset()
				curWidth = 0
			}
			cur.WriteRune(r)
			curWidth += rw
		}
		if cur.Len() > 0 {
			out = append(out, cur.String())
		}
	}
	return out
}

func (p *DetailPane) View() string {
	if !p.Visible {
		return ""
	}

	titleStyle := lipgloss.NewStyle().Foreground(p.Theme.Info).Bold(true)
	header := "Object"
	if p.objectID != "" {
		header = "Object " + p.objectID
	}
	header = titleStyle.Render(runewidth.Truncate(header, p.contentWidth(), "..."))

	parts := []string{header}
	lines := p.wrapped()
	if len(lines) == 0 {
		parts = append(parts, lipgloss.NewStyle().Foreground(p.Theme.Muted).Render("No object selected"))
	}
	end := min(p.scrollY+p.visibleLines(), len(lines))
	text := lipgloss.NewStyle().Foreground(p.Theme.Foreground)
	for _, line := range lines[min(p.scrollY, end):end] {
		parts = append(parts, text.Render(line))
	}

	inner := max(p.MaxHeight-p.style().GetVerticalFrameSize(), 2)
	return p.style().
		Width(p.Width - p.style().GetHorizontalBorderSize()).
		Height(inner).
		MaxHeight(p.MaxHeight).
		Render(strings.Join(parts, "\n"))
}

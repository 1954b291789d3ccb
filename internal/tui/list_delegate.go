package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

// rowDelegate renders one row per entity: title on the left, meta muted on
// the right, cut to the pane width.
type rowDelegate struct {
	normal   lipgloss.Style
	selected lipgloss.Style
}

func newRowDelegate() rowDelegate {
	return rowDelegate{
		normal: lipgloss.NewStyle(),
		selected: lipgloss.NewStyle().
			Foreground(colorSelectedFg).
			Background(colorSelectedBg).
			Bold(true),
	}
}

func (d rowDelegate) Height() int                             { return 1 }
func (d rowDelegate) Spacing() int                            { return 0 }
func (d rowDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d rowDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	contentW := m.Width()
	if contentW < 4 {
		return
	}
	r, ok := item.(row)
	if !ok {
		return
	}

	style := d.normal
	if index == m.Index() {
		style = d.selected
	}

	title := r.title
	if strings.TrimSpace(title) == "" {
		title = r.id.String()
	}
	line := " " + title
	if r.meta != "" {
		meta := "  " + r.meta + " "
		if xansi.StringWidth(line)+xansi.StringWidth(meta) <= contentW {
			gap := contentW - xansi.StringWidth(line) - xansi.StringWidth(meta)
			line += strings.Repeat(" ", gap) + styleMuted().Render(meta)
		}
	}
	line = truncate(line, contentW)
	if lw := xansi.StringWidth(line); lw < contentW {
		line += strings.Repeat(" ", contentW-lw)
	}
	fmt.Fprint(w, style.Render(line))
}

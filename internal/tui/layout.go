package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

// normalizePane forces s to be exactly width columns wide (ANSI-aware) and
// height lines tall, so lipgloss.JoinHorizontal keeps split panes aligned.
func normalizePane(s string, width, height int) string {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}

	lines := strings.Split(s, "\n")
	if height > 0 {
		if len(lines) > height {
			lines = lines[:height]
		}
		for len(lines) < height {
			lines = append(lines, "")
		}
	}

	for i, ln := range lines {
		// Bound the width computation on huge lines.
		if width > 0 && len(ln) > 8192 {
			ln = xansi.Cut(ln, 0, width)
		}
		ln = truncate(ln, width)
		if w := xansi.StringWidth(ln); w < width {
			ln += strings.Repeat(" ", width-w)
		}
		lines[i] = ln
	}
	return strings.Join(lines, "\n")
}

// truncate cuts s to width columns, marking the cut with an ellipsis.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if xansi.StringWidth(s) <= width {
		return s
	}
	return xansi.Truncate(s, width, "…")
}

func modalWidth(screenW int) int {
	w := screenW - 8
	if w > 72 {
		w = 72
	}
	if w < 24 {
		w = 24
	}
	return w
}

// modalBodyWidth is the usable text width inside a modal of the given screen
// width (border plus padding removed).
func modalBodyWidth(screenW int) int {
	return modalWidth(screenW) - 4
}

func renderModalBox(screenW int, title, content string) string {
	w := modalWidth(screenW)
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorSurfaceFg).
		Width(w - 4).
		Render(title)
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorModalBorder).
		Padding(0, 1).
		Width(w - 2)
	return box.Render(header + "\n\n" + content)
}

// placeCenter centers a modal over the screen. The background is replaced,
// not blended.
func placeCenter(w, h int, s string) string {
	return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, s)
}

package tui

import (
	"strings"

	"gigdesk/internal/workspace"

	"github.com/charmbracelet/lipgloss"
)

func (m appModel) View() string {
	p := m.panel()
	st := p.Status()

	header := m.viewHeader(st)
	banner := m.viewBanner(st)
	footer := m.viewFooter(st)

	var body string
	switch c := p.Confirm(); {
	case m.form != nil:
		body = placeCenter(m.width, m.bodyHeight(), m.form.view(m.width))
	case c.Open:
		body = placeCenter(m.width, m.bodyHeight(), renderConfirmModal(m.width, c.Title, c.Message, "Confirm", "Cancel", m.confirmFocus))
	default:
		body = m.viewPanes(st)
	}
	return strings.Join([]string{header, banner, body, footer}, "\n")
}

func (m appModel) viewHeader(st panelStatus) string {
	var tabs []string
	for i, p := range m.panels {
		tabs = append(tabs, styleTab(i == m.active).Render(p.Name()))
	}
	left := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	right := st.summary
	if st.readOnly {
		right = strings.TrimSpace(right + "  [read only]")
	}
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 1
	if gap < 1 {
		return truncate(left+" "+styleMuted().Render(right), m.width)
	}
	return left + strings.Repeat(" ", gap) + styleMuted().Render(right)
}

// viewBanner shows the current feedback, else the load error, else nothing.
func (m appModel) viewBanner(st panelStatus) string {
	bannerStyle := lipgloss.NewStyle().Foreground(colorBannerFg).Padding(0, 1)
	switch {
	case st.feedback != nil && st.feedback.Tone == workspace.ToneError:
		return truncate(bannerStyle.Background(colorErrorBg).Render(st.feedback.Message), m.width)
	case st.feedback != nil:
		return truncate(bannerStyle.Background(colorSuccessBg).Render(st.feedback.Message), m.width)
	case st.err != "":
		return truncate(bannerStyle.Background(colorErrorBg).Render(st.err), m.width)
	}
	return ""
}

func (m appModel) viewPanes(st panelStatus) string {
	h := m.bodyHeight()
	var listView string
	switch {
	case len(m.list.Items()) == 0 && st.loading:
		listView = styleMuted().Render(" loading…")
	case len(m.list.Items()) == 0:
		listView = styleMuted().Render(" nothing here yet (n: new)")
	default:
		listView = m.list.View()
	}
	left := normalizePane(listView, m.listWidth(), h)

	detail := renderMarkdown(m.panel().Detail(), m.detailWidth()-2)
	right := normalizePane(detail, m.detailWidth(), h)

	sep := lipgloss.NewStyle().Foreground(colorMuted).Render(strings.TrimRight(strings.Repeat("│\n", h), "\n"))
	return lipgloss.JoinHorizontal(lipgloss.Top, left, sep, right)
}

func (m appModel) viewFooter(st panelStatus) string {
	keys := []string{"n new", "e edit", "d " + m.panel().DeleteHelp()}
	for _, a := range m.panel().Actions() {
		keys = append(keys, a.key+" "+a.help)
	}
	keys = append(keys, "r reload", "tab switch", "q quit")
	help := styleMuted().Render(strings.Join(keys, "  "))

	if st.loading || st.busy || m.working > 0 {
		status := m.spinner.View() + " "
		if len(st.pending) > 0 {
			status += strings.Join(st.pending, ", ")
		} else {
			status += "loading"
		}
		return truncate(status+"  "+help, m.width)
	}
	return truncate(help, m.width)
}

package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gigdesk/internal/events"
	"gigdesk/internal/mentoring"
	"gigdesk/internal/wallet"
	"gigdesk/internal/workspace"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Domains lists the workspaces in tab order.
var Domains = []string{"events", "wallet", "mentoring"}

type appModel struct {
	ctx    context.Context
	panels []panel
	loaded []bool
	active int

	width  int
	height int

	list    list.Model
	spinner spinner.Model
	// working counts commands still running; the spinner ticks while > 0.
	working  int
	spinning bool

	form         *formModel
	formPanel    int
	confirmFocus confirmModalFocus

	initCmd  tea.Cmd
	flashTTL time.Duration
}

func newAppModel(ctx context.Context, opts Options) (appModel, error) {
	if opts.Client == nil {
		return appModel{}, fmt.Errorf("tui: missing API client")
	}
	domain := strings.TrimSpace(opts.Domain)
	if domain == "" {
		domain = Domains[0]
	}
	active := -1
	for i, d := range Domains {
		if d == domain {
			active = i
		}
	}
	if active < 0 {
		return appModel{}, fmt.Errorf("tui: unknown domain %q (want %s)", domain, strings.Join(Domains, "|"))
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cfg := func(name string) workspace.Config {
		return workspace.Config{Name: name, Owner: opts.Owner, Logger: logger.With("workspace", name), AutoSelect: true}
	}

	m := appModel{
		ctx: ctx,
		panels: []panel{
			newEventsPanel(events.New(events.NewService(opts.Client), cfg("events"))),
			newWalletPanel(wallet.New(wallet.NewService(opts.Client), cfg("wallet"))),
			newMentoringPanel(mentoring.New(mentoring.NewService(opts.Client), cfg("mentoring"))),
		},
		active:   active,
		width:    100,
		height:   30,
		flashTTL: feedbackTTL,
	}
	m.loaded = make([]bool, len(m.panels))

	m.list = list.New(nil, newRowDelegate(), 0, 0)
	m.list.SetFilteringEnabled(false)
	m.list.SetShowFilter(false)
	m.list.SetShowHelp(false)
	m.list.SetShowStatusBar(false)
	m.list.SetShowPagination(false)
	m.list.SetShowTitle(false)
	m.list.DisableQuitKeybindings()

	m.spinner = spinner.New(spinner.WithSpinner(spinner.Dot))
	m.resize()
	m.initCmd = m.loadCmd(active)
	return m, nil
}

func (m appModel) panel() panel { return m.panels[m.active] }

func (m *appModel) close() {
	for _, p := range m.panels {
		p.Close()
	}
}

// Pane geometry: header, banner and footer take one line each plus a gap.
func (m appModel) bodyHeight() int {
	h := m.height - 5
	if h < 3 {
		h = 3
	}
	return h
}

func (m appModel) listWidth() int {
	w := m.width * 2 / 5
	if w < 24 {
		w = 24
	}
	return w
}

func (m appModel) detailWidth() int {
	w := m.width - m.listWidth() - 1
	if w < 10 {
		w = 10
	}
	return w
}

func (m *appModel) resize() {
	m.list.SetSize(m.listWidth(), m.bodyHeight())
}

// syncList rebuilds the list from the active panel and moves the cursor to
// the controller's selection. With no selection the first row is selected.
func (m *appModel) syncList() {
	p := m.panel()
	rows := p.Rows()
	items := make([]list.Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, r)
	}
	m.list.SetItems(items)
	if len(rows) == 0 {
		return
	}
	sel := p.SelectedID()
	idx := 0
	for i, r := range rows {
		if r.id == sel {
			idx = i
			break
		}
	}
	m.list.Select(idx)
	if sel == "" || rows[idx].id != sel {
		p.Select(rows[idx].id)
	}
}

// selectCursor pushes the list cursor into the controller selection.
func (m *appModel) selectCursor() {
	if r, ok := m.list.SelectedItem().(row); ok {
		m.panel().Select(r.id)
	}
}

func (m *appModel) startWork() tea.Cmd {
	m.working++
	if m.spinning {
		return nil
	}
	m.spinning = true
	return m.spinner.Tick
}

// busy reports work in flight, counting commands not yet picked up by the
// controller.
func (m appModel) busy() bool {
	return m.working > 0 || m.panel().Status().busy
}

func (m *appModel) endWork() {
	if m.working > 0 {
		m.working--
	}
}

func (m *appModel) loadCmd(i int) tea.Cmd {
	m.loaded[i] = true
	p := m.panels[i]
	ctx := m.ctx
	return tea.Batch(m.startWork(), func() tea.Msg {
		return loadDoneMsg{panel: i, err: p.Load(ctx)}
	})
}

// flashCmd arms the dismiss timer for the panel's current banner.
func (m appModel) flashCmd(i int) tea.Cmd {
	fb := m.panels[i].Status().feedback
	if fb == nil {
		return nil
	}
	seq := fb.Seq
	return tea.Tick(m.flashTTL, func(time.Time) tea.Msg { return flashDoneMsg{panel: i, seq: seq} })
}

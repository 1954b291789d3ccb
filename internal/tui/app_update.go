package tui

import (
	"gigdesk/internal/workspace"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

func (m appModel) Init() tea.Cmd { return m.initCmd }

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case spinner.TickMsg:
		if m.working == 0 {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case loadDoneMsg:
		m.endWork()
		if msg.panel == m.active {
			m.syncList()
		}
		// Load failures are already in the controller's Error.
		return m, nil

	case formDoneMsg:
		m.endWork()
		if m.form != nil && m.formPanel == msg.panel {
			if msg.err != nil {
				m.form.saving = false
				m.form.err = workspace.Message(msg.err)
			} else {
				m.form = nil
			}
		}
		if msg.panel == m.active {
			m.syncList()
		}
		return m, m.flashCmd(msg.panel)

	case actionDoneMsg, confirmDoneMsg:
		m.endWork()
		i := panelOf(msg)
		if i == m.active {
			m.syncList()
		}
		return m, m.flashCmd(i)

	case flashDoneMsg:
		m.panels[msg.panel].DismissFeedback(msg.seq)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.close()
			return m, tea.Quit
		}
		switch {
		case m.form != nil:
			return m.updateForm(msg)
		case m.panel().Confirm().Open:
			return m.updateConfirm(msg)
		default:
			return m.updateList(msg)
		}
	}
	return m, nil
}

func panelOf(msg tea.Msg) int {
	switch msg := msg.(type) {
	case actionDoneMsg:
		return msg.panel
	case confirmDoneMsg:
		return msg.panel
	}
	return 0
}

func (m appModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := m.panel()
	switch key := msg.String(); key {
	case "q":
		m.close()
		return m, tea.Quit
	case "tab":
		return m.switchTo((m.active + 1) % len(m.panels))
	case "shift+tab":
		return m.switchTo((m.active + len(m.panels) - 1) % len(m.panels))
	case "1", "2", "3":
		return m.switchTo(int(key[0] - '1'))
	case "r":
		cmd := m.loadCmd(m.active)
		return m, cmd
	case "n":
		if m.busy() {
			return m, nil
		}
		spec, err := p.CreateForm()
		return m.openForm(spec, err)
	case "e":
		if m.busy() {
			return m, nil
		}
		spec, err := p.EditForm()
		return m.openForm(spec, err)
	case "esc":
		p.DismissFeedback(0)
		p.ClearError()
		return m, nil
	case "d":
		if m.busy() {
			return m, nil
		}
		if err := p.RequestDelete(); err != nil {
			return m, m.flashCmd(m.active)
		}
		m.confirmFocus = confirmFocusCancel
		return m, nil
	}

	for _, a := range p.Actions() {
		if a.key != msg.String() {
			continue
		}
		if m.busy() {
			return m, nil
		}
		sel := p.SelectedID()
		switch {
		case a.form != nil:
			spec, err := a.form(sel)
			return m.openForm(spec, err)
		case a.prompt != nil:
			if err := a.prompt(sel); err != nil {
				return m, m.flashCmd(m.active)
			}
			m.confirmFocus = confirmFocusCancel
			return m, nil
		case a.run != nil:
			i, ctx, run := m.active, m.ctx, a.run
			cmd := tea.Batch(m.startWork(), func() tea.Msg {
				return actionDoneMsg{panel: i, err: run(ctx, sel)}
			})
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	m.selectCursor()
	return m, cmd
}

func (m appModel) switchTo(i int) (tea.Model, tea.Cmd) {
	if i < 0 || i >= len(m.panels) || i == m.active {
		return m, nil
	}
	m.active = i
	m.syncList()
	if !m.loaded[i] {
		cmd := m.loadCmd(i)
		return m, cmd
	}
	return m, nil
}

func (m appModel) openForm(spec *formSpec, err error) (tea.Model, tea.Cmd) {
	if err != nil || spec == nil {
		return m, m.flashCmd(m.active)
	}
	f := newFormModel(spec, m.width)
	m.form = &f
	m.formPanel = m.active
	return m, nil
}

func (m appModel) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.form.saving {
		return m, nil
	}
	if msg.String() == "esc" {
		if m.form.spec.cancel != nil {
			m.form.spec.cancel()
		}
		m.form = nil
		return m, nil
	}
	cmd, submit := m.form.update(msg)
	if !submit {
		return m, cmd
	}
	m.form.saving = true
	m.form.err = ""
	i, ctx, spec, vals := m.formPanel, m.ctx, m.form.spec, m.form.values()
	cmd = tea.Batch(m.startWork(), func() tea.Msg {
		return formDoneMsg{panel: i, err: spec.submit(ctx, vals)}
	})
	return m, cmd
}

func (m appModel) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := m.panel()
	confirm := func() (tea.Model, tea.Cmd) {
		if m.busy() {
			return m, nil
		}
		i, ctx := m.active, m.ctx
		cmd := tea.Batch(m.startWork(), func() tea.Msg {
			return confirmDoneMsg{panel: i, err: p.ConfirmAction(ctx)}
		})
		return m, cmd
	}
	switch msg.String() {
	case "tab", "shift+tab", "left", "right", "h", "l":
		m.confirmFocus = m.confirmFocus.toggle()
	case "y":
		return confirm()
	case "n", "esc", "ctrl+g":
		p.CloseConfirm()
	case "enter":
		if m.confirmFocus == confirmFocusConfirm {
			return confirm()
		}
		p.CloseConfirm()
	}
	return m, nil
}

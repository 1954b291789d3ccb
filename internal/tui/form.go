package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// formModel is the editable state of an open formSpec.
type formModel struct {
	spec   *formSpec
	inputs []textinput.Model
	focus  int
	err    string
	saving bool
}

func newFormModel(spec *formSpec, width int) formModel {
	f := formModel{spec: spec}
	w := modalBodyWidth(width) - labelWidth(spec.fields) - 2
	if w < 10 {
		w = 10
	}
	for i, fs := range spec.fields {
		in := textinput.New()
		in.Prompt = ""
		in.Placeholder = fs.placeholder
		in.CharLimit = 500
		in.Width = w
		in.SetValue(fs.value)
		if i == 0 {
			in.Focus()
		}
		f.inputs = append(f.inputs, in)
	}
	return f
}

func labelWidth(fields []fieldSpec) int {
	n := 0
	for _, fs := range fields {
		if len(fs.label) > n {
			n = len(fs.label)
		}
	}
	return n
}

func (f formModel) values() map[string]string {
	out := make(map[string]string, len(f.inputs))
	for i, in := range f.inputs {
		out[f.spec.fields[i].key] = in.Value()
	}
	return out
}

func (f *formModel) setFocus(i int) {
	if len(f.inputs) == 0 {
		return
	}
	i = (i + len(f.inputs)) % len(f.inputs)
	f.inputs[f.focus].Blur()
	f.focus = i
	f.inputs[f.focus].Focus()
}

// update handles navigation keys and forwards the rest to the focused input.
// It reports submit when the user asked to save.
func (f *formModel) update(msg tea.KeyMsg) (cmd tea.Cmd, submit bool) {
	switch msg.String() {
	case "tab", "down":
		f.setFocus(f.focus + 1)
		return nil, false
	case "shift+tab", "up":
		f.setFocus(f.focus - 1)
		return nil, false
	case "ctrl+s":
		return nil, true
	case "enter":
		if f.focus == len(f.inputs)-1 {
			return nil, true
		}
		f.setFocus(f.focus + 1)
		return nil, false
	}
	if len(f.inputs) == 0 {
		return nil, false
	}
	var c tea.Cmd
	f.inputs[f.focus], c = f.inputs[f.focus].Update(msg)
	return c, false
}

func (f formModel) view(width int) string {
	lw := labelWidth(f.spec.fields)
	label := lipgloss.NewStyle().Width(lw + 2).Foreground(colorChromeFg)
	focused := label.Foreground(colorAccent).Bold(true)

	var lines []string
	for i, in := range f.inputs {
		st := label
		if i == f.focus {
			st = focused
		}
		lines = append(lines, st.Render(f.spec.fields[i].label)+in.View())
	}
	if f.err != "" {
		lines = append(lines, "", lipgloss.NewStyle().Foreground(colorErrorBg).Render(f.err))
	}
	help := "tab: next   enter/ctrl+s: save   esc: cancel"
	if f.saving {
		help = "saving…"
	}
	lines = append(lines, "", styleMuted().Width(modalBodyWidth(width)).Render(help))
	return renderModalBox(width, f.spec.title, strings.Join(lines, "\n"))
}

package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gigdesk/internal/model"
	"gigdesk/internal/workspace"
)

// row is one line of the list pane.
type row struct {
	id    model.ID
	title string
	meta  string
}

func (r row) FilterValue() string { return r.title }
func (r row) Title() string       { return r.title }

type fieldSpec struct {
	key         string
	label       string
	value       string
	placeholder string
}

// formSpec is a modal form. submit runs off the UI goroutine; a nil error
// closes the form, anything else keeps it open with the message shown.
type formSpec struct {
	title  string
	fields []fieldSpec
	submit func(ctx context.Context, vals map[string]string) error
	cancel func()
}

// action is a domain key bound to the selected entity. Exactly one of form,
// run and prompt is set: form collects input first, run mutates directly,
// prompt opens the confirmation dialog.
type action struct {
	key    string
	help   string
	form   func(sel model.ID) (*formSpec, error)
	run    func(ctx context.Context, sel model.ID) error
	prompt func(sel model.ID) error
}

type panelStatus struct {
	loading  bool
	busy     bool
	pending  []string
	err      string
	feedback *workspace.Feedback
	summary  string
	readOnly bool
}

// panel adapts one workspace controller to the shared shell.
type panel interface {
	Name() string
	Load(ctx context.Context) error
	Close()
	Status() panelStatus
	Rows() []row
	Select(id model.ID) bool
	SelectedID() model.ID
	Detail() string
	CreateForm() (*formSpec, error)
	EditForm() (*formSpec, error)
	DeleteHelp() string
	RequestDelete() error
	Confirm() workspace.Confirm
	ConfirmAction(ctx context.Context) error
	CloseConfirm()
	DismissFeedback(seq uint64)
	ClearError()
	Actions() []action
}

// domainPanel implements panel for any controller. Domains supply the
// rendering and form plumbing.
type domainPanel[E workspace.Entity] struct {
	name       string
	noun       string
	ctl        *workspace.Controller[E]
	load       func(ctx context.Context) error
	row        func(E) row
	detail     func(E) string
	summary    func(*workspace.Snapshot[E]) string
	fields     func(initial *E) []fieldSpec
	submit     func(ctx context.Context, vals map[string]string) error
	deleteHelp string
	del        func(E)
	actions    []action
	pending    func() string
}

func (p *domainPanel[E]) Name() string                   { return p.name }
func (p *domainPanel[E]) Load(ctx context.Context) error { return p.load(ctx) }
func (p *domainPanel[E]) Close()                         { p.ctl.Close() }

func (p *domainPanel[E]) Status() panelStatus {
	st := p.ctl.State()
	out := panelStatus{
		loading:  st.Loading,
		busy:     st.Busy,
		err:      st.Error,
		feedback: st.Feedback,
		readOnly: !p.ctl.Can(workspace.PermManage),
	}
	for _, pd := range st.Pending {
		out.pending = append(out.pending, pd.Label)
	}
	if p.pending != nil {
		if name := p.pending(); name != "" {
			out.busy = true
			out.pending = append(out.pending, name)
		}
	}
	if p.summary != nil && st.Snapshot != nil {
		out.summary = p.summary(st.Snapshot)
	}
	return out
}

func (p *domainPanel[E]) Rows() []row {
	ents := p.ctl.Entities()
	out := make([]row, 0, len(ents))
	for _, e := range ents {
		out = append(out, p.row(e))
	}
	return out
}

func (p *domainPanel[E]) Select(id model.ID) bool { return p.ctl.Select(id) }

func (p *domainPanel[E]) SelectedID() model.ID {
	sel, ok := p.ctl.Selected()
	if !ok {
		return ""
	}
	return sel.EntityID()
}

func (p *domainPanel[E]) Detail() string {
	sel, ok := p.ctl.Selected()
	if !ok {
		return ""
	}
	return p.detail(sel)
}

func (p *domainPanel[E]) CreateForm() (*formSpec, error) {
	if err := p.ctl.Require(workspace.PermManage); err != nil {
		return nil, err
	}
	p.ctl.OpenCreateWizard(nil)
	return p.wizardForm("New "+p.noun, nil), nil
}

func (p *domainPanel[E]) EditForm() (*formSpec, error) {
	if err := p.ctl.Require(workspace.PermManage); err != nil {
		return nil, err
	}
	sel, ok := p.ctl.Selected()
	if !ok {
		return nil, p.ctl.Reject(workspace.ErrNoSelection)
	}
	p.ctl.OpenEditWizard(&sel)
	return p.wizardForm("Edit "+p.noun, &sel), nil
}

func (p *domainPanel[E]) wizardForm(title string, initial *E) *formSpec {
	return &formSpec{
		title:  title,
		fields: p.fields(initial),
		submit: p.submit,
		cancel: p.ctl.CloseWizard,
	}
}

func (p *domainPanel[E]) DeleteHelp() string {
	if p.deleteHelp == "" {
		return "delete"
	}
	return p.deleteHelp
}

func (p *domainPanel[E]) RequestDelete() error {
	sel, ok := p.ctl.Selected()
	if !ok {
		return p.ctl.Reject(workspace.ErrNoSelection)
	}
	p.del(sel)
	return nil
}

func (p *domainPanel[E]) Confirm() workspace.Confirm              { return p.ctl.Confirm() }
func (p *domainPanel[E]) ConfirmAction(ctx context.Context) error { return p.ctl.ConfirmAction(ctx) }
func (p *domainPanel[E]) CloseConfirm()                           { p.ctl.CloseConfirm() }
func (p *domainPanel[E]) DismissFeedback(seq uint64)              { p.ctl.DismissFeedback(seq) }
func (p *domainPanel[E]) ClearError()                             { p.ctl.ClearError() }
func (p *domainPanel[E]) Actions() []action                       { return p.actions }

// Form value helpers. Parse failures surface as validation errors on the
// field, like any other rejected input.

func formInt(vals map[string]string, key string) (int, error) {
	s := strings.TrimSpace(vals[key])
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, workspace.Invalid(key, "must be a whole number")
	}
	return n, nil
}

func formAmount(vals map[string]string, key string) (int64, error) {
	s := strings.TrimSpace(vals[key])
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, workspace.Invalid(key, "must be a whole number of minor units")
	}
	return n, nil
}

var formTimeLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

func formTime(vals map[string]string, key string) (*time.Time, error) {
	s := strings.TrimSpace(vals[key])
	if s == "" {
		return nil, nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		u := ts.UTC()
		return &u, nil
	}
	for _, layout := range formTimeLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			u := ts.UTC()
			return &u, nil
		}
	}
	return nil, workspace.Invalid(key, "expected YYYY-MM-DD [HH:MM]")
}

func showTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}

func showMoney(amount int64, currency string) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	s := fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
	if currency != "" {
		s = currency + " " + s
	}
	return s
}

func overviewInt(ov map[string]any, key string) int64 {
	switch v := ov[key].(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	case interface{ Int64() (int64, error) }:
		n, _ := v.Int64()
		return n
	}
	return 0
}

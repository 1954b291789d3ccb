package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	"gigdesk/internal/devserver"
	"gigdesk/internal/devserver/devtest"
	"gigdesk/internal/model"
	"gigdesk/internal/workspace"

	tea "github.com/charmbracelet/bubbletea"
)

func newTestApp(t *testing.T, cfg devserver.Config, domain string) appModel {
	t.Helper()
	b := devtest.Start(t, cfg)
	if err := b.Store.Seed(context.Background(), "u1"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	m, err := newAppModel(context.Background(), Options{Client: b.Client, Owner: "u1", Domain: domain})
	if err != nil {
		t.Fatalf("newAppModel: %v", err)
	}
	t.Cleanup(m.close)
	m.flashTTL = time.Millisecond
	return runCmd(t, m, m.Init())
}

// runCmd executes cmd synchronously and feeds completion messages back into
// the model. Timers and spinner ticks are dropped.
func runCmd(t *testing.T, m appModel, cmd tea.Cmd) appModel {
	t.Helper()
	if cmd == nil {
		return m
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			m = runCmd(t, m, c)
		}
	case loadDoneMsg, formDoneMsg, actionDoneMsg, confirmDoneMsg:
		next, _ := m.Update(msg)
		m = next.(appModel)
	}
	return m
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func press(t *testing.T, m appModel, keys ...string) appModel {
	t.Helper()
	for _, k := range keys {
		next, cmd := m.Update(keyMsg(k))
		m = runCmd(t, next.(appModel), cmd)
	}
	return m
}

func rowTitles(m appModel) []string {
	var out []string
	for _, r := range m.panel().Rows() {
		out = append(out, r.title)
	}
	return out
}

func rowID(t *testing.T, m appModel, title string) model.ID {
	t.Helper()
	for _, r := range m.panel().Rows() {
		if r.title == title {
			return r.id
		}
	}
	t.Fatalf("no row %q in %v", title, rowTitles(m))
	return ""
}

func setForm(t *testing.T, m appModel, vals map[string]string) {
	t.Helper()
	if m.form == nil {
		t.Fatalf("expected an open form")
	}
	for k, v := range vals {
		found := false
		for i, fs := range m.form.spec.fields {
			if fs.key == k {
				m.form.inputs[i].SetValue(v)
				found = true
			}
		}
		if !found {
			t.Fatalf("form %q has no field %q", m.form.spec.title, k)
		}
	}
}

func TestAppLoadsStartingDomainAndSelectsFirstRow(t *testing.T) {
	m := newTestApp(t, devserver.Config{}, "events")

	if got := rowTitles(m); len(got) != 1 || got[0] != "Portfolio launch" {
		t.Fatalf("rows = %v", got)
	}
	if m.panel().SelectedID().IsZero() {
		t.Fatalf("expected the first row to be selected")
	}
	if !strings.Contains(m.panel().Detail(), "Send invitations") {
		t.Fatalf("detail missing task list:\n%s", m.panel().Detail())
	}
	if m.working != 0 {
		t.Fatalf("working = %d after load", m.working)
	}

	view := m.View()
	for _, want := range []string{"events", "wallet", "mentoring", "Portfolio launch", "1 events"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestNewAppModel_RejectsUnknownDomain(t *testing.T) {
	b := devtest.Start(t, devserver.Config{})
	if _, err := newAppModel(context.Background(), Options{Client: b.Client, Owner: "u1", Domain: "crm"}); err == nil {
		t.Fatalf("expected error for unknown domain")
	}
	if _, err := newAppModel(context.Background(), Options{Owner: "u1"}); err == nil {
		t.Fatalf("expected error without a client")
	}
}

func TestCreateEventThroughWizard(t *testing.T) {
	m := newTestApp(t, devserver.Config{}, "events")

	m = press(t, m, "n")
	if m.form == nil || m.form.spec.title != "New event" {
		t.Fatalf("expected create form, got %+v", m.form)
	}
	setForm(t, m, map[string]string{"title": "Demo night", "venue": "Loft", "capacity": "25"})
	m = press(t, m, "ctrl+s")

	if m.form != nil {
		t.Fatalf("form should close after a successful save; err=%q", m.form.err)
	}
	id := rowID(t, m, "Demo night")
	ev, ok := m.panels[0].(*domainPanel[model.Event]).ctl.Find(id)
	if !ok || ev.Venue != "Loft" || ev.Capacity != 25 {
		t.Fatalf("created event = %+v", ev)
	}
	if fb := m.panel().Status().feedback; fb == nil || fb.Message != "Event created" {
		t.Fatalf("feedback = %+v", fb)
	}
	if !strings.Contains(m.View(), "Event created") {
		t.Fatalf("banner not rendered")
	}
}

func TestWizardStaysOpenOnInvalidInput(t *testing.T) {
	m := newTestApp(t, devserver.Config{}, "events")
	ctl := m.panels[0].(*domainPanel[model.Event]).ctl

	m = press(t, m, "e")
	if m.form == nil || !ctl.Wizard().Open || ctl.Wizard().Mode != workspace.WizardEdit {
		t.Fatalf("expected edit wizard open")
	}
	setForm(t, m, map[string]string{"title": "  "})
	m = press(t, m, "ctrl+s")
	if m.form == nil {
		t.Fatalf("form closed on a rejected save")
	}
	if m.form.err != "title: is required" {
		t.Fatalf("form err = %q", m.form.err)
	}

	setForm(t, m, map[string]string{"title": "Launch", "startsAt": "tomorrow"})
	m = press(t, m, "ctrl+s")
	if m.form == nil || !strings.HasPrefix(m.form.err, "startsAt:") {
		t.Fatalf("expected a date parse error, got %+v", m.form)
	}

	m = press(t, m, "esc")
	if m.form != nil || ctl.Wizard().Open {
		t.Fatalf("esc should close the form and the wizard")
	}
	if got := rowTitles(m); got[0] != "Portfolio launch" {
		t.Fatalf("rejected edits must not change the snapshot: %v", got)
	}
}

func TestDeleteAsksForConfirmation(t *testing.T) {
	m := newTestApp(t, devserver.Config{}, "events")

	m = press(t, m, "d")
	if !m.panel().Confirm().Open {
		t.Fatalf("expected confirm dialog")
	}
	if !strings.Contains(m.View(), "Confirm") {
		t.Fatalf("confirm modal not rendered")
	}
	// Focus starts on Cancel.
	m = press(t, m, "enter")
	if m.panel().Confirm().Open || len(m.panel().Rows()) != 1 {
		t.Fatalf("cancel should close without deleting")
	}

	m = press(t, m, "d", "y")
	if m.panel().Confirm().Open {
		t.Fatalf("dialog should close after a successful delete")
	}
	if n := len(m.panel().Rows()); n != 0 {
		t.Fatalf("rows after delete = %d", n)
	}
	if !m.panel().SelectedID().IsZero() {
		t.Fatalf("selection should clear with the deleted row")
	}
}

func TestConfirmIgnoresRepeatWhileDeleteRuns(t *testing.T) {
	m := newTestApp(t, devserver.Config{}, "events")
	m = press(t, m, "d")

	next, first := m.Update(keyMsg("y"))
	m = next.(appModel)
	if first == nil || m.working != 1 {
		t.Fatalf("first y should start the delete, working = %d", m.working)
	}
	next, second := m.Update(keyMsg("y"))
	m = next.(appModel)
	if second != nil || m.working != 1 {
		t.Fatalf("second y should be ignored while the delete runs, working = %d", m.working)
	}
	// Other mutating keys are ignored too.
	for _, k := range []string{"n", "d", "a"} {
		next, cmd := m.updateList(keyMsg(k))
		if cmd != nil || next.(appModel).form != nil {
			t.Fatalf("%q should be a no-op while busy", k)
		}
	}

	m = runCmd(t, m, first)
	if m.panel().Confirm().Open || len(m.panel().Rows()) != 0 {
		t.Fatalf("delete should finish and close the dialog")
	}
	if fb := m.panel().Status().feedback; fb == nil || fb.Tone != workspace.ToneSuccess {
		t.Fatalf("feedback = %+v", fb)
	}
	if m.busy() {
		t.Fatalf("still busy after the delete resolved")
	}
}

func TestEventActions_AddTaskAndFinish(t *testing.T) {
	m := newTestApp(t, devserver.Config{}, "events")
	id := m.panel().SelectedID()
	ctl := m.panels[0].(*domainPanel[model.Event]).ctl

	m = press(t, m, "a")
	setForm(t, m, map[string]string{"title": "Print flyers"})
	m = press(t, m, "ctrl+s")
	if m.form != nil {
		t.Fatalf("add task failed: %q", m.form.err)
	}
	ev, _ := ctl.Find(id)
	if len(ev.Tasks) != 3 {
		t.Fatalf("tasks = %+v", ev.Tasks)
	}

	// Two open tasks: finish both, then the action reports nothing left.
	m = press(t, m, "x", "x")
	ev, _ = ctl.Find(id)
	for _, task := range ev.Tasks {
		if !task.Done {
			t.Fatalf("task %q still open", task.Title)
		}
	}
	m = press(t, m, "x")
	if fb := m.panel().Status().feedback; fb == nil || fb.Tone != workspace.ToneError || !strings.Contains(fb.Message, "nothing left") {
		t.Fatalf("feedback = %+v", fb)
	}
}

func TestSwitchingTabsLoadsLazily(t *testing.T) {
	m := newTestApp(t, devserver.Config{}, "events")
	if m.loaded[1] {
		t.Fatalf("wallet should not load before it is shown")
	}

	m = press(t, m, "tab")
	if m.active != 1 || !m.loaded[1] {
		t.Fatalf("active=%d loaded=%v", m.active, m.loaded)
	}
	if got := rowTitles(m); len(got) != 2 {
		t.Fatalf("wallet rows = %v", got)
	}
	if !strings.Contains(m.View(), "USD 2500.00") {
		t.Fatalf("balance not rendered:\n%s", m.View())
	}

	m = press(t, m, "3")
	if m.active != 2 || len(m.panel().Rows()) != 2 {
		t.Fatalf("mentoring rows = %v", rowTitles(m))
	}
	m = press(t, m, "1")
	if m.active != 0 || len(m.panel().Rows()) != 1 {
		t.Fatalf("back on events, rows = %v", rowTitles(m))
	}
}

func TestWalletTransferAndClose(t *testing.T) {
	m := newTestApp(t, devserver.Config{}, "wallet")
	from := rowID(t, m, "Operating")
	to := rowID(t, m, "Savings")
	m.panel().Select(from)
	m.syncList()

	m = press(t, m, "t")
	setForm(t, m, map[string]string{"to": to.String(), "amount": "2500", "memo": "buffer"})
	m = press(t, m, "ctrl+s")
	if m.form != nil {
		t.Fatalf("transfer failed: %q", m.form.err)
	}
	ctl := m.panels[1].(*domainPanel[model.Account]).ctl
	src, _ := ctl.Find(from)
	dst, _ := ctl.Find(to)
	if src.Balance != 247500 || dst.Balance != 102500 {
		t.Fatalf("balances = %d / %d", src.Balance, dst.Balance)
	}

	// Closing an account with money in it is refused before any request.
	m = press(t, m, "d", "y")
	if !m.panel().Confirm().Open {
		t.Fatalf("failed close should keep the dialog open")
	}
	if fb := m.panel().Status().feedback; fb == nil || !strings.Contains(fb.Message, "balance must be zero") {
		t.Fatalf("feedback = %+v", fb)
	}
	m = press(t, m, "esc")
	if m.panel().Confirm().Open {
		t.Fatalf("esc should close the dialog")
	}
}

func TestMentoringFilterAndTransitions(t *testing.T) {
	m := newTestApp(t, devserver.Config{}, "mentoring")

	m = press(t, m, "/")
	setForm(t, m, map[string]string{"status": "scheduled"})
	m = press(t, m, "ctrl+s")
	if got := rowTitles(m); len(got) != 1 || got[0] != "Pricing freelance work" {
		t.Fatalf("filtered rows = %v", got)
	}

	m = press(t, m, "c")
	if fb := m.panel().Status().feedback; fb == nil || fb.Message != "Session completed" {
		t.Fatalf("feedback = %+v", fb)
	}
	// The completed session no longer matches the filter after the refetch.
	if n := len(m.panel().Rows()); n != 0 {
		t.Fatalf("rows = %v", rowTitles(m))
	}

	m = press(t, m, "/")
	setForm(t, m, map[string]string{"status": "", "q": "portfolio"})
	m = press(t, m, "ctrl+s")
	if got := rowTitles(m); len(got) != 1 || got[0] != "Portfolio review" {
		t.Fatalf("search rows = %v", got)
	}
	m = press(t, m, "x")
	if fb := m.panel().Status().feedback; fb == nil || !strings.Contains(fb.Message, "not scheduled") {
		t.Fatalf("cancelling a completed session: feedback = %+v", fb)
	}

	m = press(t, m, "esc")
	if st := m.panel().Status(); st.feedback != nil || st.err != "" {
		t.Fatalf("esc should clear the banner, got %+v", st)
	}
}

func TestReadOnlyUserCannotOpenForms(t *testing.T) {
	m := newTestApp(t, devserver.Config{ReadOnlyUsers: []string{"u1"}}, "events")

	m = press(t, m, "n")
	if m.form != nil {
		t.Fatalf("form opened without the manage permission")
	}
	view := m.View()
	if !strings.Contains(view, "access denied") || !strings.Contains(view, "[read only]") {
		t.Fatalf("view:\n%s", view)
	}
}

func TestFlashDoneDismissesOnlyItsBanner(t *testing.T) {
	m := newTestApp(t, devserver.Config{}, "events")
	m = press(t, m, "x")
	first := m.panel().Status().feedback
	if first == nil {
		t.Fatalf("expected feedback")
	}
	m = press(t, m, "x")
	second := m.panel().Status().feedback
	if second == nil || second.Seq == first.Seq {
		t.Fatalf("expected a newer banner, got %+v", second)
	}

	next, _ := m.Update(flashDoneMsg{panel: 0, seq: first.Seq})
	m = next.(appModel)
	if m.panel().Status().feedback == nil {
		t.Fatalf("stale timer dismissed the newer banner")
	}
	next, _ = m.Update(flashDoneMsg{panel: 0, seq: second.Seq})
	m = next.(appModel)
	if m.panel().Status().feedback != nil {
		t.Fatalf("banner not dismissed")
	}
}

func TestLoadErrorShowsInBanner(t *testing.T) {
	b := devtest.Start(t, devserver.Config{})
	m, err := newAppModel(context.Background(), Options{Client: b.Client, Owner: "u1"})
	if err != nil {
		t.Fatalf("newAppModel: %v", err)
	}
	b.Server.Close()
	m = runCmd(t, m, m.Init())

	st := m.panel().Status()
	if st.err == "" || st.loading {
		t.Fatalf("status = %+v", st)
	}
	if !strings.Contains(m.View(), "nothing here yet") {
		t.Fatalf("empty list hint missing")
	}
}

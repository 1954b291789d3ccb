package tui

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gigdesk/internal/events"
	"gigdesk/internal/mentoring"
	"gigdesk/internal/model"
	"gigdesk/internal/wallet"
	"gigdesk/internal/workspace"
)

func newEventsPanel(ctl *events.Controller) *domainPanel[model.Event] {
	p := &domainPanel[model.Event]{
		name:   "events",
		noun:   "event",
		ctl:    ctl.Controller,
		load:   ctl.Load,
		row:    eventRow,
		detail: eventDetail,
		summary: func(s *workspace.Snapshot[model.Event]) string {
			return fmt.Sprintf("%d events · %d upcoming · %d open tasks",
				overviewInt(s.Overview, "total"), overviewInt(s.Overview, "upcoming"), overviewInt(s.Overview, "openTasks"))
		},
		fields: eventFields,
		submit: func(ctx context.Context, vals map[string]string) error {
			in, err := eventInput(vals)
			if err != nil {
				return ctl.Reject(err)
			}
			return ctl.SubmitWizard(ctx, in)
		},
		del: ctl.RequestDelete,
	}
	p.actions = []action{
		{key: "a", help: "add task", form: func(sel model.ID) (*formSpec, error) {
			return &formSpec{
				title: "Add task",
				fields: []fieldSpec{
					{key: "title", label: "Title"},
					{key: "due", label: "Due", placeholder: "YYYY-MM-DD"},
				},
				submit: func(ctx context.Context, vals map[string]string) error {
					due, err := formTime(vals, "due")
					if err != nil {
						return ctl.Reject(err)
					}
					return ctl.AddTask(ctx, sel, events.TaskInput{Title: vals["title"], Due: due})
				},
			}, nil
		}},
		{key: "x", help: "finish next task", run: func(ctx context.Context, sel model.ID) error {
			ev, ok := ctl.Find(sel)
			if !ok {
				return ctl.Reject(workspace.ErrNoSelection)
			}
			for _, t := range ev.Tasks {
				if !t.Done {
					return ctl.SetTaskDone(ctx, ev.ID, t.ID, true)
				}
			}
			return ctl.Reject(workspace.Invalid("tasks", "nothing left to finish"))
		}},
		{key: "g", help: "add guest", form: func(sel model.ID) (*formSpec, error) {
			return &formSpec{
				title: "Add guest",
				fields: []fieldSpec{
					{key: "name", label: "Name"},
					{key: "email", label: "Email"},
					{key: "rsvp", label: "RSVP", placeholder: "pending|yes|no"},
				},
				submit: func(ctx context.Context, vals map[string]string) error {
					return ctl.AddGuest(ctx, sel, events.GuestInput{Name: vals["name"], Email: vals["email"], RSVP: vals["rsvp"]})
				},
			}, nil
		}},
		{key: "b", help: "add budget line", form: func(sel model.ID) (*formSpec, error) {
			return &formSpec{
				title: "Add budget line",
				fields: []fieldSpec{
					{key: "label", label: "Label"},
					{key: "planned", label: "Planned", placeholder: "minor units"},
					{key: "actual", label: "Actual", placeholder: "minor units"},
					{key: "currency", label: "Currency", value: "USD"},
				},
				submit: func(ctx context.Context, vals map[string]string) error {
					planned, err := formAmount(vals, "planned")
					if err != nil {
						return ctl.Reject(err)
					}
					actual, err := formAmount(vals, "actual")
					if err != nil {
						return ctl.Reject(err)
					}
					return ctl.AddBudgetLine(ctx, sel, events.BudgetInput{
						Label: vals["label"], Planned: planned, Actual: actual, Currency: vals["currency"],
					})
				},
			}, nil
		}},
	}
	return p
}

func eventRow(ev model.Event) row {
	meta := []string{ev.Status}
	if ev.StartsAt != nil {
		meta = append(meta, showTime(ev.StartsAt))
	}
	if n := len(ev.Tasks); n > 0 {
		meta = append(meta, fmt.Sprintf("%d/%d tasks", n-events.OpenTasks(ev), n))
	}
	return row{id: ev.ID, title: ev.Title, meta: strings.Join(meta, " · ")}
}

func eventDetail(ev model.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", ev.Title)
	fmt.Fprintf(&b, "**Status:** %s", ev.Status)
	if ev.Venue != "" {
		fmt.Fprintf(&b, " · **Venue:** %s", ev.Venue)
	}
	if ev.Capacity > 0 {
		fmt.Fprintf(&b, " · **Capacity:** %d", ev.Capacity)
	}
	b.WriteString("\n\n")
	if ev.StartsAt != nil {
		fmt.Fprintf(&b, "**When:** %s", showTime(ev.StartsAt))
		if ev.EndsAt != nil {
			fmt.Fprintf(&b, " to %s", showTime(ev.EndsAt))
		}
		b.WriteString("\n\n")
	}
	if d := strings.TrimSpace(ev.Description); d != "" {
		b.WriteString(d + "\n\n")
	}

	fmt.Fprintf(&b, "## Tasks (%d open)\n\n", events.OpenTasks(ev))
	for _, t := range ev.Tasks {
		mark := " "
		if t.Done {
			mark = "x"
		}
		fmt.Fprintf(&b, "- [%s] %s", mark, t.Title)
		if t.Due != nil {
			fmt.Fprintf(&b, " (due %s)", t.Due.Local().Format("2006-01-02"))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n## Guests\n\n")
	for _, g := range ev.Guests {
		fmt.Fprintf(&b, "- %s", g.Name)
		if g.Email != "" {
			fmt.Fprintf(&b, " <%s>", g.Email)
		}
		fmt.Fprintf(&b, ": %s\n", g.RSVP)
	}

	if len(ev.Budget) > 0 {
		planned, actual := events.BudgetTotals(ev)
		b.WriteString("\n## Budget\n\n| Line | Planned | Actual |\n|---|---:|---:|\n")
		for _, l := range ev.Budget {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", l.Label, showMoney(l.Planned, l.Currency), showMoney(l.Actual, l.Currency))
		}
		fmt.Fprintf(&b, "| **Total** | %s | %s |\n", showMoney(planned, ""), showMoney(actual, ""))
	}
	return b.String()
}

func eventFields(ev *model.Event) []fieldSpec {
	in := events.Input{}
	if ev != nil {
		in = events.InputFrom(*ev)
	}
	capacity := ""
	if in.Capacity > 0 {
		capacity = strconv.Itoa(in.Capacity)
	}
	return []fieldSpec{
		{key: "title", label: "Title", value: in.Title},
		{key: "venue", label: "Venue", value: in.Venue},
		{key: "status", label: "Status", value: in.Status, placeholder: "draft"},
		{key: "capacity", label: "Capacity", value: capacity},
		{key: "startsAt", label: "Starts", value: showTime(in.StartsAt), placeholder: "YYYY-MM-DD HH:MM"},
		{key: "endsAt", label: "Ends", value: showTime(in.EndsAt), placeholder: "YYYY-MM-DD HH:MM"},
		{key: "description", label: "Description", value: in.Description},
	}
}

func eventInput(vals map[string]string) (events.Input, error) {
	in := events.Input{
		Title:       strings.TrimSpace(vals["title"]),
		Venue:       strings.TrimSpace(vals["venue"]),
		Status:      strings.TrimSpace(vals["status"]),
		Description: vals["description"],
	}
	var err error
	if in.Capacity, err = formInt(vals, "capacity"); err != nil {
		return in, err
	}
	if in.StartsAt, err = formTime(vals, "startsAt"); err != nil {
		return in, err
	}
	if in.EndsAt, err = formTime(vals, "endsAt"); err != nil {
		return in, err
	}
	return in, nil
}

func newWalletPanel(ctl *wallet.Controller) *domainPanel[model.Account] {
	p := &domainPanel[model.Account]{
		name:   "wallet",
		noun:   "account",
		ctl:    ctl.Controller,
		load:   ctl.Actions.Refresh,
		row:    accountRow,
		detail: accountDetail,
		summary: func(s *workspace.Snapshot[model.Account]) string {
			var parts []string
			for cur, total := range wallet.Totals(s.Entities) {
				parts = append(parts, showMoney(total, cur))
			}
			sort.Strings(parts)
			return strings.Join(append([]string{fmt.Sprintf("%d accounts", len(s.Entities))}, parts...), " · ")
		},
		fields: func(a *model.Account) []fieldSpec {
			if a != nil {
				return []fieldSpec{{key: "label", label: "Label", value: a.Label}}
			}
			return []fieldSpec{
				{key: "label", label: "Label"},
				{key: "currency", label: "Currency", value: "USD"},
				{key: "balance", label: "Opening balance", placeholder: "minor units"},
			}
		},
		submit: func(ctx context.Context, vals map[string]string) error {
			bal, err := formAmount(vals, "balance")
			if err != nil {
				return ctl.Reject(err)
			}
			return ctl.SubmitWizard(ctx, wallet.AccountInput{
				Label:    strings.TrimSpace(vals["label"]),
				Currency: vals["currency"],
				Balance:  bal,
			})
		},
		deleteHelp: "close",
		del:        ctl.RequestClose,
		pending:    ctl.Actions.Pending,
	}
	p.actions = []action{
		{key: "t", help: "transfer", form: func(sel model.ID) (*formSpec, error) {
			return &formSpec{
				title: "Transfer from " + sel.String(),
				fields: []fieldSpec{
					{key: "to", label: "To account"},
					{key: "amount", label: "Amount", placeholder: "minor units"},
					{key: "memo", label: "Memo"},
				},
				submit: func(ctx context.Context, vals map[string]string) error {
					amount, err := formAmount(vals, "amount")
					if err != nil {
						return ctl.Reject(err)
					}
					return ctl.Actions.Transfer(ctx, wallet.TransferInput{
						FromID: sel,
						ToID:   model.ID(strings.TrimSpace(vals["to"])),
						Amount: amount,
						Memo:   strings.TrimSpace(vals["memo"]),
					})
				},
			}, nil
		}},
	}
	return p
}

func accountRow(a model.Account) row {
	meta := showMoney(a.Balance, a.Currency)
	if a.Status == wallet.StatusClosed {
		meta += " · closed"
	}
	return row{id: a.ID, title: a.Label, meta: meta}
}

func accountDetail(a model.Account) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", a.Label)
	fmt.Fprintf(&b, "**Id:** `%s` · **Balance:** %s · **Status:** %s\n\n", a.ID, showMoney(a.Balance, a.Currency), a.Status)
	if len(a.Transfers) == 0 {
		b.WriteString("_No transfers yet._\n")
		return b.String()
	}
	b.WriteString("## Transfers\n\n| When | Direction | Amount | Memo |\n|---|---|---:|---|\n")
	for _, t := range a.Transfers {
		dir := "in from " + t.FromID.String()
		if t.FromID == a.ID {
			dir = "out to " + t.ToID.String()
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", showTime(t.CreatedAt), dir, showMoney(t.Amount, t.Currency), t.Memo)
	}
	return b.String()
}

func newMentoringPanel(ctl *mentoring.Controller) *domainPanel[model.Session] {
	p := &domainPanel[model.Session]{
		name:   "mentoring",
		noun:   "session",
		ctl:    ctl.Controller,
		load:   ctl.Load,
		row:    sessionRow,
		detail: sessionDetail,
		summary: func(s *workspace.Snapshot[model.Session]) string {
			out := fmt.Sprintf("%d scheduled · %d completed · earned %s",
				overviewInt(s.Overview, "scheduled"), overviewInt(s.Overview, "completed"), showMoney(mentoring.Earnings(s.Entities), ""))
			if f := ctl.Filter(); f != (mentoring.Filter{}) {
				out += fmt.Sprintf(" · filter status=%q q=%q", f.Status, f.Query)
			}
			return out
		},
		fields: sessionFields,
		submit: func(ctx context.Context, vals map[string]string) error {
			in, err := sessionInput(vals)
			if err != nil {
				return ctl.Reject(err)
			}
			return ctl.SubmitWizard(ctx, in)
		},
		del: ctl.RequestDelete,
	}
	p.actions = []action{
		{key: "c", help: "complete", run: ctl.Complete},
		{key: "x", help: "cancel session", run: ctl.Cancel},
		{key: "/", help: "filter", form: func(model.ID) (*formSpec, error) {
			f := ctl.Filter()
			return &formSpec{
				title: "Filter sessions",
				fields: []fieldSpec{
					{key: "status", label: "Status", value: f.Status, placeholder: "scheduled|completed|cancelled"},
					{key: "q", label: "Search", value: f.Query},
				},
				submit: func(ctx context.Context, vals map[string]string) error {
					return ctl.SetFilter(ctx, mentoring.Filter{
						Status: strings.TrimSpace(vals["status"]),
						Query:  strings.TrimSpace(vals["q"]),
					})
				},
			}, nil
		}},
	}
	return p
}

func sessionRow(s model.Session) row {
	meta := []string{s.Status}
	if s.MenteeName != "" {
		meta = append(meta, s.MenteeName)
	}
	if s.ScheduledAt != nil {
		meta = append(meta, showTime(s.ScheduledAt))
	}
	meta = append(meta, fmt.Sprintf("%dm", s.Minutes))
	return row{id: s.ID, title: s.Topic, meta: strings.Join(meta, " · ")}
}

func sessionDetail(s model.Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", s.Topic)
	fmt.Fprintf(&b, "**Status:** %s · **Mentee:** %s\n\n", s.Status, s.MenteeName)
	if s.ScheduledAt != nil {
		fmt.Fprintf(&b, "**At:** %s for %d minutes\n\n", showTime(s.ScheduledAt), s.Minutes)
	}
	if s.Price > 0 {
		fmt.Fprintf(&b, "**Price:** %s\n\n", showMoney(s.Price, ""))
	}
	if n := strings.TrimSpace(s.Notes); n != "" {
		b.WriteString("## Notes\n\n" + n + "\n")
	}
	return b.String()
}

func sessionFields(s *model.Session) []fieldSpec {
	in := mentoring.Input{Minutes: 60}
	if s != nil {
		in = mentoring.InputFrom(*s)
	}
	price := ""
	if in.Price > 0 {
		price = strconv.FormatInt(in.Price, 10)
	}
	return []fieldSpec{
		{key: "topic", label: "Topic", value: in.Topic},
		{key: "mentee", label: "Mentee", value: in.MenteeName},
		{key: "at", label: "At", value: showTime(in.ScheduledAt), placeholder: "YYYY-MM-DD HH:MM"},
		{key: "minutes", label: "Minutes", value: strconv.Itoa(in.Minutes)},
		{key: "price", label: "Price", value: price, placeholder: "minor units"},
		{key: "notes", label: "Notes", value: in.Notes},
	}
}

func sessionInput(vals map[string]string) (mentoring.Input, error) {
	in := mentoring.Input{
		Topic:      strings.TrimSpace(vals["topic"]),
		MenteeName: strings.TrimSpace(vals["mentee"]),
		Notes:      vals["notes"],
	}
	var err error
	if in.ScheduledAt, err = formTime(vals, "at"); err != nil {
		return in, err
	}
	if in.Minutes, err = formInt(vals, "minutes"); err != nil {
		return in, err
	}
	if in.Price, err = formAmount(vals, "price"); err != nil {
		return in, err
	}
	return in, nil
}

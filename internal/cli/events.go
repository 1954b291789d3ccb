package cli

import (
	"strings"

	"gigdesk/internal/api"
	"gigdesk/internal/events"
	"gigdesk/internal/model"

	"github.com/spf13/cobra"
)

func newEventsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Event management commands",
	}
	cmd.AddCommand(newEventsListCmd(app))
	cmd.AddCommand(newEventsShowCmd(app))
	cmd.AddCommand(newEventsCreateCmd(app))
	cmd.AddCommand(newEventsUpdateCmd(app))
	cmd.AddCommand(newEventsDeleteCmd(app))
	cmd.AddCommand(newEventTasksCmd(app))
	cmd.AddCommand(newEventGuestsCmd(app))
	cmd.AddCommand(newEventBudgetCmd(app))
	cmd.AddCommand(newSettingsCmd(app, "events", openEvents))
	return cmd
}

func openEvents(cmd *cobra.Command, app *App) (*events.Controller, error) {
	c, err := app.client()
	if err != nil {
		return nil, err
	}
	ctl := events.New(events.NewService(c), app.workspaceConfig("events"))
	if err := ctl.Load(cmd.Context()); err != nil {
		return nil, err
	}
	return ctl, nil
}

func findEvent(ctl *events.Controller, id string) (model.Event, error) {
	ev, ok := ctl.Find(model.ID(strings.TrimSpace(id)))
	if !ok {
		return model.Event{}, errNotFound("event", id)
	}
	return ev, nil
}

func newEventsListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List events",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := openEvents(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			st := ctl.State()
			return writeOut(cmd, app, map[string]any{
				"data": st.Snapshot.Entities,
				"meta": map[string]any{"overview": st.Snapshot.Overview},
			})
		},
	}
}

func newEventsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <event-id>",
		Short: "Show one event with its tasks, guests and budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			id := model.ID(strings.TrimSpace(args[0]))
			ev, err := events.NewService(c).Events.Get(cmd.Context(), strings.TrimSpace(app.UserID), id)
			if api.IsNotFound(err) {
				err = errNotFound("event", id.String())
			}
			if err != nil {
				return writeErr(cmd, err)
			}
			planned, actual := events.BudgetTotals(ev)
			return writeOut(cmd, app, map[string]any{
				"data": ev,
				"meta": map[string]any{"openTasks": events.OpenTasks(ev), "budgetPlanned": planned, "budgetActual": actual},
			})
		},
	}
}

type eventFlags struct {
	title, description, venue, status string
	capacity                          int
	starts, ends                      string
}

func (f *eventFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "Event title")
	cmd.Flags().StringVar(&f.description, "description", "", "Description (markdown)")
	cmd.Flags().StringVar(&f.venue, "venue", "", "Venue")
	cmd.Flags().StringVar(&f.status, "status", "", "Status (draft|planned|live|done)")
	cmd.Flags().IntVar(&f.capacity, "capacity", 0, "Guest capacity")
	cmd.Flags().StringVar(&f.starts, "starts", "", "Start (YYYY-MM-DD, YYYY-MM-DD HH:MM or RFC3339)")
	cmd.Flags().StringVar(&f.ends, "ends", "", "End (same formats as --starts)")
}

// apply copies the flags the user set onto in.
func (f *eventFlags) apply(cmd *cobra.Command, in *events.Input) error {
	fl := cmd.Flags()
	if fl.Changed("title") {
		in.Title = strings.TrimSpace(f.title)
	}
	if fl.Changed("description") {
		in.Description = f.description
	}
	if fl.Changed("venue") {
		in.Venue = strings.TrimSpace(f.venue)
	}
	if fl.Changed("status") {
		in.Status = strings.TrimSpace(f.status)
	}
	if fl.Changed("capacity") {
		in.Capacity = f.capacity
	}
	if fl.Changed("starts") {
		ts, err := parseDateTime(f.starts, nil)
		if err != nil {
			return errUsage("--starts: %v", err)
		}
		in.StartsAt = ts
	}
	if fl.Changed("ends") {
		ts, err := parseDateTime(f.ends, nil)
		if err != nil {
			return errUsage("--ends: %v", err)
		}
		in.EndsAt = ts
	}
	return nil
}

func newEventsCreateCmd(app *App) *cobra.Command {
	var f eventFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an event",
		RunE: func(cmd *cobra.Command, args []string) error {
			var in events.Input
			if err := f.apply(cmd, &in); err != nil {
				return writeErr(cmd, err)
			}
			ctl, err := openEvents(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			before := ctl.Entities()
			if err := ctl.Create(cmd.Context(), in); err != nil {
				return writeErr(cmd, err)
			}
			ev, _ := created(before, ctl.Entities())
			return writeOut(cmd, app, envelope(ev, ctl.State().Feedback))
		},
	}
	f.register(cmd)
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newEventsUpdateCmd(app *App) *cobra.Command {
	var f eventFlags
	cmd := &cobra.Command{
		Use:   "update <event-id>",
		Short: "Update fields of an event (only flags given are changed)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := openEvents(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			ev, err := findEvent(ctl, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			in := events.InputFrom(ev)
			if err := f.apply(cmd, &in); err != nil {
				return writeErr(cmd, err)
			}
			if err := ctl.Update(cmd.Context(), ev.ID, in); err != nil {
				return writeErr(cmd, err)
			}
			ev, _ = ctl.Find(ev.ID)
			return writeOut(cmd, app, envelope(ev, ctl.State().Feedback))
		},
	}
	f.register(cmd)
	return cmd
}

func newEventsDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <event-id>",
		Short: "Delete an event and everything attached to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := openEvents(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			ev, err := findEvent(ctl, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := ctl.Delete(cmd.Context(), ev.ID); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope(map[string]any{"id": ev.ID, "deleted": true}, ctl.State().Feedback))
		},
	}
}

func newEventTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Event task list commands",
	}

	var title, due string
	add := &cobra.Command{
		Use:   "add <event-id>",
		Short: "Add a task to an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dueAt, err := parseDateTime(due, nil)
			if err != nil {
				return writeErr(cmd, errUsage("--due: %v", err))
			}
			ctl, err := openEvents(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			ev, err := findEvent(ctl, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := ctl.AddTask(cmd.Context(), ev.ID, events.TaskInput{Title: strings.TrimSpace(title), Due: dueAt}); err != nil {
				return writeErr(cmd, err)
			}
			after, _ := ctl.Find(ev.ID)
			task, _ := created(ev.Tasks, after.Tasks)
			return writeOut(cmd, app, envelope(task, ctl.State().Feedback))
		},
	}
	add.Flags().StringVar(&title, "title", "", "Task title")
	add.Flags().StringVar(&due, "due", "", "Due date")
	_ = add.MarkFlagRequired("title")

	var undo bool
	done := &cobra.Command{
		Use:   "done <event-id> <task-id>",
		Short: "Mark a task done (or reopen it with --undo)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := openEvents(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			ev, err := findEvent(ctl, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			taskID := model.ID(strings.TrimSpace(args[1]))
			if err := ctl.SetTaskDone(cmd.Context(), ev.ID, taskID, !undo); err != nil {
				return writeErr(cmd, err)
			}
			ev, _ = ctl.Find(ev.ID)
			for _, t := range ev.Tasks {
				if t.ID == taskID {
					return writeOut(cmd, app, envelope(t, ctl.State().Feedback))
				}
			}
			return writeErr(cmd, errNotFound("task", taskID.String()))
		},
	}
	done.Flags().BoolVar(&undo, "undo", false, "Reopen instead of completing")

	del := &cobra.Command{
		Use:   "delete <event-id> <task-id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChildDelete(cmd, app, args, func(ctl *events.Controller, ev, id model.ID) error {
				return ctl.DeleteTask(cmd.Context(), ev, id)
			})
		},
	}

	cmd.AddCommand(add, done, del)
	return cmd
}

func newEventGuestsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guests",
		Short: "Event guest list commands",
	}

	var in events.GuestInput
	add := &cobra.Command{
		Use:   "add <event-id>",
		Short: "Invite a guest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := openEvents(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			ev, err := findEvent(ctl, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := ctl.AddGuest(cmd.Context(), ev.ID, in); err != nil {
				return writeErr(cmd, err)
			}
			after, _ := ctl.Find(ev.ID)
			g, _ := created(ev.Guests, after.Guests)
			return writeOut(cmd, app, envelope(g, ctl.State().Feedback))
		},
	}
	add.Flags().StringVar(&in.Name, "name", "", "Guest name")
	add.Flags().StringVar(&in.Email, "email", "", "Guest email")
	add.Flags().StringVar(&in.RSVP, "rsvp", "", "RSVP (pending|yes|no)")
	_ = add.MarkFlagRequired("name")

	del := &cobra.Command{
		Use:   "delete <event-id> <guest-id>",
		Short: "Remove a guest",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChildDelete(cmd, app, args, func(ctl *events.Controller, ev, id model.ID) error {
				return ctl.RemoveGuest(cmd.Context(), ev, id)
			})
		},
	}

	cmd.AddCommand(add, del)
	return cmd
}

func newEventBudgetCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Event budget commands",
	}

	var in events.BudgetInput
	add := &cobra.Command{
		Use:   "add <event-id>",
		Short: "Add a budget line (amounts in minor units)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := openEvents(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			ev, err := findEvent(ctl, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
			if err := ctl.AddBudgetLine(cmd.Context(), ev.ID, in); err != nil {
				return writeErr(cmd, err)
			}
			after, _ := ctl.Find(ev.ID)
			line, _ := created(ev.Budget, after.Budget)
			return writeOut(cmd, app, envelope(line, ctl.State().Feedback))
		},
	}
	add.Flags().StringVar(&in.Label, "label", "", "Line label")
	add.Flags().Int64Var(&in.Planned, "planned", 0, "Planned amount")
	add.Flags().Int64Var(&in.Actual, "actual", 0, "Actual amount")
	add.Flags().StringVar(&in.Currency, "currency", "", "Currency code")
	_ = add.MarkFlagRequired("label")

	del := &cobra.Command{
		Use:   "delete <event-id> <line-id>",
		Short: "Remove a budget line",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChildDelete(cmd, app, args, func(ctl *events.Controller, ev, id model.ID) error {
				return ctl.RemoveBudgetLine(cmd.Context(), ev, id)
			})
		},
	}

	cmd.AddCommand(add, del)
	return cmd
}

func runChildDelete(cmd *cobra.Command, app *App, args []string, del func(ctl *events.Controller, ev, id model.ID) error) error {
	ctl, err := openEvents(cmd, app)
	if err != nil {
		return writeErr(cmd, err)
	}
	ev, err := findEvent(ctl, args[0])
	if err != nil {
		return writeErr(cmd, err)
	}
	id := model.ID(strings.TrimSpace(args[1]))
	if err := del(ctl, ev.ID, id); err != nil {
		return writeErr(cmd, err)
	}
	return writeOut(cmd, app, envelope(map[string]any{"eventId": ev.ID, "id": id, "deleted": true}, ctl.State().Feedback))
}

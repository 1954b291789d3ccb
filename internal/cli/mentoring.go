package cli

import (
	"strings"

	"gigdesk/internal/mentoring"
	"gigdesk/internal/model"

	"github.com/spf13/cobra"
)

func newMentoringCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mentoring",
		Short: "Mentoring session commands",
	}
	cmd.AddCommand(newMentoringListCmd(app))
	cmd.AddCommand(newMentoringShowCmd(app))
	cmd.AddCommand(newMentoringScheduleCmd(app))
	cmd.AddCommand(newMentoringRescheduleCmd(app))
	cmd.AddCommand(newMentoringTransitionCmd(app, "cancel", "Cancel a scheduled session"))
	cmd.AddCommand(newMentoringTransitionCmd(app, "complete", "Mark a scheduled session completed"))
	cmd.AddCommand(newMentoringDeleteCmd(app))
	cmd.AddCommand(newSettingsCmd(app, "mentoring", func(cmd *cobra.Command, app *App) (*mentoring.Controller, error) {
		return openMentoring(cmd, app, mentoring.Filter{})
	}))
	return cmd
}

func openMentoring(cmd *cobra.Command, app *App, f mentoring.Filter) (*mentoring.Controller, error) {
	c, err := app.client()
	if err != nil {
		return nil, err
	}
	ctl := mentoring.New(mentoring.NewService(c), app.workspaceConfig("mentoring"))
	if err := ctl.SetFilter(cmd.Context(), f); err != nil {
		return nil, err
	}
	return ctl, nil
}

func findSession(ctl *mentoring.Controller, id string) (model.Session, error) {
	s, ok := ctl.Find(model.ID(strings.TrimSpace(id)))
	if !ok {
		return model.Session{}, errNotFound("session", id)
	}
	return s, nil
}

func newMentoringListCmd(app *App) *cobra.Command {
	var f mentoring.Filter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := openMentoring(cmd, app, f)
			if err != nil {
				return writeErr(cmd, err)
			}
			st := ctl.State()
			return writeOut(cmd, app, map[string]any{
				"data": st.Snapshot.Entities,
				"meta": map[string]any{
					"overview": st.Snapshot.Overview,
					"earnings": mentoring.Earnings(st.Snapshot.Entities),
				},
			})
		},
	}
	cmd.Flags().StringVar(&f.Status, "status", "", "Filter by status (scheduled|completed|cancelled)")
	cmd.Flags().StringVar(&f.Query, "q", "", "Filter by topic or mentee")
	return cmd
}

func newMentoringShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show one session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := openMentoring(cmd, app, mentoring.Filter{})
			if err != nil {
				return writeErr(cmd, err)
			}
			s, err := findSession(ctl, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": s})
		},
	}
}

type sessionFlags struct {
	topic, mentee, at, notes string
	minutes                  int
	price                    int64
}

func (f *sessionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.topic, "topic", "", "Session topic")
	cmd.Flags().StringVar(&f.mentee, "mentee", "", "Mentee name")
	cmd.Flags().StringVar(&f.at, "at", "", "Start (YYYY-MM-DD HH:MM or RFC3339)")
	cmd.Flags().IntVar(&f.minutes, "minutes", 60, "Duration in minutes (15-240)")
	cmd.Flags().StringVar(&f.notes, "notes", "", "Notes")
	cmd.Flags().Int64Var(&f.price, "price", 0, "Price (minor units)")
}

func (f *sessionFlags) apply(cmd *cobra.Command, in *mentoring.Input, all bool) error {
	fl := cmd.Flags()
	if all || fl.Changed("topic") {
		in.Topic = strings.TrimSpace(f.topic)
	}
	if all || fl.Changed("mentee") {
		in.MenteeName = strings.TrimSpace(f.mentee)
	}
	if all || fl.Changed("minutes") {
		in.Minutes = f.minutes
	}
	if all || fl.Changed("notes") {
		in.Notes = f.notes
	}
	if all || fl.Changed("price") {
		in.Price = f.price
	}
	if all || fl.Changed("at") {
		ts, err := parseDateTime(f.at, nil)
		if err != nil {
			return errUsage("--at: %v", err)
		}
		in.ScheduledAt = ts
	}
	return nil
}

func newMentoringScheduleCmd(app *App) *cobra.Command {
	var f sessionFlags
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Schedule a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			var in mentoring.Input
			if err := f.apply(cmd, &in, true); err != nil {
				return writeErr(cmd, err)
			}
			ctl, err := openMentoring(cmd, app, mentoring.Filter{})
			if err != nil {
				return writeErr(cmd, err)
			}
			before := ctl.Entities()
			if err := ctl.Schedule(cmd.Context(), in); err != nil {
				return writeErr(cmd, err)
			}
			s, _ := created(before, ctl.Entities())
			return writeOut(cmd, app, envelope(s, ctl.State().Feedback))
		},
	}
	f.register(cmd)
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}

func newMentoringRescheduleCmd(app *App) *cobra.Command {
	var f sessionFlags
	cmd := &cobra.Command{
		Use:   "reschedule <session-id>",
		Short: "Change a scheduled session (only flags given are changed)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := openMentoring(cmd, app, mentoring.Filter{})
			if err != nil {
				return writeErr(cmd, err)
			}
			s, err := findSession(ctl, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			in := mentoring.InputFrom(s)
			if err := f.apply(cmd, &in, false); err != nil {
				return writeErr(cmd, err)
			}
			if err := ctl.Reschedule(cmd.Context(), s.ID, in); err != nil {
				return writeErr(cmd, err)
			}
			s, _ = ctl.Find(s.ID)
			return writeOut(cmd, app, envelope(s, ctl.State().Feedback))
		},
	}
	f.register(cmd)
	return cmd
}

func newMentoringTransitionCmd(app *App, verb, short string) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <session-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := openMentoring(cmd, app, mentoring.Filter{})
			if err != nil {
				return writeErr(cmd, err)
			}
			s, err := findSession(ctl, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if verb == "cancel" {
				err = ctl.Cancel(cmd.Context(), s.ID)
			} else {
				err = ctl.Complete(cmd.Context(), s.ID)
			}
			if err != nil {
				return writeErr(cmd, err)
			}
			s, _ = ctl.Find(s.ID)
			return writeOut(cmd, app, envelope(s, ctl.State().Feedback))
		},
	}
}

func newMentoringDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := openMentoring(cmd, app, mentoring.Filter{})
			if err != nil {
				return writeErr(cmd, err)
			}
			s, err := findSession(ctl, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := ctl.Delete(cmd.Context(), s.ID); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope(map[string]any{"id": s.ID, "deleted": true}, ctl.State().Feedback))
		},
	}
}

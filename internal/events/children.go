package events

import (
	"context"
	"strings"
	"time"

	"gigdesk/internal/model"
	"gigdesk/internal/workspace"
)

type TaskInput struct {
	Title string     `json:"title"`
	Done  bool       `json:"done"`
	Due   *time.Time `json:"due,omitempty"`
}

type GuestInput struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	RSVP  string `json:"rsvp,omitempty"`
}

type BudgetInput struct {
	Label    string `json:"label"`
	Planned  int64  `json:"planned"`
	Actual   int64  `json:"actual"`
	Currency string `json:"currency,omitempty"`
}

func (c *Controller) requireEvent(id model.ID) error {
	if id.IsZero() {
		return c.Reject(workspace.ErrNoSelection)
	}
	if _, ok := c.Find(id); !ok {
		return c.Reject(workspace.Invalid("event", "not found: "+id.String()))
	}
	return nil
}

func (c *Controller) AddTask(ctx context.Context, eventID model.ID, in TaskInput) error {
	if err := c.guard(func() error {
		if strings.TrimSpace(in.Title) == "" {
			return workspace.Invalid("title", "is required")
		}
		return nil
	}); err != nil {
		return err
	}
	if err := c.requireEvent(eventID); err != nil {
		return err
	}
	return c.Mutate(ctx, func(ctx context.Context) (workspace.Result[model.Event], error) {
		res, err := c.svc.Tasks(eventID).Create(ctx, c.Owner(), in)
		if err != nil {
			return workspace.Result[model.Event]{}, err
		}
		return workspace.Nest(eventID, res, tasksOf), nil
	}, workspace.MutateOptions{Label: "add task", SuccessMessage: "Task added"})
}

func (c *Controller) SetTaskDone(ctx context.Context, eventID, taskID model.ID, done bool) error {
	if err := c.guard(nil); err != nil {
		return err
	}
	if err := c.requireEvent(eventID); err != nil {
		return err
	}
	msg := "Task reopened"
	if done {
		msg = "Task completed"
	}
	return c.Mutate(ctx, func(ctx context.Context) (workspace.Result[model.Event], error) {
		res, err := c.svc.Tasks(eventID).Update(ctx, c.Owner(), taskID, map[string]any{"done": done})
		if err != nil {
			return workspace.Result[model.Event]{}, err
		}
		return workspace.Nest(eventID, res, tasksOf), nil
	}, workspace.MutateOptions{Label: "update task", SuccessMessage: msg})
}

func (c *Controller) DeleteTask(ctx context.Context, eventID, taskID model.ID) error {
	if err := c.guard(nil); err != nil {
		return err
	}
	if err := c.requireEvent(eventID); err != nil {
		return err
	}
	return c.Mutate(ctx, func(ctx context.Context) (workspace.Result[model.Event], error) {
		res, err := c.svc.Tasks(eventID).Delete(ctx, c.Owner(), taskID)
		if err != nil {
			return workspace.Result[model.Event]{}, err
		}
		return workspace.Nest(eventID, res, tasksOf), nil
	}, workspace.MutateOptions{Label: "delete task", SuccessMessage: "Task deleted"})
}

func (c *Controller) AddGuest(ctx context.Context, eventID model.ID, in GuestInput) error {
	if err := c.guard(func() error {
		if strings.TrimSpace(in.Name) == "" {
			return workspace.Invalid("name", "is required")
		}
		if in.Email != "" && !strings.Contains(in.Email, "@") {
			return workspace.Invalid("email", "is not a valid address")
		}
		switch in.RSVP {
		case "", "pending", "yes", "no":
		default:
			return workspace.Invalid("rsvp", "must be pending, yes or no")
		}
		return nil
	}); err != nil {
		return err
	}
	if err := c.requireEvent(eventID); err != nil {
		return err
	}
	if in.RSVP == "" {
		in.RSVP = "pending"
	}
	return c.Mutate(ctx, func(ctx context.Context) (workspace.Result[model.Event], error) {
		res, err := c.svc.Guests(eventID).Create(ctx, c.Owner(), in)
		if err != nil {
			return workspace.Result[model.Event]{}, err
		}
		return workspace.Nest(eventID, res, guestsOf), nil
	}, workspace.MutateOptions{Label: "add guest", SuccessMessage: "Guest invited"})
}

func (c *Controller) RemoveGuest(ctx context.Context, eventID, guestID model.ID) error {
	if err := c.guard(nil); err != nil {
		return err
	}
	if err := c.requireEvent(eventID); err != nil {
		return err
	}
	return c.Mutate(ctx, func(ctx context.Context) (workspace.Result[model.Event], error) {
		res, err := c.svc.Guests(eventID).Delete(ctx, c.Owner(), guestID)
		if err != nil {
			return workspace.Result[model.Event]{}, err
		}
		return workspace.Nest(eventID, res, guestsOf), nil
	}, workspace.MutateOptions{Label: "remove guest", SuccessMessage: "Guest removed"})
}

func (c *Controller) AddBudgetLine(ctx context.Context, eventID model.ID, in BudgetInput) error {
	if err := c.guard(func() error {
		if strings.TrimSpace(in.Label) == "" {
			return workspace.Invalid("label", "is required")
		}
		if in.Planned < 0 || in.Actual < 0 {
			return workspace.Invalid("amount", "must not be negative")
		}
		return nil
	}); err != nil {
		return err
	}
	if err := c.requireEvent(eventID); err != nil {
		return err
	}
	return c.Mutate(ctx, func(ctx context.Context) (workspace.Result[model.Event], error) {
		res, err := c.svc.Budget(eventID).Create(ctx, c.Owner(), in)
		if err != nil {
			return workspace.Result[model.Event]{}, err
		}
		return workspace.Nest(eventID, res, budgetOf), nil
	}, workspace.MutateOptions{Label: "add budget line", SuccessMessage: "Budget line added"})
}

func (c *Controller) RemoveBudgetLine(ctx context.Context, eventID, lineID model.ID) error {
	if err := c.guard(nil); err != nil {
		return err
	}
	if err := c.requireEvent(eventID); err != nil {
		return err
	}
	return c.Mutate(ctx, func(ctx context.Context) (workspace.Result[model.Event], error) {
		res, err := c.svc.Budget(eventID).Delete(ctx, c.Owner(), lineID)
		if err != nil {
			return workspace.Result[model.Event]{}, err
		}
		return workspace.Nest(eventID, res, budgetOf), nil
	}, workspace.MutateOptions{Label: "remove budget line", SuccessMessage: "Budget line removed"})
}

// BudgetTotals sums planned and actual amounts over an event's lines.
func BudgetTotals(ev model.Event) (planned, actual int64) {
	for _, l := range ev.Budget {
		planned += l.Planned
		actual += l.Actual
	}
	return planned, actual
}

// OpenTasks counts tasks not yet done.
func OpenTasks(ev model.Event) int {
	n := 0
	for _, t := range ev.Tasks {
		if !t.Done {
			n++
		}
	}
	return n
}

// Package mentoring is the mentoring workspace: sessions booked with mentees,
// listed through a status and text filter.
package mentoring

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"gigdesk/internal/api"
	"gigdesk/internal/model"
	"gigdesk/internal/workspace"
)

const root = "mentoring"

const (
	MinMinutes = 15
	MaxMinutes = 240
)

type Service struct {
	Workspace api.Workspace[model.Session]
	Sessions  api.Resource[model.Session]
}

func NewService(c *api.Client) *Service {
	return &Service{
		Workspace: api.NewWorkspace[model.Session](c, "sessions", root),
		Sessions:  api.NewResource[model.Session](c, "session", root, "sessions"),
	}
}

// Filter narrows the session list server side.
type Filter struct {
	Status string
	Query  string
}

func (f Filter) Values() url.Values {
	v := url.Values{}
	if s := strings.TrimSpace(f.Status); s != "" {
		v.Set("status", s)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		v.Set("q", q)
	}
	return v
}

func (f Filter) Validate() error {
	switch strings.TrimSpace(f.Status) {
	case "", model.SessionScheduled, model.SessionCompleted, model.SessionCancelled:
		return nil
	}
	return workspace.Invalid("status", "must be scheduled, completed or cancelled")
}

type Controller struct {
	*workspace.Controller[model.Session]
	svc *Service

	mu     sync.Mutex
	filter Filter
}

func New(svc *Service, cfg workspace.Config) *Controller {
	if cfg.Name == "" {
		cfg.Name = "mentoring"
	}
	return &Controller{
		Controller: workspace.New(svc.Workspace.Fetch, cfg),
		svc:        svc,
	}
}

func (c *Controller) Filter() Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// Load fetches sessions matching the current filter.
func (c *Controller) Load(ctx context.Context) error {
	return c.Controller.Load(ctx, c.Filter().Values())
}

// SetFilter stores f and reloads. A load still running for the previous filter
// is cancelled and its result dropped.
func (c *Controller) SetFilter(ctx context.Context, f Filter) error {
	if err := f.Validate(); err != nil {
		return c.Reject(err)
	}
	c.mu.Lock()
	c.filter = f
	c.mu.Unlock()
	return c.Load(ctx)
}

type Input struct {
	Topic       string     `json:"topic"`
	MenteeName  string     `json:"menteeName,omitempty"`
	ScheduledAt *time.Time `json:"scheduledAt,omitempty"`
	Minutes     int        `json:"durationMinutes"`
	Notes       string     `json:"notes,omitempty"`
	Price       int64      `json:"price,omitempty"`
}

func InputFrom(s model.Session) Input {
	return Input{
		Topic:       s.Topic,
		MenteeName:  s.MenteeName,
		ScheduledAt: s.ScheduledAt,
		Minutes:     s.Minutes,
		Notes:       s.Notes,
		Price:       s.Price,
	}
}

func (in Input) Validate() error {
	if strings.TrimSpace(in.Topic) == "" {
		return workspace.Invalid("topic", "is required")
	}
	if in.Minutes < MinMinutes || in.Minutes > MaxMinutes {
		return workspace.Invalid("durationMinutes", fmt.Sprintf("must be between %d and %d", MinMinutes, MaxMinutes))
	}
	if in.Price < 0 {
		return workspace.Invalid("price", "must not be negative")
	}
	return nil
}

func (c *Controller) guard(validate func() error) error {
	if err := c.Require(workspace.PermManage); err != nil {
		return err
	}
	if validate == nil {
		return nil
	}
	return c.Reject(validate())
}

func (c *Controller) Schedule(ctx context.Context, in Input) error {
	if err := c.guard(in.Validate); err != nil {
		return err
	}
	return c.Mutate(ctx, func(ctx context.Context) (workspace.Result[model.Session], error) {
		return c.svc.Sessions.Create(ctx, c.Owner(), in)
	}, workspace.MutateOptions{Label: "schedule session", SuccessMessage: "Session scheduled"})
}

func (c *Controller) Reschedule(ctx context.Context, id model.ID, in Input) error {
	if err := c.guard(func() error {
		if err := in.Validate(); err != nil {
			return err
		}
		return c.requireStatus(id, model.SessionScheduled)
	}); err != nil {
		return err
	}
	return c.Mutate(ctx, func(ctx context.Context) (workspace.Result[model.Session], error) {
		return c.svc.Sessions.Update(ctx, c.Owner(), id, in)
	}, workspace.MutateOptions{Label: "reschedule session", SuccessMessage: "Session updated"})
}

func (c *Controller) Cancel(ctx context.Context, id model.ID) error {
	return c.transition(ctx, id, model.SessionCancelled, "Session cancelled")
}

func (c *Controller) Complete(ctx context.Context, id model.ID) error {
	return c.transition(ctx, id, model.SessionCompleted, "Session completed")
}

// transition moves a scheduled session to a final status.
func (c *Controller) transition(ctx context.Context, id model.ID, status, msg string) error {
	if err := c.guard(func() error { return c.requireStatus(id, model.SessionScheduled) }); err != nil {
		return err
	}
	return c.Mutate(ctx, func(ctx context.Context) (workspace.Result[model.Session], error) {
		return c.svc.Sessions.Update(ctx, c.Owner(), id, map[string]any{"status": status})
	}, workspace.MutateOptions{Label: status + " session", SuccessMessage: msg})
}

func (c *Controller) requireStatus(id model.ID, want string) error {
	s, ok := c.Find(id)
	if !ok {
		return workspace.Invalid("session", "not found: "+id.String())
	}
	if s.Status != want {
		return workspace.Invalid("status", fmt.Sprintf("session is %s, not %s", s.Status, want))
	}
	return nil
}

func (c *Controller) Delete(ctx context.Context, id model.ID) error {
	if err := c.guard(nil); err != nil {
		return err
	}
	return c.Mutate(ctx, func(ctx context.Context) (workspace.Result[model.Session], error) {
		return c.svc.Sessions.Delete(ctx, c.Owner(), id)
	}, workspace.MutateOptions{Label: "delete session", SuccessMessage: "Session deleted"})
}

func (c *Controller) RequestDelete(s model.Session) {
	c.Controller.RequestDelete(s, fmt.Sprintf("session %q", s.Topic), func(ctx context.Context, s model.Session) error {
		return c.Delete(ctx, s.ID)
	})
}

// SubmitWizard schedules or reschedules depending on the wizard mode. The
// wizard stays open when the save fails.
func (c *Controller) SubmitWizard(ctx context.Context, in Input) error {
	w := c.Wizard()
	if !w.Open {
		return nil
	}
	var err error
	if w.Mode == workspace.WizardEdit && w.Initial != nil {
		err = c.Reschedule(ctx, w.Initial.ID, in)
	} else {
		err = c.Schedule(ctx, in)
	}
	if err != nil {
		return err
	}
	c.CloseWizard()
	return nil
}

// Earnings sums the price of completed sessions.
func Earnings(sessions []model.Session) int64 {
	var total int64
	for _, s := range sessions {
		if s.Status == model.SessionCompleted {
			total += s.Price
		}
	}
	return total
}

// SetSetting saves one key of the workspace settings. An empty value removes it.
func (c *Controller) SetSetting(ctx context.Context, key, value string) error {
	return c.PutSetting(ctx, key, value, c.svc.Workspace.SaveSettings)
}

// Package events is the event-management workspace: events with their task
// lists, guest lists and budget lines.
package events

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"gigdesk/internal/api"
	"gigdesk/internal/model"
	"gigdesk/internal/workspace"
)

const root = "event-management"

type Service struct {
	client    *api.Client
	Workspace api.Workspace[model.Event]
	Events    api.Resource[model.Event]
}

func NewService(c *api.Client) *Service {
	return &Service{
		client:    c,
		Workspace: api.NewWorkspace[model.Event](c, "events", root),
		Events:    api.NewResource[model.Event](c, "event", root, "events"),
	}
}

func (s *Service) Tasks(eventID model.ID) api.Resource[model.EventTask] {
	return api.NewResource[model.EventTask](s.client, "task", root, "events", eventID.String(), "tasks")
}

func (s *Service) Guests(eventID model.ID) api.Resource[model.Guest] {
	return api.NewResource[model.Guest](s.client, "guest", root, "events", eventID.String(), "guests")
}

func (s *Service) Budget(eventID model.ID) api.Resource[model.BudgetLine] {
	return api.NewResource[model.BudgetLine](s.client, "line", root, "events", eventID.String(), "budget")
}

type Controller struct {
	*workspace.Controller[model.Event]
	svc *Service
}

func New(svc *Service, cfg workspace.Config) *Controller {
	if cfg.Name == "" {
		cfg.Name = "events"
	}
	return &Controller{
		Controller: workspace.New(svc.Workspace.Fetch, cfg),
		svc:        svc,
	}
}

type Input struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Venue       string     `json:"venue,omitempty"`
	Status      string     `json:"status,omitempty"`
	Capacity    int        `json:"capacity,omitempty"`
	StartsAt    *time.Time `json:"startsAt,omitempty"`
	EndsAt      *time.Time `json:"endsAt,omitempty"`
}

func InputFrom(ev model.Event) Input {
	return Input{
		Title:       ev.Title,
		Description: ev.Description,
		Venue:       ev.Venue,
		Status:      ev.Status,
		Capacity:    ev.Capacity,
		StartsAt:    ev.StartsAt,
		EndsAt:      ev.EndsAt,
	}
}

func (in Input) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return workspace.Invalid("title", "is required")
	}
	if in.Capacity < 0 {
		return workspace.Invalid("capacity", "must not be negative")
	}
	if in.StartsAt != nil && in.EndsAt != nil && in.EndsAt.Before(*in.StartsAt) {
		return workspace.Invalid("endsAt", "must not be before startsAt")
	}
	return nil
}

// guard runs the checks every management action shares: permission first,
// then input validation. Both fail without a request.
func (c *Controller) guard(validate func() error) error {
	if err := c.Require(workspace.PermManage); err != nil {
		return err
	}
	if validate == nil {
		return nil
	}
	if err := validate(); err != nil {
		return c.Reject(err)
	}
	return nil
}

func (c *Controller) Load(ctx context.Context) error {
	return c.Controller.Load(ctx, url.Values{})
}

func (c *Controller) Create(ctx context.Context, in Input) error {
	if err := c.guard(in.Validate); err != nil {
		return err
	}
	return c.Mutate(ctx, func(ctx context.Context) (workspace.Result[model.Event], error) {
		return c.svc.Events.Create(ctx, c.Owner(), in)
	}, workspace.MutateOptions{Label: "create event", SuccessMessage: "Event created"})
}

func (c *Controller) Update(ctx context.Context, id model.ID, in Input) error {
	if err := c.guard(in.Validate); err != nil {
		return err
	}
	return c.Mutate(ctx, func(ctx context.Context) (workspace.Result[model.Event], error) {
		return c.svc.Events.Update(ctx, c.Owner(), id, in)
	}, workspace.MutateOptions{Label: "update event", SuccessMessage: "Event updated"})
}

func (c *Controller) Delete(ctx context.Context, id model.ID) error {
	if err := c.guard(nil); err != nil {
		return err
	}
	return c.Mutate(ctx, func(ctx context.Context) (workspace.Result[model.Event], error) {
		return c.svc.Events.Delete(ctx, c.Owner(), id)
	}, workspace.MutateOptions{Label: "delete event", SuccessMessage: "Event deleted"})
}

// RequestDelete opens the confirmation dialog for ev.
func (c *Controller) RequestDelete(ev model.Event) {
	c.Controller.RequestDelete(ev, fmt.Sprintf("event %q", ev.Title), func(ctx context.Context, ev model.Event) error {
		return c.Delete(ctx, ev.ID)
	})
}

// SubmitWizard saves the wizard form: create or edit depending on its mode.
// The wizard closes only when the save succeeded.
func (c *Controller) SubmitWizard(ctx context.Context, in Input) error {
	w := c.Wizard()
	if !w.Open {
		return nil
	}
	var err error
	if w.Mode == workspace.WizardEdit && w.Initial != nil {
		err = c.Update(ctx, w.Initial.ID, in)
	} else {
		err = c.Create(ctx, in)
	}
	if err != nil {
		return err
	}
	c.CloseWizard()
	return nil
}

func tasksOf(ev *model.Event) *[]model.EventTask   { return &ev.Tasks }
func guestsOf(ev *model.Event) *[]model.Guest      { return &ev.Guests }
func budgetOf(ev *model.Event) *[]model.BudgetLine { return &ev.Budget }

// SetSetting saves one key of the workspace settings. An empty value removes it.
func (c *Controller) SetSetting(ctx context.Context, key, value string) error {
	return c.PutSetting(ctx, key, value, c.svc.Workspace.SaveSettings)
}

// Package wallet is the wallet workspace: accounts, their balances and the
// transfers between them.
package wallet

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"gigdesk/internal/api"
	"gigdesk/internal/model"
	"gigdesk/internal/workspace"
)

const root = "wallet"

const (
	StatusActive = "active"
	StatusClosed = "closed"
)

type Service struct {
	Workspace api.Workspace[model.Account]
	Accounts  api.Resource[model.Account]
	// Transfers posts to wallet/transfers. The response is a transfer, not an
	// account, so results are always refetches.
	Transfers api.Resource[model.Account]
}

func NewService(c *api.Client) *Service {
	return &Service{
		Workspace: api.NewWorkspace[model.Account](c, "accounts", root),
		Accounts:  api.NewResource[model.Account](c, "account", root, "accounts"),
		Transfers: api.NewResource[model.Account](c, "", root, "transfers"),
	}
}

type Controller struct {
	*workspace.Controller[model.Account]
	svc *Service

	// Actions are the pending-action wrappers a view binds buttons to.
	Actions *Actions
}

func New(svc *Service, cfg workspace.Config) *Controller {
	if cfg.Name == "" {
		cfg.Name = "wallet"
	}
	c := &Controller{
		Controller: workspace.New(svc.Workspace.Fetch, cfg),
		svc:        svc,
	}
	c.Actions = &Actions{c: c}
	return c
}

func (c *Controller) Load(ctx context.Context) error {
	return c.Controller.Load(ctx, url.Values{})
}

type AccountInput struct {
	Label    string `json:"label"`
	Currency string `json:"currency,omitempty"`
	Balance  int64  `json:"balance,omitempty"`
}

func (in AccountInput) Validate() error {
	if strings.TrimSpace(in.Label) == "" {
		return workspace.Invalid("label", "is required")
	}
	if in.Currency != "" && len(in.Currency) != 3 {
		return workspace.Invalid("currency", "must be a 3-letter code")
	}
	if in.Balance < 0 {
		return workspace.Invalid("balance", "must not be negative")
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

func (c *Controller) OpenAccount(ctx context.Context, in AccountInput) error {
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if err := c.guard(in.Validate); err != nil {
		return err
	}
	return c.Mutate(ctx, func(ctx context.Context) (workspace.Result[model.Account], error) {
		return c.svc.Accounts.Create(ctx, c.Owner(), in)
	}, workspace.MutateOptions{Label: "open account", SuccessMessage: "Account opened"})
}

func (c *Controller) RenameAccount(ctx context.Context, id model.ID, label string) error {
	if err := c.guard(func() error {
		if strings.TrimSpace(label) == "" {
			return workspace.Invalid("label", "is required")
		}
		return nil
	}); err != nil {
		return err
	}
	return c.Mutate(ctx, func(ctx context.Context) (workspace.Result[model.Account], error) {
		return c.svc.Accounts.Update(ctx, c.Owner(), id, map[string]any{"label": strings.TrimSpace(label)})
	}, workspace.MutateOptions{Label: "rename account", SuccessMessage: "Account renamed"})
}

// CloseAccount marks an empty account closed. Accounts with a balance must be
// drained by a transfer first.
func (c *Controller) CloseAccount(ctx context.Context, id model.ID) error {
	if err := c.guard(func() error {
		acct, ok := c.Find(id)
		if !ok {
			return workspace.Invalid("account", "not found: "+id.String())
		}
		if acct.Status == StatusClosed {
			return workspace.Invalid("account", "is already closed")
		}
		if acct.Balance != 0 {
			return workspace.Invalid("account", "balance must be zero to close")
		}
		return nil
	}); err != nil {
		return err
	}
	return c.Mutate(ctx, func(ctx context.Context) (workspace.Result[model.Account], error) {
		return c.svc.Accounts.Update(ctx, c.Owner(), id, map[string]any{"status": StatusClosed})
	}, workspace.MutateOptions{Label: "close account", SuccessMessage: "Account closed"})
}

func (c *Controller) RequestClose(acct model.Account) {
	c.RequestConfirm("Close account", fmt.Sprintf("Close %q? It will no longer accept transfers.", acct.Label), func(ctx context.Context) error {
		return c.CloseAccount(ctx, acct.ID)
	})
}

// SubmitWizard opens an account from a create form, or renames the account
// being edited. Only the label of an existing account can change.
func (c *Controller) SubmitWizard(ctx context.Context, in AccountInput) error {
	w := c.Wizard()
	if !w.Open {
		return nil
	}
	var err error
	if w.Mode == workspace.WizardEdit && w.Initial != nil {
		err = c.RenameAccount(ctx, w.Initial.ID, in.Label)
	} else {
		err = c.OpenAccount(ctx, in)
	}
	if err != nil {
		return err
	}
	c.CloseWizard()
	return nil
}

type TransferInput struct {
	FromID model.ID `json:"fromAccountId"`
	ToID   model.ID `json:"toAccountId"`
	Amount int64    `json:"amount"`
	Memo   string   `json:"memo,omitempty"`
}

// validateTransfer checks the transfer against the loaded balances.
func (c *Controller) validateTransfer(in TransferInput) error {
	if in.Amount <= 0 {
		return workspace.Invalid("amount", "must be positive")
	}
	if in.FromID.IsZero() || in.ToID.IsZero() {
		return workspace.Invalid("account", "source and destination are required")
	}
	if in.FromID == in.ToID {
		return workspace.Invalid("account", "source and destination must differ")
	}
	from, ok := c.Find(in.FromID)
	if !ok {
		return workspace.Invalid("fromAccountId", "unknown account "+in.FromID.String())
	}
	to, ok := c.Find(in.ToID)
	if !ok {
		return workspace.Invalid("toAccountId", "unknown account "+in.ToID.String())
	}
	if from.Status == StatusClosed || to.Status == StatusClosed {
		return workspace.Invalid("account", "is closed")
	}
	if from.Currency != to.Currency {
		return workspace.Invalid("currency", fmt.Sprintf("cannot transfer %s to a %s account", from.Currency, to.Currency))
	}
	if in.Amount > from.Balance {
		return workspace.Invalid("amount", "exceeds available balance")
	}
	return nil
}

// Transfer moves money between two accounts. Both balances change server
// side, so the result is always a refetch.
func (c *Controller) Transfer(ctx context.Context, in TransferInput) error {
	if err := c.guard(func() error { return c.validateTransfer(in) }); err != nil {
		return err
	}
	return c.Mutate(ctx, func(ctx context.Context) (workspace.Result[model.Account], error) {
		return c.svc.Transfers.Post(ctx, c.Owner(), in)
	}, workspace.MutateOptions{Label: "transfer", SuccessMessage: "Transfer completed"})
}

// Totals sums balances of active accounts per currency.
func Totals(accts []model.Account) map[string]int64 {
	out := map[string]int64{}
	for _, a := range accts {
		if a.Status == StatusClosed {
			continue
		}
		out[a.Currency] += a.Balance
	}
	return out
}

// Actions wraps controller calls for buttons that show their own spinner and
// error. Pending names the action in flight, if any.
type Actions struct {
	c *Controller

	mu      sync.Mutex
	pending string
}

func (a *Actions) Pending() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending
}

func (a *Actions) run(name string, fn func() error) error {
	a.mu.Lock()
	a.pending = name
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		if a.pending == name {
			a.pending = ""
		}
		a.mu.Unlock()
	}()
	return fn()
}

// Refresh reloads the wallet and returns the load error to the caller instead
// of leaving it only in controller state.
func (a *Actions) Refresh(ctx context.Context) error {
	return a.run("refresh", func() error { return a.c.Load(ctx) })
}

func (a *Actions) Transfer(ctx context.Context, in TransferInput) error {
	return a.run("transfer", func() error { return a.c.Transfer(ctx, in) })
}

// SetSetting saves one key of the workspace settings. An empty value removes it.
func (c *Controller) SetSetting(ctx context.Context, key, value string) error {
	return c.PutSetting(ctx, key, value, c.svc.Workspace.SaveSettings)
}

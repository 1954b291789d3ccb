package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gigdesk/internal/devserver"
	"gigdesk/internal/devserver/devtest"
	"gigdesk/internal/model"
	"gigdesk/internal/workspace"
)

func newWallet(t *testing.T, owner string, cfg devserver.Config) *Controller {
	t.Helper()
	b := devtest.Start(t, cfg)
	c := New(NewService(b.Client), workspace.Config{Owner: owner})
	require.NoError(t, c.Load(context.Background()))
	return c
}

func openTwo(t *testing.T, c *Controller, opening int64) (from, to model.Account) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, c.OpenAccount(ctx, AccountInput{Label: "Operating", Currency: "usd", Balance: opening}))
	require.NoError(t, c.OpenAccount(ctx, AccountInput{Label: "Savings", Currency: "USD"}))
	for _, a := range c.Entities() {
		switch a.Label {
		case "Operating":
			from = a
		case "Savings":
			to = a
		}
	}
	require.False(t, from.ID.IsZero())
	require.False(t, to.ID.IsZero())
	return from, to
}

func TestOpenAccount_UpsertsAndNormalizesCurrency(t *testing.T) {
	c := newWallet(t, "u1", devserver.Config{})
	require.NoError(t, c.OpenAccount(context.Background(), AccountInput{Label: "Ops", Currency: " eur "}))

	accts := c.Entities()
	require.Len(t, accts, 1)
	assert.Equal(t, "EUR", accts[0].Currency)
	assert.Equal(t, StatusActive, accts[0].Status)
	assert.Equal(t, "Account opened", c.State().Feedback.Message)
}

func TestTransfer_RefetchesBalances(t *testing.T) {
	c := newWallet(t, "u1", devserver.Config{})
	from, to := openTwo(t, c, 1000)

	require.NoError(t, c.Transfer(context.Background(), TransferInput{FromID: from.ID, ToID: to.ID, Amount: 400, Memo: "rent"}))

	gotFrom, _ := c.Find(from.ID)
	gotTo, _ := c.Find(to.ID)
	assert.Equal(t, int64(600), gotFrom.Balance)
	assert.Equal(t, int64(400), gotTo.Balance)
	require.Len(t, gotFrom.Transfers, 1)
	assert.Equal(t, "rent", gotFrom.Transfers[0].Memo)
	assert.Equal(t, map[string]int64{"USD": 1000}, Totals(c.Entities()))
}

func TestTransfer_ValidatesBeforeRequest(t *testing.T) {
	c := newWallet(t, "u1", devserver.Config{})
	from, to := openTwo(t, c, 100)
	ctx := context.Background()
	require.NoError(t, c.OpenAccount(ctx, AccountInput{Label: "Euro", Currency: "EUR"}))
	var eur model.Account
	for _, a := range c.Entities() {
		if a.Label == "Euro" {
			eur = a
		}
	}

	tests := []struct {
		name  string
		in    TransferInput
		field string
	}{
		{"zero amount", TransferInput{FromID: from.ID, ToID: to.ID, Amount: 0}, "amount"},
		{"negative amount", TransferInput{FromID: from.ID, ToID: to.ID, Amount: -5}, "amount"},
		{"same account", TransferInput{FromID: from.ID, ToID: from.ID, Amount: 1}, "account"},
		{"unknown destination", TransferInput{FromID: from.ID, ToID: "acc-missing", Amount: 1}, "toAccountId"},
		{"currency mismatch", TransferInput{FromID: from.ID, ToID: eur.ID, Amount: 1}, "currency"},
		{"over balance", TransferInput{FromID: from.ID, ToID: to.ID, Amount: 101}, "amount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Transfer(ctx, tt.in)
			var ve *workspace.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.NotEmpty(t, c.Error())
		})
	}
	got, _ := c.Find(from.ID)
	assert.Equal(t, int64(100), got.Balance)
}

func TestCloseAccount(t *testing.T) {
	c := newWallet(t, "u1", devserver.Config{})
	from, to := openTwo(t, c, 50)
	ctx := context.Background()

	err := c.CloseAccount(ctx, from.ID)
	var ve *workspace.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "account: balance must be zero to close", c.Error())

	c.RequestClose(to)
	require.True(t, c.Confirm().Open)
	require.NoError(t, c.ConfirmAction(ctx))
	assert.False(t, c.Confirm().Open)

	got, _ := c.Find(to.ID)
	assert.Equal(t, StatusClosed, got.Status)
	assert.Empty(t, Totals([]model.Account{got}))

	err = c.Transfer(ctx, TransferInput{FromID: from.ID, ToID: to.ID, Amount: 1})
	require.ErrorAs(t, err, &ve)
}

func TestRenameAccount(t *testing.T) {
	c := newWallet(t, "u1", devserver.Config{})
	from, _ := openTwo(t, c, 0)

	require.NoError(t, c.RenameAccount(context.Background(), from.ID, "  Main  "))
	got, _ := c.Find(from.ID)
	assert.Equal(t, "Main", got.Label)

	require.Error(t, c.RenameAccount(context.Background(), from.ID, " "))
}

func TestReadOnlyUserIsDenied(t *testing.T) {
	c := newWallet(t, "viewer", devserver.Config{ReadOnlyUsers: []string{"viewer"}})

	err := c.OpenAccount(context.Background(), AccountInput{Label: "Ops"})
	require.ErrorIs(t, err, workspace.ErrAccessDenied)
	assert.Equal(t, workspace.ErrAccessDenied.Error(), c.Error())
	assert.Empty(t, c.Entities())
}

func TestActions_RefreshPropagatesErrors(t *testing.T) {
	b := devtest.Start(t, devserver.Config{})
	c := New(NewService(b.Client), workspace.Config{})

	err := c.Actions.Refresh(context.Background())
	require.ErrorIs(t, err, workspace.ErrOwnerRequired)
	assert.Empty(t, c.Actions.Pending())

	c = New(NewService(b.Client), workspace.Config{Owner: "u1"})
	b.Server.Close()
	err = c.Actions.Refresh(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, workspace.ErrOwnerRequired))
	assert.NotEmpty(t, c.Error())
}

func TestActions_TransferTracksPending(t *testing.T) {
	c := newWallet(t, "u1", devserver.Config{})
	from, to := openTwo(t, c, 10)

	require.NoError(t, c.Actions.Transfer(context.Background(), TransferInput{FromID: from.ID, ToID: to.ID, Amount: 10}))
	assert.Empty(t, c.Actions.Pending())
	got, _ := c.Find(to.ID)
	assert.Equal(t, int64(10), got.Balance)
}

func TestSubmitWizard_OpensOrRenames(t *testing.T) {
	c := newWallet(t, "u1", devserver.Config{})
	ctx := context.Background()

	c.OpenCreateWizard(nil)
	require.NoError(t, c.SubmitWizard(ctx, AccountInput{Label: "Travel", Currency: "usd"}))
	assert.False(t, c.Wizard().Open)
	require.Len(t, c.Entities(), 1)

	acct := c.Entities()[0]
	c.OpenEditWizard(&acct)
	err := c.SubmitWizard(ctx, AccountInput{Label: "  "})
	require.Error(t, err)
	assert.True(t, c.Wizard().Open, "failed save keeps the form open")

	require.NoError(t, c.SubmitWizard(ctx, AccountInput{Label: "Trips"}))
	got, _ := c.Find(acct.ID)
	assert.Equal(t, "Trips", got.Label)
	assert.Equal(t, "USD", got.Currency)
}

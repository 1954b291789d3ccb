package cli

import (
	"strings"

	"gigdesk/internal/model"
	"gigdesk/internal/wallet"

	"github.com/spf13/cobra"
)

func newWalletCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Wallet accounts and transfers",
	}
	cmd.AddCommand(newWalletListCmd(app))
	cmd.AddCommand(newWalletShowCmd(app))
	cmd.AddCommand(newWalletOpenCmd(app))
	cmd.AddCommand(newWalletRenameCmd(app))
	cmd.AddCommand(newWalletCloseCmd(app))
	cmd.AddCommand(newWalletTransferCmd(app))
	cmd.AddCommand(newSettingsCmd(app, "wallet", openWallet))
	return cmd
}

func openWallet(cmd *cobra.Command, app *App) (*wallet.Controller, error) {
	c, err := app.client()
	if err != nil {
		return nil, err
	}
	ctl := wallet.New(wallet.NewService(c), app.workspaceConfig("wallet"))
	if err := ctl.Actions.Refresh(cmd.Context()); err != nil {
		return nil, err
	}
	return ctl, nil
}

func findAccount(ctl *wallet.Controller, id string) (model.Account, error) {
	a, ok := ctl.Find(model.ID(strings.TrimSpace(id)))
	if !ok {
		return model.Account{}, errNotFound("account", id)
	}
	return a, nil
}

func newWalletListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts with balances",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := openWallet(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			accts := ctl.Entities()
			return writeOut(cmd, app, map[string]any{
				"data": accts,
				"meta": map[string]any{"totals": wallet.Totals(accts)},
			})
		},
	}
}

func newWalletShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <account-id>",
		Short: "Show one account and its transfers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := openWallet(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			a, err := findAccount(ctl, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": a})
		},
	}
}

func newWalletOpenCmd(app *App) *cobra.Command {
	var in wallet.AccountInput
	cmd := &cobra.Command{
		Use:   "open",
		Short: "Open an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := openWallet(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			before := ctl.Entities()
			if err := ctl.OpenAccount(cmd.Context(), in); err != nil {
				return writeErr(cmd, err)
			}
			a, _ := created(before, ctl.Entities())
			return writeOut(cmd, app, envelope(a, ctl.State().Feedback))
		},
	}
	cmd.Flags().StringVar(&in.Label, "label", "", "Account label")
	cmd.Flags().StringVar(&in.Currency, "currency", "USD", "Currency code")
	cmd.Flags().Int64Var(&in.Balance, "balance", 0, "Opening balance (minor units)")
	_ = cmd.MarkFlagRequired("label")
	return cmd
}

func newWalletRenameCmd(app *App) *cobra.Command {
	var label string
	cmd := &cobra.Command{
		Use:   "rename <account-id>",
		Short: "Rename an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := openWallet(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			a, err := findAccount(ctl, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := ctl.RenameAccount(cmd.Context(), a.ID, label); err != nil {
				return writeErr(cmd, err)
			}
			a, _ = ctl.Find(a.ID)
			return writeOut(cmd, app, envelope(a, ctl.State().Feedback))
		},
	}
	cmd.Flags().StringVar(&label, "label", "", "New label")
	_ = cmd.MarkFlagRequired("label")
	return cmd
}

func newWalletCloseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "close <account-id>",
		Short: "Close an empty account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := openWallet(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			a, err := findAccount(ctl, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := ctl.CloseAccount(cmd.Context(), a.ID); err != nil {
				return writeErr(cmd, err)
			}
			a, _ = ctl.Find(a.ID)
			return writeOut(cmd, app, envelope(a, ctl.State().Feedback))
		},
	}
}

func newWalletTransferCmd(app *App) *cobra.Command {
	var from, to, memo string
	var amount int64
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Transfer between two accounts of the same currency",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := openWallet(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			in := wallet.TransferInput{
				FromID: model.ID(strings.TrimSpace(from)),
				ToID:   model.ID(strings.TrimSpace(to)),
				Amount: amount,
				Memo:   strings.TrimSpace(memo),
			}
			if err := ctl.Actions.Transfer(cmd.Context(), in); err != nil {
				return writeErr(cmd, err)
			}
			src, _ := ctl.Find(in.FromID)
			dst, _ := ctl.Find(in.ToID)
			return writeOut(cmd, app, envelope(map[string]any{"from": src, "to": dst}, ctl.State().Feedback))
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Source account id")
	cmd.Flags().StringVar(&to, "to", "", "Destination account id")
	cmd.Flags().Int64Var(&amount, "amount", 0, "Amount (minor units)")
	cmd.Flags().StringVar(&memo, "memo", "", "Memo")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

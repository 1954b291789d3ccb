package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// settingsStore is the part of a domain controller the settings commands use.
type settingsStore interface {
	Settings() map[string]any
	SetSetting(ctx context.Context, key, value string) error
}

func newSettingsCmd[C settingsStore](app *App, name string, open func(cmd *cobra.Command, app *App) (C, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the " + name + " workspace settings",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the workspace settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := open(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": ctl.Settings()})
		},
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a workspace setting (an empty value removes it)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := open(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := ctl.SetSetting(cmd.Context(), args[0], args[1]); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data": ctl.Settings(),
				"meta": map[string]any{"message": "Settings saved", "tone": "success"},
			})
		},
	}

	cmd.AddCommand(show, set)
	return cmd
}

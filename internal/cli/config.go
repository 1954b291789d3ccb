package cli

import (
	"gigdesk/internal/config"

	"github.com/spf13/cobra"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or edit ~/.gigdesk/config.json",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the stored config and the effective settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return writeErr(cmd, err)
			}
			path, _ := config.Path()
			return writeOut(cmd, app, map[string]any{
				"data": cfg.Values(),
				"meta": map[string]any{
					"path": path,
					"effective": map[string]any{
						"apiBaseURL": app.APIBaseURL,
						"userId":     app.UserID,
						"format":     app.Format,
						"logLevel":   app.LogLevel,
					},
					"keys": config.Keys(),
				},
			})
		},
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a config key (an empty value clears it)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return writeErr(cmd, err)
			}
			if err := config.Save(cfg); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": cfg.Values()})
		},
	}

	cmd.AddCommand(show, set)
	return cmd
}

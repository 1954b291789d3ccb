package cli

import (
	"strings"

	"gigdesk/internal/config"
	"gigdesk/internal/tui"

	"github.com/spf13/cobra"
)

func newTUICmd(app *App) *cobra.Command {
	var domain string
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive workspace UI",
		Long: strings.TrimSpace(`
Open the full-screen UI over the events, wallet and mentoring workspaces.

The starting tab comes from --domain, else the "tui.domain" config key, else events.
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, app, domain)
		},
	}
	cmd.Flags().StringVar(&domain, "domain", "", "Starting workspace (events|wallet|mentoring)")
	return cmd
}

func runTUI(cmd *cobra.Command, app *App, domain string) error {
	if strings.TrimSpace(app.UserID) == "" {
		return writeErr(cmd, errUsage("missing user id: pass --user, set GIGDESK_USER, or run `gigdesk config set userId <id>`"))
	}
	cfg, err := config.Load()
	if err != nil {
		return writeErr(cmd, err)
	}
	var profile string
	if cfg.TUI != nil {
		profile = cfg.TUI.Profile
		domain = firstNonEmpty(domain, cfg.TUI.Domain)
	}
	c, err := app.client()
	if err != nil {
		return writeErr(cmd, err)
	}
	// The alt screen owns the terminal, so controller logs are dropped.
	if err := tui.Run(cmd.Context(), tui.Options{
		Client:  c,
		Owner:   strings.TrimSpace(app.UserID),
		Domain:  domain,
		Profile: profile,
	}); err != nil {
		return writeErr(cmd, err)
	}
	return nil
}

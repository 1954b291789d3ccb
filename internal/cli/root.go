package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gigdesk/internal/api"
	"gigdesk/internal/config"
	"gigdesk/internal/format"
	"gigdesk/internal/workspace"

	"github.com/spf13/cobra"
)

const defaultAPI = "http://127.0.0.1:8787"

type App struct {
	APIBaseURL string
	UserID     string
	PrettyJSON bool
	Format     string
	LogLevel   string

	log *slog.Logger
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "gigdesk",
		Short:        "Marketplace workspaces (events, wallet, mentoring) from the terminal",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  gigdesk

  # Scriptable commands
  gigdesk events list
  gigdesk wallet transfer --from acc-a --to acc-b --amount 2500
  gigdesk events settings set currency EUR

  # Direct lookup (shortcut for: gigdesk events show <event-id>)
  gigdesk evt-abc12345

  # Local backend for trying things out
  gigdesk serve-dev --seed-user demo
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(cmd, app, "")
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.resolve(cmd)
	}

	cmd.PersistentFlags().StringVar(&app.APIBaseURL, "api", envOr("GIGDESK_API", ""), "Backend base URL (default from config, then "+defaultAPI+")")
	cmd.PersistentFlags().StringVar(&app.UserID, "user", envOr("GIGDESK_USER", ""), "User id every request is scoped to")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON/EDN output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("GIGDESK_FORMAT", ""), "Output format (json|edn|table)")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", envOr("GIGDESK_LOG_LEVEL", ""), "Log level on stderr (debug|info|warn|error)")

	cmd.AddCommand(newEventsCmd(app))
	cmd.AddCommand(newWalletCmd(app))
	cmd.AddCommand(newMentoringCmd(app))
	cmd.AddCommand(newDashboardCmd(app))
	cmd.AddCommand(newServeDevCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newTUICmd(app))

	return cmd
}

// resolve fills unset options from the config file, then defaults. Flags and
// env vars already populated the fields, so they win.
func (app *App) resolve(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return writeErr(cmd, err)
	}
	app.APIBaseURL = firstNonEmpty(app.APIBaseURL, cfg.APIBaseURL, defaultAPI)
	app.UserID = firstNonEmpty(app.UserID, cfg.UserID)
	app.Format = firstNonEmpty(app.Format, cfg.Format, format.JSON)
	app.LogLevel = firstNonEmpty(app.LogLevel, cfg.LogLevel, "warn")

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(app.LogLevel)); err != nil {
		return writeErr(cmd, usageError{msg: fmt.Sprintf("invalid --log-level %q", app.LogLevel)})
	}
	app.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: lvl}))
	return nil
}

func (app *App) logger() *slog.Logger {
	if app.log == nil {
		return slog.New(slog.DiscardHandler)
	}
	return app.log
}

func (app *App) client() (*api.Client, error) {
	return api.NewClient(api.ClientConfig{
		BaseURL: app.APIBaseURL,
		Logger:  app.logger(),
	})
}

func (app *App) workspaceConfig(name string) workspace.Config {
	return workspace.Config{
		Name:   name,
		Owner:  strings.TrimSpace(app.UserID),
		Logger: app.logger(),
	}
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func firstNonEmpty(xs ...string) string {
	for _, x := range xs {
		if s := strings.TrimSpace(x); s != "" {
			return s
		}
	}
	return ""
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

// writeErr prints the display form of err and returns it so cobra exits
// non-zero.
func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), workspace.Message(err))
	return err
}

// envelope wraps data with the feedback banner of the last mutation.
func envelope(data any, fb *workspace.Feedback) map[string]any {
	out := map[string]any{"data": data}
	if fb != nil {
		out["meta"] = map[string]any{"message": fb.Message, "tone": string(fb.Tone)}
	}
	return out
}

// created returns the first entity in after whose id is not in before.
func created[E workspace.Entity](before, after []E) (E, bool) {
	seen := map[string]bool{}
	for _, e := range before {
		seen[e.EntityID().String()] = true
	}
	for _, e := range after {
		if !seen[e.EntityID().String()] {
			return e, true
		}
	}
	var zero E
	return zero, false
}

package tui

import (
	"context"
	"log/slog"

	"gigdesk/internal/api"

	tea "github.com/charmbracelet/bubbletea"
)

type Options struct {
	Client *api.Client
	Owner  string
	// Domain is the tab shown first; empty means events.
	Domain string
	// Profile is ProfileDefault or ProfileMono.
	Profile string
	Logger  *slog.Logger
}

// Run starts the full-screen UI and blocks until the user quits or ctx ends.
func Run(ctx context.Context, opts Options) error {
	applyThemePreference()
	applyProfile(opts.Profile)

	m, err := newAppModel(ctx, opts)
	if err != nil {
		return err
	}
	defer m.close()
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

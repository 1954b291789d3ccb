package cli

import (
	"context"

	"gigdesk/internal/events"
	"gigdesk/internal/mentoring"
	"gigdesk/internal/wallet"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type dashboardSection struct {
	Count    int            `json:"count"`
	Overview map[string]any `json:"overview,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

func newDashboardCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Load every workspace at once and print their overviews",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := loadDashboard(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": out})
		},
	}
}

// loadDashboard fetches the three workspaces concurrently. The first failure
// cancels the others.
func loadDashboard(ctx context.Context, app *App) (map[string]dashboardSection, error) {
	c, err := app.client()
	if err != nil {
		return nil, err
	}
	ev := events.New(events.NewService(c), app.workspaceConfig("events"))
	wl := wallet.New(wallet.NewService(c), app.workspaceConfig("wallet"))
	mt := mentoring.New(mentoring.NewService(c), app.workspaceConfig("mentoring"))
	defer ev.Close()
	defer wl.Close()
	defer mt.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ev.Load(gctx) })
	g.Go(func() error { return wl.Actions.Refresh(gctx) })
	g.Go(func() error { return mt.Load(gctx) })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	evs := ev.State().Snapshot
	accts := wl.State().Snapshot
	sessions := mt.State().Snapshot
	openTasks := 0
	for _, e := range evs.Entities {
		openTasks += events.OpenTasks(e)
	}
	return map[string]dashboardSection{
		"events": {
			Count:    len(evs.Entities),
			Overview: evs.Overview,
			Extra:    map[string]any{"openTasks": openTasks},
		},
		"wallet": {
			Count:    len(accts.Entities),
			Overview: accts.Overview,
			Extra:    map[string]any{"totals": wallet.Totals(accts.Entities)},
		},
		"mentoring": {
			Count:    len(sessions.Entities),
			Overview: sessions.Overview,
			Extra:    map[string]any{"earnings": mentoring.Earnings(sessions.Entities)},
		},
	}, nil
}

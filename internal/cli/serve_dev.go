package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gigdesk/internal/devserver"

	"github.com/spf13/cobra"
)

func newServeDevCmd(app *App) *cobra.Command {
	var addr, dbPath, seedUser string
	var readOnly []string

	cmd := &cobra.Command{
		Use:   "serve-dev",
		Short: "Run a local backend implementing the /users/{userId} REST family",
		Long: strings.TrimSpace(`
Run a local stand-in for the marketplace backend, backed by sqlite.

Point the CLI or TUI at it with --api (or GIGDESK_API). Data lives in memory
unless --db is given.
`),
		Example: strings.TrimSpace(`
# In-memory backend with demo data for user "demo"
gigdesk serve-dev --seed-user demo

# Persistent backend; "guest" may only read
gigdesk serve-dev --db ./dev.db --read-only guest
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			listenAddr := strings.TrimSpace(addr)
			if listenAddr == "" {
				return writeErr(cmd, errUsage("serve-dev: missing --addr"))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			st, err := devserver.Open(ctx, dbPath)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()
			if u := strings.TrimSpace(seedUser); u != "" {
				if err := st.Seed(ctx, u); err != nil {
					return writeErr(cmd, err)
				}
			}

			ln, err := net.Listen("tcp", listenAddr)
			if err != nil {
				return writeErr(cmd, err)
			}
			srv := &http.Server{
				Handler:           devserver.New(st, devserver.Config{ReadOnlyUsers: readOnly, Logger: app.logger()}).Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			actualAddr := ln.Addr().String()
			_ = writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"addr":      actualAddr,
					"url":       "http://" + actualAddr,
					"db":        dbPath,
					"seedUser":  seedUser,
					"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
				},
			})
			fmt.Fprintf(cmd.ErrOrStderr(), "gigdesk dev backend running at http://%s\n", actualAddr)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Serve(ln) }()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return writeErr(cmd, err)
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8787", "Bind address (host:port or :port)")
	cmd.Flags().StringVar(&dbPath, "db", "", "sqlite database file (default: in memory)")
	cmd.Flags().StringVar(&seedUser, "seed-user", "", "Fill this user with demo data if empty")
	cmd.Flags().StringSliceVar(&readOnly, "read-only", nil, "Users without the manage permission")
	return cmd
}

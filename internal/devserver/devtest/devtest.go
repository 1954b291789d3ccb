// Package devtest starts an in-memory dev server for tests of the clients.
package devtest

import (
	"context"
	"net/http/httptest"
	"testing"

	"gigdesk/internal/api"
	"gigdesk/internal/devserver"
)

type Backend struct {
	Server *httptest.Server
	Store  *devserver.Store
	Client *api.Client
}

// Start serves a fresh in-memory store until the test ends.
func Start(t testing.TB, cfg devserver.Config) *Backend {
	t.Helper()
	st, err := devserver.Open(context.Background(), "")
	if err != nil {
		t.Fatalf("open dev store: %v", err)
	}
	srv := httptest.NewServer(devserver.New(st, cfg).Handler())
	t.Cleanup(func() {
		srv.Close()
		_ = st.Close()
	})
	c, err := api.NewClient(api.ClientConfig{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("api client: %v", err)
	}
	return &Backend{Server: srv, Store: st, Client: c}
}

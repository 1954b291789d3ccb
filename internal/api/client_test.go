package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gigdesk/internal/model"
	"gigdesk/internal/workspace"
)

type thing struct {
	ID   model.ID `json:"id"`
	Name string   `json:"name"`
}

func (t thing) EntityID() model.ID { return t.ID }

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(ClientConfig{BaseURL: srv.URL + "/api/"})
	require.NoError(t, err)
	return c
}

func TestUserPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		user     string
		segments []string
		want     string
		wantErr  error
	}{
		{name: "root", user: "42", want: "/users/42"},
		{name: "nested", user: "42", segments: []string{"event-management/events", "7", "tasks"}, want: "/users/42/event-management/events/7/tasks"},
		{name: "escapes", user: "a b", segments: []string{"x/y", "c?d"}, want: "/users/a%20b/x/y/c%3Fd"},
		{name: "missing user", user: "  ", wantErr: ErrUserRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UserPath(tt.user, tt.segments...)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewClient_RejectsBadBaseURL(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "ftp://example.com", "::"} {
		_, err := NewClient(ClientConfig{BaseURL: raw})
		assert.Error(t, err, raw)
	}
}

func TestResourceCreate_ShapesBecomeResults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		body     string
		wantKind workspace.ResultKind
		wantID   model.ID
	}{
		{name: "bare entity with numeric id", status: 201, body: `{"id":7,"name":"x"}`, wantKind: workspace.ResultUpserted, wantID: "7"},
		{name: "data envelope", status: 200, body: `{"data":{"id":"a1","name":"x"}}`, wantKind: workspace.ResultUpserted, wantID: "a1"},
		{name: "wrap key", status: 200, body: `{"thing":{"id":"w","name":"x"}}`, wantKind: workspace.ResultUpserted, wantID: "w"},
		{name: "no content", status: 204, body: ``, wantKind: workspace.ResultRefetch},
		{name: "ack without entity", status: 200, body: `{"ok":true}`, wantKind: workspace.ResultRefetch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var gotPath, gotMethod string
			var gotBody map[string]any
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				gotPath, gotMethod = r.URL.Path, r.Method
				b, _ := io.ReadAll(r.Body)
				_ = json.Unmarshal(b, &gotBody)
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			res, err := NewResource[thing](c, "thing", "widgets").Create(context.Background(), "9", map[string]any{"name": "x"})
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, res.Kind)
			assert.Equal(t, tt.wantID, res.ID)
			assert.Equal(t, "/api/users/9/widgets", gotPath)
			assert.Equal(t, http.MethodPost, gotMethod)
			assert.Equal(t, "x", gotBody["name"])
		})
	}
}

func TestResourceUpdateAndDelete(t *testing.T) {
	t.Parallel()

	var seen []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_, _ = io.WriteString(w, `{"id":"3","name":"renamed"}`)
	})
	res := NewResource[thing](c, "", "widgets")

	up, err := res.Update(context.Background(), "u", "3", map[string]any{"name": "renamed"})
	require.NoError(t, err)
	assert.Equal(t, "renamed", up.Entity.Name)

	del, err := res.Delete(context.Background(), "u", "3")
	require.NoError(t, err)
	assert.Equal(t, workspace.ResultRemoved, del.Kind)
	assert.Equal(t, model.ID("3"), del.ID)

	assert.Equal(t, []string{"PATCH /api/users/u/widgets/3", "DELETE /api/users/u/widgets/3"}, seen)
}

func TestDo_ErrorCarriesServerMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "message", body: `{"message":"Title is required"}`, want: "Title is required"},
		{name: "error string", body: `{"error":"nope"}`, want: "nope"},
		{name: "nested error", body: `{"error":{"message":"nested"}}`, want: "nested"},
		{name: "html", body: `<html>bad gateway</html>`, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnprocessableEntity)
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := NewResource[thing](c, "", "widgets").Create(context.Background(), "u", map[string]any{})
			var ae *Error
			require.True(t, errors.As(err, &ae))
			assert.Equal(t, http.StatusUnprocessableEntity, ae.Status)
			assert.Equal(t, tt.want, ae.ServerMessage())
			if tt.want != "" {
				assert.Equal(t, tt.want, workspace.Message(err))
			}
		})
	}
}

func TestResource_MissingUserSkipsNetwork(t *testing.T) {
	t.Parallel()

	hits := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { hits++ })
	_, err := NewResource[thing](c, "", "widgets").Create(context.Background(), "", nil)
	require.ErrorIs(t, err, ErrUserRequired)
	assert.Zero(t, hits)
}

func TestWorkspaceFetch(t *testing.T) {
	t.Parallel()

	var gotQuery url.Values
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		_, _ = io.WriteString(w, `{"data":{
			"overview":{"total":2},
			"things":[{"id":1,"name":"a"},{"id":"2","name":"b"}],
			"settings":{"currency":"EUR"},
			"permissions":{"manage":true}
		}}`)
	})
	snap, err := NewWorkspace[thing](c, "things", "thing-management").Fetch(context.Background(), "u", url.Values{"status": {"open"}})
	require.NoError(t, err)

	assert.Equal(t, "open", gotQuery.Get("status"))
	assert.Equal(t, []thing{{ID: "1", Name: "a"}, {ID: "2", Name: "b"}}, snap.Entities)
	assert.Equal(t, "EUR", snap.Settings["currency"])
	assert.True(t, snap.Permissions.Allows(workspace.PermManage))
	assert.EqualValues(t, 2, snap.Overview["total"])
}

func TestWorkspaceSaveSettings(t *testing.T) {
	t.Parallel()

	var gotMethod, gotPath string
	var gotBody map[string]any
	reply := `{"data":{"currency":"EUR","autoReply":true}}`
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		if reply == "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_, _ = io.WriteString(w, reply)
	})
	ws := NewWorkspace[thing](c, "things", "thing-management")

	out, err := ws.SaveSettings(context.Background(), "u", map[string]any{"currency": "EUR"})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/api/users/u/thing-management/settings", gotPath)
	assert.Equal(t, "EUR", gotBody["currency"])
	assert.Equal(t, map[string]any{"currency": "EUR", "autoReply": true}, out)

	// An empty reply echoes what was sent.
	reply = ""
	out, err = ws.SaveSettings(context.Background(), "u", map[string]any{"currency": "USD"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"currency": "USD"}, out)
}

func TestResourceGet_NotFound(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/users/u/widgets/1" {
			_, _ = io.WriteString(w, `{"data":{"id":1,"name":"a"}}`)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"not found"}`)
	})
	r := NewResource[thing](c, "widget", "widgets")

	got, err := r.Get(context.Background(), "u", "1")
	require.NoError(t, err)
	assert.Equal(t, thing{ID: "1", Name: "a"}, got)

	_, err = r.Get(context.Background(), "u", "2")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsNotFound(errors.New("other")))
}

func TestWorkspaceFetch_EmptyCollection(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"overview":{}}`)
	})
	snap, err := NewWorkspace[thing](c, "things", "x").Fetch(context.Background(), "u", nil)
	require.NoError(t, err)
	assert.NotNil(t, snap.Entities)
	assert.Empty(t, snap.Entities)
}

func TestWorkspaceFetch_HonorsCancellation(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewWorkspace[thing](c, "things", "x").Fetch(ctx, "u", nil)
	require.ErrorIs(t, err, context.Canceled)
}

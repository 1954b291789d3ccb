package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"gigdesk/internal/workspace"
)

// Workspace fetches a workspace root such as /users/{id}/event-management.
// Its Fetch method satisfies workspace.Fetcher.
type Workspace[E workspace.Entity] struct {
	client   *Client
	segments []string
	// collection is the key holding the entity list ("events", "accounts");
	// "entities" is accepted as well.
	collection string
}

func NewWorkspace[E workspace.Entity](c *Client, collection string, segments ...string) Workspace[E] {
	return Workspace[E]{client: c, segments: segments, collection: collection}
}

type snapshotWire struct {
	Overview    map[string]any        `json:"overview"`
	Settings    map[string]any        `json:"settings"`
	Permissions workspace.Permissions `json:"permissions"`
}

func (w Workspace[E]) Fetch(ctx context.Context, owner string, params url.Values) (*workspace.Snapshot[E], error) {
	p, err := UserPath(owner, w.segments...)
	if err != nil {
		return nil, err
	}
	raw, err := w.client.Do(ctx, http.MethodGet, p, params, nil)
	if err != nil {
		return nil, err
	}

	var obj map[string]json.RawMessage
	if err := decodeUnwrapped(raw, &obj, "data"); err != nil {
		return nil, fmt.Errorf("api: decode %s: %w", p, err)
	}

	var meta snapshotWire
	if err := decodeUnwrapped(raw, &meta, "data"); err != nil {
		return nil, fmt.Errorf("api: decode %s: %w", p, err)
	}

	snap := &workspace.Snapshot[E]{
		Overview:    meta.Overview,
		Settings:    meta.Settings,
		Permissions: meta.Permissions,
		Entities:    []E{},
	}
	list, ok := obj[w.collection]
	if !ok || w.collection == "" {
		list, ok = obj["entities"]
	}
	if ok {
		if err := json.Unmarshal(list, &snap.Entities); err != nil {
			return nil, fmt.Errorf("api: decode %s.%s: %w", p, w.collection, err)
		}
		if snap.Entities == nil {
			snap.Entities = []E{}
		}
	}
	return snap, nil
}

// SaveSettings replaces the workspace settings block and returns the stored copy.
func (w Workspace[E]) SaveSettings(ctx context.Context, owner string, settings map[string]any) (map[string]any, error) {
	segs := append(append([]string(nil), w.segments...), "settings")
	p, err := UserPath(owner, segs...)
	if err != nil {
		return nil, err
	}
	raw, err := w.client.Do(ctx, http.MethodPut, p, nil, settings)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := decodeUnwrapped(raw, &out, "data", "settings"); err != nil {
		return nil, fmt.Errorf("api: decode %s: %w", p, err)
	}
	if len(out) == 0 {
		return settings, nil
	}
	return out, nil
}

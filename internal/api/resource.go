package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"gigdesk/internal/model"
	"gigdesk/internal/workspace"
)

// Resource is one collection under /users/{userId}, e.g.
// event-management/events.
type Resource[E workspace.Entity] struct {
	client   *Client
	segments []string
	// wrapKey is the singular key some endpoints nest the entity under
	// ({"event": {...}}); "data" is always accepted.
	wrapKey string
}

func NewResource[E workspace.Entity](c *Client, wrapKey string, segments ...string) Resource[E] {
	return Resource[E]{client: c, segments: segments, wrapKey: wrapKey}
}

func (r Resource[E]) path(owner string, extra ...string) (string, error) {
	segs := append(append([]string(nil), r.segments...), extra...)
	return UserPath(owner, segs...)
}

func (r Resource[E]) List(ctx context.Context, owner string, params url.Values) ([]E, error) {
	p, err := r.path(owner)
	if err != nil {
		return nil, err
	}
	raw, err := r.client.Do(ctx, http.MethodGet, p, params, nil)
	if err != nil {
		return nil, err
	}
	var out []E
	if err := decodeUnwrapped(raw, &out, "data", "items"); err != nil {
		return nil, fmt.Errorf("api: decode %s: %w", p, err)
	}
	return out, nil
}

func (r Resource[E]) Get(ctx context.Context, owner string, id model.ID) (E, error) {
	var zero E
	p, err := r.path(owner, id.String())
	if err != nil {
		return zero, err
	}
	raw, err := r.client.Do(ctx, http.MethodGet, p, nil, nil)
	if err != nil {
		return zero, err
	}
	e, ok, err := r.decodeEntity(raw)
	if err != nil {
		return zero, fmt.Errorf("api: decode %s: %w", p, err)
	}
	if !ok {
		return zero, &Error{Status: http.StatusNotFound, Method: http.MethodGet, Path: p}
	}
	return e, nil
}

func (r Resource[E]) Create(ctx context.Context, owner string, payload any) (workspace.Result[E], error) {
	p, err := r.path(owner)
	if err != nil {
		return workspace.Result[E]{}, err
	}
	return r.write(ctx, http.MethodPost, p, payload)
}

func (r Resource[E]) Update(ctx context.Context, owner string, id model.ID, payload any) (workspace.Result[E], error) {
	p, err := r.path(owner, id.String())
	if err != nil {
		return workspace.Result[E]{}, err
	}
	return r.write(ctx, http.MethodPatch, p, payload)
}

func (r Resource[E]) Delete(ctx context.Context, owner string, id model.ID) (workspace.Result[E], error) {
	p, err := r.path(owner, id.String())
	if err != nil {
		return workspace.Result[E]{}, err
	}
	if _, err := r.client.Do(ctx, http.MethodDelete, p, nil, nil); err != nil {
		return workspace.Result[E]{}, err
	}
	return workspace.Removed[E](id), nil
}

// Post sends an action (e.g. a transfer) whose response is not an entity of
// this collection; the caller always refetches.
func (r Resource[E]) Post(ctx context.Context, owner string, payload any) (workspace.Result[E], error) {
	p, err := r.path(owner)
	if err != nil {
		return workspace.Result[E]{}, err
	}
	if _, err := r.client.Do(ctx, http.MethodPost, p, nil, payload); err != nil {
		return workspace.Result[E]{}, err
	}
	return workspace.Refetch[E](), nil
}

func (r Resource[E]) write(ctx context.Context, method, p string, payload any) (workspace.Result[E], error) {
	raw, err := r.client.Do(ctx, method, p, nil, payload)
	if err != nil {
		return workspace.Result[E]{}, err
	}
	e, ok, err := r.decodeEntity(raw)
	if err != nil {
		return workspace.Result[E]{}, fmt.Errorf("api: decode %s: %w", p, err)
	}
	if !ok {
		return workspace.Refetch[E](), nil
	}
	return workspace.Upserted(e), nil
}

// decodeEntity reports ok=false for empty bodies and bodies without an id,
// which the controller treats as "refetch required".
func (r Resource[E]) decodeEntity(raw []byte) (E, bool, error) {
	var zero E
	keys := []string{"data"}
	if r.wrapKey != "" {
		keys = append(keys, r.wrapKey)
	}
	var e E
	if err := decodeUnwrapped(raw, &e, keys...); err != nil {
		return zero, false, err
	}
	if e.EntityID().IsZero() {
		return zero, false, nil
	}
	return e, true, nil
}

// decodeUnwrapped decodes raw into out, first descending into the first of
// keys present at the top level of a JSON object.
func decodeUnwrapped(raw []byte, out any, keys ...string) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '{' && len(keys) > 0 {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return err
		}
		for _, k := range keys {
			if inner, ok := obj[k]; ok {
				return decodeUnwrapped(inner, out)
			}
		}
	}
	return json.Unmarshal(raw, out)
}

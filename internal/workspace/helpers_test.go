package workspace

import (
	"context"
	"net/url"
	"sync"

	"gigdesk/internal/model"
)

type widget struct {
	ID   model.ID `json:"id"`
	Name string   `json:"name"`
}

func (w widget) EntityID() model.ID { return w.ID }

// fakeSource is a Fetcher that counts calls and serves a mutable snapshot.
type fakeSource struct {
	mu    sync.Mutex
	calls int
	last  url.Values
	snap  *Snapshot[widget]
	err   error
	block chan struct{}
}

func (f *fakeSource) fetch(ctx context.Context, owner string, params url.Values) (*Snapshot[widget], error) {
	f.mu.Lock()
	f.calls++
	f.last = params
	block := f.block
	snap, err := f.snap.clone(), f.err
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return snap, err
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newLoaded(t interface{ Fatalf(string, ...any) }, src *fakeSource, cfg Config) *Controller[widget] {
	if cfg.Owner == "" {
		cfg.Owner = "u-1"
	}
	c := New(src.fetch, cfg)
	if err := c.Load(context.Background(), nil); err != nil {
		t.Fatalf("load: %v", err)
	}
	return c
}

func snapOf(ws ...widget) *Snapshot[widget] {
	return &Snapshot[widget]{Entities: ws}
}

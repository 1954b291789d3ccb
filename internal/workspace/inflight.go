package workspace

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Pending describes one mutation that has not resolved yet.
type Pending struct {
	ID      uuid.UUID `json:"id"`
	Label   string    `json:"label,omitempty"`
	Started time.Time `json:"started"`
}

// inflight tracks running mutations by id so overlapping calls compose: the
// controller is busy until the last one resolves.
type inflight struct {
	mu      sync.Mutex
	pending map[uuid.UUID]Pending
	now     func() time.Time
}

func newInflight() *inflight {
	return &inflight{
		pending: map[uuid.UUID]Pending{},
		now:     time.Now,
	}
}

func (f *inflight) begin(label string) uuid.UUID {
	id := uuid.New()
	f.mu.Lock()
	f.pending[id] = Pending{ID: id, Label: label, Started: f.now()}
	f.mu.Unlock()
	return id
}

func (f *inflight) end(id uuid.UUID) {
	f.mu.Lock()
	delete(f.pending, id)
	f.mu.Unlock()
}

func (f *inflight) busy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending) > 0
}

func (f *inflight) list() []Pending {
	f.mu.Lock()
	out := make([]Pending, 0, len(f.pending))
	for _, p := range f.pending {
		out = append(out, p)
	}
	f.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Started.Before(out[j].Started) })
	return out
}

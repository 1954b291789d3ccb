package workspace

import (
	"context"

	"gigdesk/internal/model"
)

type ResultKind int

const (
	// ResultRefetch carries no entity; only the follow-up refresh changes state.
	ResultRefetch ResultKind = iota
	ResultUpserted
	ResultRemoved
	ResultPatched
)

func (k ResultKind) String() string {
	switch k {
	case ResultUpserted:
		return "upserted"
	case ResultRemoved:
		return "removed"
	case ResultPatched:
		return "patched"
	default:
		return "refetch"
	}
}

// Result is the envelope every service call resolves to. The service module
// decides the kind once, at the HTTP boundary; the controller never inspects
// response shapes.
type Result[E Entity] struct {
	Kind   ResultKind
	Entity E
	ID     model.ID
	patch  func(E) E
}

func Upserted[E Entity](e E) Result[E] {
	return Result[E]{Kind: ResultUpserted, Entity: e, ID: e.EntityID()}
}

func Removed[E Entity](id model.ID) Result[E] {
	return Result[E]{Kind: ResultRemoved, ID: id}
}

func Refetch[E Entity]() Result[E] {
	return Result[E]{Kind: ResultRefetch}
}

// Patched rewrites the entity with the given id in place, if it is present.
// Nested sub-collection mutations use it so the parent is read at merge time
// rather than when the request was issued.
func Patched[E Entity](id model.ID, fn func(E) E) Result[E] {
	return Result[E]{Kind: ResultPatched, ID: id, patch: fn}
}

func (r Result[E]) apply(entities []E) []E {
	switch r.Kind {
	case ResultUpserted:
		return Upsert(entities, r.Entity)
	case ResultRemoved:
		return Remove(entities, r.ID)
	case ResultPatched:
		if r.patch == nil {
			return entities
		}
		return Patch(entities, r.ID, r.patch)
	default:
		return entities
	}
}

// Op is one mutation dispatched through the service module.
type Op[E Entity] func(ctx context.Context) (Result[E], error)

// Nest lifts a child result (a task of an event, say) into a result for the
// parent entity so the child collection is merged inside the parent at apply
// time. field selects the child slice on the parent.
func Nest[P, C Entity](parentID model.ID, child Result[C], field func(*P) *[]C) Result[P] {
	switch child.Kind {
	case ResultUpserted:
		e := child.Entity
		return Patched(parentID, func(p P) P {
			xs := field(&p)
			*xs = Upsert(*xs, e)
			return p
		})
	case ResultRemoved:
		id := child.ID
		return Patched(parentID, func(p P) P {
			xs := field(&p)
			*xs = Remove(*xs, id)
			return p
		})
	case ResultPatched:
		id, fn := child.ID, child.patch
		return Patched(parentID, func(p P) P {
			xs := field(&p)
			if fn != nil {
				*xs = Patch(*xs, id, fn)
			}
			return p
		})
	default:
		return Refetch[P]()
	}
}

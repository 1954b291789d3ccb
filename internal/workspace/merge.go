package workspace

import "gigdesk/internal/model"

// Upsert replaces the element with the same id, or prepends e when it is new.
// The input slice is never modified.
func Upsert[E Entity](xs []E, e E) []E {
	id := e.EntityID()
	out := make([]E, 0, len(xs)+1)
	replaced := false
	for _, x := range xs {
		if !replaced && x.EntityID() == id {
			out = append(out, e)
			replaced = true
			continue
		}
		out = append(out, x)
	}
	if replaced {
		return out
	}
	return append([]E{e}, out...)
}

// Remove drops every element with the given id.
func Remove[E Entity](xs []E, id model.ID) []E {
	out := make([]E, 0, len(xs))
	for _, x := range xs {
		if x.EntityID() == id {
			continue
		}
		out = append(out, x)
	}
	return out
}

// Patch applies fn to the element with the given id. Missing ids are ignored.
func Patch[E Entity](xs []E, id model.ID, fn func(E) E) []E {
	out := make([]E, len(xs))
	for i, x := range xs {
		if x.EntityID() == id {
			out[i] = fn(x)
			continue
		}
		out[i] = x
	}
	return out
}

// Find returns the element with the given id.
func Find[E Entity](xs []E, id model.ID) (E, bool) {
	for _, x := range xs {
		if x.EntityID() == id {
			return x, true
		}
	}
	var zero E
	return zero, false
}

func contains[E Entity](xs []E, id model.ID) bool {
	_, ok := Find(xs, id)
	return ok
}

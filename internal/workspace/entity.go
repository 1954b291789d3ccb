package workspace

import "gigdesk/internal/model"

// Entity is any addressable record in a workspace collection.
type Entity interface {
	EntityID() model.ID
}

// Snapshot is the aggregate fetched wholesale from the API.
type Snapshot[E Entity] struct {
	Overview    map[string]any `json:"overview,omitempty"`
	Entities    []E            `json:"entities"`
	Settings    map[string]any `json:"settings,omitempty"`
	Permissions Permissions    `json:"permissions,omitempty"`
}

func (s *Snapshot[E]) clone() *Snapshot[E] {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Entities = append([]E(nil), s.Entities...)
	cp.Overview = cloneMap(s.Overview)
	cp.Settings = cloneMap(s.Settings)
	if s.Permissions != nil {
		cp.Permissions = make(Permissions, len(s.Permissions))
		for k, v := range s.Permissions {
			cp.Permissions[k] = v
		}
	}
	return &cp
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Permissions maps action names (e.g. "manage") to grants.
type Permissions map[string]bool

// PermManage gates every create/update/delete in the domain controllers.
const PermManage = "manage"

// Allows reports whether action is granted. A snapshot without a permissions
// block is unrestricted; once the block is present, missing actions are denied.
func (p Permissions) Allows(action string) bool {
	if p == nil {
		return true
	}
	return p[action]
}

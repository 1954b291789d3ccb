// Package workspace implements the controller that mirrors one workspace
// snapshot (overview, entities, settings, permissions) fetched from the
// marketplace API for a single owner.
//
// A Controller owns the snapshot exclusively. It dispatches CRUD mutations
// through caller-supplied operations, merges their results back into the
// entity collection by id, and triggers one refresh per successful mutation so
// the local merge is display state while the server stays the system of record.
// It also owns the transient UI state that surrounds those calls: the busy
// flag, feedback banner, create/edit wizard, delete confirmation and selection.
package workspace

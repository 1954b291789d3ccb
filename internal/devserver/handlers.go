package devserver

import (
	"context"
	"net/http"
	"strings"
	"time"
)

var eventFields = []string{"title", "description", "venue", "status", "capacity", "startsAt", "endsAt"}

var childKinds = map[string]struct {
	kind   string
	fields []string
}{
	"tasks":  {kindTasks, []string{"title", "done", "due"}},
	"guests": {kindGuests, []string{"name", "email", "rsvp"}},
	"budget": {kindBudget, []string{"label", "planned", "actual", "currency"}},
}

func (s *Server) handleEventsSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := r.PathValue("user")
	evs, err := s.store.List(ctx, user, kindEvents, "")
	if err != nil {
		s.fail(w, err)
		return
	}
	now := s.store.now().Format(time.RFC3339)
	upcoming, openTasks := 0, 0
	for _, ev := range evs {
		if err := s.attachChildren(ctx, user, ev); err != nil {
			s.fail(w, err)
			return
		}
		tasks, _ := ev["tasks"].([]Doc)
		for _, t := range tasks {
			if done, _ := t["done"].(bool); !done {
				openTasks++
			}
		}
		if at := str(ev, "startsAt"); at != "" && at > now {
			upcoming++
		}
	}
	settings, err := s.store.Settings(ctx, user, "event-management")
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"overview":    map[string]any{"total": len(evs), "upcoming": upcoming, "openTasks": openTasks},
		"events":      evs,
		"settings":    settings,
		"permissions": s.permissions(user),
	}})
}

// attachChildren lists the event's tasks, guests and budget lines into ev.
func (s *Server) attachChildren(ctx context.Context, user string, ev Doc) error {
	id := str(ev, "id")
	for name, ck := range childKinds {
		kids, err := s.store.List(ctx, user, ck.kind, id)
		if err != nil {
			return err
		}
		ev[name] = kids
	}
	return nil
}

func (s *Server) handleEventGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := r.PathValue("user")
	ev, err := s.store.Get(ctx, user, kindEvents, r.PathValue("id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	if err := s.attachChildren(ctx, user, ev); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": ev})
}

func validateEvent(d Doc, create bool) error {
	if _, ok := d["title"]; (ok || create) && strings.TrimSpace(str(d, "title")) == "" {
		return invalid("title is required")
	}
	if start, end := str(d, "startsAt"), str(d, "endsAt"); start != "" && end != "" {
		st, err1 := time.Parse(time.RFC3339, start)
		en, err2 := time.Parse(time.RFC3339, end)
		if err1 == nil && err2 == nil && en.Before(st) {
			return invalid("endsAt must not be before startsAt")
		}
	}
	return nil
}

func (s *Server) handleEventCreate(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	d := pick(body, eventFields...)
	if err := validateEvent(d, true); err != nil {
		s.fail(w, err)
		return
	}
	if str(d, "status") == "" {
		d["status"] = "draft"
	}
	ev, err := s.store.Insert(r.Context(), r.PathValue("user"), kindEvents, "", d)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"event": ev})
}

func (s *Server) handleEventPatch(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	d := pick(body, eventFields...)
	if err := validateEvent(d, false); err != nil {
		s.fail(w, err)
		return
	}
	ev, err := s.store.Patch(r.Context(), r.PathValue("user"), kindEvents, r.PathValue("id"), d)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"event": ev})
}

// childTarget resolves the {child} segment and checks the parent event exists.
func (s *Server) childTarget(w http.ResponseWriter, r *http.Request) (kind string, fields []string, ok bool) {
	ck, known := childKinds[r.PathValue("child")]
	if !known {
		writeError(w, http.StatusNotFound, "unknown collection")
		return "", nil, false
	}
	if _, err := s.store.Get(r.Context(), r.PathValue("user"), kindEvents, r.PathValue("event")); err != nil {
		s.fail(w, err)
		return "", nil, false
	}
	return ck.kind, ck.fields, true
}

// ownedChild fails with 404 unless {id} belongs to {event}.
func (s *Server) ownedChild(w http.ResponseWriter, r *http.Request, kind string) bool {
	parent, err := s.store.Parent(r.Context(), r.PathValue("user"), kind, r.PathValue("id"))
	if err == nil && parent != r.PathValue("event") {
		err = errNotFound
	}
	if err != nil {
		s.fail(w, err)
		return false
	}
	return true
}

func (s *Server) handleChildCreate(w http.ResponseWriter, r *http.Request) {
	kind, fields, ok := s.childTarget(w, r)
	if !ok {
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	d := pick(body, fields...)
	switch kind {
	case kindTasks:
		if strings.TrimSpace(str(d, "title")) == "" {
			s.fail(w, invalid("title is required"))
			return
		}
		if _, ok := d["done"]; !ok {
			d["done"] = false
		}
	case kindGuests:
		if strings.TrimSpace(str(d, "name")) == "" {
			s.fail(w, invalid("name is required"))
			return
		}
		if str(d, "rsvp") == "" {
			d["rsvp"] = "pending"
		}
	case kindBudget:
		if strings.TrimSpace(str(d, "label")) == "" {
			s.fail(w, invalid("label is required"))
			return
		}
		if num(d, "planned") < 0 || num(d, "actual") < 0 {
			s.fail(w, invalid("amounts must not be negative"))
			return
		}
	}
	doc, err := s.store.Insert(r.Context(), r.PathValue("user"), kind, r.PathValue("event"), d)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleChildPatch(w http.ResponseWriter, r *http.Request) {
	kind, fields, ok := s.childTarget(w, r)
	if !ok || !s.ownedChild(w, r, kind) {
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	doc, err := s.store.Patch(r.Context(), r.PathValue("user"), kind, r.PathValue("id"), pick(body, fields...))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleChildDelete(w http.ResponseWriter, r *http.Request) {
	kind, _, ok := s.childTarget(w, r)
	if !ok || !s.ownedChild(w, r, kind) {
		return
	}
	if err := s.store.Delete(r.Context(), r.PathValue("user"), kind, r.PathValue("id")); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWalletSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := r.PathValue("user")
	accts, err := s.store.List(ctx, user, kindAccounts, "")
	if err != nil {
		s.fail(w, err)
		return
	}
	transfers, err := s.store.List(ctx, user, kindTransfers, "")
	if err != nil {
		s.fail(w, err)
		return
	}
	totals := map[string]int64{}
	for _, a := range accts {
		id := str(a, "id")
		mine := []Doc{}
		for _, t := range transfers {
			if str(t, "fromAccountId") == id || str(t, "toAccountId") == id {
				mine = append(mine, t)
			}
		}
		sortByTime(mine, "createdAt")
		a["transfers"] = mine
		if str(a, "status") != "closed" {
			totals[str(a, "currency")] += num(a, "balance")
		}
	}
	settings, err := s.store.Settings(ctx, user, "wallet")
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"overview":    map[string]any{"accounts": len(accts), "transfers": len(transfers), "totals": totals},
		"accounts":    accts,
		"settings":    settings,
		"permissions": s.permissions(user),
	}})
}

func (s *Server) handleAccountCreate(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	d := pick(body, "label", "currency", "balance")
	if strings.TrimSpace(str(d, "label")) == "" {
		s.fail(w, invalid("label is required"))
		return
	}
	if num(d, "balance") < 0 {
		s.fail(w, invalid("opening balance must not be negative"))
		return
	}
	if str(d, "currency") == "" {
		d["currency"] = "USD"
	}
	d["balance"] = num(d, "balance")
	d["status"] = "active"
	doc, err := s.store.Insert(r.Context(), r.PathValue("user"), kindAccounts, "", d)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"data": doc})
}

// handleAccountPatch allows renaming and closing. Balances only move through
// transfers.
func (s *Server) handleAccountPatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, id := r.PathValue("user"), r.PathValue("id")
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	d := pick(body, "label", "status")
	if _, ok := d["label"]; ok && strings.TrimSpace(str(d, "label")) == "" {
		s.fail(w, invalid("label is required"))
		return
	}
	if st, ok := d["status"]; ok {
		if st != "closed" && st != "active" {
			s.fail(w, invalid("status must be active or closed"))
			return
		}
		cur, err := s.store.Get(ctx, user, kindAccounts, id)
		if err != nil {
			s.fail(w, err)
			return
		}
		if st == "closed" && num(cur, "balance") != 0 {
			s.fail(w, invalid("account balance must be zero to close"))
			return
		}
	}
	doc, err := s.store.Patch(ctx, user, kindAccounts, id, d)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": doc})
}

func (s *Server) handleAccountDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, id := r.PathValue("user"), r.PathValue("id")
	cur, err := s.store.Get(ctx, user, kindAccounts, id)
	if err != nil {
		s.fail(w, err)
		return
	}
	if num(cur, "balance") != 0 {
		s.fail(w, invalid("account balance must be zero to delete"))
		return
	}
	if err := s.store.Delete(ctx, user, kindAccounts, id); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	amount := num(body, "amount")
	if amount <= 0 {
		s.fail(w, invalid("amount must be positive"))
		return
	}
	t, err := s.store.Transfer(r.Context(), r.PathValue("user"), str(body, "fromAccountId"), str(body, "toAccountId"), amount, str(body, "memo"))
	if err != nil {
		s.fail(w, err)
		return
	}
	// The transfer is not an account; clients refetch balances.
	writeJSON(w, http.StatusCreated, map[string]any{"transfer": t})
}

var sessionFields = []string{"topic", "menteeName", "scheduledAt", "durationMinutes", "status", "notes", "price"}

func (s *Server) handleMentoringSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := r.PathValue("user")
	all, err := s.store.List(ctx, user, kindSessions, "")
	if err != nil {
		s.fail(w, err)
		return
	}
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	counts := map[string]int{}
	out := []Doc{}
	for _, d := range all {
		counts[str(d, "status")]++
		if status != "" && str(d, "status") != status {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(str(d, "topic")+" "+str(d, "menteeName")), q) {
			continue
		}
		out = append(out, d)
	}
	settings, err := s.store.Settings(ctx, user, "mentoring")
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"overview": map[string]any{
			"total":     len(all),
			"scheduled": counts["scheduled"],
			"completed": counts["completed"],
			"cancelled": counts["cancelled"],
		},
		"sessions":    out,
		"settings":    settings,
		"permissions": s.permissions(user),
	}})
}

func validateSession(d Doc, create bool) error {
	if _, ok := d["topic"]; (ok || create) && strings.TrimSpace(str(d, "topic")) == "" {
		return invalid("topic is required")
	}
	if _, ok := d["durationMinutes"]; ok || create {
		if m := num(d, "durationMinutes"); m < 15 || m > 240 {
			return invalid("durationMinutes must be between 15 and 240")
		}
	}
	return nil
}

func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	d := pick(body, sessionFields...)
	if err := validateSession(d, true); err != nil {
		s.fail(w, err)
		return
	}
	d["status"] = "scheduled"
	doc, err := s.store.Insert(r.Context(), r.PathValue("user"), kindSessions, "", d)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"data": doc})
}

func (s *Server) handleSessionPatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, id := r.PathValue("user"), r.PathValue("id")
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	d := pick(body, sessionFields...)
	if err := validateSession(d, false); err != nil {
		s.fail(w, err)
		return
	}
	if st := str(d, "status"); st != "" {
		cur, err := s.store.Get(ctx, user, kindSessions, id)
		if err != nil {
			s.fail(w, err)
			return
		}
		if st != str(cur, "status") && str(cur, "status") != "scheduled" {
			s.fail(w, invalid("session is already "+str(cur, "status")))
			return
		}
	}
	doc, err := s.store.Patch(ctx, user, kindSessions, id, d)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": doc})
}

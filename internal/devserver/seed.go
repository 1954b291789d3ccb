package devserver

import (
	"context"
	"time"
)

// Seed fills an empty owner with a small demo dataset. It is a no-op when the
// owner already has events.
func (s *Store) Seed(ctx context.Context, owner string) error {
	existing, err := s.List(ctx, owner, kindEvents, "")
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	now := s.now().Truncate(time.Hour)
	at := func(d time.Duration) string { return now.Add(d).Format(time.RFC3339) }

	launch, err := s.Insert(ctx, owner, kindEvents, "", Doc{
		"title":       "Portfolio launch",
		"description": "Release night for the **new portfolio**.\n\n- demo reel\n- drinks",
		"venue":       "Studio 4",
		"status":      "planned",
		"capacity":    40,
		"startsAt":    at(14 * 24 * time.Hour),
		"endsAt":      at(14*24*time.Hour + 3*time.Hour),
	})
	if err != nil {
		return err
	}
	evID := str(launch, "id")
	for _, d := range []struct {
		kind string
		doc  Doc
	}{
		{kindTasks, Doc{"title": "Book venue", "done": true}},
		{kindTasks, Doc{"title": "Send invitations", "done": false}},
		{kindGuests, Doc{"name": "Ada Park", "email": "ada@example.com", "rsvp": "yes"}},
		{kindBudget, Doc{"label": "Catering", "planned": 60000, "actual": 0, "currency": "USD"}},
	} {
		if _, err := s.Insert(ctx, owner, d.kind, evID, d.doc); err != nil {
			return err
		}
	}

	if _, err := s.Insert(ctx, owner, kindAccounts, "", Doc{"label": "Operating", "currency": "USD", "balance": 250000, "status": "active"}); err != nil {
		return err
	}
	if _, err := s.Insert(ctx, owner, kindAccounts, "", Doc{"label": "Savings", "currency": "USD", "balance": 100000, "status": "active"}); err != nil {
		return err
	}

	for _, d := range []Doc{
		{"topic": "Pricing freelance work", "menteeName": "Sam", "scheduledAt": at(48 * time.Hour), "durationMinutes": 60, "status": "scheduled", "price": 8000},
		{"topic": "Portfolio review", "menteeName": "Kai", "scheduledAt": at(-72 * time.Hour), "durationMinutes": 45, "status": "completed", "price": 6000},
	} {
		if _, err := s.Insert(ctx, owner, kindSessions, "", d); err != nil {
			return err
		}
	}
	return nil
}

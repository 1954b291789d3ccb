package cli

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	reDateOnly = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	reDateTime = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})[ T](\d{2}:\d{2})(?::\d{2})?$`)
)

// parseDateTime parses:
// - YYYY-MM-DD (midnight, local time)
// - YYYY-MM-DD HH:MM (local date+time)
// - RFC3339 / RFC3339Nano (timezone-aware)
//
// Results are UTC. An empty string yields nil.
func parseDateTime(s string, loc *time.Location) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.Local
	}

	if reDateOnly.MatchString(s) {
		ts, err := time.ParseInLocation("2006-01-02", s, loc)
		if err != nil {
			return nil, err
		}
		ts = ts.UTC()
		return &ts, nil
	}

	if m := reDateTime.FindStringSubmatch(s); m != nil {
		ts, err := time.ParseInLocation("2006-01-02 15:04", m[1]+" "+m[2], loc)
		if err != nil {
			return nil, err
		}
		ts = ts.UTC()
		return &ts, nil
	}

	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		ts = ts.UTC()
		return &ts, nil
	}

	return nil, fmt.Errorf("invalid datetime %q (expected YYYY-MM-DD, YYYY-MM-DD HH:MM, or RFC3339)", s)
}

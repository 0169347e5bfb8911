package pricing

import (
	"fmt"
	"strings"
	"time"
)

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseBound parses a special price date. ok is false for an empty value,
// meaning the bound is open. Date-only upper bounds cover the whole day.
func parseBound(s string, upper bool) (t time.Time, ok bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, nil
	}
	for _, layout := range dateLayouts {
		parsed, perr := time.Parse(layout, s)
		if perr != nil {
			continue
		}
		if upper && layout == "2006-01-02" {
			parsed = parsed.Add(24*time.Hour - time.Nanosecond)
		}
		return parsed, true, nil
	}
	return time.Time{}, false, fmt.Errorf("unrecognised date %q", s)
}

// specialActive reports whether now lies within [from, to] inclusive.
func specialActive(from, to string, now time.Time) (bool, error) {
	start, hasStart, err := parseBound(from, false)
	if err != nil {
		return false, fmt.Errorf("special_from_date: %w", err)
	}
	end, hasEnd, err := parseBound(to, true)
	if err != nil {
		return false, fmt.Errorf("special_to_date: %w", err)
	}
	if hasStart && now.Before(start) {
		return false, nil
	}
	if hasEnd && now.After(end) {
		return false, nil
	}
	return true, nil
}

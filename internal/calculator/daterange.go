package calculator

import (
	"strings"
	"time"
)

// dateLayouts are tried in order by ParseDate. Layouts without a zone are read in the range's location.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
}

// ParseDate parses a backend date string. ok is false for empty or unparsable input.
func ParseDate(s string, loc *time.Location) (t time.Time, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.ParseInLocation(layout, s, loc); err == nil {
			return parsed.In(loc), true
		}
	}
	return time.Time{}, false
}

// Day truncates t to midnight of its calendar day in loc.
func Day(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// Range is an inclusive window of calendar days.
type Range struct {
	From time.Time
	To   time.Time
	Loc  *time.Location
}

// NewRange builds a Range covering the calendar days of from and to in loc.
func NewRange(from, to time.Time, loc *time.Location) Range {
	if loc == nil {
		loc = time.Local
	}
	return Range{From: Day(from, loc), To: Day(to, loc), Loc: loc}
}

// MonthRange covers the calendar month containing t.
func MonthRange(t time.Time, loc *time.Location) Range {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
	last := first.AddDate(0, 1, -1)
	return Range{From: first, To: last, Loc: loc}
}

// MonthToDate covers the first of t's month through t's day, like the finance ledger's default filter.
func MonthToDate(t time.Time, loc *time.Location) Range {
	r := MonthRange(t, loc)
	r.To = Day(t, r.Loc)
	return r
}

// Contains reports whether t falls on a day inside the range (boundaries included).
func (r Range) Contains(t time.Time) bool {
	d := Day(t, r.Loc)
	return !d.Before(r.From) && !d.After(r.To)
}

// Label renders the range as "2006-01-02..2006-01-02".
func (r Range) Label() string {
	return r.From.Format("2006-01-02") + ".." + r.To.Format("2006-01-02")
}

// Dated is any record carrying a raw backend date.
type Dated interface {
	When() string
}

// FilterByRange keeps the items whose date parses and falls inside r.
// Items with missing or unparsable dates are dropped, never reported as errors.
func FilterByRange[T Dated](items []T, r Range) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		t, ok := ParseDate(it.When(), r.Loc)
		if !ok {
			continue
		}
		if r.Contains(t) {
			out = append(out, it)
		}
	}
	return out
}

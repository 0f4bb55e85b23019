package event

import (
	"sort"
	"strings"
	"time"
)

// ISOLayout is the layout of DateISO
const ISOLayout = "2006-01-02"

// DisplayLayout is the layout the scraper uses for Date
const DisplayLayout = "January 2, 2006"

// dateLayouts are tried in order by ParseDate
var dateLayouts = []string{
	ISOLayout,
	DisplayLayout,
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"Monday, January 2, 2006",
	"Mon, Jan 2, 2006",
	"1/2/2006",
	"01/02/06",
	"1.2.06",
}

// ParseDate attempts to parse a human-readable or ISO date into a calendar date.
// The result is midnight UTC of that day; the zero time is returned if parsing fails.
func ParseDate(dateText string) time.Time {
	s := strings.Join(strings.Fields(dateText), " ")
	if s == "" {
		return time.Time{}
	}
	// "Sept" is common in hand-entered dates but not a Go month abbreviation
	s = strings.Replace(s, "Sept ", "Sep ", 1)

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ToISO converts a human-readable date to YYYY-MM-DD, or "" if it cannot be parsed
func ToISO(dateText string) string {
	t := ParseDate(dateText)
	if t.IsZero() {
		return ""
	}
	return t.Format(ISOLayout)
}

// EffectiveDate returns the date used for categorization and ordering:
// DateISO when it parses, otherwise Date. Zero when neither parses.
func (e *Event) EffectiveDate() time.Time {
	if e.DateISO != "" {
		if t, err := time.Parse(ISOLayout, strings.TrimSpace(e.DateISO)); err == nil {
			return t
		}
	}
	return ParseDate(e.Date)
}

// IsPast reports whether the event belongs in the past list as of now.
// A status override always wins; otherwise the effective date is compared to the
// start of now's calendar day. Events with unknown dates are not past.
func (e *Event) IsPast(now time.Time) bool {
	switch e.Status {
	case StatusCancelled, StatusPast:
		return true
	case StatusUpcoming:
		return false
	}
	d := e.EffectiveDate()
	if d.IsZero() {
		return false
	}
	return d.Before(StartOfDay(now))
}

// StartOfDay returns midnight of now's calendar day expressed as a UTC date,
// comparable with EffectiveDate
func StartOfDay(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Upcoming returns the events not yet past, soonest first
func Upcoming(events []*Event, now time.Time) []*Event {
	out := make([]*Event, 0, len(events))
	for _, e := range events {
		if !e.IsPast(now) {
			out = append(out, e)
		}
	}
	SortByDate(out, true)
	return out
}

// Past returns the events already past or cancelled, most recent first
func Past(events []*Event, now time.Time) []*Event {
	out := make([]*Event, 0, len(events))
	for _, e := range events {
		if e.IsPast(now) {
			out = append(out, e)
		}
	}
	SortByDate(out, false)
	return out
}

// SortByDate sorts events by effective date. Events without a usable date always
// go last; ties are broken by ID in the same direction as the dates.
func SortByDate(events []*Event, ascending bool) {
	sort.SliceStable(events, func(i, j int) bool {
		di := events[i].EffectiveDate()
		dj := events[j].EffectiveDate()

		if di.IsZero() != dj.IsZero() {
			return !di.IsZero()
		}
		if !di.Equal(dj) {
			if ascending {
				return di.Before(dj)
			}
			return di.After(dj)
		}
		if ascending {
			return events[i].ID < events[j].ID
		}
		return events[i].ID > events[j].ID
	})
}

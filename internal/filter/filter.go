// Package filter narrows an event list for display.
//
// A filter combines a date range with case-insensitive substring matches on the
// title and location. Every active criterion must match:
//
//	f := filter.New()
//	f.Titles = []string{"AI"}
//	f.DateFrom, f.DateTo, _ = filter.ParseDateRange("March", time.Now())
//	upcoming := f.Apply(events)
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/bigislandtech/meetup-sync/internal/event"
)

// Filter represents event filtering criteria
type Filter struct {
	// Date range, both ends inclusive, compared against the event's effective date
	DateFrom *time.Time `json:"date_from,omitempty"`
	DateTo   *time.Time `json:"date_to,omitempty"`

	// Case-insensitive substring matches; any entry in a list may match
	Titles    []string `json:"titles,omitempty"`
	Locations []string `json:"locations,omitempty"`
}

// New creates an empty filter that matches every event
func New() *Filter {
	return &Filter{}
}

// IsEmpty reports whether the filter has no active criteria
func (f *Filter) IsEmpty() bool {
	return f.DateFrom == nil &&
		f.DateTo == nil &&
		len(f.Titles) == 0 &&
		len(f.Locations) == 0
}

// Matches checks if an event matches all active filter criteria.
// Events with no parseable date never match a date range.
func (f *Filter) Matches(evt *event.Event) bool {
	if f.IsEmpty() {
		return true
	}

	if f.DateFrom != nil || f.DateTo != nil {
		d := evt.EffectiveDate()
		if d.IsZero() {
			return false
		}
		day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		if f.DateFrom != nil && day.Before(*f.DateFrom) {
			return false
		}
		if f.DateTo != nil && day.After(*f.DateTo) {
			return false
		}
	}

	if !containsAny(evt.Title, f.Titles) {
		return false
	}
	if !containsAny(evt.Location, f.Locations) {
		return false
	}

	return true
}

// containsAny reports whether s contains one of needles, ignoring case.
// An empty needle list always matches.
func containsAny(s string, needles []string) bool {
	if len(needles) == 0 {
		return true
	}
	lower := strings.ToLower(s)
	for _, n := range needles {
		if strings.Contains(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

// Apply returns the events matching the filter, preserving order.
// An empty filter returns the input unchanged.
func (f *Filter) Apply(events []*event.Event) []*event.Event {
	if f.IsEmpty() {
		return events
	}

	filtered := make([]*event.Event, 0, len(events))
	for _, evt := range events {
		if f.Matches(evt) {
			filtered = append(filtered, evt)
		}
	}
	return filtered
}

// String returns a human-readable description of the active criteria.
// Format: "From: Mar 1, 2026 | To: Mar 15, 2026 | Titles: AI | Locations: Hilo"
func (f *Filter) String() string {
	if f.IsEmpty() {
		return "No active filters"
	}

	var parts []string
	if f.DateFrom != nil {
		parts = append(parts, fmt.Sprintf("From: %s", f.DateFrom.Format("Jan 2, 2006")))
	}
	if f.DateTo != nil {
		parts = append(parts, fmt.Sprintf("To: %s", f.DateTo.Format("Jan 2, 2006")))
	}
	if len(f.Titles) > 0 {
		parts = append(parts, fmt.Sprintf("Titles: %s", strings.Join(f.Titles, ", ")))
	}
	if len(f.Locations) > 0 {
		parts = append(parts, fmt.Sprintf("Locations: %s", strings.Join(f.Locations, ", ")))
	}

	return strings.Join(parts, " | ")
}

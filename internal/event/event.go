package event

import (
	"regexp"
	"strings"
)

// Status is a manual override of date-based categorization
type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusPast      Status = "past"
	StatusCancelled Status = "cancelled"
)

// SyncStatus records where the current field values came from.
// Reconcile only ever writes SyncSynced. SyncManual and SyncModified are set by
// hand in the dataset and kept until a sync rewrites the record.
type SyncStatus string

const (
	SyncSynced   SyncStatus = "synced"
	SyncManual   SyncStatus = "manual"   // hand-authored entry
	SyncModified SyncStatus = "modified" // synced entry later edited by hand
)

// RemoteLocation is the location sentinel for online events
const RemoteLocation = "VIRTUAL"

// Event represents one community event as persisted in the dataset
type Event struct {
	ID           int        `json:"id"`
	Title        string     `json:"title"`
	Date         string     `json:"date"`              // Human-readable, e.g. "January 8, 2026"
	DateISO      string     `json:"dateISO,omitempty"` // YYYY-MM-DD when the date could be parsed
	Time         string     `json:"time"`
	Location     string     `json:"location"`
	Description  string     `json:"description"`
	ImageURL     string     `json:"imageUrl"`
	Link         string     `json:"link"`
	Status       Status     `json:"status,omitempty"`
	SourceID     string     `json:"sourceId,omitempty"` // Join key for reconciliation
	LastSyncedAt string     `json:"lastSyncedAt,omitempty"`
	SyncStatus   SyncStatus `json:"syncStatus,omitempty"`
}

var sourceIDPattern = regexp.MustCompile(`/events/(\d+)`)

// ExtractSourceID returns the numeric event identifier from a Meetup event URL,
// or "" when the URL has none
func ExtractSourceID(link string) string {
	m := sourceIDPattern.FindStringSubmatch(link)
	if m == nil {
		return ""
	}
	return m[1]
}

// ValidStatus reports whether s is one of the recognized overrides
func ValidStatus(s Status) bool {
	switch s {
	case StatusUpcoming, StatusPast, StatusCancelled:
		return true
	}
	return false
}

// IsManual reports whether the record was authored by hand
func (e *Event) IsManual() bool {
	return strings.TrimSpace(e.SourceID) == ""
}

// Clone returns a shallow copy; all fields are values so this is a full copy
func (e *Event) Clone() *Event {
	c := *e
	return &c
}

// MaxID returns the highest ID in events, or 0 when there are none
func MaxID(events []*Event) int {
	max := 0
	for _, e := range events {
		if e.ID > max {
			max = e.ID
		}
	}
	return max
}

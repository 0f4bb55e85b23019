package event

import (
	"time"
)

// ReconcileOptions controls a reconciliation pass
type ReconcileOptions struct {
	// Force treats every matched record as changed
	Force bool
	// Now supplies the LastSyncedAt timestamp; defaults to time.Now
	Now func() time.Time
}

// ReconcileResult holds the three disjoint groups produced by Reconcile
type ReconcileResult struct {
	Added     []*Event
	Updated   []*Event
	Unchanged []*Event
	Changes   []*FieldChange // Per-field differences behind Updated
}

// FieldChange describes one field that differed between the stored and scraped record
type FieldChange struct {
	ID       int    `json:"id"`
	SourceID string `json:"source_id"`
	Field    string `json:"field"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

// HasChanges reports whether the dataset needs to be rewritten
func (r *ReconcileResult) HasChanges() bool {
	return len(r.Added) > 0 || len(r.Updated) > 0
}

// All returns every record of the result: added, then updated, then unchanged
func (r *ReconcileResult) All() []*Event {
	all := make([]*Event, 0, len(r.Added)+len(r.Updated)+len(r.Unchanged))
	all = append(all, r.Added...)
	all = append(all, r.Updated...)
	all = append(all, r.Unchanged...)
	return all
}

// Reconcile merges freshly scraped records into the existing dataset.
//
// Existing records are indexed by SourceID. A scraped record with no match is added
// with the next free ID. A matched record is updated when any compared field differs
// (or opts.Force is set); the update keeps the stored ID and Status. Existing records
// that were not matched, including every hand-authored record, are carried forward
// unchanged. No record is ever deleted.
func Reconcile(existing, scraped []*Event, opts ReconcileOptions) *ReconcileResult {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	syncedAt := now().UTC().Format(time.RFC3339)

	result := &ReconcileResult{
		Added:     make([]*Event, 0),
		Updated:   make([]*Event, 0),
		Unchanged: make([]*Event, 0),
	}

	bySourceID := make(map[string]*Event)
	for _, evt := range existing {
		if evt.IsManual() {
			continue
		}
		// First record wins if a hand edit duplicated a sourceId
		if _, ok := bySourceID[evt.SourceID]; !ok {
			bySourceID[evt.SourceID] = evt
		}
	}

	nextID := MaxID(existing) + 1
	placed := make(map[int]bool)
	seenScraped := make(map[string]bool)

	for _, s := range scraped {
		if s == nil || s.SourceID == "" || seenScraped[s.SourceID] {
			continue
		}
		seenScraped[s.SourceID] = true

		current, ok := bySourceID[s.SourceID]
		if !ok {
			added := s.Clone()
			added.ID = nextID
			nextID++
			added.SyncStatus = SyncSynced
			added.LastSyncedAt = syncedAt
			result.Added = append(result.Added, added)
			continue
		}

		changes := DetectChanges(current, s)
		if len(changes) == 0 && !opts.Force {
			result.Unchanged = append(result.Unchanged, current)
			placed[current.ID] = true
			continue
		}

		updated := overlay(current, s)
		updated.SyncStatus = SyncSynced
		updated.LastSyncedAt = syncedAt
		result.Updated = append(result.Updated, updated)
		result.Changes = append(result.Changes, changes...)
		placed[current.ID] = true
	}

	for _, evt := range existing {
		if placed[evt.ID] {
			continue
		}
		placed[evt.ID] = true
		result.Unchanged = append(result.Unchanged, evt)
	}

	return result
}

// overlay copies the scraped fields onto a copy of the stored record
func overlay(current, scraped *Event) *Event {
	updated := current.Clone()
	updated.Title = scraped.Title
	updated.Date = scraped.Date
	updated.DateISO = scraped.DateISO
	updated.Time = scraped.Time
	updated.Location = scraped.Location
	updated.Description = scraped.Description
	updated.ImageURL = scraped.ImageURL
	if scraped.Link != "" {
		updated.Link = scraped.Link
	}
	return updated
}

// DetectChanges compares the fields a sync is allowed to overwrite
func DetectChanges(previous, current *Event) []*FieldChange {
	var changes []*FieldChange

	compare := func(field, oldValue, newValue string) {
		if oldValue == newValue {
			return
		}
		changes = append(changes, &FieldChange{
			ID:       previous.ID,
			SourceID: current.SourceID,
			Field:    field,
			OldValue: oldValue,
			NewValue: newValue,
		})
	}

	compare("title", previous.Title, current.Title)
	compare("date", previous.Date, current.Date)
	compare("time", previous.Time, current.Time)
	compare("location", previous.Location, current.Location)
	compare("description", previous.Description, current.Description)
	compare("imageUrl", previous.ImageURL, current.ImageURL)

	return changes
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/bigislandtech/meetup-sync/internal/calendar"
	"github.com/bigislandtech/meetup-sync/internal/event"
	"github.com/bigislandtech/meetup-sync/internal/pipeline"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
	FormatICS  OutputFormat = "ics"
)

// EventsResult contains the events printed by the list command
type EventsResult struct {
	Label  string         `json:"-"`
	Today  time.Time      `json:"-"`
	Events []*event.Event `json:"events"`
	Count  int            `json:"count"`
}

// WriteSummary writes the result of a sync run
func WriteSummary(w io.Writer, summary *pipeline.Summary, path string, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, summary)
	case FormatText:
		return writeSummaryText(w, summary, path, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteEvents writes a list of events in the specified format
func WriteEvents(w io.Writer, result *EventsResult, format OutputFormat, verbose bool, cal calendar.Options) error {
	result.Count = len(result.Events)
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeEventsText(w, result, verbose)
	case FormatICS:
		_, err := io.WriteString(w, calendar.GenerateICS(result.Events, cal))
		return err
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// writeSummaryText outputs a sync summary as human-readable text
func writeSummaryText(w io.Writer, s *pipeline.Summary, path string, verbose bool) error {
	if s.Aborted != "" {
		fmt.Fprintf(w, "Sync stopped early: %s. Dataset left as is.\n", s.Aborted)
		return nil
	}

	fmt.Fprintln(w, "Sync summary")
	fmt.Fprintf(w, "  Discovered: %d\n", s.Discovered)
	fmt.Fprintf(w, "  Scraped:    %d", s.Scraped)
	if s.Skipped > 0 {
		fmt.Fprintf(w, " (%d skipped)", s.Skipped)
	}
	fmt.Fprintln(w)
	if s.LoadFailed {
		fmt.Fprintln(w, "  Existing:   could not be loaded, treated as empty")
	} else {
		fmt.Fprintf(w, "  Existing:   %d\n", s.Existing)
	}
	fmt.Fprintf(w, "  Added:      %d\n", len(s.Added))
	fmt.Fprintf(w, "  Updated:    %d\n", len(s.Updated))
	fmt.Fprintf(w, "  Unchanged:  %d\n", s.Unchanged)
	fmt.Fprintf(w, "  Total:      %d (%d upcoming, %d past)\n", s.Total, s.Upcoming, s.Past)

	if len(s.Added) > 0 || len(s.Updated) > 0 {
		fmt.Fprintln(w)
	}
	for _, evt := range s.Added {
		fmt.Fprintf(w, "  + [%d] %s (%s)\n", evt.ID, evt.Title, displayDate(evt))
	}
	for _, evt := range s.Updated {
		fmt.Fprintf(w, "  ~ [%d] %s (%s)\n", evt.ID, evt.Title, displayDate(evt))
	}

	if verbose && len(s.Changes) > 0 {
		fmt.Fprintln(w, "\nChanges:")
		for _, c := range s.Changes {
			fmt.Fprintf(w, "  [%d] %s: %q -> %q\n", c.ID, c.Field, truncate(c.OldValue, 60), truncate(c.NewValue, 60))
		}
	}

	fmt.Fprintln(w)
	switch {
	case len(s.Added) == 0 && len(s.Updated) == 0:
		fmt.Fprintln(w, "No changes. Dataset left as is.")
	case s.DryRun:
		fmt.Fprintln(w, "Dry run: no files were written.")
	case s.Saved:
		fmt.Fprintf(w, "Dataset written to %s (backup at %s.backup)\n", path, path)
	}

	if verbose {
		fmt.Fprintf(w, "Run ID: %s\n", s.RunID)
	}
	return nil
}

// writeEventsText outputs a list of events as human-readable text
func writeEventsText(w io.Writer, result *EventsResult, verbose bool) error {
	if len(result.Events) == 0 {
		fmt.Fprintf(w, "No %s found.\n", result.Label)
		return nil
	}

	for _, evt := range result.Events {
		line := fmt.Sprintf("[%d] %s", evt.ID, displayDate(evt))
		if evt.Time != "" {
			line += "  " + evt.Time
		}
		line += "  " + evt.Title
		if evt.Location != "" {
			line += " (" + evt.Location + ")"
		}
		if evt.Status == event.StatusCancelled {
			line += " [CANCELLED]"
		} else if evt.IsPast(result.Today) {
			line += " [past]"
		}
		fmt.Fprintln(w, line)

		if verbose {
			if evt.Link != "" {
				fmt.Fprintf(w, "     Link: %s\n", evt.Link)
			}
			if evt.SourceID != "" {
				fmt.Fprintf(w, "     Source ID: %s\n", evt.SourceID)
			} else {
				fmt.Fprintln(w, "     Source ID: none (manual)")
			}
			if evt.SyncStatus != "" {
				fmt.Fprintf(w, "     Sync: %s %s\n", evt.SyncStatus, evt.LastSyncedAt)
			}
		}
	}
	fmt.Fprintf(w, "\nTotal: %d %s\n", len(result.Events), result.Label)
	return nil
}

func displayDate(evt *event.Event) string {
	if evt.Date != "" {
		return evt.Date
	}
	return "date unknown"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

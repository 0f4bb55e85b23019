package calendar

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bigislandtech/meetup-sync/internal/event"
)

// Options controls feed rendering
type Options struct {
	Name            string           // X-WR-CALNAME
	Location        *time.Location   // zone the printed times are in
	DefaultDuration time.Duration    // used when only a start time is printed
	Now             func() time.Time // DTSTAMP; defaults to time.Now
}

var clockRangeRegex = regexp.MustCompile(`(?i)(\d{1,2}:\d{2}\s*[AP]M)(?:\s*(?:-|–|to)\s*(\d{1,2}:\d{2}\s*[AP]M))?`)

// GenerateICS renders events as a single calendar. Events without a usable date
// are left out.
func GenerateICS(events []*event.Event, opts Options) string {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	var ics strings.Builder
	ics.WriteString("BEGIN:VCALENDAR\r\n")
	ics.WriteString("VERSION:2.0\r\n")
	ics.WriteString("PRODID:-//Big Island Tech//meetup-sync//EN\r\n")
	ics.WriteString("CALSCALE:GREGORIAN\r\n")
	ics.WriteString("METHOD:PUBLISH\r\n")
	if opts.Name != "" {
		writeLine(&ics, "X-WR-CALNAME:"+escapeICS(opts.Name))
	}
	writeLine(&ics, "X-WR-TIMEZONE:"+loc.String())

	stamp := formatICSTime(now())
	for _, evt := range events {
		writeEvent(&ics, evt, stamp, loc, opts.DefaultDuration)
	}

	ics.WriteString("END:VCALENDAR\r\n")
	return ics.String()
}

func writeEvent(ics *strings.Builder, evt *event.Event, stamp string, loc *time.Location, defaultDuration time.Duration) {
	day := evt.EffectiveDate()
	if day.IsZero() {
		return
	}

	ics.WriteString("BEGIN:VEVENT\r\n")
	writeLine(ics, "UID:"+uid(evt))
	writeLine(ics, "DTSTAMP:"+stamp)

	if start, end, ok := eventTimes(day, evt.Time, loc, defaultDuration); ok {
		writeLine(ics, "DTSTART:"+formatICSTime(start))
		writeLine(ics, "DTEND:"+formatICSTime(end))
	} else {
		// all-day entry when no clock time is printed
		writeLine(ics, "DTSTART;VALUE=DATE:"+day.Format("20060102"))
		writeLine(ics, "DTEND;VALUE=DATE:"+day.AddDate(0, 0, 1).Format("20060102"))
	}

	writeLine(ics, "SUMMARY:"+escapeICS(evt.Title))

	description := evt.Description
	if evt.Link != "" {
		if description != "" {
			description += "\n\n"
		}
		description += "RSVP: " + evt.Link
	}
	if description != "" {
		writeLine(ics, "DESCRIPTION:"+escapeICS(description))
	}
	if evt.Location != "" {
		writeLine(ics, "LOCATION:"+escapeICS(evt.Location))
	}
	if evt.Link != "" {
		writeLine(ics, "URL:"+evt.Link)
	}

	if evt.Status == event.StatusCancelled {
		ics.WriteString("STATUS:CANCELLED\r\n")
	} else {
		ics.WriteString("STATUS:CONFIRMED\r\n")
	}
	ics.WriteString("TRANSP:OPAQUE\r\n")
	ics.WriteString("END:VEVENT\r\n")
}

// uid is stable across runs: the source id when there is one, else the local id
func uid(evt *event.Event) string {
	if evt.SourceID != "" {
		return fmt.Sprintf("meetup-%s@meetup-sync", evt.SourceID)
	}
	return fmt.Sprintf("event-%d@meetup-sync", evt.ID)
}

// eventTimes reads the clock range out of a time string such as
// "4:00 PM - 5:30 PM HST" and places it on day in loc
func eventTimes(day time.Time, timeText string, loc *time.Location, defaultDuration time.Duration) (time.Time, time.Time, bool) {
	m := clockRangeRegex.FindStringSubmatch(timeText)
	if m == nil {
		return time.Time{}, time.Time{}, false
	}

	startClock, ok := parseClock(m[1])
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), startClock.Hour(), startClock.Minute(), 0, 0, loc)

	end := start.Add(defaultDuration)
	if m[2] != "" {
		if endClock, ok := parseClock(m[2]); ok {
			end = time.Date(day.Year(), day.Month(), day.Day(), endClock.Hour(), endClock.Minute(), 0, 0, loc)
			if !end.After(start) {
				end = end.AddDate(0, 0, 1)
			}
		}
	}
	return start, end, true
}

func parseClock(s string) (time.Time, bool) {
	s = strings.ToUpper(strings.Join(strings.Fields(s), ""))
	t, err := time.Parse("3:04PM", s)
	return t, err == nil
}

// formatICSTime formats a time.Time as an iCalendar datetime string
func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// escapeICS escapes special characters for iCalendar format
func escapeICS(s string) string {
	// Replace special characters according to RFC 5545
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\r\n", "\\n")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

// writeLine writes a content line folded at 75 octets without splitting a rune.
// Continuation lines start with a space, which counts toward the limit.
func writeLine(ics *strings.Builder, line string) {
	limit := 75
	for len(line) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		ics.WriteString(line[:cut])
		ics.WriteString("\r\n ")
		line = line[cut:]
		limit = 74
	}
	ics.WriteString(line)
	ics.WriteString("\r\n")
}

package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	dateDisplayLayout = "January 2, 2006"
	clockLayout       = "3:04 PM"
)

// timeRangePattern matches "4:00 PM to 5:30 PM", "4:00PM - 5:30PM", "4:00 pm – 5:30 pm"
var timeRangePattern = regexp.MustCompile(`(?i)(\d{1,2}:\d{2}\s*[AP]M)\s*(?:to|-|–)\s*(\d{1,2}:\d{2}\s*[AP]M)`)

// timestampLayouts are tried against the datetime attribute, most specific first
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// dateTime reads the first machine-readable time marker. It returns the start
// instant, the display date and the display time range. All three are empty when
// the page has no usable marker.
func dateTime(doc *goquery.Document, opts Options) (time.Time, string, string) {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	marker := doc.Find("time[datetime]").First()
	if marker.Length() == 0 {
		return time.Time{}, "", ""
	}
	raw := strings.TrimSpace(marker.AttrOr("datetime", ""))

	start, hasClock := parseTimestamp(raw, loc)
	if start.IsZero() {
		return time.Time{}, "", ""
	}
	start = start.In(loc)
	date := start.Format(dateDisplayLayout)
	if !hasClock {
		return start, date, ""
	}

	zone := start.Format("MST")
	startText := start.Format(clockLayout)

	surrounding := marker.Parent().Text()
	if surrounding == "" {
		surrounding = marker.Text()
	}
	if m := timeRangePattern.FindStringSubmatch(surrounding); m != nil {
		return start, date, startText + " - " + normalizeClock(m[2]) + " " + zone
	}

	end := start.Add(opts.DefaultDuration)
	return start, date, startText + " - " + end.Format(clockLayout) + " " + zone
}

// parseTimestamp parses a datetime attribute. Timestamps without an offset are read
// in loc. hasClock is false for date-only values.
func parseTimestamp(raw string, loc *time.Location) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	if t, err := time.ParseInLocation("2006-01-02", raw, loc); err == nil {
		return t, false
	}
	return time.Time{}, false
}

// normalizeClock rewrites "5:30pm" or "5:30 PM" as "5:30 PM"
func normalizeClock(s string) string {
	compact := strings.ToUpper(strings.Join(strings.Fields(s), ""))
	t, err := time.Parse("3:04PM", compact)
	if err != nil {
		return strings.TrimSpace(s)
	}
	return t.Format(clockLayout)
}

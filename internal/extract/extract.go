// Package extract pulls event fields out of a rendered Meetup event page.
//
// Meetup markup is unversioned and changes often, so every field is resolved through
// an ordered chain of strategies: structured metadata first, then semantic selectors,
// then a heuristic scan. The first candidate that clears the field's quality bar wins.
// Missing fields degrade to empty or default values; extraction never fails.
package extract

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/bigislandtech/meetup-sync/internal/config"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// Options carries the thresholds and site conventions used during extraction
type Options struct {
	Location          *time.Location
	DefaultDuration   time.Duration
	DescriptionMin    int // candidates must be longer than this
	DescriptionMax    int // accepted descriptions are cut to this length
	FallbackMin       int
	FallbackMax       int
	Boilerplate       []string
	SiteKeyword       string
	ImagePathFragment string
	ImageWidth        int
	OnlineMarkers     []string
	RemoteLocation    string
}

// FromConfig builds Options from the extract section of the config
func FromConfig(c config.ExtractConfig, loc *time.Location) Options {
	return Options{
		Location:          loc,
		DefaultDuration:   c.DefaultDuration,
		DescriptionMin:    c.DescriptionMin,
		DescriptionMax:    c.DescriptionMax,
		FallbackMin:       c.FallbackMin,
		FallbackMax:       c.FallbackMax,
		Boilerplate:       c.Boilerplate,
		SiteKeyword:       c.SiteKeyword,
		ImagePathFragment: c.ImagePathFragment,
		ImageWidth:        c.ImageWidth,
		OnlineMarkers:     c.OnlineMarkers,
		RemoteLocation:    c.RemoteLocationLabel,
	}
}

// DefaultOptions returns Options for the default config in its timezone
func DefaultOptions() Options {
	c := config.Default()
	loc, err := c.Location()
	if err != nil {
		loc = time.UTC
	}
	return FromConfig(c.Extract, loc)
}

// Fields holds the raw values extracted from one event page
type Fields struct {
	Title       string
	Date        string    // e.g. "April 10, 2025" in the configured timezone
	Time        string    // e.g. "4:00 PM - 5:30 PM HST", empty when unknown
	Start       time.Time // zero when the page has no machine-readable time
	Location    string
	Description string
	ImageURL    string
}

// Complete reports whether the fields carry enough signal to skip the render tier
func (f Fields) Complete() bool {
	return f.Title != "" && f.Date != ""
}

// Page extracts every field from doc
func Page(doc *goquery.Document, opts Options) Fields {
	var f Fields

	if c, ok := titleChain().Resolve(doc); ok {
		f.Title = c.Value
	}

	f.Start, f.Date, f.Time = dateTime(doc, opts)
	f.Location = location(doc, opts)

	if c, ok := descriptionChain(opts).Resolve(doc); ok {
		f.Description = truncate(c.Value, opts.DescriptionMax)
	}

	if c, ok := imageChain(opts).Resolve(doc); ok {
		f.ImageURL = upgradeImage(resolveURL(doc, c.Value), opts.ImageWidth)
	}

	return f
}

func titleChain() Chain {
	return Chain{
		Strategies: []Strategy{
			{Name: "h1", Run: selectorText("h1")},
			{Name: "title", Run: selectorText("title")},
			{Name: "og:title", Run: metaContent(`meta[property="og:title"]`)},
		},
		Accept: nonEmpty,
	}
}

func imageChain(opts Options) Chain {
	strategies := []Strategy{
		{Name: "og:image", Run: metaContent(`meta[property="og:image"]`)},
	}
	if opts.ImagePathFragment != "" {
		strategies = append(strategies, Strategy{
			Name: "event-photo",
			Run:  attr(`img[src*="`+opts.ImagePathFragment+`"]`, "src"),
		})
	}
	return Chain{Strategies: strategies, Accept: nonEmpty}
}

// location returns the first line of the first address block, or the remote
// sentinel for online events and pages without an address
func location(doc *goquery.Document, opts Options) string {
	addr := doc.Find("address").First()
	if addr.Length() == 0 {
		return opts.RemoteLocation
	}

	text := strings.TrimSpace(addr.Text())
	if text == "" {
		return opts.RemoteLocation
	}
	lower := strings.ToLower(text)
	for _, marker := range opts.OnlineMarkers {
		if marker != "" && strings.Contains(lower, strings.ToLower(marker)) {
			return opts.RemoteLocation
		}
	}

	if line := firstLine(addr); line != "" {
		return line
	}
	return opts.RemoteLocation
}

// firstLine returns the first non-empty line of sel, treating child elements as lines
func firstLine(sel *goquery.Selection) string {
	var line string
	sel.Children().EachWithBreak(func(_ int, child *goquery.Selection) bool {
		line = firstTextLine(child.Text())
		return line == ""
	})
	if line != "" {
		return line
	}
	return firstTextLine(sel.Text())
}

func firstTextLine(s string) string {
	for _, l := range strings.Split(s, "\n") {
		if l = collapse(l); l != "" {
			return l
		}
	}
	return ""
}

func selectorText(selector string) func(*goquery.Document) (Candidate, bool) {
	return func(doc *goquery.Document) (Candidate, bool) {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			return Candidate{}, false
		}
		return Candidate{Value: collapse(sel.Text())}, true
	}
}

func metaContent(selector string) func(*goquery.Document) (Candidate, bool) {
	return attr(selector, "content")
}

func attr(selector, name string) func(*goquery.Document) (Candidate, bool) {
	return func(doc *goquery.Document) (Candidate, bool) {
		v, ok := doc.Find(selector).First().Attr(name)
		if !ok {
			return Candidate{}, false
		}
		return Candidate{Value: strings.TrimSpace(v)}, true
	}
}

// upgradeImage requests a larger rendition unless a width is already set
func upgradeImage(raw string, width int) string {
	if raw == "" || width <= 0 {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Get("w") != "" {
		return raw
	}
	q.Set("w", strconv.Itoa(width))
	u.RawQuery = q.Encode()
	return u.String()
}

// resolveURL makes ref absolute when the document knows its own URL
func resolveURL(doc *goquery.Document, ref string) string {
	if doc.Url == nil || ref == "" {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil || u.IsAbs() {
		return ref
	}
	return doc.Url.ResolveReference(u).String()
}

// collapse trims s and folds every whitespace run into a single space
func collapse(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}

// truncate cuts s to at most max characters without splitting a rune
func truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

package scraper

import (
	"context"
	"fmt"
	"net/url"
	"regexp"

	"github.com/PuerkitoBio/goquery"
	"github.com/bigislandtech/meetup-sync/internal/logger"
	"github.com/bigislandtech/meetup-sync/internal/metrics"
)

// Crawler discovers event detail URLs on a group's listing page
type Crawler struct {
	sources []PageSource
	pattern *regexp.Regexp
	group   string
	log     *logger.Logger
	metrics *metrics.Metrics
}

// NewCrawler creates a Crawler for the given group slug. Sources are tried in order.
func NewCrawler(group string, sources []PageSource, log *logger.Logger, m *metrics.Metrics) *Crawler {
	return &Crawler{
		sources: sources,
		pattern: regexp.MustCompile(`^/` + regexp.QuoteMeta(group) + `/events/(\d+)`),
		group:   group,
		log:     log,
		metrics: m,
	}
}

// Discover returns the distinct event URLs linked from listingURL in the order
// they first appear. A listing with no event links yields an empty slice, not an error.
func (c *Crawler) Discover(ctx context.Context, listingURL string) ([]string, error) {
	base, err := url.Parse(listingURL)
	if err != nil {
		return nil, fmt.Errorf("parsing listing URL: %w", err)
	}

	out, err := Resolve(ctx, listingURL, c.sources, func(doc *goquery.Document) ([]string, bool) {
		links := c.EventLinks(doc, base)
		return links, len(links) > 0
	})
	if out.Tried > 1 && c.metrics != nil {
		c.metrics.RenderFallbacks.WithLabelValues("listing").Inc()
	}
	if err != nil {
		return nil, fmt.Errorf("fetching listing: %w", err)
	}

	if len(out.Value) == 0 {
		c.log.Warn("No event links found on listing page", logger.Fields{
			"url":   listingURL,
			"tried": out.Tried,
		})
		return []string{}, nil
	}

	c.log.Info("Discovered events", logger.Fields{
		"url":    listingURL,
		"count":  len(out.Value),
		"source": out.Source,
	})
	return out.Value, nil
}

// EventLinks extracts normalized event URLs from a listing document.
// Relative links resolve against the document URL, or base when it has none.
func (c *Crawler) EventLinks(doc *goquery.Document, base *url.URL) []string {
	if doc.Url != nil {
		base = doc.Url
	}

	seen := make(map[string]bool)
	var links []string

	doc.Find(`a[href*="/events/"]`).Each(func(i int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)

		m := c.pattern.FindStringSubmatch(abs.Path)
		if m == nil {
			return
		}

		link := fmt.Sprintf("%s://%s/%s/events/%s/", abs.Scheme, abs.Host, c.group, m[1])
		if seen[link] {
			return
		}
		seen[link] = true
		links = append(links, link)
	})

	return links
}

package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/bigislandtech/meetup-sync/internal/event"
	"github.com/bigislandtech/meetup-sync/internal/extract"
	"github.com/bigislandtech/meetup-sync/internal/logger"
	"github.com/bigislandtech/meetup-sync/internal/metrics"
	"golang.org/x/time/rate"
)

var errNoTitle = errors.New("no title found")

// Fetcher turns event detail pages into records
type Fetcher struct {
	sources     []PageSource
	opts        extract.Options
	defaultTime string
	limiter     *rate.Limiter
	log         *logger.Logger
	metrics     *metrics.Metrics
}

// NewFetcher creates a Fetcher. pacing is the minimum gap between the start of
// consecutive fetches in FetchAll; zero disables pacing.
func NewFetcher(sources []PageSource, opts extract.Options, defaultTime string, pacing time.Duration, log *logger.Logger, m *metrics.Metrics) *Fetcher {
	limit := rate.Inf
	if pacing > 0 {
		limit = rate.Every(pacing)
	}
	return &Fetcher{
		sources:     sources,
		opts:        opts,
		defaultTime: defaultTime,
		limiter:     rate.NewLimiter(limit, 1),
		log:         log,
		metrics:     m,
	}
}

// Fetch retrieves one event page and builds its record. Failures are logged and
// reported as nil so one bad page never stops a run.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (evt *event.Event) {
	defer func() {
		if r := recover(); r != nil {
			f.log.Error("Detail extraction panicked", logger.Fields{"url": pageURL}, fmt.Errorf("%v", r))
			evt = nil
		}
	}()

	out, err := Resolve(ctx, pageURL, f.sources, func(doc *goquery.Document) (extract.Fields, bool) {
		fields := extract.Page(doc, f.opts)
		return fields, fields.Complete()
	})
	if out.Tried > 1 && f.metrics != nil {
		f.metrics.RenderFallbacks.WithLabelValues("detail").Inc()
	}
	if err != nil {
		f.log.Error("Detail fetch failed", logger.Fields{"url": pageURL}, err)
		return nil
	}

	fields := out.Value
	if fields.Title == "" {
		f.log.Error("Detail fetch failed", logger.Fields{
			"url":    pageURL,
			"source": out.Source,
		}, errNoTitle)
		return nil
	}
	if !out.Sufficient {
		f.log.Warn("Event page missing date", logger.Fields{
			"url":    pageURL,
			"source": out.Source,
		})
	}

	evt = f.build(pageURL, fields)
	f.log.Debug("Scraped event", logger.Fields{
		"source_id": evt.SourceID,
		"title":     evt.Title,
		"source":    out.Source,
	})
	return evt
}

// FetchAll fetches each URL in order, pacing requests, and returns the records
// produced along with the number of pages that yielded none. Cancelling ctx stops
// the loop and counts the remaining URLs as skipped.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) ([]*event.Event, int) {
	var events []*event.Event
	skipped := 0

	for i, u := range urls {
		if err := f.limiter.Wait(ctx); err != nil {
			remaining := len(urls) - i
			f.log.Warn("Fetch loop cancelled", logger.Fields{"remaining": remaining})
			skipped += remaining
			break
		}

		evt := f.Fetch(ctx, u)
		if evt == nil {
			skipped++
			continue
		}
		events = append(events, evt)
	}

	if f.metrics != nil {
		f.metrics.Scraped.Add(float64(len(events)))
		f.metrics.Skipped.Add(float64(skipped))
	}
	return events, skipped
}

func (f *Fetcher) build(pageURL string, fields extract.Fields) *event.Event {
	timeRange := fields.Time
	if timeRange == "" {
		timeRange = f.defaultTime
	}
	return &event.Event{
		Title:       fields.Title,
		Date:        fields.Date,
		DateISO:     event.ToISO(fields.Date),
		Time:        timeRange,
		Location:    fields.Location,
		Description: fields.Description,
		ImageURL:    fields.ImageURL,
		Link:        pageURL,
		SourceID:    event.ExtractSourceID(pageURL),
	}
}

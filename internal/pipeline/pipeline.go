package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/bigislandtech/meetup-sync/internal/event"
	"github.com/bigislandtech/meetup-sync/internal/logger"
	"github.com/bigislandtech/meetup-sync/internal/metrics"
	"github.com/bigislandtech/meetup-sync/internal/storage"
	"github.com/google/uuid"
)

// ErrUnreadableDataset is returned when the dataset file exists but cannot be
// loaded. The run stops before reconciling so stored records are never lost.
var ErrUnreadableDataset = errors.New("existing dataset is unreadable")

// Discoverer finds event URLs on a listing page
type Discoverer interface {
	Discover(ctx context.Context, listingURL string) ([]string, error)
}

// EventFetcher turns event URLs into records
type EventFetcher interface {
	FetchAll(ctx context.Context, urls []string) ([]*event.Event, int)
}

// Dataset loads and saves the stored events
type Dataset interface {
	Path() string
	Load() ([]*event.Event, storage.LoadReport, error)
	Save(events []*event.Event, w storage.Writer) error
}

// Options controls a single run
type Options struct {
	ListingURL string
	DryRun     bool
	Force      bool
	Location   *time.Location   // day boundary for upcoming/past counts
	Now        func() time.Time // defaults to time.Now
}

// Summary reports what a run did
type Summary struct {
	RunID      string `json:"run_id"`
	DryRun     bool   `json:"dry_run"`
	Aborted    string `json:"aborted,omitempty"` // why the run stopped before reconciling
	Discovered int    `json:"discovered"`
	Scraped    int    `json:"scraped"`
	Skipped    int    `json:"skipped"`
	Existing   int    `json:"existing"`
	LoadFailed bool   `json:"load_failed,omitempty"`
	Dropped    int    `json:"dropped,omitempty"`

	Added     []*event.Event       `json:"added"`
	Updated   []*event.Event       `json:"updated"`
	Unchanged int                  `json:"unchanged"`
	Changes   []*event.FieldChange `json:"changes,omitempty"`

	Saved    bool `json:"saved"`
	Total    int  `json:"total"`
	Upcoming int  `json:"upcoming"`
	Past     int  `json:"past"`
}

// Runner wires the pipeline stages together
type Runner struct {
	crawler Discoverer
	fetcher EventFetcher
	dataset Dataset
	writer  storage.Writer
	log     *logger.Logger
	metrics *metrics.Metrics
}

// NewRunner creates a Runner. writer decides whether saving touches the disk.
func NewRunner(crawler Discoverer, fetcher EventFetcher, dataset Dataset, writer storage.Writer, log *logger.Logger, m *metrics.Metrics) *Runner {
	return &Runner{
		crawler: crawler,
		fetcher: fetcher,
		dataset: dataset,
		writer:  writer,
		log:     log,
		metrics: m,
	}
}

// Run executes one sync. An error means the run stopped before it could finish
// safely and nothing was written. A missing dataset is not an error; one that
// exists but cannot be read is.
func (r *Runner) Run(ctx context.Context, opts Options) (*Summary, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	started := time.Now()
	summary := &Summary{
		RunID:  uuid.NewString(),
		DryRun: opts.DryRun,
	}
	log := r.log.With(logger.Fields{"run_id": summary.RunID})

	ok := false
	defer func() {
		if r.metrics != nil {
			r.metrics.ObserveRun(started, ok)
		}
	}()

	log.Info("Starting sync", logger.Fields{
		"listing_url": opts.ListingURL,
		"dataset":     r.dataset.Path(),
		"dry_run":     opts.DryRun,
		"force":       opts.Force,
	})

	urls, err := r.crawler.Discover(ctx, opts.ListingURL)
	if err != nil {
		if ctx.Err() != nil {
			return summary, fmt.Errorf("sync cancelled: %w", ctx.Err())
		}
		log.Error("Event discovery failed, nothing to sync", logger.Fields{"listing_url": opts.ListingURL}, err)
		summary.Aborted = "listing could not be fetched"
		return summary, nil
	}
	summary.Discovered = len(urls)
	if len(urls) == 0 {
		log.Warn("No events found on listing page, nothing to sync", logger.Fields{"listing_url": opts.ListingURL})
		summary.Aborted = "no events found"
		ok = true
		return summary, nil
	}

	scraped, skipped := r.fetcher.FetchAll(ctx, urls)
	if ctx.Err() != nil {
		return summary, fmt.Errorf("sync cancelled: %w", ctx.Err())
	}
	summary.Scraped = len(scraped)
	summary.Skipped = skipped
	log.Info("Scraped events", logger.Fields{"scraped": len(scraped), "skipped": skipped})

	existing, report, err := r.dataset.Load()
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Error("Failed to load existing events, treating as zero existing records", logger.Fields{
			"path": r.dataset.Path(),
		}, err)
		if r.metrics != nil {
			r.metrics.LoadFailures.Inc()
		}
		summary.LoadFailed = true
		existing = nil
	case err != nil:
		log.Error("Existing dataset is unreadable, refusing to overwrite it", logger.Fields{
			"path": r.dataset.Path(),
		}, err)
		if r.metrics != nil {
			r.metrics.LoadFailures.Inc()
		}
		summary.LoadFailed = true
		return summary, fmt.Errorf("%w: %w", ErrUnreadableDataset, err)
	default:
		log.Info("Loaded existing events", logger.Fields{
			"path":   report.Path,
			"format": report.Format,
			"count":  report.Loaded,
		})
		if report.Dropped > 0 {
			log.Warn("Dropped stored records that could not be parsed or have no id", logger.Fields{"dropped": report.Dropped})
			if r.metrics != nil {
				r.metrics.DroppedRecords.Add(float64(report.Dropped))
			}
		}
	}
	summary.Existing = len(existing)
	summary.Dropped = report.Dropped

	result := event.Reconcile(existing, scraped, event.ReconcileOptions{
		Force: opts.Force,
		Now:   now,
	})
	summary.Added = result.Added
	summary.Updated = result.Updated
	summary.Unchanged = len(result.Unchanged)
	summary.Changes = result.Changes
	r.recordReconcile(result)

	for _, c := range result.Changes {
		log.Debug("Field changed", logger.Fields{
			"id":        c.ID,
			"source_id": c.SourceID,
			"field":     c.Field,
		})
	}

	all := result.All()
	today := now().In(loc)
	summary.Total = len(all)
	summary.Upcoming = len(event.Upcoming(all, today))
	summary.Past = len(event.Past(all, today))

	if !result.HasChanges() {
		log.Info("No changes detected, dataset left as is", nil)
		r.recordDataset(summary)
		ok = true
		return summary, nil
	}

	if err := r.dataset.Save(all, r.writer); err != nil {
		log.Error("Failed to save events", logger.Fields{"path": r.dataset.Path()}, err)
		return summary, fmt.Errorf("saving events: %w", err)
	}
	summary.Saved = !opts.DryRun
	r.recordDataset(summary)

	log.Info("Sync complete", logger.Fields{
		"added":     len(result.Added),
		"updated":   len(result.Updated),
		"unchanged": len(result.Unchanged),
		"total":     summary.Total,
		"saved":     summary.Saved,
	})
	ok = true
	return summary, nil
}

func (r *Runner) recordReconcile(result *event.ReconcileResult) {
	if r.metrics == nil {
		return
	}
	r.metrics.Reconciled.WithLabelValues(metrics.ResultAdded).Add(float64(len(result.Added)))
	r.metrics.Reconciled.WithLabelValues(metrics.ResultUpdated).Add(float64(len(result.Updated)))
	r.metrics.Reconciled.WithLabelValues(metrics.ResultUnchanged).Add(float64(len(result.Unchanged)))
}

func (r *Runner) recordDataset(s *Summary) {
	if r.metrics == nil {
		return
	}
	r.metrics.DatasetEvents.WithLabelValues("upcoming").Set(float64(s.Upcoming))
	r.metrics.DatasetEvents.WithLabelValues("past").Set(float64(s.Past))
}

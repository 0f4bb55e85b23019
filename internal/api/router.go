package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/bigislandtech/meetup-sync/internal/calendar"
	"github.com/bigislandtech/meetup-sync/internal/event"
	"github.com/bigislandtech/meetup-sync/internal/filter"
	"github.com/bigislandtech/meetup-sync/internal/logger"
	"github.com/bigislandtech/meetup-sync/internal/metrics"
	"github.com/bigislandtech/meetup-sync/internal/storage"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Loader reads the current dataset
type Loader interface {
	Load() ([]*event.Event, storage.LoadReport, error)
}

// Options configures the router
type Options struct {
	Dataset  Loader
	Metrics  *metrics.Metrics // nil disables /metrics
	Calendar calendar.Options
	Location *time.Location   // day boundary for upcoming/past
	Now      func() time.Time // defaults to time.Now
	Log      *logger.Logger
}

// EventList is the body of the list endpoints
type EventList struct {
	Count  int            `json:"count"`
	Events []*event.Event `json:"events"`
}

type server struct {
	opts Options
}

// NewRouter builds the HTTP handler
func NewRouter(opts Options) http.Handler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Log == nil {
		opts.Log = logger.Default()
	}
	s := &server{opts: opts}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(opts.Log))
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/events", func(er chi.Router) {
		er.Get("/upcoming", s.listHandler(event.Upcoming))
		er.Get("/past", s.listHandler(event.Past))
		er.Get("/{id}", s.getHandler)
	})
	r.Get("/events.ics", s.icsHandler)

	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics.Handler())
	}

	return r
}

// load reads the dataset and refreshes the dataset gauges
func (s *server) load(w http.ResponseWriter, r *http.Request) ([]*event.Event, bool) {
	events, _, err := s.opts.Dataset.Load()
	if err != nil {
		s.opts.Log.Error("Failed to load dataset", logger.Fields{
			"request_id": chimw.GetReqID(r.Context()),
		}, err)
		http.Error(w, "dataset unavailable", http.StatusInternalServerError)
		return nil, false
	}

	if s.opts.Metrics != nil {
		today := s.today()
		s.opts.Metrics.DatasetEvents.WithLabelValues("upcoming").Set(float64(len(event.Upcoming(events, today))))
		s.opts.Metrics.DatasetEvents.WithLabelValues("past").Set(float64(len(event.Past(events, today))))
	}
	return events, true
}

func (s *server) today() time.Time {
	return s.opts.Now().In(s.opts.Location)
}

func (s *server) listHandler(category func([]*event.Event, time.Time) []*event.Event) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := s.queryFilter(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		events, ok := s.load(w, r)
		if !ok {
			return
		}
		selected := category(f.Apply(events), s.today())
		writeJSON(w, http.StatusOK, EventList{Count: len(selected), Events: selected})
	}
}

// queryFilter builds a filter from the title, location and when query parameters
func (s *server) queryFilter(r *http.Request) (*filter.Filter, error) {
	q := r.URL.Query()
	f := filter.New()
	f.Titles = q["title"]
	f.Locations = q["location"]
	if when := q.Get("when"); when != "" {
		from, to, err := filter.ParseDateRange(when, s.today())
		if err != nil {
			return nil, err
		}
		f.DateFrom, f.DateTo = from, to
	}
	return f, nil
}

func (s *server) getHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		http.Error(w, "invalid event id", http.StatusBadRequest)
		return
	}

	events, ok := s.load(w, r)
	if !ok {
		return
	}
	for _, e := range events {
		if e.ID == id {
			writeJSON(w, http.StatusOK, e)
			return
		}
	}
	http.Error(w, "event not found", http.StatusNotFound)
}

func (s *server) icsHandler(w http.ResponseWriter, r *http.Request) {
	events, ok := s.load(w, r)
	if !ok {
		return
	}
	event.SortByDate(events, true)

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(calendar.GenerateICS(events, s.opts.Calendar)))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// requestLogger logs one line per request with the chi request id
func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Debug("HTTP request", logger.Fields{
					"request_id":  chimw.GetReqID(r.Context()),
					"method":      r.Method,
					"path":        r.URL.Path,
					"status":      ww.Status(),
					"bytes":       ww.BytesWritten(),
					"duration_ms": time.Since(start).Milliseconds(),
				})
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

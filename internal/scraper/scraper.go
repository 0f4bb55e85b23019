package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
)

// ErrUnexpectedStatus is returned by the static source for non-200 responses
var ErrUnexpectedStatus = errors.New("unexpected status code")

// PageSource retrieves a page and returns its parsed document
type PageSource interface {
	Name() string
	Fetch(ctx context.Context, pageURL string) (*goquery.Document, error)
}

// StaticSource fetches pages with a plain HTTP request
type StaticSource struct {
	client    *http.Client
	userAgent string
}

// NewStaticSource creates a StaticSource with the given request timeout
func NewStaticSource(timeout time.Duration, userAgent string) *StaticSource {
	return &StaticSource{
		client: &http.Client{
			Timeout: timeout,
		},
		userAgent: userAgent,
	}
}

// Name implements PageSource
func (s *StaticSource) Name() string { return "static" }

// Fetch implements PageSource
func (s *StaticSource) Fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	doc.Url = resp.Request.URL
	return doc, nil
}

// RenderSource loads pages in headless Chrome and parses the live DOM.
// Every call starts and tears down its own browser.
type RenderSource struct {
	timeout    time.Duration
	settle     time.Duration
	userAgent  string
	chromePath string
}

// NewRenderSource creates a RenderSource. timeout bounds the whole render including
// browser start-up; settle is the fixed wait after navigation for client-side content.
func NewRenderSource(timeout, settle time.Duration, userAgent, chromePath string) *RenderSource {
	return &RenderSource{
		timeout:    timeout,
		settle:     settle,
		userAgent:  userAgent,
		chromePath: chromePath,
	}
}

// Name implements PageSource
func (r *RenderSource) Name() string { return "render" }

// Fetch implements PageSource
func (r *RenderSource) Fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(r.userAgent),
	)
	if r.chromePath != "" {
		opts = append(opts, chromedp.ExecPath(r.chromePath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.Sleep(r.settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("rendering page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing rendered HTML: %w", err)
	}
	if u, err := url.Parse(pageURL); err == nil {
		doc.Url = u
	}
	return doc, nil
}

// Outcome is the result of trying page sources in order
type Outcome[T any] struct {
	Value      T
	Source     string // name of the source that produced Value
	Sufficient bool   // Value passed the caller's quality check
	Tried      int    // sources attempted, including failed ones
}

// Resolve fetches pageURL from each source in turn and runs extract on the document.
// It stops at the first sufficient result. When no result is sufficient the last
// document that was fetched wins. An error is returned only when no source produced
// a document at all.
func Resolve[T any](ctx context.Context, pageURL string, sources []PageSource, extract func(*goquery.Document) (T, bool)) (Outcome[T], error) {
	var out Outcome[T]
	var errs []error

	for _, src := range sources {
		out.Tried++

		doc, err := src.Fetch(ctx, pageURL)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			if ctx.Err() != nil {
				break
			}
			continue
		}

		value, ok := extract(doc)
		out.Value = value
		out.Source = src.Name()
		out.Sufficient = ok
		if ok {
			return out, nil
		}
	}

	if out.Source == "" {
		if len(errs) == 0 {
			return out, errors.New("no page sources configured")
		}
		return out, errors.Join(errs...)
	}
	return out, nil
}

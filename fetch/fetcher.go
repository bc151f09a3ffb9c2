// Package fetch retrieves runs from an upstream arena API and feeds them into
// a runs.Store.
//
// The Fetcher is the only component that sets the store's loading and
// end-of-results flags. It uses them to avoid overlapping requests and to stop
// asking for pages once upstream is exhausted.
//
// Upstream contract:
//
//	POST <url>
//	{"filters": {...}, "offset": 0, "rowcount": 100}
//
//	200 OK
//	{"runs": [{"guid": "...", ...}], "total": 1234}
//
// Filters are forwarded exactly as they are held by the store.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/nomis52/runboard/runs"
)

const (
	// DefaultPageSize is the number of runs requested per page.
	DefaultPageSize = 100
	// DefaultTimeout bounds a single upstream request.
	DefaultTimeout = 30 * time.Second
)

// ErrBusy is returned when a fetch is already in flight for the store.
var ErrBusy = errors.New("fetch already in progress")

// StatusError is returned when upstream answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Fetcher loads pages of runs for a single store.
type Fetcher struct {
	store      *runs.Store
	url        string
	httpClient *http.Client
	pageSize   int
	timeout    time.Duration
	logger     *slog.Logger

	// mu serializes the check-and-set of the store's loading flag.
	mu sync.Mutex
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets the HTTP client used for upstream requests.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.httpClient = c
	}
}

// WithPageSize sets the number of runs requested per page.
func WithPageSize(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.pageSize = n
		}
	}
}

// WithTimeout sets the timeout used by Run.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// New creates a Fetcher that loads runs from url into store.
func New(store *runs.Store, url string, opts ...Option) *Fetcher {
	f := &Fetcher{
		store:      store,
		url:        url,
		httpClient: &http.Client{},
		pageSize:   DefaultPageSize,
		timeout:    DefaultTimeout,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(f)
	}

	f.logger = f.logger.With("store", store.Name())
	return f
}

type pageRequest struct {
	Filters  runs.Filters `json:"filters,omitempty"`
	Offset   int          `json:"offset"`
	Rowcount int          `json:"rowcount"`
}

type pageResponse struct {
	Runs  []runs.Run `json:"runs"`
	Total int        `json:"total"`
}

// LoadMore fetches the page at the store's current offset and merges it into
// the store. Runs are upserted, so each one is indexed and a later Refresh
// updates it in place instead of adding it again.
//
// Returns ErrBusy if a fetch is already in flight. Does nothing once the store
// has reached the end of results.
func (f *Fetcher) LoadMore(ctx context.Context) error {
	if f.store.EndOfResults() {
		return nil
	}
	if !f.tryStart() {
		return ErrBusy
	}
	defer f.store.SetLoading(false)

	return f.loadPage(ctx, f.store.Offset())
}

// Reset clears the store and loads the first page again. Used after the
// filters change. The loading flag is held from before the clear until the
// first page is in.
func (f *Fetcher) Reset(ctx context.Context) error {
	if !f.tryStart() {
		return ErrBusy
	}
	defer f.store.SetLoading(false)

	f.store.Clear()
	f.store.SetOffset(0)
	f.store.SetEndOfResults(false)

	return f.loadPage(ctx, 0)
}

// loadPage fetches the page at offset and advances the pagination. The caller
// must own the loading flag.
func (f *Fetcher) loadPage(ctx context.Context, offset int) error {
	page, err := f.fetchPage(ctx, offset)
	if err != nil {
		return fmt.Errorf("loading page at offset %d: %w", offset, err)
	}

	added := f.merge(page.Runs)
	f.store.SetTotalRuns(page.Total)

	next := offset + len(page.Runs)
	f.store.SetOffset(next)
	if len(page.Runs) < f.pageSize || next >= page.Total {
		f.store.SetEndOfResults(true)
	}

	f.logger.Info("loaded page",
		"offset", offset,
		"count", added,
		"total", page.Total,
	)
	return nil
}

// merge upserts each run and returns how many were accepted. Runs without an
// identifier are skipped.
func (f *Fetcher) merge(page []runs.Run) int {
	merged := 0
	for _, run := range page {
		if err := f.store.UpsertRun(run); err != nil {
			f.logger.Warn("skipping run from upstream", "error", err)
			continue
		}
		merged++
	}
	return merged
}

// Refresh fetches the newest page and upserts every run in it, so status and
// verdict changes of runs already shown are merged in place.
func (f *Fetcher) Refresh(ctx context.Context) error {
	if !f.tryStart() {
		return ErrBusy
	}
	defer f.store.SetLoading(false)

	page, err := f.fetchPage(ctx, 0)
	if err != nil {
		return fmt.Errorf("refreshing runs: %w", err)
	}

	updated := f.merge(page.Runs)
	f.store.SetTotalRuns(page.Total)

	f.logger.Debug("refreshed runs", "count", updated, "total", page.Total)
	return nil
}

// Run refreshes the store with the configured timeout. It lets the fetcher be
// driven by a cron trigger.
func (f *Fetcher) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()
	return f.Refresh(ctx)
}

// tryStart sets the loading flag if no fetch is in flight.
// Returns true if the caller now owns the fetch.
func (f *Fetcher) tryStart() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.store.Loading() {
		return false
	}
	f.store.SetLoading(true)
	return true
}

func (f *Fetcher) fetchPage(ctx context.Context, offset int) (*pageResponse, error) {
	body, err := json.Marshal(pageRequest{
		Filters:  f.store.Filters(),
		Offset:   offset,
		Rowcount: f.pageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Code: resp.StatusCode, Body: string(b)}
	}

	var page pageResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &page, nil
}

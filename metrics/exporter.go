package metrics

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nomis52/runboard/runs"
)

// StoreExporter publishes the state of one or more run stores.
//
// Per-store series (label "store"):
//   - runs_loaded: runs held locally
//   - runs_upstream: runs known to exist upstream
//   - filters_active: number of filter dimensions set
//   - loading: 1 while a fetch is in flight
//   - store_events_total: mutations, by kind
type StoreExporter struct {
	runsLoaded    GaugeVec
	runsTotal     GaugeVec
	filtersActive GaugeVec
	loading       GaugeVec
	events        CounterVec
	watched       Gauge

	// mu serializes gauge updates: each update reads and publishes the store
	// state as one step.
	mu    sync.Mutex
	count int // protected by mu
}

// NewStoreExporter creates the exporter's metrics in reg.
func NewStoreExporter(reg Registry) (*StoreExporter, error) {
	e := &StoreExporter{}
	var err error

	gauges := []struct {
		target *GaugeVec
		name   string
		help   string
	}{
		{&e.runsLoaded, "runs_loaded", "Number of runs held in the store."},
		{&e.runsTotal, "runs_upstream", "Number of runs known to exist upstream."},
		{&e.filtersActive, "filters_active", "Number of active filter dimensions."},
		{&e.loading, "loading", "1 while a fetch is in flight for the store."},
	}
	for _, g := range gauges {
		*g.target, err = reg.NewGaugeVec(prometheus.GaugeOpts{Name: g.name, Help: g.help}, []string{"store"})
		if err != nil {
			return nil, fmt.Errorf("creating %s: %w", g.name, err)
		}
	}

	e.events, err = reg.NewCounterVec(prometheus.CounterOpts{
		Name: "store_events_total",
		Help: "Store mutations by kind.",
	}, []string{"store", "kind"})
	if err != nil {
		return nil, fmt.Errorf("creating store_events_total: %w", err)
	}

	e.watched, err = reg.NewGauge(prometheus.GaugeOpts{
		Name: "stores_watched",
		Help: "Number of stores being exported.",
	})
	if err != nil {
		return nil, fmt.Errorf("creating stores_watched: %w", err)
	}
	e.watched.Set(0)

	return e, nil
}

// Watch starts exporting s. The returned function stops it.
func (e *StoreExporter) Watch(s *runs.Store) (unwatch func()) {
	e.update(s)
	unsubscribe := s.Subscribe(func(ev runs.Event) {
		e.events.With(prometheus.Labels{"store": ev.Store, "kind": string(ev.Kind)}).Inc()
		e.update(s)
	})
	e.adjustWatched(1)

	var once sync.Once
	return func() {
		once.Do(func() {
			unsubscribe()
			e.adjustWatched(-1)
		})
	}
}

func (e *StoreExporter) update(s *runs.Store) {
	e.mu.Lock()
	defer e.mu.Unlock()

	labels := prometheus.Labels{"store": s.Name()}
	p := s.Pagination()

	e.runsLoaded.With(labels).Set(float64(s.Len()))
	e.runsTotal.With(labels).Set(float64(p.TotalRuns))
	e.filtersActive.With(labels).Set(float64(len(s.Filters())))
	e.loading.With(labels).Set(boolToFloat(p.Loading))
}

func (e *StoreExporter) adjustWatched(delta int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.count += delta
	e.watched.Set(float64(e.count))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

package runs

import (
	"io"
	"log/slog"
	"maps"
	"sync"
)

// Store is the run collection for one view (for example "all runs" or
// "my runs"). The zero value is not usable; create stores with New.
type Store struct {
	name   string
	logger *slog.Logger

	mu         sync.RWMutex
	runs       []Run          // protected by mu
	index      map[string]int // protected by mu
	filters    Filters        // protected by mu, nil when absent
	pagination Pagination     // protected by mu

	subs      []subscription // protected by mu
	nextSubID int            // protected by mu
}

// Option configures a Store.
type Option func(*Store)

// WithEmptyFilters starts the store with an empty, present filter set instead
// of an absent one.
func WithEmptyFilters() Option {
	return func(s *Store) {
		s.filters = Filters{}
	}
}

// WithLogger sets the logger used for mutation debug logs.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates an empty store.
func New(name string, opts ...Option) *Store {
	s := &Store{
		name:   name,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		runs:   make([]Run, 0),
		index:  make(map[string]int),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.With("store", name)
	return s
}

// Name returns the store name.
func (s *Store) Name() string {
	return s.name
}

// UpsertRun inserts run, or merges it into the run with the same identifier.
//
// A run whose identifier is already indexed is replaced, in place, by a
// shallow merge of the existing record and run; fields in run win. Otherwise
// run is appended and indexed. Returns *InvalidRunError, without mutating
// anything, when run has no usable identifier.
func (s *Store) UpsertRun(run Run) error {
	id, err := runID(run)
	if err != nil {
		return err
	}

	s.mu.Lock()
	var ev Event
	if pos, ok := s.index[id]; ok {
		merged := s.runs[pos].Clone()
		if merged == nil {
			merged = make(Run, len(run))
		}
		maps.Copy(merged, run)
		s.runs[pos] = merged
		ev = Event{Store: s.name, Kind: EventRunUpdated, ID: id}
	} else {
		s.index[id] = len(s.runs)
		s.runs = append(s.runs, run.Clone())
		ev = Event{Store: s.name, Kind: EventRunInserted, ID: id}
	}
	ls := s.listeners()
	s.mu.Unlock()

	s.logger.Debug("upserted run", "id", id, "kind", ev.Kind)
	emit(ls, ev)
	return nil
}

// AppendRuns adds runs to the end of the collection in order.
//
// This is the bulk path for a freshly fetched page whose identifiers the
// caller knows are new. The index is not consulted or updated, so appended
// runs cannot be found with Lookup and a later UpsertRun of the same
// identifier appends a second record.
func (s *Store) AppendRuns(runs []Run) {
	if len(runs) == 0 {
		return
	}

	s.mu.Lock()
	for _, r := range runs {
		s.runs = append(s.runs, r.Clone())
	}
	ls := s.listeners()
	s.mu.Unlock()

	s.logger.Debug("appended runs", "count", len(runs))
	emit(ls, Event{Store: s.name, Kind: EventRunsAppended, Count: len(runs)})
}

// SetTotalRuns records the number of runs known to exist upstream.
// The value may go down as well as up.
func (s *Store) SetTotalRuns(n int) {
	s.mu.Lock()
	s.pagination.TotalRuns = n
	ls := s.listeners()
	s.mu.Unlock()

	emit(ls, Event{Store: s.name, Kind: EventTotalChanged})
}

// Clear empties the collection and the index. Pagination and filters are
// left as they are.
func (s *Store) Clear() {
	s.mu.Lock()
	s.runs = make([]Run, 0)
	s.index = make(map[string]int)
	ls := s.listeners()
	s.mu.Unlock()

	s.logger.Debug("cleared runs")
	emit(ls, Event{Store: s.name, Kind: EventCleared})
}

// ApplyFilter merges partial into the current filter set, creating the set if
// it is absent. Keys in partial overwrite existing values; other keys are
// kept. Nothing is changed if any key or value in partial is invalid.
func (s *Store) ApplyFilter(partial Filters) error {
	if err := partial.validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.filters == nil {
		s.filters = Filters{}
	}
	maps.Copy(s.filters, partial)
	ls := s.listeners()
	s.mu.Unlock()

	s.logger.Debug("applied filter", "filter", partial)
	emit(ls, Event{Store: s.name, Kind: EventFiltersChanged})
	return nil
}

// RemoveFilter deletes key from the filter set. Removing a key that is not set,
// or removing from an absent filter set, is a no-op. Returns
// *UnknownFilterKeyError if key is not a recognized dimension.
func (s *Store) RemoveFilter(key FilterKey) error {
	if !key.Valid() {
		return &UnknownFilterKeyError{Key: string(key)}
	}

	s.mu.Lock()
	if _, ok := s.filters[key]; !ok {
		s.mu.Unlock()
		return nil
	}
	delete(s.filters, key)
	ls := s.listeners()
	s.mu.Unlock()

	s.logger.Debug("removed filter", "key", key)
	emit(ls, Event{Store: s.name, Kind: EventFiltersChanged})
	return nil
}

// SetLoading sets the advisory loading flag.
func (s *Store) SetLoading(loading bool) {
	s.updatePagination(func(p *Pagination) { p.Loading = loading })
}

// SetEndOfResults sets the end-of-results flag.
func (s *Store) SetEndOfResults(end bool) {
	s.updatePagination(func(p *Pagination) { p.EndOfResults = end })
}

// SetOffset sets the upstream offset of the next page.
func (s *Store) SetOffset(offset int) {
	s.updatePagination(func(p *Pagination) { p.Offset = offset })
}

func (s *Store) updatePagination(fn func(*Pagination)) {
	s.mu.Lock()
	fn(&s.pagination)
	ls := s.listeners()
	s.mu.Unlock()

	emit(ls, Event{Store: s.name, Kind: EventPaginationChanged})
}

// Runs returns a copy of the collection in display order.
func (s *Store) Runs() []Run {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneRuns(s.runs)
}

// Len returns the number of runs in the collection.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}

// Lookup returns a copy of the indexed run with the given identifier.
func (s *Store) Lookup(id string) (Run, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return s.runs[pos].Clone(), true
}

// Index returns a copy of the identifier index.
func (s *Store) Index() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.index)
}

// Filters returns a copy of the filter set, or nil if it is absent.
func (s *Store) Filters() Filters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters.Clone()
}

// Pagination returns the pagination state.
func (s *Store) Pagination() Pagination {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pagination
}

// TotalRuns returns the number of runs known to exist upstream.
func (s *Store) TotalRuns() int {
	return s.Pagination().TotalRuns
}

// Offset returns the upstream offset of the next page.
func (s *Store) Offset() int {
	return s.Pagination().Offset
}

// Loading reports whether a fetch is marked in flight.
func (s *Store) Loading() bool {
	return s.Pagination().Loading
}

// EndOfResults reports whether upstream has no more pages.
func (s *Store) EndOfResults() bool {
	return s.Pagination().EndOfResults
}

// Snapshot returns a consistent copy of the whole store state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Name:       s.name,
		Runs:       cloneRuns(s.runs),
		Index:      maps.Clone(s.index),
		Filters:    s.filters.Clone(),
		Pagination: s.pagination,
	}
}

func runID(run Run) (string, error) {
	v, ok := run[IDField]
	if !ok {
		return "", &InvalidRunError{Reason: "missing " + IDField}
	}
	id, ok := v.(string)
	if !ok {
		return "", &InvalidRunError{Reason: IDField + " must be a string"}
	}
	if id == "" {
		return "", &InvalidRunError{Reason: "empty " + IDField}
	}
	return id, nil
}

func cloneRuns(runs []Run) []Run {
	out := make([]Run, len(runs))
	for i, r := range runs {
		out[i] = r.Clone()
	}
	return out
}

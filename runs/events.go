package runs

// EventKind identifies which mutation produced an Event.
type EventKind string

const (
	EventRunInserted       EventKind = "run_inserted"
	EventRunUpdated        EventKind = "run_updated"
	EventRunsAppended      EventKind = "runs_appended"
	EventTotalChanged      EventKind = "total_changed"
	EventCleared           EventKind = "cleared"
	EventFiltersChanged    EventKind = "filters_changed"
	EventPaginationChanged EventKind = "pagination_changed"
)

// Event describes a completed mutation.
type Event struct {
	// Store is the name of the store that changed.
	Store string    `json:"store"`
	Kind  EventKind `json:"kind"`
	// ID is the affected run identifier for run_inserted and run_updated.
	ID string `json:"id,omitempty"`
	// Count is the number of runs appended for runs_appended.
	Count int `json:"count,omitempty"`
}

// Listener receives store events. It runs on the goroutine that performed the
// mutation and must not block for long.
type Listener func(Event)

type subscription struct {
	id int
	fn Listener
}

// Subscribe registers l to be called after every mutation, in subscription
// order. The returned function removes the listener; calling it more than once
// is harmless.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSubID++
	id := s.nextSubID
	s.subs = append(s.subs, subscription{id: id, fn: l})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// listeners returns the current listeners. Callers must hold s.mu.
func (s *Store) listeners() []Listener {
	out := make([]Listener, len(s.subs))
	for i, sub := range s.subs {
		out[i] = sub.fn
	}
	return out
}

// emit delivers e to the listeners captured while the lock was held.
func emit(ls []Listener, e Event) {
	for _, l := range ls {
		l(e)
	}
}

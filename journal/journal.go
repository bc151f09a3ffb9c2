// Package journal keeps a bounded, in-memory history of store change events
// so clients can poll for what changed since they last looked.
package journal

import (
	"sync"
	"time"

	"github.com/nomis52/runboard/runs"
)

// DefaultCapacity is the number of entries kept when New is given zero.
const DefaultCapacity = 1000

// Entry is a recorded event with its sequence number.
type Entry struct {
	Seq   uint64     `json:"seq"`
	Time  time.Time  `json:"time"`
	Event runs.Event `json:"event"`
}

// Journal provides thread-safe storage for recent store events.
// Sequence numbers start at 1 and are shared by all attached stores.
type Journal struct {
	mu       sync.RWMutex
	entries  []Entry // oldest first, at most capacity
	capacity int
	lastSeq  uint64
	now      func() time.Time
}

// New creates a Journal that keeps at most capacity entries.
func New(capacity int) *Journal {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Journal{
		entries:  make([]Entry, 0, capacity),
		capacity: capacity,
		now:      time.Now,
	}
}

// Attach records every event of s. The returned function detaches it.
func (j *Journal) Attach(s *runs.Store) (detach func()) {
	return s.Subscribe(j.Record)
}

// Record appends an event, evicting the oldest entry when full.
func (j *Journal) Record(ev runs.Event) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.lastSeq++
	if len(j.entries) == j.capacity {
		copy(j.entries, j.entries[1:])
		j.entries = j.entries[:len(j.entries)-1]
	}
	j.entries = append(j.entries, Entry{Seq: j.lastSeq, Time: j.now(), Event: ev})
}

// Since returns the entries for store with a sequence number greater than
// seq, oldest first. An empty store name matches every store.
func (j *Journal) Since(store string, seq uint64) []Entry {
	j.mu.RLock()
	defer j.mu.RUnlock()

	result := make([]Entry, 0)
	for _, e := range j.entries {
		if e.Seq <= seq {
			continue
		}
		if store != "" && e.Event.Store != store {
			continue
		}
		result = append(result, e)
	}
	return result
}

// LastSeq returns the sequence number of the most recent event, or 0.
func (j *Journal) LastSeq() uint64 {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.lastSeq
}

// Len returns the number of entries held.
func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.entries)
}

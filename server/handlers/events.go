package handlers

import (
	"net/http"
	"strconv"

	"github.com/nomis52/runboard/journal"
)

// EventsResponse is returned by GET /api/stores/{store}/events.
type EventsResponse struct {
	// LastSeq is the value to pass as ?since= on the next poll.
	LastSeq uint64          `json:"last_seq"`
	Events  []journal.Entry `json:"events"`
}

// EventsHandler returns the store events recorded after ?since=.
type EventsHandler struct {
	stores StoreProvider
	source EventSource
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(stores StoreProvider, source EventSource) *EventsHandler {
	return &EventsHandler{
		stores: stores,
		source: source,
	}
}

// ServeHTTP implements http.Handler.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	store, ok := lookupStore(w, r, h.stores)
	if !ok {
		return
	}

	var since uint64
	if v := r.URL.Query().Get("since"); v != "" {
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "since must be a non-negative integer"})
			return
		}
		since = parsed
	}

	// Read LastSeq first so no event is skipped by the next poll.
	last := h.source.LastSeq()
	events := h.source.Since(store.Name(), since)
	writeJSON(w, http.StatusOK, EventsResponse{
		LastSeq: last,
		Events:  events,
	})
}

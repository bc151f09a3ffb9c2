package handlers

import "net/http"

// SnapshotHandler returns the full state of a store.
type SnapshotHandler struct {
	stores StoreProvider
}

// NewSnapshotHandler creates a new SnapshotHandler.
func NewSnapshotHandler(stores StoreProvider) *SnapshotHandler {
	return &SnapshotHandler{
		stores: stores,
	}
}

// ServeHTTP implements http.Handler.
func (h *SnapshotHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	store, ok := lookupStore(w, r, h.stores)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, store.Snapshot())
}

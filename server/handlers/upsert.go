package handlers

import (
	"fmt"
	"net/http"

	"github.com/nomis52/runboard/runs"
)

// UpsertHandler inserts a run or merges it into the existing run with the
// same identifier.
type UpsertHandler struct {
	stores StoreProvider
}

// NewUpsertHandler creates a new UpsertHandler.
func NewUpsertHandler(stores StoreProvider) *UpsertHandler {
	return &UpsertHandler{
		stores: stores,
	}
}

// ServeHTTP implements http.Handler.
func (h *UpsertHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	store, ok := lookupStore(w, r, h.stores)
	if !ok {
		return
	}

	var run runs.Run
	if err := decodeJSON(r, &run); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	if err := store.UpsertRun(run); err != nil {
		writeStoreError(w, err)
		return
	}

	// A concurrent Clear can remove the run before it is read back.
	merged, ok := store.Lookup(run.ID())
	if !ok {
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: fmt.Sprintf("run %q was removed before it could be read", run.ID())})
		return
	}
	writeJSON(w, http.StatusOK, merged)
}

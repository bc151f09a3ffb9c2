package handlers

import (
	"fmt"
	"net/http"
)

// RunHandler returns a single run by identifier.
type RunHandler struct {
	stores StoreProvider
}

// NewRunHandler creates a new RunHandler.
func NewRunHandler(stores StoreProvider) *RunHandler {
	return &RunHandler{
		stores: stores,
	}
}

// ServeHTTP implements http.Handler.
func (h *RunHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	store, ok := lookupStore(w, r, h.stores)
	if !ok {
		return
	}

	id := r.PathValue("id")
	run, ok := store.Lookup(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error: fmt.Sprintf("run %q not found", id),
		})
		return
	}
	writeJSON(w, http.StatusOK, run)
}

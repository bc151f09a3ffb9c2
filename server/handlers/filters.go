package handlers

import (
	"net/http"

	"github.com/nomis52/runboard/runs"
)

// ApplyFilterHandler merges a partial filter set into a store's filters.
type ApplyFilterHandler struct {
	stores StoreProvider
}

// NewApplyFilterHandler creates a new ApplyFilterHandler.
func NewApplyFilterHandler(stores StoreProvider) *ApplyFilterHandler {
	return &ApplyFilterHandler{
		stores: stores,
	}
}

// ServeHTTP implements http.Handler.
func (h *ApplyFilterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	store, ok := lookupStore(w, r, h.stores)
	if !ok {
		return
	}

	var body map[string]any
	if err := decodeJSON(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	partial := make(runs.Filters, len(body))
	for k, v := range body {
		key, err := runs.ParseFilterKey(k)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		partial[key] = v
	}

	if err := store.ApplyFilter(partial); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, store.Filters())
}

// RemoveFilterHandler drops one filter dimension from a store.
type RemoveFilterHandler struct {
	stores StoreProvider
}

// NewRemoveFilterHandler creates a new RemoveFilterHandler.
func NewRemoveFilterHandler(stores StoreProvider) *RemoveFilterHandler {
	return &RemoveFilterHandler{
		stores: stores,
	}
}

// ServeHTTP implements http.Handler.
func (h *RemoveFilterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	store, ok := lookupStore(w, r, h.stores)
	if !ok {
		return
	}

	key, err := runs.ParseFilterKey(r.PathValue("key"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if err := store.RemoveFilter(key); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

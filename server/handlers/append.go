package handlers

import (
	"net/http"

	"github.com/nomis52/runboard/runs"
)

// AppendResponse reports the collection size after an append.
type AppendResponse struct {
	Appended int `json:"appended"`
	Len      int `json:"len"`
}

// AppendHandler appends a page of runs without touching the index.
type AppendHandler struct {
	stores StoreProvider
}

// NewAppendHandler creates a new AppendHandler.
func NewAppendHandler(stores StoreProvider) *AppendHandler {
	return &AppendHandler{
		stores: stores,
	}
}

// ServeHTTP implements http.Handler.
func (h *AppendHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	store, ok := lookupStore(w, r, h.stores)
	if !ok {
		return
	}

	var page []runs.Run
	if err := decodeJSON(r, &page); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	store.AppendRuns(page)
	writeJSON(w, http.StatusOK, AppendResponse{
		Appended: len(page),
		Len:      store.Len(),
	})
}

package handlers

import (
	"net/http"
)

// TotalRequest defines the request body for PUT /api/stores/{store}/total.
type TotalRequest struct {
	Total *int `json:"total"`
}

// TotalHandler sets the upstream run count of a store.
type TotalHandler struct {
	stores StoreProvider
}

// NewTotalHandler creates a new TotalHandler.
func NewTotalHandler(stores StoreProvider) *TotalHandler {
	return &TotalHandler{
		stores: stores,
	}
}

// ServeHTTP implements http.Handler.
func (h *TotalHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	store, ok := lookupStore(w, r, h.stores)
	if !ok {
		return
	}

	var req TotalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if req.Total == nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "total is required"})
		return
	}

	store.SetTotalRuns(*req.Total)
	writeJSON(w, http.StatusOK, store.Pagination())
}

package handlers

import "net/http"

// ClearHandler empties a store's runs. Pagination is left as is.
type ClearHandler struct {
	stores StoreProvider
}

// NewClearHandler creates a new ClearHandler.
func NewClearHandler(stores StoreProvider) *ClearHandler {
	return &ClearHandler{
		stores: stores,
	}
}

// ServeHTTP implements http.Handler.
func (h *ClearHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	store, ok := lookupStore(w, r, h.stores)
	if !ok {
		return
	}
	store.Clear()
	w.WriteHeader(http.StatusNoContent)
}

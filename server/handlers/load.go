package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/nomis52/runboard/fetch"
)

// LoadAction selects which Loader operation a LoadHandler performs.
type LoadAction string

const (
	// ActionLoadMore fetches the next page.
	ActionLoadMore LoadAction = "load"
	// ActionReset clears the store and fetches the first page again.
	ActionReset LoadAction = "reset"
	// ActionRefresh merges the first page into the loaded runs.
	ActionRefresh LoadAction = "refresh"
)

// LoadHandler drives a store's Loader and returns the resulting pagination.
type LoadHandler struct {
	logger  *slog.Logger
	stores  StoreProvider
	loaders LoaderProvider
	action  LoadAction
}

// NewLoadHandler creates a new LoadHandler for the given action.
func NewLoadHandler(logger *slog.Logger, stores StoreProvider, loaders LoaderProvider, action LoadAction) *LoadHandler {
	return &LoadHandler{
		logger:  logger,
		stores:  stores,
		loaders: loaders,
		action:  action,
	}
}

// ServeHTTP implements http.Handler.
func (h *LoadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	store, ok := lookupStore(w, r, h.stores)
	if !ok {
		return
	}

	loader, ok := h.loaders.Loader(store.Name())
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error: fmt.Sprintf("store %q has no upstream", store.Name()),
		})
		return
	}

	if err := h.run(r.Context(), loader); err != nil {
		if errors.Is(err, fetch.ErrBusy) {
			writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
			return
		}
		h.logger.Warn("upstream fetch failed", "store", store.Name(), "action", h.action, "error", err)
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, store.Pagination())
}

func (h *LoadHandler) run(ctx context.Context, loader Loader) error {
	switch h.action {
	case ActionReset:
		return loader.Reset(ctx)
	case ActionRefresh:
		return loader.Refresh(ctx)
	default:
		return loader.LoadMore(ctx)
	}
}

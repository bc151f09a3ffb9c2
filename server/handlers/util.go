package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/nomis52/runboard/runs"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 8 << 20

// ErrorResponse is returned when an error occurs.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// decodeJSON decodes the request body into v, keeping numbers as json.Number.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// lookupStore resolves the {store} path value, writing a 404 if it is unknown.
func lookupStore(w http.ResponseWriter, r *http.Request, provider StoreProvider) (*runs.Store, bool) {
	name := r.PathValue("store")
	store, ok := provider.Store(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error: fmt.Sprintf("unknown store %q", name),
		})
		return nil, false
	}
	return store, true
}

// writeStoreError maps store errors to status codes.
func writeStoreError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, runs.ErrInvalidRun) ||
		errors.Is(err, runs.ErrUnknownFilterKey) ||
		errors.Is(err, runs.ErrInvalidFilterValue) {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

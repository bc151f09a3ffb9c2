package handlers

import (
	"log/slog"
	"net/http"
)

// LogLevelRequest is the body of PUT /api/log-level and the response of both
// GET and PUT.
type LogLevelRequest struct {
	Level string `json:"level"`
}

// LogLevelHandler reports and changes the server's log level.
type LogLevelHandler struct {
	logger     *slog.Logger
	controller LevelController
}

// NewLogLevelHandler creates a new LogLevelHandler.
func NewLogLevelHandler(logger *slog.Logger, controller LevelController) *LogLevelHandler {
	return &LogLevelHandler{
		logger:     logger,
		controller: controller,
	}
}

// ServeHTTP implements http.Handler.
func (h *LogLevelHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		writeJSON(w, http.StatusOK, LogLevelRequest{Level: h.controller.LogLevel()})
		return
	}

	var req LogLevelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if err := h.controller.SetLogLevel(req.Level); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	h.logger.Info("log level changed", "level", req.Level)
	writeJSON(w, http.StatusOK, LogLevelRequest{Level: h.controller.LogLevel()})
}

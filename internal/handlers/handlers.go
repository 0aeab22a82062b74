package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/imaginai/adventure-engine/internal/engine"
	"github.com/imaginai/adventure-engine/internal/storage"
	"github.com/imaginai/adventure-engine/pkg/adventure"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v as the response body with the given status
func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// writeError encodes an ErrorResponse with the given status
func writeError(w http.ResponseWriter, logger *slog.Logger, status int, msg string) {
	writeJSON(w, logger, status, ErrorResponse{Error: msg})
}

// statusFromError maps engine and storage errors to HTTP status codes
func statusFromError(err error) int {
	var genErr *engine.GenerationError
	var streamErr *engine.StreamError

	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, adventure.ErrCardNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrInvalidState):
		return http.StatusConflict
	case errors.As(err, &genErr), errors.As(err, &streamErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeEngineError maps err to a status and writes the error response
func writeEngineError(w http.ResponseWriter, logger *slog.Logger, err error) {
	writeError(w, logger, statusFromError(err), err.Error())
}

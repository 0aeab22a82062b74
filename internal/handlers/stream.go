package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/imaginai/adventure-engine/internal/engine"
)

// StreamHandler serves streamed turn generation over Server-Sent Events.
// Fragments are sent as `data: {"chunk": "..."}` events; a successful
// stream ends with `data: [DONE]`, a failed one with a `data:
// {"error": "..."}` event. Partial output of a failed stream is never
// committed as a turn.
type StreamHandler struct {
	engine *engine.Engine
	logger *slog.Logger
}

func NewStreamHandler(engine *engine.Engine, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{
		engine: engine,
		logger: logger,
	}
}

type streamChunkEvent struct {
	Chunk string `json:"chunk"`
}

type streamErrorEvent struct {
	Error string `json:"error"`
}

// ServeHTTP handles POST /v1/adventures/{id}/stream
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST")
		return
	}

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/adventures"), "/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[1] != "stream" {
		writeError(w, h.logger, http.StatusNotFound, "Not found")
		return
	}

	id, err := uuid.Parse(parts[0])
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid adventure ID format")
		return
	}

	var req GenerateTurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, h.logger, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	// SSE headers go out with the first chunk. Failures before any
	// output get a plain JSON error with a real status code instead.
	started := false
	_, err = h.engine.StreamTurn(r.Context(), id, req.Text, req.ActionType, func(fragment string) {
		if !started {
			started = true
			w.Header().Set("Content-Type", "text/event-stream")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("Connection", "keep-alive")
		}
		h.sendEvent(w, flusher, streamChunkEvent{Chunk: fragment})
	})
	if err != nil {
		h.logger.Warn("Stream turn failed", "adventure_id", id, "error", err)
		if !started {
			writeEngineError(w, h.logger, err)
			return
		}
		h.sendEvent(w, flusher, streamErrorEvent{Error: err.Error()})
		return
	}

	if !started {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func (h *StreamHandler) sendEvent(w http.ResponseWriter, flusher http.Flusher, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to marshal stream event", "error", err)
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}

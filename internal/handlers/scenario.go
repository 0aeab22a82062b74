package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/imaginai/adventure-engine/internal/storage"
)

// ScenarioHandler serves read-only scenario lookups
type ScenarioHandler struct {
	logger  *slog.Logger
	storage storage.Storage
}

func NewScenarioHandler(logger *slog.Logger, storage storage.Storage) *ScenarioHandler {
	return &ScenarioHandler{
		logger:  logger,
		storage: storage,
	}
}

// ServeHTTP handles HTTP requests for scenario operations
// Routes:
// GET /v1/scenarios            - List scenarios (name -> filename)
// GET /v1/scenarios/{filename} - Read a scenario by filename
func (h *ScenarioHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET")
		return
	}

	filename := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/scenarios"), "/")
	if filename == "" {
		h.handleList(w, r)
		return
	}
	h.handleGet(w, r, filename)
}

func (h *ScenarioHandler) handleList(w http.ResponseWriter, r *http.Request) {
	scenarios, err := h.storage.ListScenarios(r.Context())
	if err != nil {
		h.logger.Error("Failed to list scenarios", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to list scenarios")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, scenarios)
}

func (h *ScenarioHandler) handleGet(w http.ResponseWriter, r *http.Request, filename string) {
	if strings.Contains(filename, "..") || strings.Contains(filename, "/") {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid filename")
		return
	}

	s, err := h.storage.GetScenario(r.Context(), filename)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "Scenario not found")
			return
		}
		h.logger.Error("Failed to get scenario", "error", err, "filename", filename)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to retrieve scenario")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, s)
}

package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/imaginai/adventure-engine/internal/engine"
	"github.com/imaginai/adventure-engine/pkg/adventure"
	"github.com/imaginai/adventure-engine/pkg/scenario"
)

// AdventureHandler serves adventure lifecycle and card operations
type AdventureHandler struct {
	engine *engine.Engine
	logger *slog.Logger
}

func NewAdventureHandler(engine *engine.Engine, logger *slog.Logger) *AdventureHandler {
	return &AdventureHandler{
		engine: engine,
		logger: logger,
	}
}

// StartAdventureRequest defines the request body for starting an adventure
type StartAdventureRequest struct {
	Scenario string `json:"scenario"`       // Required: scenario filename
	Name     string `json:"name,omitempty"` // Optional: defaults to the scenario name
}

// GenerateTurnRequest defines the request body for turn generation
type GenerateTurnRequest struct {
	Text       string `json:"text"`
	ActionType string `json:"action_type,omitempty"`
}

// AdventureResponse bundles an adventure with its turn history
type AdventureResponse struct {
	Adventure *adventure.Adventure `json:"adventure"`
	Turns     []adventure.Turn     `json:"turns,omitempty"`
}

// ServeHTTP handles HTTP requests for adventure operations
// Routes:
// POST /v1/adventures                                - Start a new adventure
// GET /v1/adventures                                 - List adventures
// GET /v1/adventures/{id}                            - Read adventure with turns
// DELETE /v1/adventures/{id}                         - Delete adventure
// POST /v1/adventures/{id}/generate                  - Generate a turn from player input
// POST /v1/adventures/{id}/continue                  - Generate a turn without player input
// POST /v1/adventures/{id}/retry                     - Regenerate the last model turn
// POST /v1/adventures/{id}/duplicate                 - Copy the adventure and its history
// POST /v1/adventures/{id}/cards                     - Add a card to the snapshot
// PATCH /v1/adventures/{id}/cards/{cardID}           - Edit a card
// DELETE /v1/adventures/{id}/cards/{cardID}          - Delete a card
// POST /v1/adventures/{id}/cards/{cardID}/duplicate  - Duplicate a card
func (h *AdventureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/adventures"), "/")
	parts := []string{}
	if path != "" {
		parts = strings.Split(path, "/")
	}

	if len(parts) == 0 {
		switch r.Method {
		case http.MethodPost:
			h.handleStart(w, r)
		case http.MethodGet:
			h.handleList(w, r)
		default:
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST, GET")
		}
		return
	}

	id, err := uuid.Parse(parts[0])
	if err != nil {
		h.logger.Warn("Invalid adventure ID", "id", parts[0], "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid adventure ID format")
		return
	}

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			h.handleRead(w, r, id)
		case http.MethodDelete:
			h.handleDelete(w, r, id)
		default:
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET, DELETE")
		}

	case len(parts) == 2 && r.Method == http.MethodPost:
		switch parts[1] {
		case "generate":
			h.handleGenerate(w, r, id)
		case "continue":
			h.handleContinue(w, r, id)
		case "retry":
			h.handleRetry(w, r, id)
		case "duplicate":
			h.handleDuplicate(w, r, id)
		case "cards":
			h.handleAddCard(w, r, id)
		default:
			writeError(w, h.logger, http.StatusNotFound, "Unknown adventure operation: "+parts[1])
		}

	case len(parts) == 3 && parts[1] == "cards":
		switch r.Method {
		case http.MethodPatch, http.MethodPut:
			h.handleEditCard(w, r, id, parts[2])
		case http.MethodDelete:
			h.handleDeleteCard(w, r, id, parts[2])
		default:
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: PATCH, PUT, DELETE")
		}

	case len(parts) == 4 && parts[1] == "cards" && parts[3] == "duplicate" && r.Method == http.MethodPost:
		h.handleDuplicateCard(w, r, id, parts[2])

	default:
		writeError(w, h.logger, http.StatusNotFound, "Not found")
	}
}

func (h *AdventureHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	var req StartAdventureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid JSON in request body", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	adv, err := h.engine.StartAdventure(r.Context(), req.Scenario, req.Name)
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}

	turns, err := h.engine.ListTurns(r.Context(), adv.ID)
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusCreated, AdventureResponse{Adventure: adv, Turns: turns})
}

func (h *AdventureHandler) handleList(w http.ResponseWriter, r *http.Request) {
	adventures, err := h.engine.ListAdventures(r.Context())
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, adventures)
}

func (h *AdventureHandler) handleRead(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	adv, err := h.engine.GetAdventure(r.Context(), id)
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}

	turns, err := h.engine.ListTurns(r.Context(), id)
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, AdventureResponse{Adventure: adv, Turns: turns})
}

func (h *AdventureHandler) handleDelete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.engine.DeleteAdventure(r.Context(), id); err != nil {
		writeEngineError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdventureHandler) handleGenerate(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req GenerateTurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid JSON in request body", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	turn, err := h.engine.GenerateTurn(r.Context(), id, req.Text, req.ActionType)
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusCreated, turn)
}

func (h *AdventureHandler) handleContinue(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	turn, err := h.engine.ContinueTurn(r.Context(), id)
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, turn)
}

func (h *AdventureHandler) handleRetry(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	turn, err := h.engine.RetryLastTurn(r.Context(), id)
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, turn)
}

func (h *AdventureHandler) handleDuplicate(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	dup, err := h.engine.DuplicateAdventure(r.Context(), id)
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, dup)
}

func (h *AdventureHandler) handleAddCard(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var card scenario.Card
	if err := json.NewDecoder(r.Body).Decode(&card); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	added, err := h.engine.AddCard(r.Context(), id, card)
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, added)
}

func (h *AdventureHandler) handleEditCard(w http.ResponseWriter, r *http.Request, id uuid.UUID, cardID string) {
	var card scenario.Card
	if err := json.NewDecoder(r.Body).Decode(&card); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	if err := h.engine.EditCard(r.Context(), id, cardID, card); err != nil {
		writeEngineError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdventureHandler) handleDeleteCard(w http.ResponseWriter, r *http.Request, id uuid.UUID, cardID string) {
	if err := h.engine.DeleteCard(r.Context(), id, cardID); err != nil {
		writeEngineError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdventureHandler) handleDuplicateCard(w http.ResponseWriter, r *http.Request, id uuid.UUID, cardID string) {
	dup, err := h.engine.DuplicateCard(r.Context(), id, cardID)
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, dup)
}

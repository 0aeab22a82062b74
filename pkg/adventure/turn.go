package adventure

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser  = "user"
	RoleModel = "model"
)

const (
	ActionSay = "say"
	ActionDo  = "do"
	// ActionStory marks freeform narration. It is the action type of
	// every model turn and of the synthetic opening turn.
	ActionStory = "story"
)

// OpeningPlaceholder seeds the first turn when a scenario has no
// opening scene.
const OpeningPlaceholder = "(No opening scene provided.)"

// Turn is one message in an adventure's conversation history. Turns are
// ordered by their storage-assigned sequence; Timestamp is descriptive
// data, not an ordering key.
type Turn struct {
	ID           uuid.UUID `json:"id"`
	AdventureID  uuid.UUID `json:"adventure_id"`
	Role         string    `json:"role"` // user or model
	Text         string    `json:"text"`
	ActionType   string    `json:"action_type,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	TokenUsageID uuid.UUID `json:"token_usage_id,omitempty"`
}

// NewUserTurn creates a turn for a player action.
func NewUserTurn(adventureID uuid.UUID, text, actionType string) *Turn {
	return &Turn{
		ID:          uuid.New(),
		AdventureID: adventureID,
		Role:        RoleUser,
		Text:        text,
		ActionType:  actionType,
		Timestamp:   time.Now().UTC(),
	}
}

// NewModelTurn creates a turn for generated narration.
func NewModelTurn(adventureID uuid.UUID, text string) *Turn {
	return &Turn{
		ID:          uuid.New(),
		AdventureID: adventureID,
		Role:        RoleModel,
		Text:        text,
		ActionType:  ActionStory,
		Timestamp:   time.Now().UTC(),
	}
}

// ValidActionType reports whether s is a known action type.
func ValidActionType(s string) bool {
	switch s {
	case ActionSay, ActionDo, ActionStory:
		return true
	}
	return false
}

// TokenUsage records the token counts reported by the provider for one
// generated turn. Deleted together with its turn on retry.
type TokenUsage struct {
	ID               uuid.UUID `json:"id"`
	AdventureID      uuid.UUID `json:"adventure_id"`
	TurnID           uuid.UUID `json:"turn_id"`
	Model            string    `json:"model"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	CreatedAt        time.Time `json:"created_at"`
}

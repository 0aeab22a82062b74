package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/imaginai/adventure-engine/pkg/adventure"
	"github.com/imaginai/adventure-engine/pkg/scenario"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines the interface for adventure persistence and
// scenario lookup.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Scenario operations (read-only, filesystem-backed)
	ListScenarios(ctx context.Context) (map[string]string, error)
	GetScenario(ctx context.Context, filename string) (*scenario.Scenario, error)

	// Adventure operations
	SaveAdventure(ctx context.Context, adv *adventure.Adventure) error
	GetAdventure(ctx context.Context, id uuid.UUID) (*adventure.Adventure, error)
	ListAdventures(ctx context.Context) ([]*adventure.Adventure, error)
	// DeleteAdventure removes the adventure and cascades to its turns
	// and token usage records.
	DeleteAdventure(ctx context.Context, id uuid.UUID) error

	// Turn operations
	AppendTurn(ctx context.Context, turn *adventure.Turn) error
	// ListTurns returns all turns for an adventure in append order.
	ListTurns(ctx context.Context, adventureID uuid.UUID) ([]adventure.Turn, error)
	DeleteTurn(ctx context.Context, adventureID uuid.UUID, turnID uuid.UUID) error

	// Token usage operations
	SaveTokenUsage(ctx context.Context, usage *adventure.TokenUsage) error
	DeleteTokenUsage(ctx context.Context, adventureID uuid.UUID, usageID uuid.UUID) error
}

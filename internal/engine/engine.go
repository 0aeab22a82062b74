package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/imaginai/adventure-engine/internal/services"
	"github.com/imaginai/adventure-engine/internal/storage"
	"github.com/imaginai/adventure-engine/pkg/adventure"
	"github.com/imaginai/adventure-engine/pkg/prompt"
)

// Engine owns the turn lifecycle: it is the only writer of adventure
// and turn state during generation. Generation operations are
// single-flight per adventure; operations on different adventures
// proceed independently.
type Engine struct {
	storage      storage.Storage
	gateway      services.CompletionGateway
	logger       *slog.Logger
	model        string
	maxTokens    int
	historyLimit int
	locks        *adventureLocks
}

// Options carries engine defaults. Model is required; zero MaxTokens
// and HistoryLimit fall back to package defaults.
type Options struct {
	Model        string
	MaxTokens    int
	HistoryLimit int
}

// New creates an engine over the given storage and completion gateway.
func New(st storage.Storage, gw services.CompletionGateway, logger *slog.Logger, opts Options) *Engine {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = services.DefaultMaxTokens
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = prompt.DefaultHistoryLimit
	}
	return &Engine{
		storage:      st,
		gateway:      gw,
		logger:       logger,
		model:        opts.Model,
		maxTokens:    opts.MaxTokens,
		historyLimit: opts.HistoryLimit,
		locks:        newAdventureLocks(),
	}
}

// StartAdventure creates an adventure from a scenario and seeds its
// history with the opening scene as the first model turn. A scenario
// without an opening scene gets a placeholder so the history is never
// empty.
func (e *Engine) StartAdventure(ctx context.Context, scenarioFilename string, name string) (*adventure.Adventure, error) {
	if strings.TrimSpace(scenarioFilename) == "" {
		return nil, fmt.Errorf("%w: scenario is required", ErrValidation)
	}
	if strings.Contains(scenarioFilename, "..") || strings.Contains(scenarioFilename, "/") {
		return nil, fmt.Errorf("%w: invalid scenario filename", ErrValidation)
	}

	s, err := e.storage.GetScenario(ctx, scenarioFilename)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(name) == "" {
		name = s.Name
	}

	adv := adventure.New(scenarioFilename, s, name)
	if err := e.storage.SaveAdventure(ctx, adv); err != nil {
		return nil, err
	}

	opening := adv.Snapshot.OpeningScene
	if strings.TrimSpace(opening) == "" {
		opening = adventure.OpeningPlaceholder
	}
	seed := adventure.NewModelTurn(adv.ID, opening)
	if err := e.storage.AppendTurn(ctx, seed); err != nil {
		return nil, err
	}

	e.logger.Info("Adventure started", "adventure_id", adv.ID, "scenario", scenarioFilename)
	return adv, nil
}

// GetAdventure loads an adventure.
func (e *Engine) GetAdventure(ctx context.Context, id uuid.UUID) (*adventure.Adventure, error) {
	return e.storage.GetAdventure(ctx, id)
}

// ListAdventures loads all adventures.
func (e *Engine) ListAdventures(ctx context.Context) ([]*adventure.Adventure, error) {
	return e.storage.ListAdventures(ctx)
}

// ListTurns loads an adventure's full turn history in play order.
func (e *Engine) ListTurns(ctx context.Context, id uuid.UUID) ([]adventure.Turn, error) {
	if _, err := e.storage.GetAdventure(ctx, id); err != nil {
		return nil, err
	}
	return e.storage.ListTurns(ctx, id)
}

// DeleteAdventure removes an adventure and, transitively, its turns
// and usage records.
func (e *Engine) DeleteAdventure(ctx context.Context, id uuid.UUID) error {
	release := e.locks.acquire(id)
	defer release()
	return e.storage.DeleteAdventure(ctx, id)
}

// GenerateTurn appends the player's turn, then generates and commits
// the model's response. The user turn is durable before generation
// begins; a generation failure leaves it in place with no model turn.
func (e *Engine) GenerateTurn(ctx context.Context, id uuid.UUID, userText string, actionType string) (*adventure.Turn, error) {
	if strings.TrimSpace(userText) == "" {
		return nil, fmt.Errorf("%w: user text is required", ErrValidation)
	}
	if actionType == "" {
		actionType = adventure.ActionDo
	}
	if !adventure.ValidActionType(actionType) {
		return nil, fmt.Errorf("%w: unknown action type %q", ErrValidation, actionType)
	}

	release := e.locks.acquire(id)
	defer release()

	adv, turns, err := e.loadState(ctx, id)
	if err != nil {
		return nil, err
	}

	userTurn := adventure.NewUserTurn(id, userText, actionType)
	if err := e.storage.AppendTurn(ctx, userTurn); err != nil {
		return nil, err
	}

	return e.generate(ctx, adv, turns, userText)
}

// ContinueTurn generates a model turn from the existing history, with
// no new player input.
func (e *Engine) ContinueTurn(ctx context.Context, id uuid.UUID) (*adventure.Turn, error) {
	release := e.locks.acquire(id)
	defer release()

	adv, turns, err := e.loadState(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(turns) == 0 {
		return nil, fmt.Errorf("%w: adventure has no history to continue", ErrInvalidState)
	}

	return e.generate(ctx, adv, turns, "")
}

// RetryLastTurn discards the most recent model turn and regenerates it
// from the preserved player turn. The last turn must be a model turn
// and the turn before it a user turn.
func (e *Engine) RetryLastTurn(ctx context.Context, id uuid.UUID) (*adventure.Turn, error) {
	release := e.locks.acquire(id)
	defer release()

	adv, turns, err := e.loadState(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := e.discardLastModelTurn(ctx, id, turns); err != nil {
		return nil, err
	}

	return e.generate(ctx, adv, turns[:len(turns)-1], "")
}

// StreamTurn runs a generation streaming fragments through onChunk as
// they arrive, committing the accumulated text as one model turn when
// the stream completes. With empty userText it behaves as a streamed
// continue. A mid-stream failure discards all partial output; any
// player turn created is already durable and survives.
func (e *Engine) StreamTurn(ctx context.Context, id uuid.UUID, userText string, actionType string, onChunk func(string)) (*adventure.Turn, error) {
	if userText != "" {
		if strings.TrimSpace(userText) == "" {
			return nil, fmt.Errorf("%w: user text is required", ErrValidation)
		}
		if actionType == "" {
			actionType = adventure.ActionDo
		}
		if !adventure.ValidActionType(actionType) {
			return nil, fmt.Errorf("%w: unknown action type %q", ErrValidation, actionType)
		}
	}

	release := e.locks.acquire(id)
	defer release()

	adv, turns, err := e.loadState(ctx, id)
	if err != nil {
		return nil, err
	}

	if userText != "" {
		userTurn := adventure.NewUserTurn(id, userText, actionType)
		if err := e.storage.AppendTurn(ctx, userTurn); err != nil {
			return nil, err
		}
	} else if len(turns) == 0 {
		return nil, fmt.Errorf("%w: adventure has no history to continue", ErrInvalidState)
	}

	messages, err := prompt.BuildMessages(adv, turns, userText, e.historyLimit)
	if err != nil {
		return nil, err
	}

	chunks, err := e.gateway.CompleteStream(ctx, e.model, messages, e.maxTokens)
	if err != nil {
		return nil, &StreamError{Err: err}
	}

	text, err := accumulateStream(ctx, chunks, onChunk)
	if err != nil {
		e.logger.Error("Stream failed", "adventure_id", id, "error", err)
		return nil, err
	}

	return e.commitModelTurn(ctx, adv, text, nil)
}

// DuplicateAdventure copies an adventure and its full turn history.
// The copy gets a fresh id, fresh turn ids and timestamps in the
// original order, and the copy marker appended to its name; token
// usage records are not copied.
func (e *Engine) DuplicateAdventure(ctx context.Context, id uuid.UUID) (*adventure.Adventure, error) {
	release := e.locks.acquire(id)
	defer release()

	adv, turns, err := e.loadState(ctx, id)
	if err != nil {
		return nil, err
	}

	dup := adv.Duplicate()
	if err := e.storage.SaveAdventure(ctx, dup); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for _, t := range turns {
		ct := t
		ct.ID = uuid.New()
		ct.AdventureID = dup.ID
		ct.Timestamp = now
		ct.TokenUsageID = uuid.Nil
		if err := e.storage.AppendTurn(ctx, &ct); err != nil {
			return nil, err
		}
	}

	e.logger.Info("Adventure duplicated", "source_id", id, "copy_id", dup.ID)
	return dup, nil
}

// loadState fetches the adventure and its turn history.
func (e *Engine) loadState(ctx context.Context, id uuid.UUID) (*adventure.Adventure, []adventure.Turn, error) {
	adv, err := e.storage.GetAdventure(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	turns, err := e.storage.ListTurns(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return adv, turns, nil
}

// generate assembles the prompt from prior turns plus any pending user
// text, calls the gateway, and commits the model turn.
func (e *Engine) generate(ctx context.Context, adv *adventure.Adventure, priorTurns []adventure.Turn, userText string) (*adventure.Turn, error) {
	messages, err := prompt.BuildMessages(adv, priorTurns, userText, e.historyLimit)
	if err != nil {
		return nil, err
	}

	completion, err := e.gateway.Complete(ctx, e.model, messages, e.maxTokens)
	if err != nil {
		e.logger.Error("Generation failed", "adventure_id", adv.ID, "error", err)
		return nil, &GenerationError{Err: err}
	}

	return e.commitModelTurn(ctx, adv, completion.Text, completion.Usage)
}

// commitModelTurn persists the model turn, its usage record if any,
// and the adventure's last-played marker.
func (e *Engine) commitModelTurn(ctx context.Context, adv *adventure.Adventure, text string, usage *services.Usage) (*adventure.Turn, error) {
	turn := adventure.NewModelTurn(adv.ID, text)

	if usage != nil {
		record := &adventure.TokenUsage{
			ID:               uuid.New(),
			AdventureID:      adv.ID,
			TurnID:           turn.ID,
			Model:            e.model,
			PromptTokens:     usage.PromptTokens,
			CompletionTokens: usage.CompletionTokens,
			TotalTokens:      usage.TotalTokens,
			CreatedAt:        time.Now().UTC(),
		}
		if err := e.storage.SaveTokenUsage(ctx, record); err != nil {
			return nil, err
		}
		turn.TokenUsageID = record.ID
	}

	if err := e.storage.AppendTurn(ctx, turn); err != nil {
		return nil, err
	}

	adv.Touch()
	if err := e.storage.SaveAdventure(ctx, adv); err != nil {
		return nil, err
	}

	return turn, nil
}

// discardLastModelTurn enforces retry preconditions and removes the
// trailing model turn plus its usage record. State is untouched when a
// precondition fails.
func (e *Engine) discardLastModelTurn(ctx context.Context, id uuid.UUID, turns []adventure.Turn) error {
	if len(turns) < 2 {
		return fmt.Errorf("%w: not enough history to retry", ErrInvalidState)
	}
	last := turns[len(turns)-1]
	if last.Role != adventure.RoleModel {
		return fmt.Errorf("%w: last turn is not a model turn", ErrInvalidState)
	}
	if turns[len(turns)-2].Role != adventure.RoleUser {
		return fmt.Errorf("%w: no user turn precedes the last model turn", ErrInvalidState)
	}

	if err := e.storage.DeleteTurn(ctx, id, last.ID); err != nil {
		return err
	}
	if last.TokenUsageID != uuid.Nil {
		if err := e.storage.DeleteTokenUsage(ctx, id, last.TokenUsageID); err != nil {
			return err
		}
	}

	return nil
}

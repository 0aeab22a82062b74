package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/imaginai/adventure-engine/pkg/adventure"
	"github.com/imaginai/adventure-engine/pkg/scenario"
)

// Card mutations operate on an adventure's frozen snapshot only; the
// source scenario is never touched. Each mutation advances the
// adventure's last-played marker.

// AddCard appends a card to the adventure's snapshot.
func (e *Engine) AddCard(ctx context.Context, id uuid.UUID, card scenario.Card) (scenario.Card, error) {
	if strings.TrimSpace(card.Title) == "" {
		return scenario.Card{}, fmt.Errorf("%w: card title is required", ErrValidation)
	}

	var added scenario.Card
	err := e.mutateSnapshot(ctx, id, func(adv *adventure.Adventure) error {
		added = adv.Snapshot.AddCard(card)
		return nil
	})
	return added, err
}

// EditCard replaces the identified card's content, preserving its id.
func (e *Engine) EditCard(ctx context.Context, id uuid.UUID, cardID string, card scenario.Card) error {
	return e.mutateSnapshot(ctx, id, func(adv *adventure.Adventure) error {
		return adv.Snapshot.EditCard(cardID, card)
	})
}

// DeleteCard removes the identified card from the snapshot.
func (e *Engine) DeleteCard(ctx context.Context, id uuid.UUID, cardID string) error {
	return e.mutateSnapshot(ctx, id, func(adv *adventure.Adventure) error {
		return adv.Snapshot.DeleteCard(cardID)
	})
}

// DuplicateCard copies the identified card, placing the copy directly
// after the original.
func (e *Engine) DuplicateCard(ctx context.Context, id uuid.UUID, cardID string) (scenario.Card, error) {
	var dup scenario.Card
	err := e.mutateSnapshot(ctx, id, func(adv *adventure.Adventure) error {
		var mErr error
		dup, mErr = adv.Snapshot.DuplicateCard(cardID)
		return mErr
	})
	return dup, err
}

// mutateSnapshot loads the adventure under its lock, applies the
// mutation, and saves. A failed mutation leaves storage unchanged.
func (e *Engine) mutateSnapshot(ctx context.Context, id uuid.UUID, fn func(*adventure.Adventure) error) error {
	release := e.locks.acquire(id)
	defer release()

	adv, err := e.storage.GetAdventure(ctx, id)
	if err != nil {
		return err
	}

	if err := fn(adv); err != nil {
		return err
	}

	adv.Touch()
	return e.storage.SaveAdventure(ctx, adv)
}

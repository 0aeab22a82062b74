package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imaginai/adventure-engine/pkg/adventure"
	"github.com/imaginai/adventure-engine/pkg/scenario"
)

func TestAddCard(t *testing.T) {
	eng, st, _ := setupEngine(t)
	ctx := context.Background()
	adv := startAdventure(t, eng)

	added, err := eng.AddCard(ctx, adv.ID, scenario.Card{Title: "Storm", Type: "event", TriggerWords: "storm"})
	require.NoError(t, err)
	assert.NotEmpty(t, added.ID)

	saved, err := st.GetAdventure(ctx, adv.ID)
	require.NoError(t, err)
	require.Len(t, saved.Snapshot.Cards, 2)
	assert.Equal(t, "Storm", saved.Snapshot.Cards[1].Title)
}

func TestAddCard_CollidingID(t *testing.T) {
	eng, st, _ := setupEngine(t)
	ctx := context.Background()
	adv := startAdventure(t, eng)

	added, err := eng.AddCard(ctx, adv.ID, scenario.Card{ID: "keeper", Title: "Another Keeper"})
	require.NoError(t, err)
	assert.NotEqual(t, "keeper", added.ID)

	saved, err := st.GetAdventure(ctx, adv.ID)
	require.NoError(t, err)
	require.Len(t, saved.Snapshot.Cards, 2)

	var keepers int
	for _, c := range saved.Snapshot.Cards {
		if c.ID == "keeper" {
			keepers++
		}
	}
	assert.Equal(t, 1, keepers, "original id stays unique")
}

func TestAddCard_RequiresTitle(t *testing.T) {
	eng, _, _ := setupEngine(t)
	adv := startAdventure(t, eng)

	_, err := eng.AddCard(context.Background(), adv.ID, scenario.Card{Title: "  "})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestEditCard(t *testing.T) {
	eng, st, _ := setupEngine(t)
	ctx := context.Background()
	adv := startAdventure(t, eng)

	err := eng.EditCard(ctx, adv.ID, "keeper", scenario.Card{Title: "Old Keeper", Type: "character"})
	require.NoError(t, err)

	saved, err := st.GetAdventure(ctx, adv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Old Keeper", saved.Snapshot.Cards[0].Title)
	assert.Equal(t, "keeper", saved.Snapshot.Cards[0].ID)
}

func TestEditCard_NotFound(t *testing.T) {
	eng, st, _ := setupEngine(t)
	ctx := context.Background()
	adv := startAdventure(t, eng)

	err := eng.EditCard(ctx, adv.ID, "missing", scenario.Card{Title: "X"})
	assert.ErrorIs(t, err, adventure.ErrCardNotFound)

	// No partial write.
	saved, err := st.GetAdventure(ctx, adv.ID)
	require.NoError(t, err)
	assert.Equal(t, adv.LastPlayedAt, saved.LastPlayedAt)
}

func TestDeleteCard(t *testing.T) {
	eng, st, _ := setupEngine(t)
	ctx := context.Background()
	adv := startAdventure(t, eng)

	require.NoError(t, eng.DeleteCard(ctx, adv.ID, "keeper"))

	saved, err := st.GetAdventure(ctx, adv.ID)
	require.NoError(t, err)
	assert.Empty(t, saved.Snapshot.Cards)
}

func TestDuplicateCard(t *testing.T) {
	eng, st, _ := setupEngine(t)
	ctx := context.Background()
	adv := startAdventure(t, eng)

	dup, err := eng.DuplicateCard(ctx, adv.ID, "keeper")
	require.NoError(t, err)
	assert.Equal(t, "Keeper (Copy)", dup.Title)
	assert.NotEqual(t, "keeper", dup.ID)

	saved, err := st.GetAdventure(ctx, adv.ID)
	require.NoError(t, err)
	require.Len(t, saved.Snapshot.Cards, 2)
	assert.Equal(t, dup.ID, saved.Snapshot.Cards[1].ID)
}

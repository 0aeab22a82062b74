package storage

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imaginai/adventure-engine/pkg/adventure"
	"github.com/imaginai/adventure-engine/pkg/scenario"
)

func setupRedis(t *testing.T) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	rs := NewRedisStorage(mr.Addr(), t.TempDir(), logger)
	t.Cleanup(func() { _ = rs.Close() })

	return rs, mr
}

func newTestAdventure(t *testing.T) *adventure.Adventure {
	t.Helper()
	s := &scenario.Scenario{
		Name:         "The Lighthouse",
		Instructions: "Narrate a mystery.",
		Cards: []scenario.Card{
			{ID: "keeper", Title: "Keeper", Type: "character", TriggerWords: "keeper"},
		},
	}
	return adventure.New("lighthouse.json", s, "Test Run")
}

func TestRedisStorage_Ping(t *testing.T) {
	rs, mr := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, rs.Ping(ctx))

	mr.Close()
	assert.Error(t, rs.Ping(ctx))
}

func TestRedisStorage_AdventureRoundTrip(t *testing.T) {
	rs, _ := setupRedis(t)
	ctx := context.Background()

	adv := newTestAdventure(t)
	require.NoError(t, rs.SaveAdventure(ctx, adv))

	got, err := rs.GetAdventure(ctx, adv.ID)
	require.NoError(t, err)
	assert.Equal(t, adv.Name, got.Name)
	assert.Equal(t, adv.SourceScenarioName, got.SourceScenarioName)
	require.Len(t, got.Snapshot.Cards, 1)
	assert.Equal(t, "keeper", got.Snapshot.Cards[0].ID)
}

func TestRedisStorage_GetAdventure_NotFound(t *testing.T) {
	rs, _ := setupRedis(t)

	_, err := rs.GetAdventure(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStorage_ListAdventures(t *testing.T) {
	rs, _ := setupRedis(t)
	ctx := context.Background()

	a := newTestAdventure(t)
	b := newTestAdventure(t)
	require.NoError(t, rs.SaveAdventure(ctx, a))
	require.NoError(t, rs.SaveAdventure(ctx, b))

	adventures, err := rs.ListAdventures(ctx)
	require.NoError(t, err)
	assert.Len(t, adventures, 2)
}

func TestRedisStorage_TurnOrdering(t *testing.T) {
	rs, _ := setupRedis(t)
	ctx := context.Background()

	adv := newTestAdventure(t)
	require.NoError(t, rs.SaveAdventure(ctx, adv))

	// All appended in the same instant; order must still hold.
	texts := []string{"one", "two", "three", "four"}
	for i, text := range texts {
		var turn *adventure.Turn
		if i%2 == 0 {
			turn = adventure.NewUserTurn(adv.ID, text, adventure.ActionDo)
		} else {
			turn = adventure.NewModelTurn(adv.ID, text)
		}
		require.NoError(t, rs.AppendTurn(ctx, turn))
	}

	turns, err := rs.ListTurns(ctx, adv.ID)
	require.NoError(t, err)
	require.Len(t, turns, 4)
	for i, text := range texts {
		assert.Equal(t, text, turns[i].Text)
	}
}

func TestRedisStorage_DeleteTurn(t *testing.T) {
	rs, _ := setupRedis(t)
	ctx := context.Background()

	adv := newTestAdventure(t)
	first := adventure.NewUserTurn(adv.ID, "hello", adventure.ActionSay)
	second := adventure.NewModelTurn(adv.ID, "reply")
	require.NoError(t, rs.AppendTurn(ctx, first))
	require.NoError(t, rs.AppendTurn(ctx, second))

	require.NoError(t, rs.DeleteTurn(ctx, adv.ID, second.ID))

	turns, err := rs.ListTurns(ctx, adv.ID)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, first.ID, turns[0].ID)

	err = rs.DeleteTurn(ctx, adv.ID, second.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStorage_DeleteAdventure_Cascades(t *testing.T) {
	rs, _ := setupRedis(t)
	ctx := context.Background()

	adv := newTestAdventure(t)
	require.NoError(t, rs.SaveAdventure(ctx, adv))

	turn := adventure.NewModelTurn(adv.ID, "opening")
	usage := &adventure.TokenUsage{ID: uuid.New(), AdventureID: adv.ID, TurnID: turn.ID, TotalTokens: 10}
	turn.TokenUsageID = usage.ID
	require.NoError(t, rs.AppendTurn(ctx, turn))
	require.NoError(t, rs.SaveTokenUsage(ctx, usage))

	require.NoError(t, rs.DeleteAdventure(ctx, adv.ID))

	_, err := rs.GetAdventure(ctx, adv.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	turns, err := rs.ListTurns(ctx, adv.ID)
	require.NoError(t, err)
	assert.Empty(t, turns)

	adventures, err := rs.ListAdventures(ctx)
	require.NoError(t, err)
	assert.Empty(t, adventures)
}

func TestRedisStorage_Scenarios(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	dataDir := t.TempDir()
	scenariosDir := filepath.Join(dataDir, "scenarios")
	require.NoError(t, os.MkdirAll(scenariosDir, 0o755))

	s := scenario.Scenario{Name: "The Lighthouse", Instructions: "Narrate."}
	data, err := json.Marshal(s)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(scenariosDir, "lighthouse.json"), data, 0o644))

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	rs := NewRedisStorage(mr.Addr(), dataDir, logger)
	ctx := context.Background()

	list, err := rs.ListScenarios(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"The Lighthouse": "lighthouse.json"}, list)

	got, err := rs.GetScenario(ctx, "lighthouse.json")
	require.NoError(t, err)
	assert.Equal(t, "The Lighthouse", got.Name)
	assert.Equal(t, "lighthouse.json", got.ID)

	_, err = rs.GetScenario(ctx, "missing.json")
	assert.ErrorIs(t, err, ErrNotFound)
}

package prompt

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imaginai/adventure-engine/pkg/adventure"
	"github.com/imaginai/adventure-engine/pkg/chat"
	"github.com/imaginai/adventure-engine/pkg/scenario"
)

func testAdventure() *adventure.Adventure {
	s := &scenario.Scenario{
		Name:           "The Lighthouse",
		Instructions:   "Narrate a slow-burn mystery.",
		PlotEssentials: "The lamp went dark three nights ago.",
		AuthorsNotes:   "Keep the keeper's fate ambiguous.",
		Cards: []scenario.Card{
			{ID: "keeper", Title: "The Keeper", Type: "character", TriggerWords: "keeper", FullContent: "Old Halvard, missing."},
			{ID: "lamp", Title: "Lantern Room", Type: "location", TriggerWords: "lamp,lantern", FullContent: "Salt-crusted glass."},
		},
	}
	return adventure.New("lighthouse.json", s, "Test Run")
}

func modelTurn(advID uuid.UUID, text string) adventure.Turn {
	return *adventure.NewModelTurn(advID, text)
}

func userTurn(advID uuid.UUID, text string) adventure.Turn {
	return *adventure.NewUserTurn(advID, text, adventure.ActionDo)
}

func TestBuild_SystemPrompt(t *testing.T) {
	adv := testAdventure()

	messages, err := New().WithAdventure(adv).Build()
	require.NoError(t, err)
	require.Len(t, messages, 1)

	sys := messages[0]
	assert.Equal(t, chat.RoleSystem, sys.Role)
	assert.True(t, strings.HasPrefix(sys.Content, BaseSystemInstruction))
	assert.Contains(t, sys.Content, "Narrate a slow-burn mystery.")
	assert.Contains(t, sys.Content, "Plot Essentials:\nThe lamp went dark three nights ago.")
	assert.Contains(t, sys.Content, "Author's Notes:\nKeep the keeper's fate ambiguous.")
}

func TestBuild_OmitsEmptySections(t *testing.T) {
	adv := testAdventure()
	adv.Snapshot.PlotEssentials = ""
	adv.Snapshot.AuthorsNotes = ""

	messages, err := New().WithAdventure(adv).Build()
	require.NoError(t, err)

	assert.NotContains(t, messages[0].Content, "Plot Essentials:")
	assert.NotContains(t, messages[0].Content, "Author's Notes:")
}

func TestBuild_CardInjection(t *testing.T) {
	adv := testAdventure()

	messages, err := New().
		WithAdventure(adv).
		WithUserText("I climb toward the lamp.").
		Build()
	require.NoError(t, err)

	sys := messages[0].Content
	assert.Contains(t, sys, "Relevant Story Cards (inject these into the narrative):")
	assert.Contains(t, sys, "[location: Lantern Room]\nSalt-crusted glass.")
	assert.NotContains(t, sys, "The Keeper", "untriggered card must not be injected")
}

func TestBuild_NoCardBlockWithoutMatch(t *testing.T) {
	adv := testAdventure()

	messages, err := New().
		WithAdventure(adv).
		WithUserText("I walk along the shore.").
		Build()
	require.NoError(t, err)

	assert.NotContains(t, messages[0].Content, "Relevant Story Cards")
}

func TestBuild_TriggerWindowBounded(t *testing.T) {
	adv := testAdventure()

	// The card trigger appears only in a turn older than the detection
	// window, so it must not fire.
	turns := []adventure.Turn{userTurn(adv.ID, "I ask about the keeper.")}
	for i := 0; i < TriggerWindowTurns; i++ {
		turns = append(turns, modelTurn(adv.ID, fmt.Sprintf("The wind howls. Part %d.", i)))
	}

	messages, err := New().
		WithAdventure(adv).
		WithTurns(turns).
		WithUserText("I press on.").
		Build()
	require.NoError(t, err)

	assert.NotContains(t, messages[0].Content, "Relevant Story Cards")
}

func TestBuild_TriggerFromRecentHistory(t *testing.T) {
	adv := testAdventure()
	turns := []adventure.Turn{
		modelTurn(adv.ID, "The keeper's logbook lies open."),
	}

	messages, err := New().
		WithAdventure(adv).
		WithTurns(turns).
		WithUserText("I read it.").
		Build()
	require.NoError(t, err)

	assert.Contains(t, messages[0].Content, "[character: The Keeper]")
}

func TestBuild_HistoryWindowAndRoles(t *testing.T) {
	adv := testAdventure()

	var turns []adventure.Turn
	for i := 0; i < 30; i++ {
		if i%2 == 0 {
			turns = append(turns, userTurn(adv.ID, fmt.Sprintf("action %d", i)))
		} else {
			turns = append(turns, modelTurn(adv.ID, fmt.Sprintf("story %d", i)))
		}
	}

	messages, err := New().
		WithAdventure(adv).
		WithTurns(turns).
		WithUserText("next").
		WithHistoryLimit(10).
		Build()
	require.NoError(t, err)

	// system + 10 history + trailing user
	require.Len(t, messages, 12)
	assert.Equal(t, chat.RoleUser, messages[1].Role)
	assert.Equal(t, "action 20", messages[1].Content)
	assert.Equal(t, chat.RoleAssistant, messages[2].Role)
	assert.Equal(t, chat.RoleUser, messages[11].Role)
	assert.Equal(t, "next", messages[11].Content)
}

func TestBuild_ContinueHasNoTrailingUserMessage(t *testing.T) {
	adv := testAdventure()
	turns := []adventure.Turn{
		userTurn(adv.ID, "I wait."),
		modelTurn(adv.ID, "Nothing stirs."),
	}

	messages, err := New().WithAdventure(adv).WithTurns(turns).Build()
	require.NoError(t, err)

	require.Len(t, messages, 3)
	assert.Equal(t, chat.RoleAssistant, messages[2].Role)
}

func TestBuild_RequiresAdventure(t *testing.T) {
	_, err := New().Build()
	assert.Error(t, err)
}

func TestBuild_Deterministic(t *testing.T) {
	adv := testAdventure()
	turns := []adventure.Turn{
		userTurn(adv.ID, "I search for the keeper near the lamp."),
		modelTurn(adv.ID, "A lantern swings in the dark."),
	}

	first, err := BuildMessages(adv, turns, "I call out.", DefaultHistoryLimit)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := BuildMessages(adv, turns, "I call out.", DefaultHistoryLimit)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

package trigger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/imaginai/adventure-engine/pkg/scenario"
)

func TestMatch_WholeWord(t *testing.T) {
	cards := []scenario.Card{
		{ID: "1", Title: "Sword", TriggerWords: "sword,blade"},
	}

	tests := []struct {
		name     string
		context  string
		expected []string // matched card ids
	}{
		{
			name:     "exact word match",
			context:  "I pick up the rusty blade",
			expected: []string{"1"},
		},
		{
			name:     "case insensitive",
			context:  "The SWORD gleams",
			expected: []string{"1"},
		},
		{
			name:     "substring does not match",
			context:  "I pick up the rusty bladed weapon",
			expected: nil,
		},
		{
			name:     "prefix inside larger word does not match",
			context:  "swordfish for dinner",
			expected: nil,
		},
		{
			name:     "punctuation is a boundary",
			context:  "He drew his sword, slowly.",
			expected: []string{"1"},
		},
		{
			name:     "no match",
			context:  "Nothing relevant here",
			expected: nil,
		},
		{
			name:     "empty context",
			context:  "",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matched := Match(tt.context, cards)
			var ids []string
			for _, c := range matched {
				ids = append(ids, c.ID)
			}
			assert.Equal(t, tt.expected, ids)
		})
	}
}

func TestMatch_CardAppearsAtMostOnce(t *testing.T) {
	cards := []scenario.Card{
		{ID: "1", TriggerWords: "cat,dog"},
	}

	// Both triggers occur; the card must still appear once.
	matched := Match("the cat chased the dog", cards)
	assert.Len(t, matched, 1)
	assert.Equal(t, "1", matched[0].ID)
}

func TestMatch_StableOrder(t *testing.T) {
	cards := []scenario.Card{
		{ID: "a", TriggerWords: "tower"},
		{ID: "b", TriggerWords: "river"},
		{ID: "c", TriggerWords: "forest"},
	}

	// Mention in reverse order; output must keep input order.
	matched := Match("past the forest, across the river, to the tower", cards)
	assert.Len(t, matched, 3)
	assert.Equal(t, "a", matched[0].ID)
	assert.Equal(t, "b", matched[1].ID)
	assert.Equal(t, "c", matched[2].ID)
}

func TestMatch_RegexMetacharactersInTrigger(t *testing.T) {
	cards := []scenario.Card{
		{ID: "1", TriggerWords: "dr. who"},
	}

	matched := Match("we met dr. who at the station", cards)
	assert.Len(t, matched, 1)

	// The dot must not act as a wildcard.
	matched = Match("we met drx who at the station", cards)
	assert.Empty(t, matched)
}

func TestMatch_MultiWordTrigger(t *testing.T) {
	cards := []scenario.Card{
		{ID: "1", TriggerWords: "ancient temple"},
	}

	assert.Len(t, Match("ruins of the Ancient Temple stand", cards), 1)
	assert.Empty(t, Match("the temple is ancient", cards))
}

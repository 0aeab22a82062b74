// Package trigger detects which story cards are relevant to a window of
// recent conversation text, by scanning for their trigger words.
package trigger

import (
	"regexp"
	"strings"

	"github.com/imaginai/adventure-engine/pkg/scenario"
)

// Match returns the cards whose trigger words occur in contextText.
//
// Matching is case-insensitive and whole-word: a trigger matches only
// with a word boundary on both sides, so "cat" matches "The Cat sat"
// but not "category". Each card appears at most once in the result, and
// result order is input order. Match has no side effects and is safe
// for concurrent use.
func Match(contextText string, cards []scenario.Card) []scenario.Card {
	if contextText == "" || len(cards) == 0 {
		return nil
	}

	contextLower := strings.ToLower(contextText)

	var matched []scenario.Card
	for _, card := range cards {
		for _, trigger := range card.TriggerList() {
			if wordPattern(trigger).MatchString(contextLower) {
				matched = append(matched, card)
				break
			}
		}
	}
	return matched
}

func wordPattern(trigger string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(trigger) + `\b`)
}

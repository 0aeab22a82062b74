package scenario

import (
	"fmt"
	"strings"
)

const (
	VisibilityPrivate  = "private"
	VisibilityUnlisted = "unlisted"
	VisibilityPublic   = "public"
)

// Scenario is an authored story template. Adventures are started from a
// scenario and carry a frozen snapshot of it; edits to the scenario after
// that point never affect running adventures.
type Scenario struct {
	ID                string `json:"id,omitempty"`
	Name              string `json:"name"`
	Instructions      string `json:"instructions"`
	PlotEssentials    string `json:"plot_essentials,omitempty"`
	AuthorsNotes      string `json:"authors_notes,omitempty"`
	OpeningScene      string `json:"opening_scene,omitempty"`
	PlayerDescription string `json:"player_description,omitempty"`
	Tags              string `json:"tags,omitempty"` // comma-separated
	Visibility        string `json:"visibility,omitempty"`
	Cards             []Card `json:"cards,omitempty"`
}

// Card is an auxiliary piece of story content (a character, location,
// item, etc.) injected into the prompt when one of its trigger words
// appears in recent context.
type Card struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Type             string `json:"card_type"`
	TriggerWords     string `json:"trigger_words"` // comma-separated
	ShortDescription string `json:"short_description,omitempty"`
	FullContent      string `json:"full_content"`
}

// TriggerList parses the card's comma-separated trigger words into a
// normalized slice: trimmed, lower-cased, empty entries dropped.
func (c Card) TriggerList() []string {
	parts := strings.Split(c.TriggerWords, ",")
	triggers := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.ToLower(strings.TrimSpace(p))
		if t != "" {
			triggers = append(triggers, t)
		}
	}
	return triggers
}

func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario name is required")
	}
	if s.Instructions == "" {
		return fmt.Errorf("scenario instructions are required")
	}
	seen := make(map[string]bool, len(s.Cards))
	for _, c := range s.Cards {
		if c.ID == "" {
			continue
		}
		if seen[c.ID] {
			return fmt.Errorf("duplicate card id: %s", c.ID)
		}
		seen[c.ID] = true
	}
	return nil
}

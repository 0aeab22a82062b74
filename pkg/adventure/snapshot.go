package adventure

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/imaginai/adventure-engine/pkg/scenario"
)

// CopyTitleSuffix is appended to the title of duplicated cards and
// adventures.
const CopyTitleSuffix = " (Copy)"

// ErrCardNotFound is returned by snapshot mutations targeting an
// absent card id.
var ErrCardNotFound = errors.New("card not found")

// Snapshot is the frozen, adventure-owned copy of a scenario. It is a
// value, not a reference: mutating its card list affects only this
// adventure. Card ids are unique within the list at all times; the
// mutation methods below are the only way cards change after start.
type Snapshot struct {
	Name              string          `json:"name"`
	Instructions      string          `json:"instructions"`
	PlotEssentials    string          `json:"plot_essentials,omitempty"`
	AuthorsNotes      string          `json:"authors_notes,omitempty"`
	OpeningScene      string          `json:"opening_scene,omitempty"`
	PlayerDescription string          `json:"player_description,omitempty"`
	Tags              string          `json:"tags,omitempty"`
	Visibility        string          `json:"visibility,omitempty"`
	Cards             []scenario.Card `json:"cards"`
}

// NewSnapshot freezes a scenario into a snapshot, deep-copying the card
// list and assigning ids to any cards that lack one.
func NewSnapshot(s *scenario.Scenario) Snapshot {
	cards := make([]scenario.Card, len(s.Cards))
	copy(cards, s.Cards)
	for i := range cards {
		if cards[i].ID == "" {
			cards[i].ID = uuid.NewString()
		}
	}
	return Snapshot{
		Name:              s.Name,
		Instructions:      s.Instructions,
		PlotEssentials:    s.PlotEssentials,
		AuthorsNotes:      s.AuthorsNotes,
		OpeningScene:      s.OpeningScene,
		PlayerDescription: s.PlayerDescription,
		Tags:              s.Tags,
		Visibility:        s.Visibility,
		Cards:             cards,
	}
}

// AddCard appends a card to the snapshot, generating an id if the card
// does not carry one. A supplied id that collides with an existing card
// is replaced; ids stay unique within the snapshot. Returns the stored
// card.
func (sn *Snapshot) AddCard(c scenario.Card) scenario.Card {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, exists := sn.FindCard(c.ID); exists {
		c.ID = uuid.NewString()
	}
	sn.Cards = append(sn.Cards, c)
	return c
}

// EditCard replaces the card with the given id. The id is preserved
// regardless of what the updated card carries.
func (sn *Snapshot) EditCard(id string, updated scenario.Card) error {
	for i := range sn.Cards {
		if sn.Cards[i].ID == id {
			updated.ID = id
			sn.Cards[i] = updated
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrCardNotFound, id)
}

// DeleteCard removes the card with the given id.
func (sn *Snapshot) DeleteCard(id string) error {
	for i := range sn.Cards {
		if sn.Cards[i].ID == id {
			sn.Cards = append(sn.Cards[:i], sn.Cards[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrCardNotFound, id)
}

// DuplicateCard copies the card with the given id, inserting the copy
// immediately after the original with a fresh id and the copy marker
// appended to its title. Returns the new card.
func (sn *Snapshot) DuplicateCard(id string) (scenario.Card, error) {
	for i := range sn.Cards {
		if sn.Cards[i].ID == id {
			dup := sn.Cards[i]
			dup.ID = uuid.NewString()
			dup.Title = sn.Cards[i].Title + CopyTitleSuffix

			sn.Cards = append(sn.Cards, scenario.Card{})
			copy(sn.Cards[i+2:], sn.Cards[i+1:])
			sn.Cards[i+1] = dup
			return dup, nil
		}
	}
	return scenario.Card{}, fmt.Errorf("%w: %s", ErrCardNotFound, id)
}

// FindCard returns the card with the given id, if present.
func (sn *Snapshot) FindCard(id string) (scenario.Card, bool) {
	for _, c := range sn.Cards {
		if c.ID == id {
			return c, true
		}
	}
	return scenario.Card{}, false
}

package adventure

import (
	"time"

	"github.com/google/uuid"

	"github.com/imaginai/adventure-engine/pkg/scenario"
)

// Adventure is an active playthrough started from a scenario. It owns a
// frozen snapshot of the scenario taken at start time; edits to the
// source scenario never reach a running adventure, and snapshot card
// mutations never reach the source scenario.
type Adventure struct {
	ID                 uuid.UUID `json:"id"`
	SourceScenarioID   string    `json:"source_scenario_id"`
	SourceScenarioName string    `json:"source_scenario_name"`
	Name               string    `json:"adventure_name"`
	Snapshot           Snapshot  `json:"scenario_snapshot"`
	CreatedAt          time.Time `json:"created_at"`
	LastPlayedAt       time.Time `json:"last_played_at"`
}

// New creates an adventure from a scenario, freezing its snapshot.
func New(scenarioID string, s *scenario.Scenario, name string) *Adventure {
	now := time.Now().UTC()
	return &Adventure{
		ID:                 uuid.New(),
		SourceScenarioID:   scenarioID,
		SourceScenarioName: s.Name,
		Name:               name,
		Snapshot:           NewSnapshot(s),
		CreatedAt:          now,
		LastPlayedAt:       now,
	}
}

// Touch updates the last-played marker.
func (a *Adventure) Touch() {
	a.LastPlayedAt = time.Now().UTC()
}

// Duplicate returns an independent copy of the adventure with a fresh
// id, the copy marker appended to its name, and its own card list.
func (a *Adventure) Duplicate() *Adventure {
	now := time.Now().UTC()
	cards := make([]scenario.Card, len(a.Snapshot.Cards))
	copy(cards, a.Snapshot.Cards)

	dup := *a
	dup.ID = uuid.New()
	dup.Name = a.Name + CopyTitleSuffix
	dup.Snapshot.Cards = cards
	dup.CreatedAt = now
	dup.LastPlayedAt = now
	return &dup
}

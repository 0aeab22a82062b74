package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/imaginai/adventure-engine/pkg/adventure"
	"github.com/imaginai/adventure-engine/pkg/scenario"
)

// MockStorage is a mock implementation of Storage for testing
type MockStorage struct {
	mu         sync.RWMutex
	adventures map[uuid.UUID]*adventure.Adventure
	turns      map[uuid.UUID][]adventure.Turn
	usage      map[uuid.UUID]*adventure.TokenUsage
	scenarios  map[string]*scenario.Scenario
	pingError  error

	// FailAppendTurn makes AppendTurn return an error, for exercising
	// write-failure paths.
	FailAppendTurn error
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		adventures: make(map[uuid.UUID]*adventure.Adventure),
		turns:      make(map[uuid.UUID][]adventure.Turn),
		usage:      make(map[uuid.UUID]*adventure.TokenUsage),
		scenarios:  make(map[string]*scenario.Scenario),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// AddScenario registers a scenario under a filename key
func (m *MockStorage) AddScenario(filename string, s *scenario.Scenario) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scenarios[filename] = s
}

// Ping mocks storage ping
func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

// Close mocks storage close
func (m *MockStorage) Close() error {
	return nil
}

func (m *MockStorage) ListScenarios(ctx context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.scenarios))
	for filename, s := range m.scenarios {
		out[s.Name] = filename
	}
	return out, nil
}

func (m *MockStorage) GetScenario(ctx context.Context, filename string) (*scenario.Scenario, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.scenarios[filename]
	if !ok {
		return nil, fmt.Errorf("scenario %s: %w", filename, ErrNotFound)
	}
	return s, nil
}

func (m *MockStorage) SaveAdventure(ctx context.Context, adv *adventure.Adventure) error {
	if adv == nil {
		return errors.New("adventure cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *adv
	m.adventures[adv.ID] = &cp
	return nil
}

func (m *MockStorage) GetAdventure(ctx context.Context, id uuid.UUID) (*adventure.Adventure, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	adv, ok := m.adventures[id]
	if !ok {
		return nil, fmt.Errorf("adventure %s: %w", id, ErrNotFound)
	}
	cp := *adv
	return &cp, nil
}

func (m *MockStorage) ListAdventures(ctx context.Context) ([]*adventure.Adventure, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*adventure.Adventure, 0, len(m.adventures))
	for _, adv := range m.adventures {
		cp := *adv
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MockStorage) DeleteAdventure(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.adventures[id]; !ok {
		return fmt.Errorf("adventure %s: %w", id, ErrNotFound)
	}
	for _, t := range m.turns[id] {
		if t.TokenUsageID != uuid.Nil {
			delete(m.usage, t.TokenUsageID)
		}
	}
	delete(m.adventures, id)
	delete(m.turns, id)
	return nil
}

func (m *MockStorage) AppendTurn(ctx context.Context, turn *adventure.Turn) error {
	if turn == nil {
		return errors.New("turn cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAppendTurn != nil {
		return m.FailAppendTurn
	}
	m.turns[turn.AdventureID] = append(m.turns[turn.AdventureID], *turn)
	return nil
}

func (m *MockStorage) ListTurns(ctx context.Context, adventureID uuid.UUID) ([]adventure.Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	turns := m.turns[adventureID]
	out := make([]adventure.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (m *MockStorage) DeleteTurn(ctx context.Context, adventureID uuid.UUID, turnID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	turns := m.turns[adventureID]
	for i, t := range turns {
		if t.ID == turnID {
			m.turns[adventureID] = append(turns[:i], turns[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("turn %s: %w", turnID, ErrNotFound)
}

func (m *MockStorage) SaveTokenUsage(ctx context.Context, usage *adventure.TokenUsage) error {
	if usage == nil {
		return errors.New("usage cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *usage
	m.usage[usage.ID] = &cp
	return nil
}

func (m *MockStorage) DeleteTokenUsage(ctx context.Context, adventureID uuid.UUID, usageID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.usage, usageID)
	return nil
}

// GetTokenUsage returns a stored usage record, for test assertions
func (m *MockStorage) GetTokenUsage(usageID uuid.UUID) (*adventure.TokenUsage, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.usage[usageID]
	return u, ok
}

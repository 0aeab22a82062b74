package engine

import (
	"sync"

	"github.com/google/uuid"
)

// adventureLocks serializes generation operations per adventure id.
// Entries are reference counted and removed when the last holder
// releases, so the map stays bounded by in-flight operations.
type adventureLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newAdventureLocks() *adventureLocks {
	return &adventureLocks{
		locks: make(map[uuid.UUID]*lockEntry),
	}
}

// acquire blocks until the adventure's lock is held and returns the
// release function.
func (l *adventureLocks) acquire(id uuid.UUID) func() {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &lockEntry{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

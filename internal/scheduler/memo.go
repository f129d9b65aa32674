package scheduler

import (
	"sync"

	"github.com/google/uuid"
)

// Memo remembers insights found to need human validation so the mark job
// does not evaluate them again. Entries are never evicted; once the memo
// is full, further ids are simply not remembered and will be re-evaluated.
type Memo struct {
	mu       sync.RWMutex
	ids      map[uuid.UUID]struct{}
	capacity int
}

// NewMemo returns an empty memo holding at most capacity ids.
func NewMemo(capacity int) *Memo {
	return &Memo{
		ids:      make(map[uuid.UUID]struct{}),
		capacity: capacity,
	}
}

// Contains reports whether id was remembered.
func (m *Memo) Contains(id uuid.UUID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.ids[id]
	return ok
}

// Add remembers id and reports whether it is now held.
func (m *Memo) Add(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ids[id]; ok {
		return true
	}
	if len(m.ids) >= m.capacity {
		return false
	}
	m.ids[id] = struct{}{}
	return true
}

// Len returns the number of remembered ids.
func (m *Memo) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids)
}

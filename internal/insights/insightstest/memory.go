// Package insightstest provides an in-memory insight Transactor for tests.
package insightstest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/curator/internal/insights"
)

// Memory is an insights.Transactor backed by a map. Transactions are
// serialized, and a transaction whose callback fails is rolled back by
// restoring the snapshot taken when it began.
type Memory struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]*insights.Insight
	order   []uuid.UUID
	saves   int
	commits int
}

// NewMemory returns a Memory seeded with copies of the given insights.
func NewMemory(seed ...*insights.Insight) *Memory {
	m := &Memory{rows: make(map[uuid.UUID]*insights.Insight)}
	for _, i := range seed {
		m.Put(i)
	}
	return m
}

// Put inserts or replaces a copy of i outside of any transaction.
func (m *Memory) Put(i *insights.Insight) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[i.ID]; !ok {
		m.order = append(m.order, i.ID)
	}
	m.rows[i.ID] = i.Clone()
}

// Get returns a copy of the committed row, or nil.
func (m *Memory) Get(id uuid.UUID) *insights.Insight {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i, ok := m.rows[id]; ok {
		return i.Clone()
	}
	return nil
}

// Saves returns the number of Save calls that were committed.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Commits returns the number of committed transactions.
func (m *Memory) Commits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commits
}

func (m *Memory) InTx(ctx context.Context, fn func(insights.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make(map[uuid.UUID]*insights.Insight, len(m.rows))
	for id, i := range m.rows {
		snapshot[id] = i.Clone()
	}

	tx := &txStore{m: m}
	if err := fn(tx); err != nil {
		m.rows = snapshot
		return err
	}

	m.saves += tx.saves
	m.commits++
	return nil
}

type txStore struct {
	m     *Memory
	saves int
}

func (s *txStore) Find(_ context.Context, id uuid.UUID) (*insights.Insight, error) {
	i, ok := s.m.rows[id]
	if !ok {
		return nil, insights.ErrNotFound
	}
	return i.Clone(), nil
}

func (s *txStore) Save(_ context.Context, i *insights.Insight) error {
	if _, ok := s.m.rows[i.ID]; !ok {
		return insights.ErrNotFound
	}
	s.m.rows[i.ID] = i.Clone()
	s.saves++
	return nil
}

func (s *txStore) ListApplicable(_ context.Context, now time.Time) ([]insights.Insight, error) {
	return s.filter(func(i *insights.Insight) bool {
		return i.ProcessAfter != nil && !i.ProcessAfter.After(now)
	}), nil
}

func (s *txStore) ListUnmarked(_ context.Context) ([]insights.Insight, error) {
	return s.filter(func(i *insights.Insight) bool {
		return i.ProcessAfter == nil
	}), nil
}

func (s *txStore) ListPending(_ context.Context, t insights.Type) ([]insights.Insight, error) {
	return s.filter(func(i *insights.Insight) bool {
		return i.Type == t
	}), nil
}

func (s *txStore) filter(keep func(*insights.Insight) bool) []insights.Insight {
	out := make([]insights.Insight, 0)
	for _, id := range s.m.order {
		i := s.m.rows[id]
		if i.Annotation != nil || i.Latent || !keep(i) {
			continue
		}
		out = append(out, *i.Clone())
	}
	return out
}

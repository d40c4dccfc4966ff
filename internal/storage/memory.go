package storage

import (
	"context"
	"slices"
	"sync"
)

// MemoryBackend keeps everything in process memory. It is used by tests and
// by the "memory" storage backend setting.
type MemoryBackend struct {
	mu         sync.Mutex
	behavior   []BehaviorRecord
	unanswered []UnansweredQuestion
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (m *MemoryBackend) AppendBehavior(_ context.Context, rec BehaviorRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.behavior = append(m.behavior, rec)
	return nil
}

func (m *MemoryBackend) BehaviorFor(_ context.Context, userID string) ([]BehaviorRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []BehaviorRecord
	for _, r := range m.behavior {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MemoryBackend) ListBehavior(_ context.Context, limit int) ([]BehaviorRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return newestFirst(m.behavior, limit), nil
}

func (m *MemoryBackend) AppendUnanswered(_ context.Context, q UnansweredQuestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unanswered = append(m.unanswered, q)
	return nil
}

func (m *MemoryBackend) ListUnanswered(_ context.Context, limit int) ([]UnansweredQuestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return newestFirst(m.unanswered, limit), nil
}

func (m *MemoryBackend) Close() error { return nil }

// newestFirst returns a reversed copy of the last limit items.
func newestFirst[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		items = items[len(items)-limit:]
	}
	out := slices.Clone(items)
	slices.Reverse(out)
	return out
}

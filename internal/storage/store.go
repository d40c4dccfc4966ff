// Package storage persists the two logs that outlive a single exchange:
// moderation incidents and unanswered questions.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store serialises access to a Backend and applies the degradation rules the
// engine relies on: unreadable status reads as clean, failed writes are
// reported but never stop a reply.
type Store struct {
	mu      sync.RWMutex
	backend Backend
	now     func() time.Time
	onFail  func(op string, err error)
}

// Option configures a Store.
type Option func(*Store)

// WithWriteFailureHook registers fn to be called after every failed write.
func WithWriteFailureHook(fn func(op string, err error)) Option {
	return func(s *Store) { s.onFail = fn }
}

// WithClock overrides the time source used to stamp records.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore wraps backend.
func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{backend: backend, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Open builds a Store on the named backend: "sqlite" (dataDir),
// "redis" (redisURL) or "memory".
func Open(ctx context.Context, kind, dataDir, redisURL string, opts ...Option) (*Store, error) {
	var (
		b   Backend
		err error
	)
	switch strings.ToLower(kind) {
	case "", "sqlite":
		b, err = OpenSQLite(dataDir)
	case "redis":
		b, err = OpenRedis(ctx, redisURL)
	case "memory":
		b = NewMemoryBackend()
	default:
		return nil, fmt.Errorf("unknown storage backend %q", kind)
	}
	if err != nil {
		return nil, err
	}
	return NewStore(b, opts...), nil
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// RecordBehavior appends rec, assigning an ID and timestamp when missing.
func (s *Store) RecordBehavior(ctx context.Context, rec BehaviorRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now()
	}

	s.mu.Lock()
	err := s.backend.AppendBehavior(ctx, rec)
	s.mu.Unlock()

	if err != nil {
		s.fail("append_behavior", err)
		return fmt.Errorf("recording %s for %s: %w", rec.Kind, rec.UserID, err)
	}
	return nil
}

// RecordUnanswered appends the original text of a message nothing answered.
func (s *Store) RecordUnanswered(ctx context.Context, text, env string) error {
	q := UnansweredQuestion{
		ID:          uuid.New().String(),
		Text:        text,
		Environment: env,
		Timestamp:   s.now(),
	}

	s.mu.Lock()
	err := s.backend.AppendUnanswered(ctx, q)
	s.mu.Unlock()

	if err != nil {
		s.fail("append_unanswered", err)
		return fmt.Errorf("recording unanswered question: %w", err)
	}
	return nil
}

// Status scans every record for userID. If the backend cannot be read the
// user is reported clean.
func (s *Store) Status(ctx context.Context, userID string) UserStatus {
	s.mu.RLock()
	records, err := s.backend.BehaviorFor(ctx, userID)
	s.mu.RUnlock()

	if err != nil {
		slog.Warn("behavior store unreadable, treating user as clean", "user", userID, "error", err)
		return UserStatus{UserID: userID}
	}
	return summarize(userID, records)
}

// Incidents lists behavior records newest first, narrowed by f.
func (s *Store) Incidents(ctx context.Context, f IncidentFilter) ([]BehaviorRecord, error) {
	s.mu.RLock()
	var (
		all []BehaviorRecord
		err error
	)
	if f.UserID != "" {
		all, err = s.backend.BehaviorFor(ctx, f.UserID)
		all = newestFirst(all, 0)
	} else {
		all, err = s.backend.ListBehavior(ctx, 0)
	}
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("listing incidents: %w", err)
	}

	out := make([]BehaviorRecord, 0, len(all))
	for _, r := range all {
		if !f.match(r) {
			continue
		}
		out = append(out, r)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// Unanswered lists up to limit unanswered questions, newest first.
func (s *Store) Unanswered(ctx context.Context, limit int) ([]UnansweredQuestion, error) {
	s.mu.RLock()
	qs, err := s.backend.ListUnanswered(ctx, limit)
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("listing unanswered questions: %w", err)
	}
	if qs == nil {
		qs = []UnansweredQuestion{}
	}
	return qs, nil
}

func (s *Store) fail(op string, err error) {
	slog.Warn("behavior store write failed", "op", op, "error", err)
	if s.onFail != nil {
		s.onFail(op, err)
	}
}

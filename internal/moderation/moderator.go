package moderation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kalambet/binbuddy/internal/storage"
)

// Defaults for the warning/block lifecycle.
const (
	DefaultWarningThreshold = 1
	DefaultBlockHours       = 24
)

// Ledger is the part of the behavior store the moderator needs.
type Ledger interface {
	Status(ctx context.Context, userID string) storage.UserStatus
	RecordBehavior(ctx context.Context, rec storage.BehaviorRecord) error
}

// Clock abstracts time for testing.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Verdict is the outcome of checking one message.
type Verdict int

const (
	// Allow lets the message through to escalation and matching.
	Allow Verdict = iota
	// Warn means the message was abusive and a warning was recorded.
	Warn
	// Block means the message was abusive after the threshold and a block
	// was recorded.
	Block
	// Silence means the user is already blocked.
	Silence
)

func (v Verdict) String() string {
	switch v {
	case Allow:
		return "allow"
	case Warn:
		return "warn"
	case Block:
		return "block"
	case Silence:
		return "silence"
	default:
		return "unknown"
	}
}

// Decision describes what the moderator did with a message.
type Decision struct {
	Verdict Verdict
	Reason  string
	// Until is the block expiry for Block and Silence verdicts.
	Until time.Time
}

// Moderator runs the per-user warning/block state machine. Checks for the
// same user are serialized so concurrent messages cannot both read the same
// warning count. The lock is per process; instances sharing one Redis store
// do not coordinate.
type Moderator struct {
	ledger     Ledger
	clock      Clock
	threshold  int
	blockHours int
	locks      userLocks
}

// userLocks hands out one mutex per user id. Entries live only while some
// goroutine holds or waits for them.
type userLocks struct {
	mu sync.Mutex
	m  map[string]*userLock
}

type userLock struct {
	sync.Mutex
	refs int
}

func (l *userLocks) lock(userID string) (unlock func()) {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[string]*userLock)
	}
	ul, ok := l.m[userID]
	if !ok {
		ul = &userLock{}
		l.m[userID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.Lock()
	return func() {
		ul.Unlock()
		l.mu.Lock()
		if ul.refs--; ul.refs == 0 {
			delete(l.m, userID)
		}
		l.mu.Unlock()
	}
}

func (l *userLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

// Option configures a Moderator.
type Option func(*Moderator)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option { return func(m *Moderator) { m.clock = c } }

// WithWarningThreshold sets how many warnings a user gets before a block.
func WithWarningThreshold(n int) Option {
	return func(m *Moderator) {
		if n > 0 {
			m.threshold = n
		}
	}
}

// WithBlockHours sets how long a block lasts.
func WithBlockHours(h int) Option {
	return func(m *Moderator) {
		if h > 0 {
			m.blockHours = h
		}
	}
}

// NewModerator returns a Moderator recording into ledger.
func NewModerator(ledger Ledger, opts ...Option) *Moderator {
	m := &Moderator{
		ledger:     ledger,
		clock:      realClock{},
		threshold:  DefaultWarningThreshold,
		blockHours: DefaultBlockHours,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Check evaluates one corrected message from userID. Anonymous users (empty
// userID) are always allowed. Store failures never deny service: the status
// read falls back to clean and failed writes are logged.
func (m *Moderator) Check(ctx context.Context, userID, text string) Decision {
	if userID == "" {
		return Decision{Verdict: Allow}
	}

	unlock := m.locks.lock(userID)
	defer unlock()

	now := m.clock.Now()
	st := m.ledger.Status(ctx, userID)
	if st.Blocked(now) {
		return Decision{Verdict: Silence, Reason: st.LastBlock.Reason, Until: st.BlockedUntil()}
	}

	reason, abusive := DetectAbuse(text)
	if !abusive {
		return Decision{Verdict: Allow}
	}

	if st.Warnings < m.threshold {
		m.record(ctx, storage.BehaviorRecord{
			UserID:    userID,
			Timestamp: now,
			Kind:      storage.KindWarning,
			Reason:    reason,
		})
		return Decision{Verdict: Warn, Reason: reason}
	}

	rec := storage.BehaviorRecord{
		UserID:        userID,
		Timestamp:     now,
		Kind:          storage.KindBlock,
		Reason:        reason,
		DurationHours: m.blockHours,
	}
	m.record(ctx, rec)
	return Decision{Verdict: Block, Reason: reason, Until: rec.Expires()}
}

func (m *Moderator) record(ctx context.Context, rec storage.BehaviorRecord) {
	if err := m.ledger.RecordBehavior(ctx, rec); err != nil {
		slog.Warn("moderation incident not recorded", "user", rec.UserID, "kind", rec.Kind, "error", err)
	}
}

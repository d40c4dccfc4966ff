package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// BehaviorKind distinguishes moderation incidents.
type BehaviorKind string

const (
	KindWarning BehaviorKind = "warning"
	KindBlock   BehaviorKind = "block"
)

// BehaviorRecord is one moderation incident. Records are append-only; a later
// block supersedes earlier ones.
type BehaviorRecord struct {
	ID            string       `json:"id"`
	UserID        string       `json:"user_id"`
	Timestamp     time.Time    `json:"timestamp"`
	Kind          BehaviorKind `json:"kind"`
	Reason        string       `json:"reason"`
	DurationHours int          `json:"duration_hours,omitempty"`
}

// Expires returns when a block record stops applying. It is the zero time
// for warnings.
func (r BehaviorRecord) Expires() time.Time {
	if r.Kind != KindBlock {
		return time.Time{}
	}
	return r.Timestamp.Add(time.Duration(r.DurationHours) * time.Hour)
}

// UnansweredQuestion is a message nothing could answer, kept for curation.
type UnansweredQuestion struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	Environment string    `json:"environment"`
	Timestamp   time.Time `json:"timestamp"`
}

// ModerationState is a user's position in the warning/block lifecycle.
type ModerationState string

const (
	StateClean   ModerationState = "clean"
	StateWarned  ModerationState = "warned"
	StateBlocked ModerationState = "blocked"
)

// UserStatus summarises all behavior records for one user.
type UserStatus struct {
	UserID    string          `json:"user_id"`
	Warnings  int             `json:"warnings"`
	LastBlock *BehaviorRecord `json:"last_block,omitempty"`
}

// Blocked reports whether the most recent block is still in force at now.
func (s UserStatus) Blocked(now time.Time) bool {
	return s.LastBlock != nil && now.Before(s.LastBlock.Expires())
}

// BlockedUntil returns the expiry of the most recent block, or the zero time.
func (s UserStatus) BlockedUntil() time.Time {
	if s.LastBlock == nil {
		return time.Time{}
	}
	return s.LastBlock.Expires()
}

// State maps the status to a lifecycle state at now.
func (s UserStatus) State(now time.Time) ModerationState {
	switch {
	case s.Blocked(now):
		return StateBlocked
	case s.Warnings > 0 || s.LastBlock != nil:
		return StateWarned
	default:
		return StateClean
	}
}

// summarize folds records, given in append order, into a UserStatus.
func summarize(userID string, records []BehaviorRecord) UserStatus {
	st := UserStatus{UserID: userID}
	for i := range records {
		r := records[i]
		switch r.Kind {
		case KindWarning:
			st.Warnings++
		case KindBlock:
			if st.LastBlock == nil || !r.Timestamp.Before(st.LastBlock.Timestamp) {
				st.LastBlock = &r
			}
		}
	}
	return st
}

// IncidentFilter narrows an incident listing. Zero values match everything.
type IncidentFilter struct {
	UserID string
	Kind   BehaviorKind
	Since  time.Time
	Limit  int
}

func (f IncidentFilter) match(r BehaviorRecord) bool {
	if f.UserID != "" && r.UserID != f.UserID {
		return false
	}
	if f.Kind != "" && r.Kind != f.Kind {
		return false
	}
	if !f.Since.IsZero() && r.Timestamp.Before(f.Since) {
		return false
	}
	return true
}

// Backend persists behavior records and unanswered questions. Appends must be
// durable in the order they are made; list methods return newest first.
type Backend interface {
	AppendBehavior(ctx context.Context, rec BehaviorRecord) error
	// BehaviorFor returns every record for userID in append order.
	BehaviorFor(ctx context.Context, userID string) ([]BehaviorRecord, error)
	// ListBehavior returns up to limit records across all users, newest
	// first. limit <= 0 returns everything.
	ListBehavior(ctx context.Context, limit int) ([]BehaviorRecord, error)
	AppendUnanswered(ctx context.Context, q UnansweredQuestion) error
	ListUnanswered(ctx context.Context, limit int) ([]UnansweredQuestion, error)
	Close() error
}

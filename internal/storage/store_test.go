package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// failingBackend fails every call, standing in for an unreachable database.
type failingBackend struct{}

var errUnavailable = errors.New("backend unavailable")

func (failingBackend) AppendBehavior(context.Context, BehaviorRecord) error { return errUnavailable }
func (failingBackend) BehaviorFor(context.Context, string) ([]BehaviorRecord, error) {
	return nil, errUnavailable
}
func (failingBackend) ListBehavior(context.Context, int) ([]BehaviorRecord, error) {
	return nil, errUnavailable
}
func (failingBackend) AppendUnanswered(context.Context, UnansweredQuestion) error {
	return errUnavailable
}
func (failingBackend) ListUnanswered(context.Context, int) ([]UnansweredQuestion, error) {
	return nil, errUnavailable
}
func (failingBackend) Close() error { return nil }

func fixedNow() time.Time { return time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC) }

func TestStore_Status(t *testing.T) {
	ctx := context.Background()
	now := fixedNow()

	for name, backend := range map[string]func(t *testing.T) Backend{
		"memory": func(*testing.T) Backend { return NewMemoryBackend() },
		"sqlite": func(t *testing.T) Backend { return openTestSQLite(t) },
	} {
		t.Run(name, func(t *testing.T) {
			s := NewStore(backend(t), WithClock(fixedNow))

			if st := s.Status(ctx, "u1"); st.State(now) != StateClean {
				t.Errorf("initial state = %s, want clean", st.State(now))
			}

			if err := s.RecordBehavior(ctx, BehaviorRecord{UserID: "u1", Kind: KindWarning, Reason: "idiot"}); err != nil {
				t.Fatal(err)
			}
			st := s.Status(ctx, "u1")
			if st.Warnings != 1 || st.State(now) != StateWarned {
				t.Errorf("after warning: %+v state=%s", st, st.State(now))
			}

			old := BehaviorRecord{UserID: "u1", Kind: KindBlock, DurationHours: 1, Timestamp: now.Add(-5 * time.Hour)}
			cur := BehaviorRecord{UserID: "u1", Kind: KindBlock, DurationHours: 24, Timestamp: now.Add(-time.Hour)}
			for _, r := range []BehaviorRecord{old, cur} {
				if err := s.RecordBehavior(ctx, r); err != nil {
					t.Fatal(err)
				}
			}

			st = s.Status(ctx, "u1")
			if st.LastBlock == nil || st.LastBlock.DurationHours != 24 {
				t.Fatalf("LastBlock = %+v, want the 24h block", st.LastBlock)
			}
			if st.LastBlock.ID == "" {
				t.Error("RecordBehavior did not assign an ID")
			}
			if !st.Blocked(now) || st.State(now) != StateBlocked {
				t.Errorf("Blocked(now) = false, want true")
			}
			if want := now.Add(23 * time.Hour); !st.BlockedUntil().Equal(want) {
				t.Errorf("BlockedUntil = %v, want %v", st.BlockedUntil(), want)
			}
			if st.Blocked(now.Add(24 * time.Hour)) {
				t.Error("block still active after expiry")
			}
			if st.Warnings != 1 {
				t.Errorf("Warnings = %d, want 1", st.Warnings)
			}

			if other := s.Status(ctx, "u2"); other.Warnings != 0 || other.LastBlock != nil {
				t.Errorf("u2 status leaked records: %+v", other)
			}
		})
	}
}

func TestStore_FailOpen(t *testing.T) {
	ctx := context.Background()
	var failures []string
	s := NewStore(failingBackend{}, WithWriteFailureHook(func(op string, err error) {
		failures = append(failures, op)
	}))

	st := s.Status(ctx, "u1")
	if st.Blocked(time.Now()) || st.Warnings != 0 {
		t.Errorf("unreadable store status = %+v, want clean", st)
	}

	if err := s.RecordBehavior(ctx, BehaviorRecord{UserID: "u1", Kind: KindWarning}); !errors.Is(err, errUnavailable) {
		t.Errorf("RecordBehavior error = %v, want %v", err, errUnavailable)
	}
	if err := s.RecordUnanswered(ctx, "hello?", "public"); !errors.Is(err, errUnavailable) {
		t.Errorf("RecordUnanswered error = %v, want %v", err, errUnavailable)
	}
	if len(failures) != 2 || failures[0] != "append_behavior" || failures[1] != "append_unanswered" {
		t.Errorf("write failure hook calls = %v", failures)
	}

	if _, err := s.Incidents(ctx, IncidentFilter{}); err == nil {
		t.Error("Incidents on failing backend returned no error")
	}
}

func TestStore_Incidents(t *testing.T) {
	ctx := context.Background()
	s := NewStore(NewMemoryBackend())
	base := fixedNow()

	recs := []BehaviorRecord{
		{UserID: "a", Kind: KindWarning, Timestamp: base},
		{UserID: "b", Kind: KindWarning, Timestamp: base.Add(time.Minute)},
		{UserID: "a", Kind: KindBlock, DurationHours: 24, Timestamp: base.Add(2 * time.Minute)},
		{UserID: "b", Kind: KindBlock, DurationHours: 24, Timestamp: base.Add(3 * time.Minute)},
	}
	for _, r := range recs {
		if err := s.RecordBehavior(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name   string
		filter IncidentFilter
		want   []string // user/kind pairs, newest first
	}{
		{"all", IncidentFilter{}, []string{"b/block", "a/block", "b/warning", "a/warning"}},
		{"user", IncidentFilter{UserID: "a"}, []string{"a/block", "a/warning"}},
		{"kind", IncidentFilter{Kind: KindBlock}, []string{"b/block", "a/block"}},
		{"since", IncidentFilter{Since: base.Add(90 * time.Second)}, []string{"b/block", "a/block"}},
		{"limit", IncidentFilter{Limit: 1}, []string{"b/block"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Incidents(ctx, tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			var ids []string
			for _, r := range got {
				ids = append(ids, r.UserID+"/"+string(r.Kind))
			}
			if fmt.Sprint(ids) != fmt.Sprint(tt.want) {
				t.Errorf("Incidents = %v, want %v", ids, tt.want)
			}
		})
	}
}

func TestStore_Unanswered(t *testing.T) {
	ctx := context.Background()
	s := NewStore(NewMemoryBackend())

	empty, err := s.Unanswered(ctx, 10)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("Unanswered on empty store = %v, %v; want empty non-nil slice", empty, err)
	}

	for _, q := range []string{"one", "two", "three"} {
		if err := s.RecordUnanswered(ctx, q, "operational"); err != nil {
			t.Fatal(err)
		}
	}
	got, err := s.Unanswered(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Text != "three" || got[1].Text != "two" {
		t.Errorf("Unanswered(2) = %+v", got)
	}
	if got[0].ID == "" || got[0].Timestamp.IsZero() {
		t.Errorf("RecordUnanswered did not stamp the entry: %+v", got[0])
	}
}

func TestStore_ConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	s := NewStore(openTestSQLite(t))

	const users, perUser = 8, 25
	var wg sync.WaitGroup
	for u := 0; u < users; u++ {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			for i := 0; i < perUser; i++ {
				if err := s.RecordBehavior(ctx, BehaviorRecord{UserID: user, Kind: KindWarning}); err != nil {
					t.Errorf("RecordBehavior: %v", err)
				}
				_ = s.Status(ctx, user)
			}
		}(fmt.Sprintf("user-%d", u))
	}
	wg.Wait()

	for u := 0; u < users; u++ {
		if st := s.Status(ctx, fmt.Sprintf("user-%d", u)); st.Warnings != perUser {
			t.Errorf("user-%d warnings = %d, want %d", u, st.Warnings, perUser)
		}
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	if _, err := Open(context.Background(), "postgres", "", ""); err == nil {
		t.Error("Open(postgres) succeeded, want error")
	}
	s, err := Open(context.Background(), "memory", "", "")
	if err != nil {
		t.Fatalf("Open(memory): %v", err)
	}
	s.Close()
}

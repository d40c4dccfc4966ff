package storage

import (
	"context"
	"testing"
	"time"
)

func openTestSQLite(t *testing.T) *SQLiteBackend {
	t.Helper()
	s, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestMigrationsIdempotent runs OpenSQLite twice on the same directory and
// verifies the schema_version count stays correct.
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := OpenSQLite(dir)
	if err != nil {
		t.Fatalf("first OpenSQLite failed: %v", err)
	}
	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := OpenSQLite(dir)
	if err != nil {
		t.Fatalf("second OpenSQLite failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

func TestMigrationsOrdered(t *testing.T) {
	s := openTestSQLite(t)

	versions, err := s.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(versions) == 0 {
		t.Fatal("expected at least one applied migration")
	}
	for i := 1; i < len(versions); i++ {
		if versions[i] <= versions[i-1] {
			t.Errorf("migrations not in ascending order: %v", versions)
			break
		}
	}
}

func TestIndexesExist(t *testing.T) {
	s := openTestSQLite(t)

	for _, idx := range []string{"idx_behavior_records_user", "idx_unanswered_questions_created"} {
		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", idx).Scan(&count)
		if err != nil {
			t.Fatalf("querying index %s: %v", idx, err)
		}
		if count != 1 {
			t.Errorf("index %s not found", idx)
		}
	}
}

func TestParseMigrationVersion(t *testing.T) {
	if v, err := parseMigrationVersion("007_add_things.sql"); err != nil || v != 7 {
		t.Errorf("parseMigrationVersion = %d, %v; want 7", v, err)
	}
	if _, err := parseMigrationVersion("initial.sql"); err == nil {
		t.Error("expected error for unnumbered migration")
	}
}

func TestSQLiteBehaviorRoundTrip(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 12, 0, 0, 123456789, time.UTC)

	recs := []BehaviorRecord{
		{ID: "r1", UserID: "u1", Timestamp: base, Kind: KindWarning, Reason: "idiot"},
		{ID: "r2", UserID: "u2", Timestamp: base.Add(time.Minute), Kind: KindWarning, Reason: "dumb"},
		{ID: "r3", UserID: "u1", Timestamp: base.Add(2 * time.Minute), Kind: KindBlock, Reason: "stupid", DurationHours: 24},
	}
	for _, r := range recs {
		if err := s.AppendBehavior(ctx, r); err != nil {
			t.Fatalf("AppendBehavior(%s): %v", r.ID, err)
		}
	}

	got, err := s.BehaviorFor(ctx, "u1")
	if err != nil {
		t.Fatalf("BehaviorFor: %v", err)
	}
	if len(got) != 2 || got[0].ID != "r1" || got[1].ID != "r3" {
		t.Fatalf("BehaviorFor(u1) = %+v, want r1, r3", got)
	}
	if !got[0].Timestamp.Equal(base) {
		t.Errorf("Timestamp = %v, want %v", got[0].Timestamp, base)
	}
	if got[1].Kind != KindBlock || got[1].DurationHours != 24 || got[1].Reason != "stupid" {
		t.Errorf("block record = %+v", got[1])
	}

	all, err := s.ListBehavior(ctx, 2)
	if err != nil {
		t.Fatalf("ListBehavior: %v", err)
	}
	if len(all) != 2 || all[0].ID != "r3" || all[1].ID != "r2" {
		t.Errorf("ListBehavior(2) = %+v, want r3, r2", all)
	}

	all, _ = s.ListBehavior(ctx, 0)
	if len(all) != 3 {
		t.Errorf("ListBehavior(0) returned %d records, want 3", len(all))
	}

	none, err := s.BehaviorFor(ctx, "nobody")
	if err != nil || len(none) != 0 {
		t.Errorf("BehaviorFor(nobody) = %v, %v", none, err)
	}
}

func TestSQLiteUnanswered(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	for i, text := range []string{"asdkjqwe", "what about mars", "qwerty"} {
		q := UnansweredQuestion{ID: text, Text: text, Environment: "public", Timestamp: time.Unix(int64(i), 0)}
		if err := s.AppendUnanswered(ctx, q); err != nil {
			t.Fatalf("AppendUnanswered: %v", err)
		}
	}

	got, err := s.ListUnanswered(ctx, 2)
	if err != nil {
		t.Fatalf("ListUnanswered: %v", err)
	}
	if len(got) != 2 || got[0].Text != "qwerty" || got[1].Text != "what about mars" {
		t.Errorf("ListUnanswered(2) = %+v", got)
	}
	if got[0].Environment != "public" {
		t.Errorf("Environment = %q, want public", got[0].Environment)
	}
}

func TestSQLiteRejectsUnknownKind(t *testing.T) {
	s := openTestSQLite(t)
	err := s.AppendBehavior(context.Background(), BehaviorRecord{ID: "x", UserID: "u", Timestamp: time.Now(), Kind: "ban"})
	if err == nil {
		t.Error("AppendBehavior accepted an unknown kind")
	}
}

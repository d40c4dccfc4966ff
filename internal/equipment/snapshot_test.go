package equipment

import (
	"strings"
	"testing"
	"time"
)

func TestRecommendation(t *testing.T) {
	tests := []struct {
		fill float64
		want string
	}{
		{95, "almost full, schedule pickup soon"},
		{90.5, "almost full, schedule pickup soon"},
		{90, "consider scheduling a pickup in the next few days"},
		{71, "consider scheduling a pickup in the next few days"},
		{70, "all good, no pickup needed yet"},
		{0, "all good, no pickup needed yet"},
	}
	for _, tt := range tests {
		if got := Recommendation(tt.fill); got != tt.want {
			t.Errorf("Recommendation(%v) = %q, want %q", tt.fill, got, tt.want)
		}
	}
}

func TestReport(t *testing.T) {
	s := Snapshot{
		BinID:       "B-17",
		FillLevel:   92,
		Status:      "online",
		Battery:     15,
		LastUpdated: time.Date(2026, 3, 4, 9, 30, 0, 0, time.UTC),
	}
	got := s.Report()

	for _, want := range []string{
		"Status for bin B-17:",
		"- Fill level: 92%",
		"- Sensor: online",
		"- Battery: 15% (low",
		"- Last update: 2026-03-04 09:30 UTC",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Report() missing %q:\n%s", want, got)
		}
	}
	if !strings.HasSuffix(got, "Recommendation: almost full, schedule pickup soon.") {
		t.Errorf("Report() does not end with the urgent recommendation:\n%s", got)
	}
}

func TestReport_Defaults(t *testing.T) {
	got := Snapshot{FillLevel: 10, Battery: 80}.Report()
	if !strings.HasPrefix(got, "Your bin status:") {
		t.Errorf("Report() = %q", got)
	}
	if !strings.Contains(got, "- Sensor: unknown") || !strings.Contains(got, "- Last update: unknown") {
		t.Errorf("Report() should mark missing fields unknown:\n%s", got)
	}
	if strings.Contains(got, "low") {
		t.Errorf("Report() flagged a healthy battery:\n%s", got)
	}
}

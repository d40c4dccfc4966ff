// Package equipment describes live readings for a single bin and turns them
// into the short status report the assistant shows operators.
package equipment

import (
	"fmt"
	"strings"
	"time"
)

// Fill thresholds, in percent, for pickup recommendations.
const (
	UrgentFill   = 90
	SuggestFill  = 70
	LowBattery   = 20
	reportLayout = "2006-01-02 15:04 MST"
)

// Snapshot is the most recent reading reported by a bin's sensor.
type Snapshot struct {
	BinID       string    `json:"bin_id,omitempty"`
	FillLevel   float64   `json:"fill_level"`
	Status      string    `json:"status,omitempty"`
	Battery     float64   `json:"battery"`
	LastUpdated time.Time `json:"last_updated,omitzero"`
}

// Recommendation returns the pickup advice for a fill percentage.
func Recommendation(fill float64) string {
	switch {
	case fill > UrgentFill:
		return "almost full, schedule pickup soon"
	case fill > SuggestFill:
		return "consider scheduling a pickup in the next few days"
	default:
		return "all good, no pickup needed yet"
	}
}

// Report formats s as a multi-line status block ending with the
// recommendation.
func (s Snapshot) Report() string {
	var b strings.Builder
	if s.BinID != "" {
		fmt.Fprintf(&b, "Status for bin %s:\n", s.BinID)
	} else {
		b.WriteString("Your bin status:\n")
	}
	fmt.Fprintf(&b, "- Fill level: %.0f%%\n", s.FillLevel)

	status := s.Status
	if status == "" {
		status = "unknown"
	}
	fmt.Fprintf(&b, "- Sensor: %s\n", status)

	fmt.Fprintf(&b, "- Battery: %.0f%%", s.Battery)
	if s.Battery < LowBattery {
		b.WriteString(" (low, replacement will be shipped)")
	}
	b.WriteString("\n")

	if s.LastUpdated.IsZero() {
		b.WriteString("- Last update: unknown\n")
	} else {
		fmt.Fprintf(&b, "- Last update: %s\n", s.LastUpdated.UTC().Format(reportLayout))
	}

	fmt.Fprintf(&b, "Recommendation: %s.", Recommendation(s.FillLevel))
	return b.String()
}

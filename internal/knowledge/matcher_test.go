package knowledge

import (
	"strings"
	"testing"

	"github.com/kalambet/binbuddy/internal/lexical"
)

func newTestMatcher(t *testing.T) *Matcher {
	t.Helper()
	b, err := Default()
	if err != nil {
		t.Fatalf("Default() error: %v", err)
	}
	return NewMatcher(b, DefaultThreshold)
}

func TestMatch_TypoVariation(t *testing.T) {
	m := newTestMatcher(t)

	got, ok := m.Match(lexical.Process("hw does it wrk"), Public)
	if !ok {
		t.Fatal("Match() found nothing")
	}
	if got.Entry.ID != "how-it-works" {
		t.Errorf("Entry.ID = %q, want how-it-works", got.Entry.ID)
	}
	if got.Signals.Variation != "how does it work" {
		t.Errorf("Signals.Variation = %q", got.Signals.Variation)
	}
	if !strings.Contains(got.Entry.Answer, "IoT sensors") || !strings.Contains(got.Entry.Answer, "5-minute intervals") {
		t.Errorf("unexpected answer: %q", got.Entry.Answer)
	}
	if got.Score >= ExactScore {
		t.Errorf("variation score = %v, want < %v", got.Score, ExactScore)
	}
}

func TestMatch_ExactOutranksVariation(t *testing.T) {
	doc := `entries:
  - id: variation-hit
    question: tell me anything
    variations: [how does billing work here]
    answer: variation
    keywords: [work, billing, here]
    scope: both
  - id: exact-hit
    question: How does billing work here?
    answer: exact
    keywords: [other]
    scope: both
`
	b, err := Load(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	m := NewMatcher(b, 0)

	got, ok := m.Match(lexical.Process("how does billing work here"), Public)
	if !ok {
		t.Fatal("Match() found nothing")
	}
	if got.Entry.ID != "exact-hit" {
		t.Errorf("Entry.ID = %q, want exact-hit", got.Entry.ID)
	}
	if got.Score != ExactScore || !got.Signals.Exact {
		t.Errorf("Score = %v (exact=%v), want %v", got.Score, got.Signals.Exact, ExactScore)
	}

	ranked := m.Rank(lexical.Process("how does billing work here"), Public, 0)
	if len(ranked) != 2 || ranked[1].Score >= ExactScore {
		t.Errorf("runner-up score = %v, want below %v", ranked[1].Score, ExactScore)
	}
}

func TestMatch_TieGoesToFirstEntry(t *testing.T) {
	doc := `entries:
  - {id: first, question: q one, variations: [pickup window], answer: a, keywords: [pickup], scope: both}
  - {id: second, question: q two, variations: [pickup window], answer: b, keywords: [pickup], scope: both}
`
	b, err := Load(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	m := NewMatcher(b, 0)

	for i := 0; i < 20; i++ {
		got, ok := m.Match(lexical.Process("pickup window"), Public)
		if !ok || got.Entry.ID != "first" {
			t.Fatalf("run %d: Match() = %q, %v; want first", i, got.Entry.ID, ok)
		}
	}
}

func TestMatch_Deterministic(t *testing.T) {
	m := newTestMatcher(t)
	queries := []string{
		"how accurate are sensors",
		"what does recycling cost",
		"tell me about the battery",
		"how often is collection",
	}
	for _, q := range queries {
		pq := lexical.Process(q)
		first, firstOK := m.Match(pq, Operational)
		for i := 0; i < 10; i++ {
			got, ok := m.Match(pq, Operational)
			if ok != firstOK || got.Entry.ID != first.Entry.ID || got.Score != first.Score {
				t.Fatalf("Match(%q) not deterministic: %q/%v then %q/%v", q, first.Entry.ID, first.Score, got.Entry.ID, got.Score)
			}
		}
	}
}

func TestMatch_EnvironmentScope(t *testing.T) {
	m := newTestMatcher(t)

	q := lexical.Process("How much does it cost?")
	if got, ok := m.Match(q, Public); !ok || got.Entry.ID != "pricing" {
		t.Errorf("public Match() = %q, %v; want pricing", got.Entry.ID, ok)
	}
	if got, ok := m.Match(q, Operational); ok && got.Entry.ID == "pricing" {
		t.Error("public-only entry matched in the operational environment")
	}
}

func TestMatch_NoMatch(t *testing.T) {
	m := newTestMatcher(t)

	for _, in := range []string{"", "asdkjqwe", "what is my bin status"} {
		if got, ok := m.Match(lexical.Process(in), Operational); ok {
			t.Errorf("Match(%q) = %q (%.2f), want no match", in, got.Entry.ID, got.Score)
		}
	}
}

func TestScore_Components(t *testing.T) {
	e := Entry{
		Question:   "How long does the sensor battery last?",
		Variations: []string{"battery life"},
		Keywords:   []string{"battery", "life", "replace", "charge"},
		Scope:      ScopeBoth,
	}
	if err := prepare(&e); err != nil {
		t.Fatal(err)
	}

	// Statement, not a question: no intent bonus, no variation.
	score, sig := Score(lexical.Process("replace batteries"), e)
	if sig.Variation != "" || sig.IntentBonus != 0 {
		t.Errorf("unexpected signals %+v", sig)
	}
	if sig.KeywordOverlap != 2 {
		t.Errorf("KeywordOverlap = %d, want 2", sig.KeywordOverlap)
	}
	want := KeywordWeight * 2 / 4
	if score < want-epsilon || score > want+epsilon {
		t.Errorf("Score = %v, want %v", score, want)
	}

	// Variation plus question bonus is capped below an exact hit.
	score, sig = Score(lexical.Process("what is the battery life?"), e)
	if sig.Variation != "battery life" || sig.IntentBonus != IntentBonus {
		t.Errorf("unexpected signals %+v", sig)
	}
	if score != maxPartialScore {
		t.Errorf("Score = %v, want %v", score, maxPartialScore)
	}
}

func TestKeywordsOverlap(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"recycl", "recycling", true},
		{"pickup", "pickup", true},
		{"bin", "binbuddy", true},
		{"s", "sensor", true},
		{"go", "go", true},
		{"sensor", "battery", false},
		{"", "sensor", false},
	}
	for _, tt := range tests {
		if got := keywordsOverlap(tt.a, tt.b); got != tt.want {
			t.Errorf("keywordsOverlap(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestMatch_PartialVariation(t *testing.T) {
	m := newTestMatcher(t)

	tests := []struct {
		query, want, variation string
	}{
		{"pricing plan", "pricing", "pricing plans"},
		{"recycling stream", "recycling", "recycling streams"},
		{"sensor accurac", "sensor-accuracy", "sensor accuracy"},
	}
	for _, tt := range tests {
		got, ok := m.Match(lexical.Process(tt.query), Public)
		if !ok {
			t.Errorf("Match(%q) found nothing", tt.query)
			continue
		}
		if got.Entry.ID != tt.want || got.Signals.Variation != tt.variation {
			t.Errorf("Match(%q) = %q via %q, want %q via %q", tt.query, got.Entry.ID, got.Signals.Variation, tt.want, tt.variation)
		}
		if got.Score < VariationScore-epsilon {
			t.Errorf("Match(%q) score = %v, want >= %v", tt.query, got.Score, VariationScore)
		}
	}
}

package knowledge

import (
	"math"
	"sort"
	"strings"

	"github.com/kalambet/binbuddy/internal/lexical"
)

// Score weights.
const (
	ExactScore       = 1.0
	VariationScore   = 0.9
	KeywordWeight    = 0.3
	IntentBonus      = 0.2
	DefaultThreshold = 0.3

	// maxPartialScore keeps every non-exact score strictly below ExactScore.
	maxPartialScore = 0.99

	epsilon = 1e-9
)

// Signals records what contributed to a score.
type Signals struct {
	Exact          bool    `json:"exact"`
	Variation      string  `json:"variation,omitempty"`
	KeywordOverlap int     `json:"keyword_overlap"`
	KeywordScore   float64 `json:"keyword_score"`
	IntentBonus    float64 `json:"intent_bonus"`
}

// Match is a scored candidate.
type Match struct {
	Entry   Entry   `json:"entry"`
	Score   float64 `json:"score"`
	Signals Signals `json:"signals"`
}

// Matcher picks the best entry for a processed query.
type Matcher struct {
	base      *Base
	threshold float64
}

// NewMatcher returns a matcher over base. A non-positive threshold selects
// DefaultThreshold.
func NewMatcher(base *Base, threshold float64) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Matcher{base: base, threshold: threshold}
}

// Threshold returns the minimum score a match must reach.
func (m *Matcher) Threshold() float64 { return m.threshold }

// Match returns the highest-scoring entry eligible in env when its score
// reaches the threshold. Ties go to the entry that appears first.
func (m *Matcher) Match(q lexical.Query, env Environment) (Match, bool) {
	if q.Normalized == "" {
		return Match{}, false
	}

	var best Match
	found := false
	for _, e := range m.base.entries {
		if !e.Scope.Allows(env) {
			continue
		}
		score, sig := Score(q, e)
		if !found || score > best.Score+epsilon {
			best = Match{Entry: e, Score: score, Signals: sig}
			found = true
		}
		if sig.Exact {
			break
		}
	}
	if !found || best.Score+epsilon < m.threshold {
		return Match{}, false
	}
	return best, true
}

// Rank scores every eligible entry and returns the top limit candidates,
// best first, regardless of the threshold. limit <= 0 returns all of them.
func (m *Matcher) Rank(q lexical.Query, env Environment, limit int) []Match {
	var out []Match
	for _, e := range m.base.entries {
		if !e.Scope.Allows(env) {
			continue
		}
		score, sig := Score(q, e)
		out = append(out, Match{Entry: e, Score: score, Signals: sig})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score+epsilon
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Score computes the similarity between q and e.
func Score(q lexical.Query, e Entry) (float64, Signals) {
	var sig Signals
	if q.Normalized == "" {
		return 0, sig
	}
	if q.Normalized == e.question {
		sig.Exact = true
		return ExactScore, sig
	}

	score := 0.0
	for _, v := range e.variations {
		if containsEither(q.Normalized, v) {
			sig.Variation = v
			score += VariationScore
			break
		}
	}

	sig.KeywordOverlap = keywordOverlap(q.Keywords, e.Keywords)
	if sig.KeywordOverlap > 0 {
		denom := max(len(q.Keywords), len(e.Keywords))
		sig.KeywordScore = KeywordWeight * float64(sig.KeywordOverlap) / float64(denom)
		score += sig.KeywordScore
	}

	if q.Intent.SeeksInformation() {
		sig.IntentBonus = IntentBonus
		score += IntentBonus
	}

	return math.Min(score, maxPartialScore), sig
}

// keywordOverlap counts query keywords that match at least one entry
// keyword, either exactly or by substring in either direction.
func keywordOverlap(query, entry []string) int {
	n := 0
	for _, qk := range query {
		for _, ek := range entry {
			if keywordsOverlap(qk, ek) {
				n++
				break
			}
		}
	}
	return n
}

func keywordsOverlap(a, b string) bool {
	return a == b || containsEither(a, b)
}

// containsEither reports whether a contains b or b contains a as a plain
// substring. An empty side never matches.
func containsEither(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

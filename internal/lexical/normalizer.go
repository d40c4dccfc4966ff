// Package lexical turns raw user text into a Query: corrected, normalized,
// tokenized, stop-word filtered and naively lemmatized.
package lexical

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kalambet/binbuddy/internal/intent"
)

// Query is the request-scoped result of processing one message.
type Query struct {
	Original   string
	Corrected  string
	Normalized string
	Tokens     []string
	Lemmas     []string
	Keywords   []string
	Intent     intent.Intent
}

// HasToken reports whether tok appears among the query tokens.
func (q Query) HasToken(tok string) bool {
	for _, t := range q.Tokens {
		if t == tok {
			return true
		}
	}
	return false
}

// HasPhrase reports whether phrase occurs in the normalized text on word
// boundaries.
func (q Query) HasPhrase(phrase string) bool {
	return ContainsPhrase(q.Normalized, phrase)
}

// Process runs the full pipeline over raw. It never fails: empty input yields
// empty token and keyword slices and the General intent.
func Process(raw string) Query {
	corrected := Correct(raw)
	tokens := Tokenize(corrected)

	lemmas := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if stopWords[tok] {
			continue
		}
		lemmas = append(lemmas, Lemma(tok))
	}

	return Query{
		Original:   raw,
		Corrected:  corrected,
		Normalized: strings.Join(tokens, " "),
		Tokens:     tokens,
		Lemmas:     lemmas,
		Keywords:   dedupe(lemmas),
		Intent:     intent.Classify(corrected),
	}
}

// Normalize returns only the normalized form of s.
func Normalize(s string) string {
	return strings.Join(Tokenize(Correct(s)), " ")
}

// Correct lowercases s, drops apostrophes, collapses emphatic character runs
// and substitutes known typos and shorthand for whole words. A word is a
// maximal run of letters and digits, the same unit Tokenize produces, so
// "uña" is never mistaken for "u" followed by punctuation.
func Correct(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("'", "", "’", "", "_", " ").Replace(s)
	return correctWords(collapseRuns(s))
}

func correctWords(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	start := -1
	flush := func(end int) {
		word := s[start:end]
		if fix, ok := corrections[word]; ok {
			word = fix
		}
		b.WriteString(word)
		start = -1
	}
	for i, r := range s {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			flush(i)
		}
		b.WriteRune(r)
	}
	if start >= 0 {
		flush(len(s))
	}
	return b.String()
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// collapseRuns shortens every run of three or more identical runes to two,
// so "fulll" becomes "full" and "sooooo" becomes "soo".
func collapseRuns(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	run := 0
	for _, r := range s {
		if r == prev {
			run++
		} else {
			prev = r
			run = 1
		}
		if run <= 2 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Tokenize splits s on whitespace after turning punctuation and symbols into
// whitespace. Empty tokens are dropped.
func Tokenize(s string) []string {
	tokens := strings.FieldsFunc(s, func(r rune) bool { return !isWordRune(r) })
	if tokens == nil {
		return []string{}
	}
	return tokens
}

// Lemma strips the first matching suffix rule from tokens longer than four
// runes. It is deliberately naive: "status" becomes "statu".
func Lemma(tok string) string {
	if utf8.RuneCountInString(tok) <= minLemmaLength {
		return tok
	}
	for _, r := range suffixRules {
		if strings.HasSuffix(tok, r.suffix) {
			return strings.TrimSuffix(tok, r.suffix) + r.replacement
		}
	}
	return tok
}

// IsStopWord reports whether tok is ignored for keyword extraction.
func IsStopWord(tok string) bool {
	return stopWords[tok]
}

// ContainsPhrase reports whether phrase occurs in s aligned to word
// boundaries. Both arguments are expected in normalized form.
func ContainsPhrase(s, phrase string) bool {
	if phrase == "" || s == "" {
		return false
	}
	return strings.Contains(" "+s+" ", " "+phrase+" ")
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}

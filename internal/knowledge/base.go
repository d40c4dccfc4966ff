// Package knowledge holds the curated question/answer base and the lexical
// matcher that scores user queries against it.
package knowledge

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kalambet/binbuddy/internal/lexical"
)

//go:embed data/knowledge.yaml
var defaultData []byte

// Base is the static, validated knowledge base. It is safe for concurrent
// use because nothing mutates it after Load returns.
type Base struct {
	entries []Entry
	faq     map[Environment][]FAQItem
}

type document struct {
	Entries []Entry `yaml:"entries"`
	FAQ     struct {
		Public      []FAQItem `yaml:"public"`
		Operational []FAQItem `yaml:"operational"`
	} `yaml:"faq"`
}

// Default returns the knowledge base compiled into the binary.
func Default() (*Base, error) {
	return Load(bytes.NewReader(defaultData))
}

// LoadFile reads a knowledge base from a YAML file on disk. An empty path
// returns the embedded base.
func LoadFile(path string) (*Base, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening knowledge base: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes and validates a knowledge base document.
func Load(r io.Reader) (*Base, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding knowledge base: %w", err)
	}

	b := &Base{
		entries: make([]Entry, 0, len(doc.Entries)),
		faq: map[Environment][]FAQItem{
			Public:      doc.FAQ.Public,
			Operational: doc.FAQ.Operational,
		},
	}

	var errs []error
	seen := make(map[string]bool, len(doc.Entries))
	for i, e := range doc.Entries {
		if err := prepare(&e); err != nil {
			errs = append(errs, fmt.Errorf("entry %d (%s): %w", i, e.ID, err))
			continue
		}
		if seen[e.ID] {
			errs = append(errs, fmt.Errorf("entry %d: duplicate id %q", i, e.ID))
			continue
		}
		seen[e.ID] = true
		b.entries = append(b.entries, e)
	}
	for env, items := range b.faq {
		for i, item := range items {
			if item.Key == "" || item.Key != strings.ToLower(item.Key) {
				errs = append(errs, fmt.Errorf("faq %s[%d]: key %q must be non-empty lowercase", env, i, item.Key))
			}
			if strings.TrimSpace(item.Answer) == "" {
				errs = append(errs, fmt.Errorf("faq %s[%d]: empty answer", env, i))
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return b, nil
}

// prepare validates e and fills in its normalized forms.
func prepare(e *Entry) error {
	if e.ID == "" {
		return errors.New("missing id")
	}
	if strings.TrimSpace(e.Question) == "" {
		return errors.New("missing question")
	}
	if strings.TrimSpace(e.Answer) == "" {
		return errors.New("missing answer")
	}
	if !e.Scope.valid() {
		return fmt.Errorf("invalid scope %q", e.Scope)
	}
	if len(e.Keywords) == 0 {
		return errors.New("keywords must not be empty")
	}
	for _, kw := range e.Keywords {
		if kw == "" || kw != strings.ToLower(kw) || strings.ContainsAny(kw, " \t") {
			return fmt.Errorf("keyword %q must be a single lowercase word", kw)
		}
	}

	e.question = lexical.Normalize(e.Question)
	e.variations = make([]string, 0, len(e.Variations))
	for _, v := range e.Variations {
		nv := lexical.Normalize(v)
		if nv == "" {
			return fmt.Errorf("variation %q normalizes to nothing", v)
		}
		if nv == e.question {
			return fmt.Errorf("variation %q repeats the question", v)
		}
		e.variations = append(e.variations, nv)
	}
	return nil
}

// Entries returns every entry in knowledge-base order.
func (b *Base) Entries() []Entry {
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Len returns the number of entries.
func (b *Base) Len() int { return len(b.entries) }

// Entry looks an entry up by id.
func (b *Base) Entry(id string) (Entry, bool) {
	for _, e := range b.entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// FAQ returns the FAQ items for env in file order.
func (b *Base) FAQ(env Environment) []FAQItem {
	return b.faq[env]
}

// LookupFAQ returns the first FAQ answer whose key occurs in message.
// Matching is plain substring containment on the lowercased message.
func (b *Base) LookupFAQ(message string, env Environment) (FAQItem, bool) {
	msg := strings.ToLower(message)
	for _, item := range b.faq[env] {
		if strings.Contains(msg, item.Key) {
			return item, true
		}
	}
	return FAQItem{}, false
}

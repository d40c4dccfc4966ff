package knowledge

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultLoads(t *testing.T) {
	b, err := Default()
	if err != nil {
		t.Fatalf("Default() error: %v", err)
	}
	if b.Len() == 0 {
		t.Fatal("Default() returned an empty knowledge base")
	}
	for _, e := range b.Entries() {
		if len(e.Keywords) == 0 {
			t.Errorf("entry %s has no keywords", e.ID)
		}
		for _, kw := range e.Keywords {
			if kw != strings.ToLower(kw) {
				t.Errorf("entry %s keyword %q is not lowercase", e.ID, kw)
			}
		}
		for _, v := range e.variations {
			if v == e.question {
				t.Errorf("entry %s variation repeats the question", e.ID)
			}
		}
	}
	if len(b.FAQ(Public)) == 0 || len(b.FAQ(Operational)) == 0 {
		t.Error("expected FAQ items for both environments")
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "empty keywords",
			doc: `entries:
  - {id: a, question: q one, answer: x, scope: both, keywords: []}`,
			want: "keywords must not be empty",
		},
		{
			name: "uppercase keyword",
			doc: `entries:
  - {id: a, question: q one, answer: x, scope: both, keywords: [Bin]}`,
			want: "lowercase",
		},
		{
			name: "variation repeats question",
			doc: `entries:
  - {id: a, question: "How does it work?", variations: ["how does it WORK"], answer: x, scope: both, keywords: [work]}`,
			want: "repeats the question",
		},
		{
			name: "bad scope",
			doc: `entries:
  - {id: a, question: q one, answer: x, scope: everywhere, keywords: [q]}`,
			want: "invalid scope",
		},
		{
			name: "duplicate id",
			doc: `entries:
  - {id: a, question: q one, answer: x, scope: both, keywords: [q]}
  - {id: a, question: q two, answer: y, scope: both, keywords: [q]}`,
			want: "duplicate id",
		},
		{
			name: "unknown field",
			doc: `entries:
  - {id: a, question: q one, answer: x, scope: both, keywords: [q], weight: 3}`,
			want: "decoding knowledge base",
		},
		{
			name: "faq key case",
			doc: `faq:
  public:
    - {key: Demo, answer: x}`,
			want: "lowercase",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.doc))
			if err == nil {
				t.Fatal("Load() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.yaml")
	doc := `entries:
  - id: hours
    question: When are you open?
    variations: [opening hours]
    answer: Always.
    keywords: [open, hours]
    topic: support
    scope: public
faq:
  operational:
    - key: depot
      answer: The depot is on Main Street.
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	b, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	e, ok := b.Entry("hours")
	if !ok {
		t.Fatal("Entry(hours) not found")
	}
	if e.question != "when are you open" {
		t.Errorf("normalized question = %q", e.question)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadFile(missing) succeeded, want error")
	}

	def, err := LoadFile("")
	if err != nil || def.Len() == 0 {
		t.Errorf("LoadFile(\"\") = %v, %v; want the embedded base", def, err)
	}
}

func TestLookupFAQ(t *testing.T) {
	b, err := Default()
	if err != nil {
		t.Fatal(err)
	}

	item, ok := b.LookupFAQ("Do you offer a FREE TRIAL?", Public)
	if !ok || item.Key != "free trial" {
		t.Errorf("LookupFAQ(free trial) = %+v, %v", item, ok)
	}
	if _, ok := b.LookupFAQ("Do you offer a free trial?", Operational); ok {
		t.Error("public FAQ answered in the operational environment")
	}
	if _, ok := b.LookupFAQ("asdkjqwe", Public); ok {
		t.Error("gibberish matched a FAQ key")
	}
}

func TestParseEnvironment(t *testing.T) {
	for in, want := range map[string]Environment{"": Public, "public": Public, "operational": Operational} {
		got, err := ParseEnvironment(in)
		if err != nil || got != want {
			t.Errorf("ParseEnvironment(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseEnvironment("admin"); err == nil {
		t.Error("ParseEnvironment(admin) succeeded, want error")
	}
}

package knowledge

import "fmt"

// Environment is the surface the assistant is mounted in.
type Environment string

const (
	Public      Environment = "public"
	Operational Environment = "operational"
)

// ParseEnvironment maps a user-supplied label to an Environment. The empty
// string means Public.
func ParseEnvironment(s string) (Environment, error) {
	switch Environment(s) {
	case "", Public:
		return Public, nil
	case Operational:
		return Operational, nil
	default:
		return "", fmt.Errorf("unknown environment %q (want public or operational)", s)
	}
}

// Scope says which environments an entry or FAQ item is eligible in.
type Scope string

const (
	ScopePublic      Scope = "public"
	ScopeOperational Scope = "operational"
	ScopeBoth        Scope = "both"
)

// Allows reports whether an item with this scope may answer in env.
func (s Scope) Allows(env Environment) bool {
	return s == ScopeBoth || string(s) == string(env)
}

func (s Scope) valid() bool {
	return s == ScopePublic || s == ScopeOperational || s == ScopeBoth
}

// Entry is one curated question/answer pair.
type Entry struct {
	ID         string   `yaml:"id" json:"id"`
	Question   string   `yaml:"question" json:"question"`
	Variations []string `yaml:"variations" json:"variations,omitempty"`
	Answer     string   `yaml:"answer" json:"answer"`
	Keywords   []string `yaml:"keywords" json:"keywords"`
	Topic      string   `yaml:"topic" json:"topic"`
	Scope      Scope    `yaml:"scope" json:"scope"`

	// Normalized forms, filled in at load time.
	question   string
	variations []string
}

// FAQItem is a loose key→answer pair consulted after the matcher fails.
type FAQItem struct {
	Key    string `yaml:"key" json:"key"`
	Answer string `yaml:"answer" json:"answer"`
}

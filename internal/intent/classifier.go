package intent

import (
	"regexp"
	"strings"
)

// Intent is a coarse label for the kind of request a message makes. It only
// biases knowledge-base scoring; it never selects a handler on its own.
type Intent string

const (
	Question Intent = "question"
	Status   Intent = "status"
	Action   Intent = "action"
	Help     Intent = "help"
	Info     Intent = "info"
	General  Intent = "general"
)

// SeeksInformation reports whether the intent asks for an explanation or an
// answer, as opposed to a command or small talk.
func (i Intent) SeeksInformation() bool {
	return i == Question || i == Info
}

type rule struct {
	intent   Intent
	patterns []*regexp.Regexp
}

// rules are evaluated in order; the first matching pattern decides.
var rules = []rule{
	{
		intent: Question,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`^(what|whats|how|why|when|where|which|who|whose|is|are|does|do|did|can|could|would|should|will)\b`),
			regexp.MustCompile(`\?\s*$`),
		},
	},
	{
		intent: Status,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(status|check|track|tracking|monitor|monitoring)\b`),
			regexp.MustCompile(`\b(how full|fill level)\b`),
		},
	},
	{
		intent: Action,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`^(please\s+)?(schedule|book|cancel|set|change|update|enable|disable|turn|reset|request|add|remove|order)\b`),
			regexp.MustCompile(`\bi\s+(want|need|would like)\s+to\b`),
		},
	},
	{
		intent: Help,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(help|support|assist|assistance|trouble|stuck)\b`),
		},
	},
	{
		intent: Info,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`^(explain|describe|tell me|show me)\b`),
			regexp.MustCompile(`\b(tell me about|more about|information on|info on)\b`),
		},
	},
}

// Classify assigns an intent to already-corrected text. Empty input and text
// that no rule recognises are General.
func Classify(text string) Intent {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return General
	}
	for _, r := range rules {
		for _, p := range r.patterns {
			if p.MatchString(s) {
				return r.intent
			}
		}
	}
	return General
}

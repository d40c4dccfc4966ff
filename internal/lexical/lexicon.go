package lexical

// corrections maps common typos and chat shorthand to their intended word.
// No replacement may itself be a key, otherwise correction would not be
// idempotent.
var corrections = map[string]string{
	"wht":          "what",
	"wat":          "what",
	"whta":         "what",
	"whats":        "what is",
	"hw":           "how",
	"hwo":          "how",
	"wrk":          "work",
	"wrks":         "works",
	"wokr":         "work",
	"pikup":        "pickup",
	"pickp":        "pickup",
	"pikcup":       "pickup",
	"pls":          "please",
	"plz":          "please",
	"thx":          "thanks",
	"thnx":         "thanks",
	"ty":           "thank you",
	"u":            "you",
	"ur":           "your",
	"r":            "are",
	"im":           "i am",
	"dont":         "do not",
	"doesnt":       "does not",
	"cant":         "cannot",
	"isnt":         "is not",
	"bn":           "bin",
	"sensr":        "sensor",
	"senor":        "sensor",
	"notifcation":  "notification",
	"notificaton":  "notification",
	"notifcations": "notifications",
	"schedual":     "schedule",
	"shedule":      "schedule",
	"recyling":     "recycling",
	"recylcing":    "recycling",
	"batery":       "battery",
	"battry":       "battery",
	"stauts":       "status",
	"statsu":       "status",
	"pric":         "price",
	"cst":          "cost",
}

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true,
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true, "am": true,
	"i": true, "me": true, "my": true, "we": true, "our": true, "us": true,
	"you": true, "your": true, "it": true, "its": true, "he": true, "she": true, "they": true, "them": true,
	"this": true, "that": true, "these": true, "those": true,
	"to": true, "of": true, "in": true, "on": true, "at": true, "for": true, "with": true,
	"by": true, "from": true, "as": true, "into": true, "about": true,
	"do": true, "does": true, "did": true, "can": true, "could": true, "would": true,
	"should": true, "will": true, "shall": true, "may": true, "might": true, "must": true,
	"what": true, "how": true, "why": true, "when": true, "where": true, "which": true, "who": true,
	"please": true, "there": true, "here": true, "so": true, "if": true, "then": true,
	"just": true, "any": true, "some": true, "have": true, "has": true, "had": true,
	"not": true, "no": true, "yes": true, "too": true, "very": true, "also": true,
}

// suffixRules are tried in order; the first matching suffix is replaced.
var suffixRules = []struct {
	suffix      string
	replacement string
}{
	{"ies", "y"},
	{"ing", ""},
	{"ed", ""},
	{"es", ""},
	{"s", ""},
}

// minLemmaLength is the rune count a token must exceed to be lemmatized.
const minLemmaLength = 4

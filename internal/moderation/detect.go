// Package moderation detects abusive messages and sensitive topics, and keeps
// each known user's warning/block lifecycle.
package moderation

import (
	"fmt"
	"regexp"
	"strings"
)

// Contact is the human support channel named in escalation replies.
type Contact struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
	Hours string `json:"hours"`
}

// DefaultContact is used when no support details are configured.
func DefaultContact() Contact {
	return Contact{
		Email: "support@binbuddy.io",
		Phone: "+1 (800) 246-2839",
		Hours: "Monday to Friday, 8 am to 6 pm",
	}
}

var abusePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(fuck\w*|shit\w*|bitch\w*|bastard|asshole|dickhead|crap)\b`),
	regexp.MustCompile(`\b(idiot|stupid|moron|dumb|useless|pathetic|loser)\b`),
	regexp.MustCompile(`\b(shut up|screw you|go to hell|hate you|kill you|die)\b`),
}

// DetectAbuse reports whether text contains profanity, insults or hostility.
// The matched fragment is returned as the reason.
func DetectAbuse(text string) (string, bool) {
	s := strings.ToLower(text)
	for _, p := range abusePatterns {
		if m := p.FindString(s); m != "" {
			return m, true
		}
	}
	return "", false
}

type escalationTopic struct {
	category string
	keywords []string
}

// escalationTopics are checked in order; the first category with a keyword
// present in the message wins.
var escalationTopics = []escalationTopic{
	{"billing and payment issues", []string{"billing", "payment", "refund"}},
	{"legal matters", []string{"legal", "lawsuit", "lawyer"}},
	{"account access issues", []string{"account locked"}},
	{"data privacy and security concerns", []string{"data breach", "privacy violation"}},
	{"hardware malfunctions", []string{"hardware broken", "sensor malfunction"}},
}

// DetectEscalation returns the topic category when text mentions a subject
// that must be handled by a person.
func DetectEscalation(text string) (string, bool) {
	s := strings.ToLower(text)
	for _, t := range escalationTopics {
		for _, kw := range t.keywords {
			if strings.Contains(s, kw) {
				return t.category, true
			}
		}
	}
	return "", false
}

// WarningReply is returned the first time a user is abusive.
const WarningReply = "Let's keep this conversation respectful. Further offensive messages will temporarily block you from this chat."

// EscalationReply formats the hand-off message for category.
func EscalationReply(category string, c Contact) string {
	return fmt.Sprintf(
		"This looks like a question about %s, which our support team needs to handle personally.\n"+
			"- Email: %s\n- Phone: %s\n- Hours: %s\n"+
			"Please include your account or bin ID so they can help you faster.",
		category, c.Email, c.Phone, c.Hours)
}

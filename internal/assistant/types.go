package assistant

import (
	"time"

	"github.com/kalambet/binbuddy/internal/equipment"
	"github.com/kalambet/binbuddy/internal/knowledge"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation. Messages are appended, never edited.
type Message struct {
	Role        Role                  `json:"role"`
	Content     string                `json:"content"`
	Timestamp   time.Time             `json:"timestamp"`
	Environment knowledge.Environment `json:"environment"`
}

// ConversationContext is built by the caller for every request and is
// read-only to the engine.
type ConversationContext struct {
	Environment knowledge.Environment `json:"environment"`
	UserID      string                `json:"user_id,omitempty"`
	UserName    string                `json:"user_name,omitempty"`
	Equipment   *equipment.Snapshot   `json:"equipment,omitempty"`
	History     []Message             `json:"history,omitempty"`
}

// Outcome classifies how a reply was produced.
type Outcome string

const (
	// Silenced: the user is blocked, the reply is empty.
	Silenced Outcome = "silenced"
	// Blocked: this message triggered a new block, the reply is empty.
	Blocked Outcome = "blocked"
	// Warned: abusive message under the threshold.
	Warned Outcome = "warned"
	// Escalated: sensitive topic handed to human support.
	Escalated Outcome = "escalated"
	// Answered: knowledge-base match.
	Answered Outcome = "answered"
	// Fallback: a rule-based responder answered.
	Fallback Outcome = "fallback"
	// Unmatched: nothing answered; the question was logged.
	Unmatched Outcome = "unmatched"
)

// Reply is the engine's answer plus what produced it.
type Reply struct {
	Text    string  `json:"text"`
	Outcome Outcome `json:"outcome"`
	// Topic is the escalation category or the knowledge-base topic.
	Topic   string  `json:"topic,omitempty"`
	EntryID string  `json:"entry_id,omitempty"`
	Handler string  `json:"handler,omitempty"`
	Score   float64 `json:"score,omitempty"`
}

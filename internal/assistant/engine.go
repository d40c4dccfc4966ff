// Package assistant is the conversational engine: it runs moderation,
// escalation, knowledge-base matching and the fallback responders for every
// incoming message.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/kalambet/binbuddy/internal/knowledge"
	"github.com/kalambet/binbuddy/internal/lexical"
	"github.com/kalambet/binbuddy/internal/moderation"
	"github.com/kalambet/binbuddy/internal/responder"
	"github.com/kalambet/binbuddy/internal/storage"
)

// Config holds the tunables of the engine.
type Config struct {
	WarningThreshold    int
	BlockHours          int
	SimilarityThreshold float64
	Support             moderation.Contact
}

// DefaultConfig returns the stock engine settings.
func DefaultConfig() Config {
	return Config{
		WarningThreshold:    moderation.DefaultWarningThreshold,
		BlockHours:          moderation.DefaultBlockHours,
		SimilarityThreshold: knowledge.DefaultThreshold,
		Support:             moderation.DefaultContact(),
	}
}

// Observer is notified of every reply. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveReply(env knowledge.Environment, r Reply)
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	clock    moderation.Clock
	rng      *rand.Rand
	observer Observer
}

// WithClock sets the time source for moderation decisions.
func WithClock(c moderation.Clock) Option { return func(o *options) { o.clock = c } }

// WithRand sets the random source for greeting selection.
func WithRand(r *rand.Rand) Option { return func(o *options) { o.rng = r } }

// WithObserver registers an observer for replies.
func WithObserver(obs Observer) Option { return func(o *options) { o.observer = obs } }

// Engine turns user messages into replies. It is safe for concurrent use;
// the store is the only shared mutable state.
type Engine struct {
	base      *knowledge.Base
	store     *storage.Store
	moderator *moderation.Moderator
	matcher   *knowledge.Matcher
	chain     *responder.Chain
	greeter   *responder.Greeter
	support   moderation.Contact
	observer  Observer

	// traceChain backs Explain; its greeter draws no randomness.
	traceChain *responder.Chain
}

// New builds an engine over base and store.
func New(base *knowledge.Base, store *storage.Store, cfg Config, opts ...Option) *Engine {
	var o options
	for _, fn := range opts {
		fn(&o)
	}

	modOpts := []moderation.Option{
		moderation.WithWarningThreshold(cfg.WarningThreshold),
		moderation.WithBlockHours(cfg.BlockHours),
	}
	if o.clock != nil {
		modOpts = append(modOpts, moderation.WithClock(o.clock))
	}

	support := cfg.Support
	if support == (moderation.Contact{}) {
		support = moderation.DefaultContact()
	}

	greeter := responder.NewGreeter(o.rng)
	return &Engine{
		base:       base,
		store:      store,
		moderator:  moderation.NewModerator(store, modOpts...),
		matcher:    knowledge.NewMatcher(base, cfg.SimilarityThreshold),
		chain:      responder.NewChain(base, greeter),
		traceChain: responder.NewChain(base, responder.NewStaticGreeter()),
		greeter:    greeter,
		support:    support,
		observer:   o.observer,
	}
}

// GenerateResponse returns the reply text for message. An empty string means
// the user is blocked and gets no reply.
func (e *Engine) GenerateResponse(ctx context.Context, message string, cc ConversationContext) string {
	return e.Respond(ctx, message, cc).Text
}

// Greeting returns an opening line for a new conversation.
func (e *Engine) Greeting(env knowledge.Environment, name string) string {
	return e.greeter.Greeting(env, name)
}

// Respond runs the full pipeline for one message and reports how the reply
// was produced. It never fails.
func (e *Engine) Respond(ctx context.Context, message string, cc ConversationContext) Reply {
	env := cc.Environment
	if env == "" {
		env = knowledge.Public
	}

	reply := e.respond(ctx, message, env, cc)
	if e.observer != nil {
		e.observer.ObserveReply(env, reply)
	}
	return reply
}

func (e *Engine) respond(ctx context.Context, message string, env knowledge.Environment, cc ConversationContext) Reply {
	corrected := lexical.Correct(message)

	switch d := e.moderator.Check(ctx, cc.UserID, corrected); d.Verdict {
	case moderation.Silence:
		return Reply{Outcome: Silenced}
	case moderation.Block:
		slog.Info("user blocked", "user", cc.UserID, "until", d.Until, "reason", d.Reason)
		return Reply{Outcome: Blocked}
	case moderation.Warn:
		slog.Info("user warned", "user", cc.UserID, "reason", d.Reason)
		return Reply{Text: moderation.WarningReply, Outcome: Warned}
	}

	if topic, ok := moderation.DetectEscalation(corrected); ok {
		return Reply{
			Text:    moderation.EscalationReply(topic, e.support),
			Outcome: Escalated,
			Topic:   topic,
		}
	}

	q := lexical.Process(message)
	if m, ok := e.matcher.Match(q, env); ok {
		return Reply{
			Text:    m.Entry.Answer,
			Outcome: Answered,
			Topic:   m.Entry.Topic,
			EntryID: m.Entry.ID,
			Score:   m.Score,
		}
	}

	res, ok := e.chain.Respond(responder.Request{
		Query:     q,
		Env:       env,
		UserName:  cc.UserName,
		Equipment: cc.Equipment,
	})
	if ok {
		return Reply{Text: res.Text, Outcome: Fallback, Handler: res.Handler}
	}

	if err := e.store.RecordUnanswered(ctx, message, string(env)); err != nil {
		slog.Warn("unanswered question not logged", "error", err)
	}
	return Reply{Text: uncertainReply(e.support), Outcome: Unmatched}
}

func uncertainReply(c moderation.Contact) string {
	return fmt.Sprintf(
		"I'm not sure about that one yet. I've noted your question so we can improve my answers. "+
			"For a definitive answer, contact our support team at %s or %s (%s).",
		c.Email, c.Phone, c.Hours)
}

// Explanation traces how a message would be scored. Producing one records
// nothing and leaves the greeting sequence untouched.
type Explanation struct {
	Query      lexical.Query     `json:"query"`
	Escalation string            `json:"escalation,omitempty"`
	Threshold  float64           `json:"threshold"`
	Candidates []knowledge.Match `json:"candidates"`
	Selected   string            `json:"selected,omitempty"`
	Handler    string            `json:"handler,omitempty"`
}

// Explain scores message against the knowledge base in env and reports the
// top limit candidates.
func (e *Engine) Explain(message string, env knowledge.Environment, limit int) Explanation {
	if env == "" {
		env = knowledge.Public
	}
	q := lexical.Process(message)
	ex := Explanation{
		Query:      q,
		Threshold:  e.matcher.Threshold(),
		Candidates: e.matcher.Rank(q, env, limit),
	}
	if topic, ok := moderation.DetectEscalation(q.Corrected); ok {
		ex.Escalation = topic
	}
	if m, ok := e.matcher.Match(q, env); ok {
		ex.Selected = m.Entry.ID
	} else if res, ok := e.traceChain.Respond(responder.Request{Query: q, Env: env}); ok {
		ex.Handler = res.Handler
	}
	if ex.Candidates == nil {
		ex.Candidates = []knowledge.Match{}
	}
	return ex
}

// Store exposes the behavior store for read-only exports.
func (e *Engine) Store() *storage.Store { return e.store }

// Knowledge returns the loaded knowledge base.
func (e *Engine) Knowledge() *knowledge.Base { return e.base }

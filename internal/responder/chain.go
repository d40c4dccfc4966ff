// Package responder implements the ordered fallback handlers consulted when
// the knowledge base has no confident answer.
package responder

import (
	"fmt"

	"github.com/kalambet/binbuddy/internal/equipment"
	"github.com/kalambet/binbuddy/internal/knowledge"
	"github.com/kalambet/binbuddy/internal/lexical"
)

// Request is everything a handler may look at.
type Request struct {
	Query     lexical.Query
	Env       knowledge.Environment
	UserName  string
	Equipment *equipment.Snapshot
}

// Result is a handler's reply and the name of the handler that produced it.
type Result struct {
	Handler string
	Text    string
}

type handler struct {
	name        string
	operational bool
	respond     func(Request) (string, bool)
}

// Chain runs handlers in a fixed order; the first one to answer wins.
type Chain struct {
	handlers []handler
}

// NewChain builds the standard chain: FAQ lookup, operational handlers,
// then generic conversational handlers.
func NewChain(base *knowledge.Base, greeter *Greeter) *Chain {
	faq := func(r Request) (string, bool) {
		item, ok := base.LookupFAQ(r.Query.Original, r.Env)
		return item.Answer, ok
	}
	greet := func(r Request) (string, bool) {
		if !isGreeting(r.Query) {
			return "", false
		}
		return greeter.Greeting(r.Env, r.UserName), true
	}

	return &Chain{handlers: []handler{
		{name: "faq", respond: faq},
		{name: "status", operational: true, respond: equipmentStatus},
		{name: "notifications", operational: true, respond: notifications},
		{name: "pickup", operational: true, respond: pickup},
		{name: "impact", operational: true, respond: impact},
		{name: "issue", operational: true, respond: issue},
		{name: "greeting", respond: greet},
		{name: "thanks", respond: thanks},
		{name: "whimsy", respond: whimsy},
	}}
}

// Respond returns the first handler result for req.
func (c *Chain) Respond(req Request) (Result, bool) {
	for _, h := range c.handlers {
		if h.operational && req.Env != knowledge.Operational {
			continue
		}
		if text, ok := h.respond(req); ok && text != "" {
			return Result{Handler: h.name, Text: text}, true
		}
	}
	return Result{}, false
}

// Handlers lists handler names in evaluation order.
func (c *Chain) Handlers() []string {
	names := make([]string, len(c.handlers))
	for i, h := range c.handlers {
		names[i] = h.name
	}
	return names
}

func hasAny(q lexical.Query, tokens ...string) bool {
	for _, t := range tokens {
		if q.HasToken(t) {
			return true
		}
	}
	return false
}

func hasAnyPhrase(q lexical.Query, phrases ...string) bool {
	for _, p := range phrases {
		if q.HasPhrase(p) {
			return true
		}
	}
	return false
}

func equipmentStatus(r Request) (string, bool) {
	q := r.Query
	if !hasAny(q, "status", "full") && !hasAnyPhrase(q, "fill level", "how full") {
		return "", false
	}
	if r.Equipment == nil {
		return "I don't have live data for this bin right now. Check that its sensor is online, or open the dashboard for the latest readings.", true
	}
	return r.Equipment.Report(), true
}

func notifications(r Request) (string, bool) {
	if !hasAny(r.Query, "notification", "notifications", "alert", "alerts", "notify") {
		return "", false
	}
	return "You can manage notifications under Settings > Alerts: pick email or SMS, set a fill threshold for each bin and mute alerts during holidays.", true
}

func pickup(r Request) (string, bool) {
	if !hasAny(r.Query, "pickup", "pickups", "collection") && !r.Query.HasPhrase("pick up") {
		return "", false
	}
	msg := `To schedule a pickup, open the bin on the dashboard and choose "Request pickup". Requests made before noon are collected the next working day.`
	if e := r.Equipment; e != nil && e.FillLevel > equipment.SuggestFill {
		msg += fmt.Sprintf(" This bin is at %.0f%%, so it's a good time to book one.", e.FillLevel)
	}
	return msg, true
}

func impact(r Request) (string, bool) {
	if !hasAny(r.Query, "impact", "metrics", "savings", "co2", "emissions", "carbon") {
		return "", false
	}
	return "Your impact report on the dashboard shows collections avoided, kilometres saved and CO2 reduced this month. It is also emailed to account owners at the start of each month.", true
}

func issue(r Request) (string, bool) {
	q := r.Query
	if !hasAny(q, "issue", "issues", "problem", "problems", "broken", "damaged", "leaking") && !q.HasPhrase("not working") {
		return "", false
	}
	return "Sorry about that. Please report it under Support > Report an issue with the bin ID and a photo if you can. A technician usually responds within one working day.", true
}

var greetingWords = map[string]bool{
	"hi": true, "hello": true, "hey": true, "howdy": true, "hiya": true,
	"greetings": true, "yo": true, "morning": true,
}

func isGreeting(q lexical.Query) bool {
	if len(q.Tokens) == 0 {
		return false
	}
	if greetingWords[q.Tokens[0]] {
		return true
	}
	return hasAnyPhrase(q, "good morning", "good afternoon", "good evening") && q.Tokens[0] == "good"
}

func thanks(r Request) (string, bool) {
	if !hasAny(r.Query, "thanks", "thank", "cheers", "appreciate", "appreciated") {
		return "", false
	}
	return "You're welcome! Anything else I can help with?", true
}

func whimsy(r Request) (string, bool) {
	q := r.Query
	switch {
	case hasAny(q, "dance", "dancing"):
		return "I'd dance if I had wheels. For now I just shuffle data between bins and trucks.", true
	case hasAny(q, "feel", "feeling", "feelings"):
		return "I'm feeling completely empty, which for a bin is the best possible mood!", true
	case hasAny(q, "magic", "magical"):
		return "No magic here, just sensors, data and a lot of route planning.", true
	case hasAny(q, "joke", "jokes", "funny"):
		return "Why did the bin go to therapy? It was feeling a bit overloaded... until we emptied it.", true
	}
	return "", false
}

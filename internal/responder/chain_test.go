package responder

import (
	"math/rand/v2"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/kalambet/binbuddy/internal/equipment"
	"github.com/kalambet/binbuddy/internal/knowledge"
	"github.com/kalambet/binbuddy/internal/lexical"
)

func newTestChain(t *testing.T) *Chain {
	t.Helper()
	base, err := knowledge.Default()
	if err != nil {
		t.Fatalf("knowledge.Default() error: %v", err)
	}
	return NewChain(base, NewGreeter(rand.New(rand.NewPCG(1, 2))))
}

func request(msg string, env knowledge.Environment) Request {
	return Request{Query: lexical.Process(msg), Env: env}
}

func TestChain_Handlers(t *testing.T) {
	c := newTestChain(t)
	want := []string{"faq", "status", "notifications", "pickup", "impact", "issue", "greeting", "thanks", "whimsy"}
	if got := c.Handlers(); !reflect.DeepEqual(got, want) {
		t.Errorf("Handlers() = %v, want %v", got, want)
	}
}

func TestChain_Respond(t *testing.T) {
	c := newTestChain(t)

	tests := []struct {
		msg     string
		env     knowledge.Environment
		handler string
	}{
		{"Is there a free trial?", knowledge.Public, "faq"},
		{"How do I reset my password", knowledge.Operational, "faq"},
		{"turn off notifcations", knowledge.Operational, "notifications"},
		{"book a pikup for friday", knowledge.Operational, "pickup"},
		{"show my co2 savings", knowledge.Operational, "impact"},
		{"the lid is broken", knowledge.Operational, "issue"},
		{"my sensor is not working", knowledge.Operational, "issue"},
		{"hello there", knowledge.Public, "greeting"},
		{"Good morning!", knowledge.Operational, "greeting"},
		{"thx a lot", knowledge.Public, "thanks"},
		{"can you dance?", knowledge.Public, "whimsy"},
		{"how are you feeling", knowledge.Public, "whimsy"},
		{"tell me a joke", knowledge.Operational, "whimsy"},
	}

	for _, tt := range tests {
		got, ok := c.Respond(request(tt.msg, tt.env))
		if !ok {
			t.Errorf("Respond(%q) found no handler, want %s", tt.msg, tt.handler)
			continue
		}
		if got.Handler != tt.handler {
			t.Errorf("Respond(%q).Handler = %q, want %q", tt.msg, got.Handler, tt.handler)
		}
		if got.Text == "" {
			t.Errorf("Respond(%q) returned empty text", tt.msg)
		}
	}
}

func TestChain_OperationalOnly(t *testing.T) {
	c := newTestChain(t)
	for _, msg := range []string{"what is my bin status", "turn off alerts", "the lid is broken"} {
		if got, ok := c.Respond(request(msg, knowledge.Public)); ok {
			t.Errorf("Respond(%q) in public = %s, want no handler", msg, got.Handler)
		}
	}
}

func TestChain_NoMatch(t *testing.T) {
	c := newTestChain(t)
	for _, env := range []knowledge.Environment{knowledge.Public, knowledge.Operational} {
		if got, ok := c.Respond(request("asdkjqwe", env)); ok {
			t.Errorf("Respond(gibberish, %s) = %s, want no handler", env, got.Handler)
		}
		if _, ok := c.Respond(request("", env)); ok {
			t.Errorf("Respond(empty, %s) answered", env)
		}
	}
}

func TestStatusHandler(t *testing.T) {
	c := newTestChain(t)

	req := request("what is my bin status", knowledge.Operational)
	req.Equipment = &equipment.Snapshot{FillLevel: 92, Status: "online", Battery: 64, LastUpdated: time.Now()}
	got, ok := c.Respond(req)
	if !ok || got.Handler != "status" {
		t.Fatalf("Respond() = %+v, %v; want status handler", got, ok)
	}
	if !strings.HasSuffix(got.Text, "almost full, schedule pickup soon.") {
		t.Errorf("status reply does not end with the urgent recommendation:\n%s", got.Text)
	}

	req.Equipment = nil
	got, _ = c.Respond(req)
	if !strings.Contains(got.Text, "don't have live data") {
		t.Errorf("status without snapshot = %q", got.Text)
	}
}

func TestPickupHandler_MentionsFill(t *testing.T) {
	c := newTestChain(t)
	req := request("schedule a pickup", knowledge.Operational)
	req.Equipment = &equipment.Snapshot{FillLevel: 81}
	got, _ := c.Respond(req)
	if got.Handler != "pickup" || !strings.Contains(got.Text, "81%") {
		t.Errorf("Respond() = %+v", got)
	}
}

func TestGreeter(t *testing.T) {
	a := NewGreeter(rand.New(rand.NewPCG(7, 7)))
	b := NewGreeter(rand.New(rand.NewPCG(7, 7)))
	for i := 0; i < 10; i++ {
		ga := a.Greeting(knowledge.Public, "")
		gb := b.Greeting(knowledge.Public, "")
		if ga != gb {
			t.Fatalf("same seed produced %q and %q", ga, gb)
		}
		if strings.Contains(ga, "{name}") {
			t.Errorf("unexpanded placeholder in %q", ga)
		}
	}

	got := a.Greeting(knowledge.Operational, "Sam")
	if !strings.Contains(got, ", Sam!") {
		t.Errorf("Greeting(name=Sam) = %q", got)
	}
	found := false
	for _, tpl := range greetingTemplates[knowledge.Operational] {
		if strings.ReplaceAll(tpl, "{name}", ", Sam") == got {
			found = true
		}
	}
	if !found {
		t.Errorf("Greeting(operational) = %q, not an operational template", got)
	}
}

func TestStaticGreeter(t *testing.T) {
	g := NewStaticGreeter()
	want := strings.ReplaceAll(greetingTemplates[knowledge.Operational][0], "{name}", ", Sam")
	for i := 0; i < 5; i++ {
		if got := g.Greeting(knowledge.Operational, "Sam"); got != want {
			t.Fatalf("Greeting() = %q, want %q", got, want)
		}
	}
}

func TestChain_GreetingUsesName(t *testing.T) {
	c := newTestChain(t)
	req := request("hey", knowledge.Public)
	req.UserName = "Ada"
	got, ok := c.Respond(req)
	if !ok || got.Handler != "greeting" || !strings.Contains(got.Text, "Ada") {
		t.Errorf("Respond(hey) = %+v, %v", got, ok)
	}
}

package responder

import (
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/kalambet/binbuddy/internal/knowledge"
)

var greetingTemplates = map[knowledge.Environment][]string{
	knowledge.Public: {
		"Hi{name}! I'm BinBuddy. Ask me how our smart bins work, what they cost or where we operate.",
		"Hello{name}! I can tell you about our sensors, pricing and environmental impact. What would you like to know?",
		"Hey{name}! Curious about smarter waste collection? Ask me anything.",
	},
	knowledge.Operational: {
		"Hi{name}! I can check bin status, schedule pickups and manage your alerts.",
		"Hello{name}! Ask me about fill levels, pickups or your impact report.",
		"Welcome back{name}! What can I help you with on your fleet today?",
	},
}

// Greeter picks opening lines. The random source is injected so tests can
// make the choice deterministic. A Greeter without a source always uses the
// first template.
type Greeter struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGreeter returns a Greeter drawing from rng. A nil rng is replaced by a
// time-seeded source.
func NewGreeter(rng *rand.Rand) *Greeter {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>17|1))
	}
	return &Greeter{rng: rng}
}

// NewStaticGreeter returns a Greeter that never consumes randomness, for
// dry runs that must not disturb the live greeting sequence.
func NewStaticGreeter() *Greeter {
	return &Greeter{}
}

// Greeting returns a greeting for env, personalised when name is set.
func (g *Greeter) Greeting(env knowledge.Environment, name string) string {
	templates, ok := greetingTemplates[env]
	if !ok {
		templates = greetingTemplates[knowledge.Public]
	}

	tpl := templates[0]
	if g.rng != nil {
		g.mu.Lock()
		tpl = templates[g.rng.IntN(len(templates))]
		g.mu.Unlock()
	}

	suffix := ""
	if name = strings.TrimSpace(name); name != "" {
		suffix = ", " + name
	}
	return strings.ReplaceAll(tpl, "{name}", suffix)
}

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kalambet/binbuddy/internal/assistant"
)

// Deps wires the full HTTP surface.
type Deps struct {
	Engine  *assistant.Engine
	Pacer   assistant.Pacer
	Token   string
	Metrics http.Handler // optional; mounted at /metrics
	Now     func() time.Time
}

// NewRouter composes the chat API, the operator API under /v1/admin and the
// metrics endpoint.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Mount("/v1/admin", NewAdminHandler(AdminDeps{
		Store: deps.Engine.Store(),
		Token: deps.Token,
		Now:   deps.Now,
	}))
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}
	r.Mount("/", NewChatHandler(deps.Engine, deps.Pacer))

	return r
}

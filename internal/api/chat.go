package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/binbuddy/internal/assistant"
	"github.com/kalambet/binbuddy/internal/knowledge"
)

const maxRequestBodySize = 1 << 20 // 1MB

// ChatRequest is the body of POST /v1/chat.
type ChatRequest struct {
	Message string                        `json:"message"`
	Context assistant.ConversationContext `json:"context"`
}

// ChatResponse is the body returned by POST /v1/chat. An empty Reply with
// outcome "silenced" or "blocked" means the user gets no answer.
type ChatResponse struct {
	assistant.Reply
	Environment knowledge.Environment `json:"environment"`
}

// ExplainRequest is the body of POST /v1/explain.
type ExplainRequest struct {
	Message     string `json:"message"`
	Environment string `json:"environment"`
	Limit       int    `json:"limit"`
}

// NewChatHandler returns the public conversation API. Replies are paced by
// pacer before they are written.
func NewChatHandler(eng *assistant.Engine, pacer assistant.Pacer) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Get("/v1/greeting", handleGreeting(eng))
	r.Post("/v1/chat", handleChat(eng, pacer))
	r.Post("/v1/explain", handleExplain(eng))

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleGreeting(eng *assistant.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		env, err := knowledge.ParseEnvironment(r.URL.Query().Get("env"))
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		writeJSON(w, map[string]string{
			"text":        eng.Greeting(env, r.URL.Query().Get("name")),
			"environment": string(env),
		})
	}
}

func handleChat(eng *assistant.Engine, pacer assistant.Pacer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "message is required")
			return
		}
		env, err := knowledge.ParseEnvironment(string(req.Context.Environment))
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		req.Context.Environment = env

		reply := eng.Respond(r.Context(), req.Message, req.Context)
		slog.Debug("chat reply",
			"outcome", reply.Outcome,
			"entry", reply.EntryID,
			"handler", reply.Handler,
			"score", reply.Score,
		)

		if err := pacer.Wait(r.Context()); err != nil {
			// Client went away while we were "typing".
			return
		}
		writeJSON(w, ChatResponse{Reply: reply, Environment: env})
	}
}

func handleExplain(eng *assistant.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req ExplainRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "message is required")
			return
		}
		env, err := knowledge.ParseEnvironment(req.Environment)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		limit := req.Limit
		if limit <= 0 || limit > 20 {
			limit = 5
		}
		writeJSON(w, eng.Explain(req.Message, env, limit))
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("writing response", "error", err)
	}
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

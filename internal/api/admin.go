package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/binbuddy/internal/storage"
)

// AdminDeps holds what the operator API needs.
type AdminDeps struct {
	Store *storage.Store
	Token string
	// Now is the clock used to evaluate block expiry; nil means time.Now.
	Now func() time.Time
}

// UserStatusResponse is the body of GET /users/{id}/status.
type UserStatusResponse struct {
	storage.UserStatus
	State        storage.ModerationState `json:"state"`
	BlockedUntil *time.Time              `json:"blocked_until,omitempty"`
}

// NewAdminHandler returns the bearer-protected operator API over the
// behavior store.
func NewAdminHandler(deps AdminDeps) http.Handler {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	r := chi.NewRouter()
	r.Use(BearerAuth(deps.Token))

	r.Get("/incidents", handleListIncidents(deps))
	r.Get("/unanswered", handleListUnanswered(deps))
	r.Get("/users/{id}/status", handleUserStatus(deps))

	return r
}

func handleListIncidents(deps AdminDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f := storage.IncidentFilter{
			UserID: q.Get("user"),
			Kind:   storage.BehaviorKind(q.Get("kind")),
			Limit:  parseIntParam(r, "limit", 50, 500),
		}
		switch f.Kind {
		case "", storage.KindWarning, storage.KindBlock:
		default:
			httpError(w, http.StatusBadRequest, "invalid_request_error", "kind must be warning or block")
			return
		}
		if s := q.Get("since"); s != "" {
			since, err := time.Parse(time.RFC3339, s)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "since must be RFC3339: %v", err)
				return
			}
			f.Since = since
		}

		records, err := deps.Store.Incidents(r.Context(), f)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list incidents: %v", err)
			return
		}
		if records == nil {
			records = []storage.BehaviorRecord{}
		}
		writeJSON(w, records)
	}
}

func handleListUnanswered(deps AdminDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 50, 500)

		questions, err := deps.Store.Unanswered(r.Context(), limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list unanswered questions: %v", err)
			return
		}
		writeJSON(w, questions)
	}
}

func handleUserStatus(deps AdminDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		st := deps.Store.Status(r.Context(), id)
		now := deps.Now()
		resp := UserStatusResponse{UserStatus: st, State: st.State(now)}
		if st.Blocked(now) {
			until := st.BlockedUntil()
			resp.BlockedUntil = &until
		}
		writeJSON(w, resp)
	}
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

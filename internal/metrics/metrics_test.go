package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kalambet/binbuddy/internal/assistant"
	"github.com/kalambet/binbuddy/internal/knowledge"
)

var _ assistant.Observer = (*Recorder)(nil)

func TestRecorder_ObserveReply(t *testing.T) {
	r := NewRecorder()

	r.ObserveReply(knowledge.Public, assistant.Reply{Outcome: assistant.Answered, Score: 0.99})
	r.ObserveReply(knowledge.Public, assistant.Reply{Outcome: assistant.Answered, Score: 1})
	r.ObserveReply(knowledge.Operational, assistant.Reply{Outcome: assistant.Escalated, Topic: "legal matters"})
	r.ObserveReply(knowledge.Public, assistant.Reply{Outcome: assistant.Unmatched})

	if got := testutil.ToFloat64(r.replies.WithLabelValues("answered", "public")); got != 2 {
		t.Errorf("answered/public = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.replies.WithLabelValues("escalated", "operational")); got != 1 {
		t.Errorf("escalated/operational = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.escalations.WithLabelValues("legal matters")); got != 1 {
		t.Errorf("escalations{legal matters} = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(r.matchScore); got != 1 {
		t.Errorf("match score series = %d, want 1", got)
	}
}

func TestRecorder_StoreWriteFailed(t *testing.T) {
	r := NewRecorder()
	r.StoreWriteFailed("append_unanswered", errors.New("disk full"))
	r.StoreWriteFailed("append_unanswered", errors.New("disk full"))

	if got := testutil.ToFloat64(r.storeFailures.WithLabelValues("append_unanswered")); got != 2 {
		t.Errorf("store failures = %v, want 2", got)
	}
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder()
	r.ObserveReply(knowledge.Public, assistant.Reply{Outcome: assistant.Fallback})

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `binbuddy_replies_total{environment="public",outcome="fallback"} 1`) {
		t.Errorf("metrics output missing reply counter:\n%s", body)
	}
}

package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/MrSnakeDoc/marks/internal/domain"
)

func TestMutationOutcomes(t *testing.T) {
	r := New()

	r.Mutation("space", "create", nil)
	r.Mutation("space", "create", &domain.RemoteError{Op: "space.create", Err: errors.New("boom")})
	r.Mutation("space", "update", domain.ErrNotFound)

	tests := []struct {
		op, outcome string
		want        float64
	}{
		{"create", "ok", 1},
		{"create", "rolled_back", 1},
		{"update", "not_found", 1},
		{"update", "ok", 0},
	}
	for _, tt := range tests {
		got := testutil.ToFloat64(r.mutations.WithLabelValues("space", tt.op, tt.outcome))
		if got != tt.want {
			t.Errorf("%s/%s = %v, want %v", tt.op, tt.outcome, got, tt.want)
		}
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	r := New()
	r.Bootstrap(nil)
	r.ObserveRequest("/api/spaces", "GET", 200, 5*time.Millisecond)
	r.Purged("bookmark", 3)
	r.Purged("group", 0)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{
		`marks_bootstrap_attempts_total{outcome="ok"} 1`,
		`marks_http_requests_total{code="200",method="GET",route="/api/spaces"} 1`,
		`marks_gc_purged_total{kind="bookmark"} 3`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
	if strings.Contains(string(body), `kind="group"`) {
		t.Errorf("zero purge should not create a series")
	}
}

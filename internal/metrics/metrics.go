// Package metrics exposes prometheus collectors for the HTTP server and the
// sync engine.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrSnakeDoc/marks/internal/domain"
)

// Registry owns every collector. Each process builds its own so tests never
// share state through the default registerer.
type Registry struct {
	reg *prometheus.Registry

	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	mutations *prometheus.CounterVec
	bootstrap *prometheus.CounterVec
	gcPurged  *prometheus.CounterVec
}

func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marks",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "marks",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marks",
			Name:      "mutations_total",
			Help:      "Optimistic mutations by entity kind, operation and outcome.",
		}, []string{"kind", "op", "outcome"}),
		bootstrap: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marks",
			Name:      "bootstrap_attempts_total",
			Help:      "Bootstrap attempts by outcome.",
		}, []string{"outcome"}),
		gcPurged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marks",
			Name:      "gc_purged_total",
			Help:      "Archived entities purged by the garbage collector.",
		}, []string{"kind"}),
	}
	r.reg.MustRegister(
		r.requests, r.latency, r.mutations, r.bootstrap, r.gcPurged,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return r
}

// Gatherer exposes the underlying registry, mostly for tests.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// Handler serves the registry in the prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// ObserveRequest records one served HTTP request.
func (r *Registry) ObserveRequest(route, method string, code int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	r.requests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	r.latency.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Mutation implements entity.Recorder.
func (r *Registry) Mutation(kind, op string, err error) {
	r.mutations.WithLabelValues(kind, op, outcome(err)).Inc()
}

// Bootstrap implements orchestrator.Recorder.
func (r *Registry) Bootstrap(err error) {
	o := "ok"
	switch {
	case errors.Is(err, context.Canceled):
		o = "cancelled"
	case err != nil:
		o = "failed"
	}
	r.bootstrap.WithLabelValues(o).Inc()
}

// Purged records entities removed by a garbage-collection sweep.
func (r *Registry) Purged(kind string, n int) {
	if n > 0 {
		r.gcPurged.WithLabelValues(kind).Add(float64(n))
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case domain.IsRemote(err):
		return "rolled_back"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid"
	case errors.Is(err, domain.ErrNotAuthenticated):
		return "unauthenticated"
	}
	return "error"
}

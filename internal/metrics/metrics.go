// Package metrics exposes Prometheus instrumentation for the HTTP layer and
// the document tasks. All collectors register with the default registry and
// are safe for concurrent use.
//
// Labels stay low-cardinality: routes use the chi route pattern, tasks use a
// fixed set of names and outcomes.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Task outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docqa_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	// Status is omitted to keep the histogram small.
	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docqa_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "docqa_http_requests_inflight",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	taskTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docqa_task_total",
			Help: "Document task invocations by task and outcome.",
		},
		[]string{"task", "outcome"},
	)

	// Model calls dominate task latency, so buckets reach two minutes.
	taskLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docqa_task_duration_seconds",
			Help:    "Duration of document tasks in seconds.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
		[]string{"task"},
	)

	chunksIndexed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "docqa_chunks_indexed_total",
			Help: "Chunks written to the vector index.",
		},
	)

	reconcileJobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docqa_reconcile_jobs_total",
			Help: "Reconcile jobs processed by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, taskTotal, taskLat, chunksIndexed, reconcileJobs)
}

// Handler serves the default registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware instruments requests with count, latency and in-flight metrics.
// The path label is the matched chi route pattern, or the raw URL path when
// no route matched.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		httpReqs.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		httpLat.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// ObserveTask records one task invocation that started at start.
func ObserveTask(task string, start time.Time, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	taskTotal.WithLabelValues(task, outcome).Inc()
	taskLat.WithLabelValues(task).Observe(time.Since(start).Seconds())
}

// AddChunksIndexed counts chunks written to the index.
func AddChunksIndexed(n int) {
	if n > 0 {
		chunksIndexed.Add(float64(n))
	}
}

// ObserveReconcile counts one processed reconcile job.
func ObserveReconcile(err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	reconcileJobs.WithLabelValues(outcome).Inc()
}

package telemetry

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	httpDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// RuleSetWrites counts rule-set saves and deletes by owner kind and outcome.
	RuleSetWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loyalty_ruleset_writes_total",
			Help: "Rule-set writes by owner kind, operation and outcome",
		},
		[]string{"kind", "op", "outcome"},
	)
	// ValidationFailures counts rejected rule-set writes by the field that failed.
	ValidationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loyalty_ruleset_validation_failures_total",
			Help: "Rule-set writes rejected by validation",
		},
		[]string{"kind", "field"},
	)
	// RuleSetElements observes the number of elements in saved rule sets.
	RuleSetElements = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "loyalty_ruleset_elements",
			Help:    "Number of groups and group operators per saved rule set",
			Buckets: []float64{1, 3, 5, 9, 15, 25, 49, 99},
		},
		[]string{"kind"},
	)
	// WebhookDeliveries counts change-notification delivery attempts by outcome.
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loyalty_webhook_deliveries_total",
			Help: "Webhook delivery attempts by outcome (delivered, retried, failed, dropped)",
		},
		[]string{"outcome"},
	)

	initOnce sync.Once
)

// Init registers the collectors with the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(httpReqs, httpDur, RuleSetWrites, ValidationFailures, RuleSetElements, WebhookDeliveries)
	})
}

// Handler serves the default registry for the metrics server.
func Handler() http.Handler {
	return promhttp.Handler()
}

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		// route pattern is only complete once chi has routed the request
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}

		httpReqs.WithLabelValues(route, r.Method, strconv.Itoa(ww.status)).Inc()
		httpDur.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

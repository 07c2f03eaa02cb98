package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "prepwise"

// Webhook outcomes.
const (
	WebhookAccepted  = "accepted"
	WebhookReplayed  = "replayed"
	WebhookRejected  = "rejected"
	WebhookInvalid   = "invalid"
	WebhookGenFailed = "generation_failed"
	WebhookDBFailed  = "persist_failed"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests handled",
	}, []string{"method", "route", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	webhookDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_deliveries_total",
		Help:      "Voice platform webhook deliveries by outcome",
	}, []string{"outcome"})

	generations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "llm_requests_total",
		Help:      "Text generation calls by operation, provider and result",
	}, []string{"operation", "provider", "result"})

	generationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "llm_request_duration_seconds",
		Help:      "Latency of text generation calls in seconds",
		Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
	}, []string{"operation", "provider"})
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Middleware records request count and latency labelled by the matched
// route template, so interview ids do not explode label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if cr := mux.CurrentRoute(r); cr != nil {
			if tpl, err := cr.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		httpLatency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// ObserveWebhook counts one webhook delivery with the given outcome.
func ObserveWebhook(outcome string) {
	webhookDeliveries.WithLabelValues(outcome).Inc()
}

// ObserveGeneration records one text generation call.
func ObserveGeneration(operation, provider string, took time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	generations.WithLabelValues(operation, provider, result).Inc()
	generationLatency.WithLabelValues(operation, provider).Observe(took.Seconds())
}

// Handler exposes the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

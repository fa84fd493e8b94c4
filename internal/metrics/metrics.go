package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint", "status"},
	)

	httpResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 7),
		},
		[]string{"method", "endpoint"},
	)

	// Mail metrics
	mailsSentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventhub_mail_sent_total",
			Help: "Total number of mails accepted by the webhook",
		},
	)

	mailsFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventhub_mail_failed_total",
			Help: "Total number of failed webhook deliveries",
		},
		[]string{"error_type"},
	)

	mailSendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "eventhub_mail_send_duration_seconds",
			Help:    "Webhook call duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
	)

	circuitState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "eventhub_mail_circuit_state",
			Help: "Mail webhook circuit breaker state (0 closed, 1 open, 2 half-open)",
		},
	)

	// Outbox metrics
	outboxPublishedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventhub_outbox_published_total",
			Help: "Total number of outbox messages published",
		},
	)

	outboxFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventhub_outbox_failed_total",
			Help: "Total number of outbox publish failures",
		},
		[]string{"outcome"}, // retry | dead
	)

	// Business metrics
	registrationsSubmittedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventhub_registrations_submitted_total",
			Help: "Total number of registration requests submitted",
		},
	)

	registrationsReviewedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventhub_registrations_reviewed_total",
			Help: "Total number of registration review attempts by decision and result",
		},
		[]string{"decision", "result"},
	)
)

// RecordHTTPRequest records one served request
func RecordHTTPRequest(method, endpoint string, status int, duration time.Duration, responseSize int64) {
	code := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, endpoint, code).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, code).Observe(duration.Seconds())
	httpResponseSize.WithLabelValues(method, endpoint).Observe(float64(responseSize))
}

func RecordMailSent(duration time.Duration) {
	mailsSentTotal.Inc()
	mailSendDuration.Observe(duration.Seconds())
}

func RecordMailFailed(errorType string) {
	mailsFailedTotal.WithLabelValues(errorType).Inc()
}

func SetCircuitState(state int) {
	circuitState.Set(float64(state))
}

func RecordOutboxPublished() {
	outboxPublishedTotal.Inc()
}

func RecordOutboxFailed(dead bool) {
	if dead {
		outboxFailedTotal.WithLabelValues("dead").Inc()
		return
	}
	outboxFailedTotal.WithLabelValues("retry").Inc()
}

func RecordRegistrationSubmitted() {
	registrationsSubmittedTotal.Inc()
}

// RecordReview records an approve/reject attempt; result is "ok" or an error code.
func RecordReview(decision, result string) {
	registrationsReviewedTotal.WithLabelValues(decision, result).Inc()
}

// Handler returns the Prometheus metrics handler
func Handler() http.Handler {
	return promhttp.Handler()
}

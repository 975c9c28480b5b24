package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Transaction workflow
	mutationsTotal           *prometheus.CounterVec
	persistenceFailuresTotal *prometheus.CounterVec
	documentsRenderedTotal   *prometheus.CounterVec
	signaturesTotal          *prometheus.CounterVec

	// Payments
	paymentsTotal        *prometheus.CounterVec
	paymentAttemptsTotal *prometheus.CounterVec
	paymentDuration      *prometheus.HistogramVec

	// Archive
	archiveOutboxSize prometheus.Gauge
	archivedTotal     *prometheus.CounterVec

	// HTTP
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec

	// NATS
	natsMessagesPublished *prometheus.CounterVec
	natsPublishDuration   *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		mutationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boatclosers_mutations_total",
				Help: "Total number of transaction mutations by event and outcome",
			},
			[]string{"event", "status"},
		),
		persistenceFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boatclosers_persistence_failures_total",
				Help: "Total number of failed transaction store operations",
			},
			[]string{"operation"},
		),
		documentsRenderedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boatclosers_documents_rendered_total",
				Help: "Total number of documents rendered by template kind",
			},
			[]string{"document", "template"},
		),
		signaturesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boatclosers_signatures_total",
				Help: "Total number of applied document signatures",
			},
			[]string{"document", "mode"},
		),

		paymentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boatclosers_payments_total",
				Help: "Total number of plan payments by plan and outcome",
			},
			[]string{"plan", "status"},
		),
		paymentAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boatclosers_payment_attempts_total",
				Help: "Total number of payment gateway attempts including retries",
			},
			[]string{"status"},
		),
		paymentDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "boatclosers_payment_duration_seconds",
				Help:    "Duration of payment collection in seconds, retries included",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"plan"},
		),

		archiveOutboxSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "boatclosers_archive_outbox_size",
				Help: "Number of closed transactions waiting to be archived",
			},
		),
		archivedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boatclosers_archived_total",
				Help: "Total number of archive attempts by outcome",
			},
			[]string{"status"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),

		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of NATS messages published",
			},
			[]string{"event", "status"},
		),
		natsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nats_publish_duration_seconds",
				Help:    "Duration of NATS publish operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"event"},
		),
	}
}

// RecordMutation records a workflow write and whether it was applied.
func (m *Metrics) RecordMutation(event string, err error) {
	if m == nil {
		return
	}
	m.mutationsTotal.WithLabelValues(event, outcome(err)).Inc()
}

// RecordPersistenceFailure counts a store operation that did not succeed.
func (m *Metrics) RecordPersistenceFailure(operation string) {
	if m == nil {
		return
	}
	m.persistenceFailuresTotal.WithLabelValues(operation).Inc()
}

func (m *Metrics) RecordDocumentRendered(document, template string) {
	if m == nil {
		return
	}
	m.documentsRenderedTotal.WithLabelValues(document, template).Inc()
}

func (m *Metrics) RecordSignature(document, mode string) {
	if m == nil {
		return
	}
	m.signaturesTotal.WithLabelValues(document, mode).Inc()
}

// RecordPayment records a completed payment flow with its total duration.
func (m *Metrics) RecordPayment(plan string, duration float64, err error) {
	if m == nil {
		return
	}
	m.paymentsTotal.WithLabelValues(plan, outcome(err)).Inc()
	m.paymentDuration.WithLabelValues(plan).Observe(duration)
}

// RecordPaymentAttempt records a single gateway call.
func (m *Metrics) RecordPaymentAttempt(err error) {
	if m == nil {
		return
	}
	m.paymentAttemptsTotal.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) SetArchiveOutboxSize(size int) {
	if m == nil {
		return
	}
	m.archiveOutboxSize.Set(float64(size))
}

// RecordArchive records an archive attempt; status is success, retry or dropped.
func (m *Metrics) RecordArchive(status string) {
	if m == nil {
		return
	}
	m.archivedTotal.WithLabelValues(status).Inc()
}

// RecordHTTPRequest records an HTTP request with duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	if m == nil {
		return
	}
	status := statusCodeToString(statusCode)
	m.httpRequestDuration.WithLabelValues(handler, method, status).Observe(duration)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
}

// RecordNATSPublish records a NATS publish operation.
func (m *Metrics) RecordNATSPublish(event, status string, duration float64) {
	if m == nil {
		return
	}
	m.natsMessagesPublished.WithLabelValues(event, status).Inc()
	m.natsPublishDuration.WithLabelValues(event).Observe(duration)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func statusCodeToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "unknown"
	}
}

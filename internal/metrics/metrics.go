// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "farmdesk"

// Metrics groups the collectors registered on one registry.
type Metrics struct {
	gatherer prometheus.Gatherer

	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	HTTPErrors       *prometheus.CounterVec
	GridRequests     *prometheus.CounterVec
	GridDuration     *prometheus.HistogramVec
	BookkeepingOps   *prometheus.CounterVec
	SeededRows       *prometheus.CounterVec
	MessagesSent     *prometheus.CounterVec
	ScheduledReports *prometheus.CounterVec
}

// New registers the collectors on reg. A nil reg uses a private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		gatherer: reg,
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		HTTPErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "Total number of HTTP responses with status >= 400",
		}, []string{"method", "path", "class"}),
		GridRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datatable_requests_total",
			Help:      "Total number of grid requests",
		}, []string{"table", "outcome"}),
		GridDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "datatable_duration_seconds",
			Help:      "Duration of grid queries in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"table"}),
		BookkeepingOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookkeeping_operations_total",
			Help:      "Total number of bookkeeping operations",
		}, []string{"operation", "outcome"}),
		SeededRows: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seeded_rows_total",
			Help:      "Rows created by the demo seeder",
		}, []string{"entity"}),
		MessagesSent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "whatsapp_messages_total",
			Help:      "WhatsApp messages handled",
		}, []string{"direction", "outcome"}),
		ScheduledReports: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduled_reports_total",
			Help:      "Scheduled report runs",
		}, []string{"outcome"}),
	}
}

// ObserveGrid records a served grid.
func (m *Metrics) ObserveGrid(table, outcome string, elapsed time.Duration) {
	m.GridRequests.WithLabelValues(table, outcome).Inc()
	m.GridDuration.WithLabelValues(table).Observe(elapsed.Seconds())
}

// ObserveOperation records a bookkeeping operation.
func (m *Metrics) ObserveOperation(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.BookkeepingOps.WithLabelValues(operation, outcome).Inc()
}

// AddSeeded counts rows created by the seeder.
func (m *Metrics) AddSeeded(entity string, n int) {
	m.SeededRows.WithLabelValues(entity).Add(float64(n))
}

// ObserveMessage records an inbound or outbound message.
func (m *Metrics) ObserveMessage(direction string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.MessagesSent.WithLabelValues(direction, outcome).Inc()
}

// ObserveReport records a scheduled report run.
func (m *Metrics) ObserveReport(err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.ScheduledReports.WithLabelValues(outcome).Inc()
}

// ObserveHTTP records one HTTP response.
func (m *Metrics) ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	s := strconv.Itoa(status)
	m.HTTPRequests.WithLabelValues(method, path, s).Inc()
	m.HTTPDuration.WithLabelValues(method, path, s).Observe(elapsed.Seconds())
	if status >= 400 {
		m.HTTPErrors.WithLabelValues(method, path, s[:1]+"xx").Inc()
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

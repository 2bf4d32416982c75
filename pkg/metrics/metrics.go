package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds every metric the service exports. All recording methods are
// safe to call on a nil *Collector so collaborators can run without metrics.
type Collector struct {
	registry prometheus.Gatherer

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlightGauge   prometheus.Gauge

	ConsultationsRequested *prometheus.CounterVec
	JoinsTotal             *prometheus.CounterVec
	AppointmentsTotal      *prometheus.CounterVec
	PrescriptionsUploaded  prometheus.Counter

	NotificationsPublished *prometheus.CounterVec
	NotificationFailures   *prometheus.CounterVec
	EventSinkDropped       prometheus.Counter

	AuditEntriesTotal  prometheus.Counter
	AuditBufferDropped prometheus.Counter
}

// NewCollector registers the metrics on reg. Pass prometheus.NewRegistry() in
// tests to avoid duplicate registration on the default registry.
func NewCollector(serviceName string, reg *prometheus.Registry) *Collector {
	f := promauto.With(reg)

	return &Collector{
		registry: reg,

		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path, and status code.",
		}, []string{"method", "path", "status"}),

		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "path", "status"}),

		InFlightGauge: f.NewGauge(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),

		ConsultationsRequested: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "triage",
			Name:      "consultations_requested_total",
			Help:      "Consultations created by the symptom checker, by triage match kind.",
		}, []string{"match"}),

		JoinsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "consultation",
			Name:      "joins_total",
			Help:      "Video room joins by participant.",
		}, []string{"participant"}),

		AppointmentsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "clinical",
			Name:      "appointments_total",
			Help:      "Appointment status changes by resulting status.",
		}, []string{"status"}),

		PrescriptionsUploaded: f.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "clinical",
			Name:      "prescriptions_uploaded_total",
			Help:      "Total prescription files uploaded.",
		}),

		NotificationsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "notify",
			Name:      "published_total",
			Help:      "Real-time events published by channel.",
		}, []string{"channel"}),

		NotificationFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "notify",
			Name:      "failures_total",
			Help:      "Notification delivery failures by kind (sms, push, sink).",
		}, []string{"kind"}),

		EventSinkDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "notify",
			Name:      "sink_dropped_total",
			Help:      "Events dropped because the external sink queue was full.",
		}),

		AuditEntriesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "audit",
			Name:      "entries_total",
			Help:      "Total audit log entries written.",
		}),

		AuditBufferDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "audit",
			Name:      "buffer_dropped_total",
			Help:      "Audit entries dropped due to full buffer. Alert if non-zero.",
		}),
	}
}

func (c *Collector) ConsultationRequested(match string) {
	if c == nil {
		return
	}
	c.ConsultationsRequested.WithLabelValues(match).Inc()
}

func (c *Collector) Joined(participant string) {
	if c == nil {
		return
	}
	c.JoinsTotal.WithLabelValues(participant).Inc()
}

func (c *Collector) AppointmentStatus(status string) {
	if c == nil {
		return
	}
	c.AppointmentsTotal.WithLabelValues(status).Inc()
}

func (c *Collector) PrescriptionUploaded() {
	if c == nil {
		return
	}
	c.PrescriptionsUploaded.Inc()
}

func (c *Collector) NotificationPublished(channel string) {
	if c == nil {
		return
	}
	c.NotificationsPublished.WithLabelValues(channel).Inc()
}

func (c *Collector) NotificationFailed(kind string) {
	if c == nil {
		return
	}
	c.NotificationFailures.WithLabelValues(kind).Inc()
}

func (c *Collector) SinkDropped() {
	if c == nil {
		return
	}
	c.EventSinkDropped.Inc()
}

func (c *Collector) AuditWritten() {
	if c == nil {
		return
	}
	c.AuditEntriesTotal.Inc()
}

func (c *Collector) AuditDropped() {
	if c == nil {
		return
	}
	c.AuditBufferDropped.Inc()
}

// Handler exposes the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil || c.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

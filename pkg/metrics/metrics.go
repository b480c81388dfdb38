package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics groups the service's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	invoicesTotal       *prometheus.CounterVec
	notificationsTotal  *prometheus.CounterVec
	attachmentsPurged   prometheus.Counter
	jobRunsTotal        *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"handler", "method"},
		),
		invoicesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "invoice_requests_total",
				Help: "Invoice requests received, by outcome",
			},
			[]string{"result"},
		),
		notificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_total",
				Help: "Outbound notifications, by kind and outcome",
			},
			[]string{"kind", "result"},
		),
		attachmentsPurged: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "attachments_purged_total",
				Help: "Invoice photos deleted by the retention job",
			},
		),
		jobRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "job_runs_total",
				Help: "Background job runs, by job and outcome",
			},
			[]string{"job", "result"},
		),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.invoicesTotal,
		m.notificationsTotal,
		m.attachmentsPurged,
		m.jobRunsTotal,
	)
	return m
}

func (m *Metrics) ObserveRequest(handler string, method string, status string, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequestDuration.WithLabelValues(handler, method).Observe(seconds)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
}

// InvoiceResult counts an intake outcome: accepted, rejected or failed.
func (m *Metrics) InvoiceResult(result string) {
	if m == nil {
		return
	}
	m.invoicesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) Notification(kind string, err error) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(kind, result(err)).Inc()
}

func (m *Metrics) AttachmentsPurged(n int) {
	if m == nil {
		return
	}
	m.attachmentsPurged.Add(float64(n))
}

func (m *Metrics) JobRun(job string, err error) {
	if m == nil {
		return
	}
	m.jobRunsTotal.WithLabelValues(job, result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

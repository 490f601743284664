// Package metrics exposes Prometheus collectors for the API and its
// background jobs.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fusion"

// Metrics groups every collector the service records to.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	reportsSubmitted *prometheus.CounterVec
	alertsCreated    *prometheus.CounterVec
	alertsAcked      *prometheus.CounterVec
	accessChecks     *prometheus.CounterVec
	feedItems        *prometheus.CounterVec
	digestRuns       *prometheus.CounterVec
	wsClients        prometheus.Gauge
}

// New registers the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route template and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route template.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		reportsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_submitted_total",
			Help:      "Accepted intelligence reports by agency and derived threat level.",
		}, []string{"agency", "threat_level"}),
		alertsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_created_total",
			Help:      "Threat alerts created by threat level.",
		}, []string{"threat_level"}),
		alertsAcked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_acknowledged_total",
			Help:      "Alert acknowledgements by acknowledging agency.",
		}, []string{"agency"}),
		accessChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_checks_total",
			Help:      "Clearance checks by outcome.",
		}, []string{"result"}),
		feedItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_items_ingested_total",
			Help:      "OSINT feed items submitted as reports, by source.",
		}, []string{"source"}),
		digestRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "digest_runs_total",
			Help:      "Situation digest runs by outcome.",
		}, []string{"result"}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_subscribers",
			Help:      "Connected live feed subscribers.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.reportsSubmitted,
		m.alertsCreated,
		m.alertsAcked,
		m.accessChecks,
		m.feedItems,
		m.digestRuns,
		m.wsClients,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) ReportSubmitted(agency, level string) {
	m.reportsSubmitted.WithLabelValues(agency, level).Inc()
}

func (m *Metrics) AlertCreated(level string) {
	m.alertsCreated.WithLabelValues(level).Inc()
}

func (m *Metrics) AlertAcknowledged(agency string) {
	m.alertsAcked.WithLabelValues(agency).Inc()
}

func (m *Metrics) AccessChecked(allowed bool) {
	result := "denied"
	if allowed {
		result = "allowed"
	}
	m.accessChecks.WithLabelValues(result).Inc()
}

func (m *Metrics) FeedItemsIngested(source string, n int) {
	m.feedItems.WithLabelValues(source).Add(float64(n))
}

func (m *Metrics) DigestRun(err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.digestRuns.WithLabelValues(result).Inc()
}

// SetSubscribers records the current live feed subscriber count.
func (m *Metrics) SetSubscribers(n int) {
	m.wsClients.Set(float64(n))
}

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the resolution counters. Each instance owns its registry so
// tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	pursuits        *prometheus.CounterVec
	pursuitDuration *prometheus.HistogramVec
	resolutions     *prometheus.CounterVec
	credible        *prometheus.HistogramVec
	requests        *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		pursuits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "credence",
			Name:      "pursuits_total",
			Help:      "Investigator pursuits by investigator, role and outcome.",
		}, []string{"investigator", "role", "outcome"}),
		pursuitDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "credence",
			Name:      "pursuit_duration_seconds",
			Help:      "Wall-clock time of investigator pursuits.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"investigator"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "credence",
			Name:      "resolutions_total",
			Help:      "Subject resolutions by policy and result.",
		}, []string{"policy", "result"}),
		credible: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "credence",
			Name:      "credible_contexts",
			Help:      "Number of contexts a policy kept per resolution.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8},
		}, []string{"policy"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "credence",
			Name:      "http_requests_total",
			Help:      "API requests by method and status class.",
		}, []string{"method", "code"}),
	}

	m.registry.MustRegister(
		m.pursuits,
		m.pursuitDuration,
		m.resolutions,
		m.credible,
		m.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObservePursuit(investigator, role, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.pursuits.WithLabelValues(investigator, role, outcome).Inc()
	m.pursuitDuration.WithLabelValues(investigator).Observe(d.Seconds())
}

func (m *Metrics) ObserveResolution(policy, result string, credible int) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(policy, result).Inc()
	if result == "ok" {
		m.credible.WithLabelValues(policy).Observe(float64(credible))
	}
}

// ObserveRequest counts one API request; status is bucketed to its class
// (2xx, 4xx, ...).
func (m *Metrics) ObserveRequest(method string, status int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, strconv.Itoa(status/100)+"xx").Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

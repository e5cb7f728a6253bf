package simple_dispatch

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the harness collectors. A nil *Metrics records nothing.
type Metrics struct {
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	panics       prometheus.Counter
	formFailures prometheus.Counter
	openConns    prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg. A nil
// reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "simple_dispatch",
			Name:      "requests_total",
			Help:      "Requests dispatched, by method and response status.",
		}, []string{"method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "simple_dispatch",
			Name:      "handler_duration_seconds",
			Help:      "Time spent inside the application handler.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		panics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "simple_dispatch",
			Name:      "handler_panics_total",
			Help:      "Handler invocations that panicked and were answered with 500.",
		}),
		formFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "simple_dispatch",
			Name:      "form_decode_failures_total",
			Help:      "Request bodies that were not valid URL-encoded forms.",
		}),
		openConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "simple_dispatch",
			Name:      "open_connections",
			Help:      "Connections currently tracked by the server.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.duration, m.panics, m.formFailures, m.openConns)
	}
	return m
}

func (m *Metrics) observe(method string, code int, d time.Duration) {
	if m == nil {
		return
	}
	method = methodLabel(method)
	m.requests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	m.duration.WithLabelValues(method).Observe(d.Seconds())
}

// methodLabel folds methods outside the standard set into "other" so
// clients cannot grow the label space.
func methodLabel(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodConnect,
		http.MethodOptions, http.MethodTrace:
		return method
	}
	return "other"
}

func (m *Metrics) panicked() {
	if m == nil {
		return
	}
	m.panics.Inc()
}

func (m *Metrics) formFailed() {
	if m == nil {
		return
	}
	m.formFailures.Inc()
}

func (m *Metrics) setOpenConns(n int) {
	if m == nil {
		return
	}
	m.openConns.Set(float64(n))
}

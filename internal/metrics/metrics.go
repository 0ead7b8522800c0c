package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apperrors "github.com/jrsteele09/go-line-login/internal/errors"
)

// Metrics owns a private registry so several servers (tests) can coexist.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inflight        prometheus.Gauge
	callbacksTotal  *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
	rateLimited     *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests processed",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Requests currently being served",
		}),
		callbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "login_callbacks_total",
			Help: "Login callbacks by outcome",
		}, []string{"result"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "provider_request_duration_seconds",
			Help:    "Identity provider call latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"endpoint", "outcome"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rate_limited_requests_total",
			Help: "Requests rejected by a rate limiter",
		}, []string{"limiter"}),
	}

	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.inflight,
		m.callbacksTotal,
		m.providerLatency,
		m.rateLimited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) TrackInflight() func() {
	m.inflight.Inc()
	return m.inflight.Dec
}

// ObserveProvider matches provider.Observer.
func (m *Metrics) ObserveProvider(endpoint string, elapsed time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.providerLatency.WithLabelValues(endpoint, outcome).Observe(elapsed.Seconds())
}

// ObserveCallback counts a finished callback by the kind of failure, if any.
func (m *Metrics) ObserveCallback(err error) {
	m.callbacksTotal.WithLabelValues(callbackResult(err)).Inc()
}

func (m *Metrics) ObserveRateLimited(limiter string) {
	m.rateLimited.WithLabelValues(limiter).Inc()
}

func callbackResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, apperrors.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, apperrors.ErrInvalidIDToken):
		return "invalid_id_token"
	case errors.Is(err, apperrors.ErrProviderDenied):
		return "denied"
	case errors.Is(err, apperrors.ErrMissingCode):
		return "missing_code"
	case errors.Is(err, apperrors.ErrUpstream):
		return "upstream_error"
	case errors.Is(err, apperrors.ErrSessionIO):
		return "session_error"
	default:
		return "error"
	}
}

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Load cycle outcomes.
const (
	CycleSuccess = "success"
	CycleFailure = "failure"
)

// Metrics groups the client-side collectors.
type Metrics struct {
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	SessionExpired  prometheus.Counter
	LoadCycles      *prometheus.CounterVec
	LoadDuration    prometheus.Histogram
}

// New registers the collectors on reg. A nil reg gets a private registry
// so callers that do not export metrics need no special casing.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "soxmon_client_requests_total",
			Help: "Backend requests by path and HTTP status code (0 = no response).",
		}, []string{"path", "code"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "soxmon_client_request_duration_seconds",
			Help:    "Backend request latency.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"path"}),

		SessionExpired: factory.NewCounter(prometheus.CounterOpts{
			Name: "soxmon_session_expired_total",
			Help: "Responses that ended the session with 401.",
		}),

		LoadCycles: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "soxmon_load_cycles_total",
			Help: "Dashboard load cycles by outcome.",
		}, []string{"result"}),

		LoadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "soxmon_load_cycle_duration_seconds",
			Help:    "Time from fan-out to barrier for one dashboard load.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// ObserveRequest records one finished request.
func (m *Metrics) ObserveRequest(path string, status int, elapsed time.Duration) {
	m.Requests.WithLabelValues(path, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(path).Observe(elapsed.Seconds())
}

// ObserveCycle records one finished load cycle.
func (m *Metrics) ObserveCycle(err error, elapsed time.Duration) {
	result := CycleSuccess
	if err != nil {
		result = CycleFailure
	}
	m.LoadCycles.WithLabelValues(result).Inc()
	m.LoadDuration.Observe(elapsed.Seconds())
}

// Handler serves the collectors registered on gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

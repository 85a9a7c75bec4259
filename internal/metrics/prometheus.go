package metrics

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once     sync.Once
	registry *Registry
)

// Generation results.
const (
	ResultWritten = "written"
	ResultSkipped = "skipped"
	ResultFailed  = "failed"
)

// Registry holds the service metrics.
type Registry struct {
	// DHCP metrics
	DHCPLeases     *prometheus.GaugeVec
	LeaseSyncTotal *prometheus.CounterVec
	LeasesParsed   prometheus.Counter

	// Config generation
	ConfigGenerations *prometheus.CounterVec

	// Service control
	ServiceActions *prometheus.CounterVec

	// API metrics
	APIRequests *prometheus.CounterVec
	APILatency  *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// Get returns the global metrics registry, creating it if necessary.
func Get() *Registry {
	once.Do(func() {
		registry = NewRegistry(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	})
	return registry
}

// NewRegistry registers the metrics with reg. Tests pass a fresh
// prometheus.NewRegistry() for both arguments.
func NewRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Registry {
	factory := promauto.With(reg)
	r := &Registry{gatherer: gatherer}

	r.DHCPLeases = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "monolith_dhcp_leases",
		Help: "Stored DHCP leases by derived state",
	}, []string{"state"})

	r.LeaseSyncTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "monolith_lease_sync_total",
		Help: "Lease-file reconciliation passes by outcome",
	}, []string{"result"})

	r.LeasesParsed = factory.NewCounter(prometheus.CounterOpts{
		Name: "monolith_leases_parsed_total",
		Help: "Lease blocks parsed from the lease file",
	})

	r.ConfigGenerations = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "monolith_config_generations_total",
		Help: "Configuration file generations by service and outcome",
	}, []string{"service", "result"})

	r.ServiceActions = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "monolith_service_actions_total",
		Help: "Service control actions by service, action and outcome",
	}, []string{"service", "action", "result"})

	r.APIRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "monolith_api_requests_total",
		Help: "API requests by method, route and status code",
	}, []string{"method", "route", "code"})

	r.APILatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "monolith_api_request_duration_seconds",
		Help:    "API request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

// SetLeaseCounts replaces the lease gauge with the given per-state counts.
func (r *Registry) SetLeaseCounts(counts map[string]int) {
	r.DHCPLeases.Reset()
	for state, n := range counts {
		r.DHCPLeases.WithLabelValues(state).Set(float64(n))
	}
}

// RecordLeaseSync records one reconciliation pass.
func (r *Registry) RecordLeaseSync(parsed, failed int, err error) {
	r.LeasesParsed.Add(float64(parsed))
	switch {
	case err != nil:
		r.LeaseSyncTotal.WithLabelValues("error").Inc()
	case failed > 0:
		r.LeaseSyncTotal.WithLabelValues("partial").Inc()
	default:
		r.LeaseSyncTotal.WithLabelValues("ok").Inc()
	}
}

// RecordGeneration records a config generation outcome.
func (r *Registry) RecordGeneration(service, result string) {
	r.ConfigGenerations.WithLabelValues(service, result).Inc()
}

// RecordServiceAction records a service-control call.
func (r *Registry) RecordServiceAction(service, action string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.ServiceActions.WithLabelValues(service, action, result).Inc()
}

// RecordAPIRequest records an API request.
func (r *Registry) RecordAPIRequest(method, route string, status int, duration float64) {
	r.APIRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.APILatency.WithLabelValues(method, route).Observe(duration)
}

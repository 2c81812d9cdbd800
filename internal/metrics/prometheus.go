package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder exports metrics through a dedicated registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	upstreamDuration   *prometheus.HistogramVec
	ownershipDecisions *prometheus.CounterVec
	registrations      *prometheus.CounterVec
	tenantProvisioning *prometheus.CounterVec
	catalogCache       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

// NewPrometheus creates a Recorder backed by a fresh registry that also
// carries the Go runtime and process collectors.
func NewPrometheus() *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		registry: reg,

		upstreamDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "maimweb_upstream_request_duration_seconds",
				Help:    "Duration of calls to the upstream configuration service",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"op", "outcome"},
		),

		ownershipDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maimweb_ownership_decisions_total",
				Help: "Ownership checks by resource and decision",
			},
			[]string{"resource", "decision"},
		),

		registrations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maimweb_registrations_total",
				Help: "User registrations by outcome",
			},
			[]string{"outcome"},
		),

		tenantProvisioning: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maimweb_tenant_provisioning_total",
				Help: "Tenant create and delete flows by outcome",
			},
			[]string{"op", "outcome"},
		),

		catalogCache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maimweb_catalog_cache_requests_total",
				Help: "System catalog cache lookups by result",
			},
			[]string{"result"},
		),

		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "maimweb_http_request_duration_seconds",
				Help:    "Duration of inbound HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Registry returns the underlying registry.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

// ObserveUpstreamCall records an upstream call duration by op and outcome.
func (p *PrometheusRecorder) ObserveUpstreamCall(op, outcome string, duration time.Duration) {
	p.upstreamDuration.WithLabelValues(op, outcome).Observe(duration.Seconds())
}

// IncOwnershipDecision counts an ownership decision.
func (p *PrometheusRecorder) IncOwnershipDecision(resource, decision string) {
	p.ownershipDecisions.WithLabelValues(resource, decision).Inc()
}

// IncRegistration counts a registration outcome.
func (p *PrometheusRecorder) IncRegistration(outcome string) {
	p.registrations.WithLabelValues(outcome).Inc()
}

// IncTenantProvisioning counts a tenant create or delete outcome.
func (p *PrometheusRecorder) IncTenantProvisioning(op, outcome string) {
	p.tenantProvisioning.WithLabelValues(op, outcome).Inc()
}

// IncCatalogCacheHit counts a catalog cache hit.
func (p *PrometheusRecorder) IncCatalogCacheHit() {
	p.catalogCache.WithLabelValues("hit").Inc()
}

// IncCatalogCacheMiss counts a catalog cache miss.
func (p *PrometheusRecorder) IncCatalogCacheMiss() {
	p.catalogCache.WithLabelValues("miss").Inc()
}

// ObserveHTTPRequest records an inbound request duration.
func (p *PrometheusRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	p.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

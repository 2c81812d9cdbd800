package handler

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/maimweb/backend/internal/metrics"
)

// MetricsHandler exposes metrics in the Prometheus exposition format.
// With an exporter it delegates to it; otherwise it renders an in-memory
// snapshot.
type MetricsHandler struct {
	exporter    http.Handler
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a MetricsHandler backed by a Prometheus
// exporter such as promhttp.
func NewMetricsHandler(exporter http.Handler) *MetricsHandler {
	return &MetricsHandler{exporter: exporter}
}

// NewSnapshotMetricsHandler creates a MetricsHandler that renders an
// in-memory recorder.
func NewSnapshotMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics handles GET /metrics.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.exporter != nil {
		h.exporter.ServeHTTP(w, r)
		return
	}
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeCounters(w, "maimweb_upstream_calls_total", snap.UpstreamCalls)
	writeCounters(w, "maimweb_ownership_decisions_total", snap.OwnershipDecisions)
	writeCounters(w, "maimweb_registrations_total", snap.Registrations)
	writeCounters(w, "maimweb_tenant_provisioning_total", snap.TenantProvisioning)
	writeMetric(w, "maimweb_http_requests_total %d\n", snap.HTTPRequests)
	writeMetric(w, "maimweb_http_request_duration_seconds_sum %.6f\n", float64(snap.HTTPDurationTotalNs)/1e9)
	writeMetric(w, "maimweb_upstream_call_duration_seconds_sum %.6f\n", float64(snap.UpstreamDurationTotalNs)/1e9)
	writeMetric(w, "maimweb_catalog_cache_hits_total %d\n", snap.CatalogCacheHits)
	writeMetric(w, "maimweb_catalog_cache_misses_total %d\n", snap.CatalogCacheMisses)
}

// writeCounters renders a counter family keyed by a joined label string.
func writeCounters(w http.ResponseWriter, name string, counts map[string]uint64) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeMetric(w, "%s{key=%q} %d\n", name, k, counts[k])
	}
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

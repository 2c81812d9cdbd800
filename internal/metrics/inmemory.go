package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters. Labelled counters are keyed
// by their label values joined with ":".
type Snapshot struct {
	UpstreamCalls           map[string]uint64
	UpstreamDurationTotalNs int64
	OwnershipDecisions      map[string]uint64
	Registrations           map[string]uint64
	TenantProvisioning      map[string]uint64
	CatalogCacheHits        uint64
	CatalogCacheMisses      uint64
	HTTPRequests            uint64
	HTTPDurationTotalNs     int64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	mu                 sync.Mutex
	upstreamCalls      map[string]uint64
	ownershipDecisions map[string]uint64
	registrations      map[string]uint64
	tenantProvisioning map[string]uint64

	upstreamDurationTotalNs int64
	catalogCacheHits        uint64
	catalogCacheMisses      uint64
	httpRequests            uint64
	httpDurationTotalNs     int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		upstreamCalls:      make(map[string]uint64),
		ownershipDecisions: make(map[string]uint64),
		registrations:      make(map[string]uint64),
		tenantProvisioning: make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		UpstreamCalls:           copyCounts(m.upstreamCalls),
		UpstreamDurationTotalNs: atomic.LoadInt64(&m.upstreamDurationTotalNs),
		OwnershipDecisions:      copyCounts(m.ownershipDecisions),
		Registrations:           copyCounts(m.registrations),
		TenantProvisioning:      copyCounts(m.tenantProvisioning),
		CatalogCacheHits:        atomic.LoadUint64(&m.catalogCacheHits),
		CatalogCacheMisses:      atomic.LoadUint64(&m.catalogCacheMisses),
		HTTPRequests:            atomic.LoadUint64(&m.httpRequests),
		HTTPDurationTotalNs:     atomic.LoadInt64(&m.httpDurationTotalNs),
	}
}

// ObserveUpstreamCall counts an upstream call by operation and outcome.
func (m *InMemoryRecorder) ObserveUpstreamCall(op, outcome string, duration time.Duration) {
	m.inc(m.upstreamCalls, op+":"+outcome)
	atomic.AddInt64(&m.upstreamDurationTotalNs, duration.Nanoseconds())
}

// IncOwnershipDecision counts an ownership decision.
func (m *InMemoryRecorder) IncOwnershipDecision(resource, decision string) {
	m.inc(m.ownershipDecisions, resource+":"+decision)
}

// IncRegistration counts a registration outcome.
func (m *InMemoryRecorder) IncRegistration(outcome string) {
	m.inc(m.registrations, outcome)
}

// IncTenantProvisioning counts a tenant create or delete outcome.
func (m *InMemoryRecorder) IncTenantProvisioning(op, outcome string) {
	m.inc(m.tenantProvisioning, op+":"+outcome)
}

// IncCatalogCacheHit increments cache hit counter.
func (m *InMemoryRecorder) IncCatalogCacheHit() {
	atomic.AddUint64(&m.catalogCacheHits, 1)
}

// IncCatalogCacheMiss increments cache miss counter.
func (m *InMemoryRecorder) IncCatalogCacheMiss() {
	atomic.AddUint64(&m.catalogCacheMisses, 1)
}

// ObserveHTTPRequest records a served request.
func (m *InMemoryRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	atomic.AddUint64(&m.httpRequests, 1)
	atomic.AddInt64(&m.httpDurationTotalNs, duration.Nanoseconds())
}

func (m *InMemoryRecorder) inc(counts map[string]uint64, key string) {
	m.mu.Lock()
	counts[key]++
	m.mu.Unlock()
}

func copyCounts(src map[string]uint64) map[string]uint64 {
	dst := make(map[string]uint64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

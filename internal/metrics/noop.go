package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// ObserveUpstreamCall is a no-op.
func (n *NoopRecorder) ObserveUpstreamCall(op, outcome string, duration time.Duration) {}

// IncOwnershipDecision is a no-op.
func (n *NoopRecorder) IncOwnershipDecision(resource, decision string) {}

// IncRegistration is a no-op.
func (n *NoopRecorder) IncRegistration(outcome string) {}

// IncTenantProvisioning is a no-op.
func (n *NoopRecorder) IncTenantProvisioning(op, outcome string) {}

// IncCatalogCacheHit is a no-op.
func (n *NoopRecorder) IncCatalogCacheHit() {}

// IncCatalogCacheMiss is a no-op.
func (n *NoopRecorder) IncCatalogCacheMiss() {}

// ObserveHTTPRequest is a no-op.
func (n *NoopRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {}

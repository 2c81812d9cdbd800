// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Outcome labels shared by recorders.
const (
	OutcomeOK          = "ok"
	OutcomeBusiness    = "business_error"
	OutcomeUnavailable = "unavailable"
	OutcomeConflict    = "conflict"
	OutcomeFailed      = "failed"
	OutcomeReconcile   = "reconcile_needed"
)

// Ownership decision labels.
const (
	DecisionAllow    = "allow"
	DecisionDeny     = "deny"
	DecisionNotFound = "not_found"
	DecisionError    = "error"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus or keep them in memory.
type Recorder interface {
	// Upstream proxy metrics
	ObserveUpstreamCall(op, outcome string, duration time.Duration)

	// Ownership verifier metrics
	IncOwnershipDecision(resource, decision string) // resource: "tenant", "agent", "api_key"

	// Provisioning metrics
	IncRegistration(outcome string)
	IncTenantProvisioning(op, outcome string) // op: "create" or "delete"

	// Catalog cache metrics
	IncCatalogCacheHit()
	IncCatalogCacheMiss()

	// HTTP metrics
	ObserveHTTPRequest(method, route string, status int, duration time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}

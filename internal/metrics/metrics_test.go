package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestInMemoryRecorder_Snapshot(t *testing.T) {
	m := NewInMemory()

	m.ObserveUpstreamCall("get_agent", OutcomeOK, 10*time.Millisecond)
	m.ObserveUpstreamCall("get_agent", OutcomeOK, 5*time.Millisecond)
	m.ObserveUpstreamCall("create_tenant", OutcomeUnavailable, time.Millisecond)
	m.IncOwnershipDecision("agent", DecisionDeny)
	m.IncRegistration(OutcomeConflict)
	m.IncTenantProvisioning("delete", OutcomeReconcile)
	m.IncCatalogCacheHit()
	m.IncCatalogCacheMiss()
	m.IncCatalogCacheMiss()

	snap := m.Snapshot()

	if got := snap.UpstreamCalls["get_agent:ok"]; got != 2 {
		t.Errorf("get_agent:ok = %d, want 2", got)
	}
	if got := snap.UpstreamCalls["create_tenant:unavailable"]; got != 1 {
		t.Errorf("create_tenant:unavailable = %d, want 1", got)
	}
	if snap.UpstreamDurationTotalNs != (16 * time.Millisecond).Nanoseconds() {
		t.Errorf("UpstreamDurationTotalNs = %d", snap.UpstreamDurationTotalNs)
	}
	if snap.OwnershipDecisions["agent:deny"] != 1 {
		t.Error("expected one agent deny decision")
	}
	if snap.Registrations[OutcomeConflict] != 1 {
		t.Error("expected one conflicting registration")
	}
	if snap.TenantProvisioning["delete:reconcile_needed"] != 1 {
		t.Error("expected one delete reconciliation")
	}
	if snap.CatalogCacheHits != 1 || snap.CatalogCacheMisses != 2 {
		t.Errorf("cache hits/misses = %d/%d, want 1/2", snap.CatalogCacheHits, snap.CatalogCacheMisses)
	}

	// Snapshots are copies.
	snap.UpstreamCalls["get_agent:ok"] = 99
	if m.Snapshot().UpstreamCalls["get_agent:ok"] != 2 {
		t.Error("mutating a snapshot must not affect the recorder")
	}
}

func TestPrometheusRecorder_Counters(t *testing.T) {
	p := NewPrometheus()

	p.IncOwnershipDecision("tenant", DecisionAllow)
	p.IncOwnershipDecision("tenant", DecisionAllow)
	p.IncRegistration(OutcomeOK)

	body := scrape(t, p)
	for _, want := range []string{
		`maimweb_ownership_decisions_total{decision="allow",resource="tenant"} 2`,
		`maimweb_registrations_total{outcome="ok"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestPrometheusRecorder_IndependentRegistries(t *testing.T) {
	// Two recorders must not collide on registration.
	a := NewPrometheus()
	b := NewPrometheus()
	a.IncCatalogCacheHit()

	if strings.Contains(scrape(t, b), `maimweb_catalog_cache_requests_total{result="hit"}`) {
		t.Error("second recorder saw hits from the first")
	}
}

func TestPrometheusRecorder_Handler(t *testing.T) {
	p := NewPrometheus()
	p.ObserveUpstreamCall("list_agents", OutcomeOK, 20*time.Millisecond)
	p.ObserveHTTPRequest("GET", "/api/v1/agents", 200, 30*time.Millisecond)

	body := scrape(t, p)
	for _, want := range []string{
		`maimweb_upstream_request_duration_seconds_count{op="list_agents",outcome="ok"} 1`,
		`maimweb_http_request_duration_seconds_count{method="GET",route="/api/v1/agents",status="200"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestNoopRecorder(t *testing.T) {
	r := NewNoop()
	r.ObserveUpstreamCall("x", OutcomeOK, time.Second)
	r.IncOwnershipDecision("agent", DecisionAllow)
	r.IncRegistration(OutcomeOK)
	r.ObserveHTTPRequest("GET", "/", 200, time.Second)
}

func scrape(t *testing.T, p *PrometheusRecorder) string {
	t.Helper()
	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	return string(body)
}

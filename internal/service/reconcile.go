package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/maimweb/backend/internal/model"
)

// DefaultReconcilePageSize is the upstream page size used when listing
// tenants for reconciliation.
const DefaultReconcilePageSize = 100

// TenantInventory lists every local tenant mirror.
type TenantInventory interface {
	ListAllTenantIDs(ctx context.Context) ([]string, error)
}

// TenantCatalog pages through upstream tenants.
type TenantCatalog interface {
	ListTenants(ctx context.Context, page, size int) ([]*model.RemoteTenant, int, error)
}

// ReconcileReport describes where the local ledger and the upstream service
// disagree. UpstreamOnly tenants are orphans left by failed provisioning;
// LocalOnly mirrors point at tenants deleted upstream.
type ReconcileReport struct {
	Upstream     int      `json:"upstream_tenants"`
	Local        int      `json:"local_tenants"`
	UpstreamOnly []string `json:"upstream_only"`
	LocalOnly    []string `json:"local_only"`
}

// Consistent reports whether both sides hold the same tenants.
func (r *ReconcileReport) Consistent() bool {
	return len(r.UpstreamOnly) == 0 && len(r.LocalOnly) == 0
}

// Reconciler compares tenant mirrors with the upstream service. It only
// reports; repair is left to an operator.
type Reconciler struct {
	store    TenantInventory
	upstream TenantCatalog
	pageSize int
	logger   *slog.Logger
}

// NewReconciler creates a Reconciler. a non-positive pageSize selects the default.
func NewReconciler(store TenantInventory, backend TenantCatalog, pageSize int, logger *slog.Logger) *Reconciler {
	if pageSize <= 0 {
		pageSize = DefaultReconcilePageSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{store: store, upstream: backend, pageSize: pageSize, logger: logger}
}

// Run lists both sides and returns their difference, sorted by ID.
func (r *Reconciler) Run(ctx context.Context) (*ReconcileReport, error) {
	remote, err := r.upstreamIDs(ctx)
	if err != nil {
		return nil, err
	}
	local, err := r.store.ListAllTenantIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list local tenants: %w", err)
	}

	localSet := make(map[string]struct{}, len(local))
	for _, id := range local {
		localSet[id] = struct{}{}
	}

	report := &ReconcileReport{
		Upstream:     len(remote),
		Local:        len(local),
		UpstreamOnly: []string{},
		LocalOnly:    []string{},
	}
	for id := range remote {
		if _, ok := localSet[id]; !ok {
			report.UpstreamOnly = append(report.UpstreamOnly, id)
		}
	}
	for _, id := range local {
		if _, ok := remote[id]; !ok {
			report.LocalOnly = append(report.LocalOnly, id)
		}
	}
	sort.Strings(report.UpstreamOnly)
	sort.Strings(report.LocalOnly)

	for _, id := range report.UpstreamOnly {
		r.logger.Warn("orphaned upstream tenant", slog.String("tenant_id", id), slog.String("flow", "reconcile"))
	}
	for _, id := range report.LocalOnly {
		r.logger.Warn("local tenant mirror without upstream tenant", slog.String("tenant_id", id), slog.String("flow", "reconcile"))
	}
	return report, nil
}

func (r *Reconciler) upstreamIDs(ctx context.Context) (map[string]struct{}, error) {
	ids := make(map[string]struct{})
	for page := 1; ; page++ {
		tenants, total, err := r.upstream.ListTenants(ctx, page, r.pageSize)
		if err != nil {
			return nil, fmt.Errorf("list upstream tenants page %d: %w", page, err)
		}
		for _, t := range tenants {
			if t.ID != "" {
				ids[t.ID] = struct{}{}
			}
		}
		if len(tenants) < r.pageSize || (total > 0 && page*r.pageSize >= total) {
			return ids, nil
		}
	}
}

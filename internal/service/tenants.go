package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maimweb/backend/internal/apperr"
	"github.com/maimweb/backend/internal/model"
	"github.com/maimweb/backend/internal/upstream"
)

// TenantStore is the part of the identity store TenantService needs.
type TenantStore interface {
	ListTenantsByOwner(ctx context.Context, ownerID string) ([]*model.Tenant, error)
	GetTenant(ctx context.Context, id string) (*model.Tenant, error)
	UpdateTenant(ctx context.Context, tenant *model.Tenant) error
}

// TenantService serves tenant reads and updates. Creation and deletion go
// through the Provisioner.
type TenantService struct {
	store    TenantStore
	upstream TenantBackend
	authz    Authorizer
	logger   *slog.Logger
}

// NewTenantService creates a TenantService.
func NewTenantService(store TenantStore, backend TenantBackend, authz Authorizer, logger *slog.Logger) *TenantService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TenantService{store: store, upstream: backend, authz: authz, logger: logger}
}

// ListTenants returns the tenants the user owns from the local ledger.
func (s *TenantService) ListTenants(ctx context.Context, user *model.User) ([]*model.Tenant, error) {
	tenants, err := s.store.ListTenantsByOwner(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	if tenants == nil {
		tenants = []*model.Tenant{}
	}
	return tenants, nil
}

// GetTenant returns the upstream view of a tenant the user owns.
func (s *TenantService) GetTenant(ctx context.Context, user *model.User, tenantID string) (*model.RemoteTenant, error) {
	if err := s.authz.AuthorizeTenant(ctx, user.ID, tenantID); err != nil {
		return nil, err
	}
	return s.upstream.GetTenant(ctx, tenantID)
}

// UpdateTenant updates a tenant upstream and then refreshes the local
// mirror. A stale mirror is logged; the upstream result is still returned.
func (s *TenantService) UpdateTenant(ctx context.Context, user *model.User, tenantID string, req upstream.UpdateTenantRequest) (*model.RemoteTenant, error) {
	if req.Status != nil && !model.TenantStatus(*req.Status).IsValid() {
		return nil, fmt.Errorf("%w: invalid tenant status %q", apperr.ErrInvalidInput, *req.Status)
	}
	if err := s.authz.AuthorizeTenant(ctx, user.ID, tenantID); err != nil {
		return nil, err
	}

	remote, err := s.upstream.UpdateTenant(ctx, tenantID, req)
	if err != nil {
		return nil, err
	}

	if err := s.refreshMirror(ctx, tenantID, req); err != nil {
		s.logger.Warn("tenant mirror not refreshed",
			slog.String("tenant_id", tenantID),
			slog.String("error", err.Error()),
		)
	}
	return remote, nil
}

func (s *TenantService) refreshMirror(ctx context.Context, tenantID string, req upstream.UpdateTenantRequest) error {
	tenant, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if req.Name != nil {
		tenant.Name = *req.Name
	}
	if req.Description != nil {
		tenant.Description = *req.Description
	}
	if req.Status != nil {
		tenant.Status = model.TenantStatus(*req.Status)
	}
	return s.store.UpdateTenant(ctx, tenant)
}

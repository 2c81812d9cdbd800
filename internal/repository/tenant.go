package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/maimweb/backend/internal/apperr"
	"github.com/maimweb/backend/internal/model"
)

// Common errors for tenant repository operations.
var (
	ErrTenantNotFound = fmt.Errorf("%w: tenant not found", apperr.ErrNotFound)
	ErrTenantExists   = fmt.Errorf("%w: tenant already exists", apperr.ErrConflict)
)

const tenantColumns = `id, name, owner_id, tenant_type, status, description, created_at, updated_at`

// CreateTenant inserts a tenant mirror. The ID must be the one assigned
// upstream.
func (r *Repository) CreateTenant(ctx context.Context, tenant *model.Tenant) error {
	query := `
		INSERT INTO tenants (id, name, owner_id, tenant_type, status, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	if tenant.CreatedAt.IsZero() {
		tenant.CreatedAt = time.Now().UTC()
	}
	if tenant.UpdatedAt.IsZero() {
		tenant.UpdatedAt = tenant.CreatedAt
	}

	_, err := r.db.Exec(ctx, query,
		tenant.ID,
		tenant.Name,
		tenant.OwnerID,
		tenant.Type,
		tenant.Status,
		tenant.Description,
		tenant.CreatedAt,
		tenant.UpdatedAt,
	)

	if err != nil {
		if _, ok := uniqueConstraint(err); ok {
			return ErrTenantExists
		}
		return fmt.Errorf("failed to create tenant: %w", err)
	}

	return nil
}

// GetTenant retrieves a tenant by its ID.
func (r *Repository) GetTenant(ctx context.Context, id string) (*model.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	return scanTenant(r.db.QueryRow(ctx, query, id))
}

// UpdateTenant overwrites the mutable fields of a tenant mirror.
func (r *Repository) UpdateTenant(ctx context.Context, tenant *model.Tenant) error {
	query := `
		UPDATE tenants
		SET name = $2, status = $3, description = $4, updated_at = $5
		WHERE id = $1
	`

	tenant.UpdatedAt = time.Now().UTC()
	result, err := r.db.Exec(ctx, query,
		tenant.ID,
		tenant.Name,
		tenant.Status,
		tenant.Description,
		tenant.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update tenant: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrTenantNotFound
	}

	return nil
}

// ListTenantsByOwner returns the user's tenants, oldest first.
func (r *Repository) ListTenantsByOwner(ctx context.Context, ownerID string) ([]*model.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE owner_id = $1 ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	tenants := make([]*model.Tenant, 0)
	for rows.Next() {
		tenant, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, tenant)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tenants: %w", err)
	}

	return tenants, nil
}

// ListTenantIDsByOwner returns the IDs of the user's tenants in ascending
// order.
func (r *Repository) ListTenantIDsByOwner(ctx context.Context, ownerID string) ([]string, error) {
	query := `SELECT id FROM tenants WHERE owner_id = $1 ORDER BY id`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenant ids: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan tenant id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tenant ids: %w", err)
	}

	return ids, nil
}

// ListAllTenantIDs returns the IDs of every tenant mirror in ascending
// order. It is used by reconciliation, never on a request path.
func (r *Repository) ListAllTenantIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM tenants ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenant ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan tenant ids: %w", err)
	}
	return ids, nil
}

// TenantOwnedBy reports whether the tenant exists and belongs to the user.
func (r *Repository) TenantOwnedBy(ctx context.Context, tenantID, userID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM tenants WHERE id = $1 AND owner_id = $2)`

	var owned bool
	if err := r.db.QueryRow(ctx, query, tenantID, userID).Scan(&owned); err != nil {
		return false, fmt.Errorf("failed to check tenant ownership: %w", err)
	}

	return owned, nil
}

// DeleteTenant removes a tenant mirror.
func (r *Repository) DeleteTenant(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tenant: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrTenantNotFound
	}

	return nil
}

func scanTenant(row pgx.Row) (*model.Tenant, error) {
	var tenant model.Tenant

	err := row.Scan(
		&tenant.ID,
		&tenant.Name,
		&tenant.OwnerID,
		&tenant.Type,
		&tenant.Status,
		&tenant.Description,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to scan tenant: %w", err)
	}

	return &tenant, nil
}

package upstream

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/maimweb/backend/internal/model"
)

// CreateTenantRequest is the body of POST /tenants.
type CreateTenantRequest struct {
	Name         string           `json:"tenant_name"`
	Type         model.TenantType `json:"tenant_type"`
	ContactEmail string           `json:"contact_email,omitempty"`
	Description  string           `json:"description,omitempty"`
}

// UpdateTenantRequest is the body of PUT /tenants/{id}. Nil fields are left
// unchanged.
type UpdateTenantRequest struct {
	Name         *string `json:"tenant_name,omitempty"`
	Description  *string `json:"description,omitempty"`
	ContactEmail *string `json:"contact_email,omitempty"`
	Status       *string `json:"status,omitempty"`
}

// CreateTenant creates a tenant and returns it with the assigned ID.
func (c *Client) CreateTenant(ctx context.Context, req CreateTenantRequest) (*model.RemoteTenant, error) {
	data, err := c.call(ctx, "create_tenant", http.MethodPost, "/tenants", nil, req)
	if err != nil {
		return nil, err
	}
	var t model.RemoteTenant
	if err := decodeObject(data, "tenant_id", &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTenant fetches one tenant.
func (c *Client) GetTenant(ctx context.Context, tenantID string) (*model.RemoteTenant, error) {
	data, err := c.call(ctx, "get_tenant", http.MethodGet, "/tenants/"+escape(tenantID), nil, nil)
	if err != nil {
		return nil, err
	}
	var t model.RemoteTenant
	if err := decodeObject(data, "tenant_id", &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTenants returns one page of tenants and the reported total.
func (c *Client) ListTenants(ctx context.Context, page, size int) ([]*model.RemoteTenant, int, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("size", strconv.Itoa(size))

	data, err := c.call(ctx, "list_tenants", http.MethodGet, "/tenants", query, nil)
	if err != nil {
		return nil, 0, err
	}
	return decodeList[model.RemoteTenant](data, "tenant_id")
}

// UpdateTenant applies a partial update.
func (c *Client) UpdateTenant(ctx context.Context, tenantID string, req UpdateTenantRequest) (*model.RemoteTenant, error) {
	data, err := c.call(ctx, "update_tenant", http.MethodPut, "/tenants/"+escape(tenantID), nil, req)
	if err != nil {
		return nil, err
	}
	var t model.RemoteTenant
	if err := decodeObject(data, "tenant_id", &t); err != nil {
		return nil, err
	}
	if t.ID == "" {
		t.ID = tenantID
	}
	return &t, nil
}

// DeleteTenant removes a tenant upstream.
func (c *Client) DeleteTenant(ctx context.Context, tenantID string) error {
	_, err := c.call(ctx, "delete_tenant", http.MethodDelete, "/tenants/"+escape(tenantID), nil, nil)
	return err
}

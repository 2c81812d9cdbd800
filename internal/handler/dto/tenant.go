package dto

import "github.com/maimweb/backend/internal/upstream"

// CreateTenantRequest represents the request body for creating an
// organization tenant.
type CreateTenantRequest struct {
	Name         string `json:"tenant_name"`
	Description  string `json:"description,omitempty"`
	ContactEmail string `json:"contact_email,omitempty"`
}

// UpdateTenantRequest represents the request body for updating a tenant.
type UpdateTenantRequest struct {
	Name         *string `json:"tenant_name,omitempty"`
	Description  *string `json:"description,omitempty"`
	ContactEmail *string `json:"contact_email,omitempty"`
	Status       *string `json:"status,omitempty"`
}

// ToUpstream converts the request to the upstream update body.
func (r *UpdateTenantRequest) ToUpstream() upstream.UpdateTenantRequest {
	return upstream.UpdateTenantRequest{
		Name:         r.Name,
		Description:  r.Description,
		ContactEmail: r.ContactEmail,
		Status:       r.Status,
	}
}

package model

import "time"

// TenantType distinguishes a user's personal tenant from shared ones.
type TenantType string

const (
	TenantPersonal     TenantType = "personal"
	TenantOrganization TenantType = "organization"
)

// IsValid checks if the tenant type is known.
func (t TenantType) IsValid() bool {
	return t == TenantPersonal || t == TenantOrganization
}

// TenantStatus is the lifecycle state of a tenant.
type TenantStatus string

const (
	TenantActive    TenantStatus = "active"
	TenantSuspended TenantStatus = "suspended"
)

// IsValid checks if the tenant status is known.
func (s TenantStatus) IsValid() bool {
	return s == TenantActive || s == TenantSuspended
}

// Tenant is the local mirror of an upstream tenant. Its ID is always the
// identifier assigned by the upstream configuration service.
type Tenant struct {
	ID          string       `json:"id"`
	Name        string       `json:"tenant_name"`
	OwnerID     string       `json:"owner_id"`
	Type        TenantType   `json:"tenant_type"`
	Status      TenantStatus `json:"status"`
	Description string       `json:"description,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// IsPersonal reports whether this is a user's personal tenant.
func (t *Tenant) IsPersonal() bool {
	return t.Type == TenantPersonal
}

// RemoteTenant is a tenant as reported by the upstream service.
type RemoteTenant struct {
	ID           string     `json:"id"`
	Name         string     `json:"tenant_name"`
	Type         TenantType `json:"tenant_type"`
	Status       string     `json:"status,omitempty"`
	Description  string     `json:"description,omitempty"`
	ContactEmail string     `json:"contact_email,omitempty"`
	CreatedAt    string     `json:"created_at,omitempty"`
	UpdatedAt    string     `json:"updated_at,omitempty"`
}

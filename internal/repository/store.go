package repository

import (
	"context"
	"math"

	"github.com/maimweb/backend/internal/model"
)

// IdentityStore is the authoritative local record of users and of which
// tenant belongs to which user. Every call round-trips to storage.
type IdentityStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)

	CreateTenant(ctx context.Context, tenant *model.Tenant) error
	GetTenant(ctx context.Context, id string) (*model.Tenant, error)
	UpdateTenant(ctx context.Context, tenant *model.Tenant) error
	ListTenantsByOwner(ctx context.Context, ownerID string) ([]*model.Tenant, error)
	ListTenantIDsByOwner(ctx context.Context, ownerID string) ([]string, error)
	TenantOwnedBy(ctx context.Context, tenantID, userID string) (bool, error)
	DeleteTenant(ctx context.Context, id string) error

	// WithTx runs fn against a store bound to one transaction.
	WithTx(ctx context.Context, fn func(IdentityStore) error) error
}

// AdminStore reads the records agent runtimes write. Every query is
// restricted to the agent IDs carried in the filter.
type AdminStore interface {
	ListChatHistory(ctx context.Context, filter AdminFilter) ([]*model.ChatHistory, int, error)
	ListFiles(ctx context.Context, filter AdminFilter) ([]*model.FileUpload, int, error)
	ListMetrics(ctx context.Context, filter AdminFilter) ([]*model.SystemMetric, int, error)
}

// AdminFilter selects a page of admin records. An empty AgentIDs scope
// matches nothing.
type AdminFilter struct {
	AgentIDs   []string
	MetricName string
	Page       int
	Size       int
}

// Offset returns the number of rows to skip for the filter's page. It
// saturates at math.MaxInt instead of overflowing.
func (f AdminFilter) Offset() int {
	if f.Page < 1 || f.Size < 1 {
		return 0
	}
	if f.Page-1 > math.MaxInt/f.Size {
		return math.MaxInt
	}
	return (f.Page - 1) * f.Size
}

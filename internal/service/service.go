// Package service provides business logic for the application.
package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/maimweb/backend/internal/apperr"
	"github.com/maimweb/backend/internal/model"
	"github.com/maimweb/backend/internal/upstream"
)

// Service errors.
var (
	ErrInvalidCredentials  = fmt.Errorf("%w: incorrect username or password", apperr.ErrInvalidInput)
	ErrInactiveUser        = fmt.Errorf("%w: inactive user", apperr.ErrInvalidInput)
	ErrNoTenant            = fmt.Errorf("%w: user has no tenant to create agent in", apperr.ErrInvalidInput)
	ErrPersonalTenant      = fmt.Errorf("%w: personal tenant cannot be deleted", apperr.ErrConflict)
	ErrInvalidRegistration = fmt.Errorf("%w: username and password are required", apperr.ErrInvalidInput)
)

// TenantBackend is the upstream surface for tenants.
type TenantBackend interface {
	CreateTenant(ctx context.Context, req upstream.CreateTenantRequest) (*model.RemoteTenant, error)
	GetTenant(ctx context.Context, tenantID string) (*model.RemoteTenant, error)
	UpdateTenant(ctx context.Context, tenantID string, req upstream.UpdateTenantRequest) (*model.RemoteTenant, error)
	DeleteTenant(ctx context.Context, tenantID string) error
}

// AgentBackend is the upstream surface for agents, API keys and plugin
// settings.
type AgentBackend interface {
	CreateAgent(ctx context.Context, req upstream.CreateAgentRequest) (*model.Agent, error)
	ListAgents(ctx context.Context, tenantID string) ([]*model.Agent, error)
	UpdateAgent(ctx context.Context, agentID string, req upstream.UpdateAgentRequest) (*model.Agent, error)
	DeleteAgent(ctx context.Context, agentID string) error

	CreateAPIKey(ctx context.Context, req upstream.CreateAPIKeyRequest) (*model.APIKey, error)
	ListAPIKeys(ctx context.Context, tenantID, agentID string) ([]*model.APIKey, error)
	UpdateAPIKey(ctx context.Context, keyID string, req upstream.UpdateAPIKeyRequest) (*model.APIKey, error)
	DeleteAPIKey(ctx context.Context, keyID string) error

	UpsertPluginSetting(ctx context.Context, tenantID, agentID string, setting model.PluginSetting) (*model.PluginSetting, error)
}

// CatalogBackend is the upstream surface for read-only system data.
type CatalogBackend interface {
	SystemModels(ctx context.Context) (json.RawMessage, error)
	BotDefaults(ctx context.Context) (json.RawMessage, error)
}

// Authorizer performs ownership checks. Implemented by *ownership.Verifier.
type Authorizer interface {
	AuthorizeTenant(ctx context.Context, userID, tenantID string) error
	AuthorizeAgent(ctx context.Context, userID, agentID string) (*model.Agent, error)
	AuthorizeAPIKey(ctx context.Context, userID, agentID, keyID string) (*model.Agent, *model.APIKey, error)
}

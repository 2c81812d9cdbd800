package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/maimweb/backend/internal/apperr"
	"github.com/maimweb/backend/internal/model"
	"github.com/maimweb/backend/internal/upstream"
)

// DefaultAgentLimit is used when a listing asks for no limit.
const DefaultAgentLimit = 100

// MaxAgentLimit bounds the limit a client may ask for.
const MaxAgentLimit = 1000

// TenantLister is the part of the identity store AgentService needs.
type TenantLister interface {
	ListTenantsByOwner(ctx context.Context, ownerID string) ([]*model.Tenant, error)
	ListTenantIDsByOwner(ctx context.Context, ownerID string) ([]string, error)
}

// AgentService proxies agent, API key and plugin operations to the upstream
// service after checking ownership.
type AgentService struct {
	tenants  TenantLister
	upstream AgentBackend
	authz    Authorizer
	fanout   int
	logger   *slog.Logger
}

// NewAgentService creates an AgentService. fanout bounds concurrent upstream
// calls when listing across tenants; values below one mean unbounded.
func NewAgentService(tenants TenantLister, backend AgentBackend, authz Authorizer, fanout int, logger *slog.Logger) *AgentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AgentService{
		tenants:  tenants,
		upstream: backend,
		authz:    authz,
		fanout:   fanout,
		logger:   logger,
	}
}

// ListAgents returns the agents of every tenant the user owns, ordered by
// tenant ID and then by upstream order, windowed by skip and limit. A
// failure for any tenant fails the whole listing.
func (s *AgentService) ListAgents(ctx context.Context, user *model.User, skip, limit int) ([]*model.Agent, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = DefaultAgentLimit
	}

	merged, err := s.listAll(ctx, user)
	if err != nil {
		return nil, err
	}

	if skip >= len(merged) {
		return []*model.Agent{}, nil
	}
	end := len(merged)
	if limit < end-skip {
		end = skip + limit
	}
	return merged[skip:end], nil
}

// AgentScope returns the IDs of every agent in the user's tenants.
func (s *AgentService) AgentScope(ctx context.Context, user *model.User) ([]string, error) {
	agents, err := s.listAll(ctx, user)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(agents))
	for _, a := range agents {
		ids = append(ids, a.ID)
	}
	return ids, nil
}

func (s *AgentService) listAll(ctx context.Context, user *model.User) ([]*model.Agent, error) {
	tenantIDs, err := s.tenants.ListTenantIDsByOwner(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list owned tenants: %w", err)
	}
	if len(tenantIDs) == 0 {
		return []*model.Agent{}, nil
	}

	perTenant := make([][]*model.Agent, len(tenantIDs))
	g, gctx := errgroup.WithContext(ctx)
	if s.fanout > 0 {
		g.SetLimit(s.fanout)
	}
	for i, tenantID := range tenantIDs {
		i, tenantID := i, tenantID
		g.Go(func() error {
			agents, err := s.upstream.ListAgents(gctx, tenantID)
			if err != nil {
				return fmt.Errorf("list agents for tenant %s: %w", tenantID, err)
			}
			perTenant[i] = agents
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make([]*model.Agent, 0, len(tenantIDs))
	for _, agents := range perTenant {
		merged = append(merged, agents...)
	}
	return merged, nil
}

// CreateAgentInput defines input for creating an agent. An empty TenantID
// selects the user's first tenant.
type CreateAgentInput struct {
	TenantID    string
	Name        string
	Description string
	Config      json.RawMessage
	TemplateID  string
}

// CreateAgent creates an agent in a tenant the user owns.
func (s *AgentService) CreateAgent(ctx context.Context, user *model.User, input CreateAgentInput) (*model.Agent, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: agent name is required", apperr.ErrInvalidInput)
	}

	tenantID, err := s.targetTenant(ctx, user, input.TenantID)
	if err != nil {
		return nil, err
	}

	agent, err := s.upstream.CreateAgent(ctx, upstream.CreateAgentRequest{
		TenantID:    tenantID,
		Name:        name,
		Description: input.Description,
		Config:      input.Config,
		TemplateID:  input.TemplateID,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("agent created",
		slog.String("agent_id", agent.ID),
		slog.String("tenant_id", tenantID),
		slog.String("user_id", user.ID),
	)
	return agent, nil
}

func (s *AgentService) targetTenant(ctx context.Context, user *model.User, tenantID string) (string, error) {
	if tenantID != "" {
		if err := s.authz.AuthorizeTenant(ctx, user.ID, tenantID); err != nil {
			return "", err
		}
		return tenantID, nil
	}

	tenants, err := s.tenants.ListTenantsByOwner(ctx, user.ID)
	if err != nil {
		return "", fmt.Errorf("list owned tenants: %w", err)
	}
	if len(tenants) == 0 {
		return "", ErrNoTenant
	}
	return tenants[0].ID, nil
}

// GetAgent returns an agent the user owns.
func (s *AgentService) GetAgent(ctx context.Context, user *model.User, agentID string) (*model.Agent, error) {
	return s.authz.AuthorizeAgent(ctx, user.ID, agentID)
}

// UpdateAgent updates an agent the user owns.
func (s *AgentService) UpdateAgent(ctx context.Context, user *model.User, agentID string, req upstream.UpdateAgentRequest) (*model.Agent, error) {
	if _, err := s.authz.AuthorizeAgent(ctx, user.ID, agentID); err != nil {
		return nil, err
	}
	return s.upstream.UpdateAgent(ctx, agentID, req)
}

// DeleteAgent deletes an agent the user owns.
func (s *AgentService) DeleteAgent(ctx context.Context, user *model.User, agentID string) error {
	if _, err := s.authz.AuthorizeAgent(ctx, user.ID, agentID); err != nil {
		return err
	}
	if err := s.upstream.DeleteAgent(ctx, agentID); err != nil {
		return err
	}

	s.logger.Info("agent deleted",
		slog.String("agent_id", agentID),
		slog.String("user_id", user.ID),
	)
	return nil
}

// CreateAPIKeyInput defines input for creating an API key.
type CreateAPIKeyInput struct {
	Name        string
	Description string
	Permissions []string
}

// CreateAPIKey creates a key for an agent the user owns. The tenant is
// taken from the agent, never from the caller.
func (s *AgentService) CreateAPIKey(ctx context.Context, user *model.User, agentID string, input CreateAPIKeyInput) (*model.APIKey, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: api key name is required", apperr.ErrInvalidInput)
	}

	agent, err := s.authz.AuthorizeAgent(ctx, user.ID, agentID)
	if err != nil {
		return nil, err
	}

	permissions := input.Permissions
	if permissions == nil {
		permissions = []string{}
	}

	key, err := s.upstream.CreateAPIKey(ctx, upstream.CreateAPIKeyRequest{
		TenantID:    agent.TenantID,
		AgentID:     agent.ID,
		Name:        name,
		Description: input.Description,
		Permissions: permissions,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("api key created",
		slog.String("key_id", key.ID),
		slog.String("agent_id", agent.ID),
		slog.String("user_id", user.ID),
	)
	return key, nil
}

// ListAPIKeys lists the keys of an agent the user owns.
func (s *AgentService) ListAPIKeys(ctx context.Context, user *model.User, agentID string) ([]*model.APIKey, error) {
	agent, err := s.authz.AuthorizeAgent(ctx, user.ID, agentID)
	if err != nil {
		return nil, err
	}
	keys, err := s.upstream.ListAPIKeys(ctx, agent.TenantID, agent.ID)
	if err != nil {
		return nil, err
	}
	if keys == nil {
		keys = []*model.APIKey{}
	}
	return keys, nil
}

// UpdateAPIKey updates a key belonging to an agent the user owns.
func (s *AgentService) UpdateAPIKey(ctx context.Context, user *model.User, agentID, keyID string, req upstream.UpdateAPIKeyRequest) (*model.APIKey, error) {
	if _, _, err := s.authz.AuthorizeAPIKey(ctx, user.ID, agentID, keyID); err != nil {
		return nil, err
	}
	return s.upstream.UpdateAPIKey(ctx, keyID, req)
}

// DeleteAPIKey deletes a key belonging to an agent the user owns.
func (s *AgentService) DeleteAPIKey(ctx context.Context, user *model.User, agentID, keyID string) error {
	if _, _, err := s.authz.AuthorizeAPIKey(ctx, user.ID, agentID, keyID); err != nil {
		return err
	}
	if err := s.upstream.DeleteAPIKey(ctx, keyID); err != nil {
		return err
	}

	s.logger.Info("api key deleted",
		slog.String("key_id", keyID),
		slog.String("agent_id", agentID),
		slog.String("user_id", user.ID),
	)
	return nil
}

// UpsertPluginSetting creates or replaces a plugin setting on an agent the
// user owns.
func (s *AgentService) UpsertPluginSetting(ctx context.Context, user *model.User, agentID string, setting model.PluginSetting) (*model.PluginSetting, error) {
	if strings.TrimSpace(setting.PluginName) == "" {
		return nil, fmt.Errorf("%w: plugin_name is required", apperr.ErrInvalidInput)
	}

	agent, err := s.authz.AuthorizeAgent(ctx, user.ID, agentID)
	if err != nil {
		return nil, err
	}
	return s.upstream.UpsertPluginSetting(ctx, agent.TenantID, agent.ID, setting)
}

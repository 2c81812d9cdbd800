// Package ownership decides whether a user may act on a tenant, agent or
// API key. Every decision is re-derived from the identity store and the
// upstream service; nothing is cached between calls.
package ownership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maimweb/backend/internal/apperr"
	"github.com/maimweb/backend/internal/metrics"
	"github.com/maimweb/backend/internal/model"
	"github.com/maimweb/backend/internal/upstream"
)

// Errors returned by the Verifier.
var (
	ErrDenied   = fmt.Errorf("%w: resource belongs to another user", apperr.ErrDenied)
	ErrNotFound = fmt.Errorf("%w: resource not found", apperr.ErrNotFound)
)

// TenantOwnership is the part of the identity store the Verifier needs.
type TenantOwnership interface {
	TenantOwnedBy(ctx context.Context, tenantID, userID string) (bool, error)
}

// Resolver fetches upstream resources by ID.
type Resolver interface {
	GetAgent(ctx context.Context, agentID string) (*model.Agent, error)
	GetAPIKey(ctx context.Context, keyID string) (*model.APIKey, error)
}

// Verifier performs ownership checks.
type Verifier struct {
	store    TenantOwnership
	upstream Resolver
	metrics  metrics.Recorder
	logger   *slog.Logger
}

// NewVerifier creates a Verifier.
func NewVerifier(store TenantOwnership, resolver Resolver, recorder metrics.Recorder, logger *slog.Logger) *Verifier {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{
		store:    store,
		upstream: resolver,
		metrics:  recorder,
		logger:   logger,
	}
}

// AuthorizeTenant succeeds only if the tenant exists locally and is owned
// by userID.
func (v *Verifier) AuthorizeTenant(ctx context.Context, userID, tenantID string) error {
	err := v.authorizeTenant(ctx, userID, tenantID)
	v.record("tenant", err)
	return err
}

func (v *Verifier) authorizeTenant(ctx context.Context, userID, tenantID string) error {
	if userID == "" || tenantID == "" {
		return ErrDenied
	}
	owned, err := v.store.TenantOwnedBy(ctx, tenantID, userID)
	if err != nil {
		return fmt.Errorf("check tenant ownership: %w", err)
	}
	if !owned {
		v.logger.Info("ownership denied",
			slog.String("resource", "tenant"),
			slog.String("tenant_id", tenantID),
			slog.String("user_id", userID),
		)
		return ErrDenied
	}
	return nil
}

// AuthorizeAgent resolves the agent upstream and checks that its tenant is
// owned by userID. The returned agent carries the tenant ID callers need for
// follow-up requests.
func (v *Verifier) AuthorizeAgent(ctx context.Context, userID, agentID string) (*model.Agent, error) {
	agent, err := v.authorizeAgent(ctx, userID, agentID)
	v.record("agent", err)
	return agent, err
}

func (v *Verifier) authorizeAgent(ctx context.Context, userID, agentID string) (*model.Agent, error) {
	if agentID == "" {
		return nil, ErrNotFound
	}
	agent, err := v.upstream.GetAgent(ctx, agentID)
	if err != nil {
		if errors.Is(err, upstream.ErrBusiness) {
			return nil, fmt.Errorf("%w: agent %s", ErrNotFound, agentID)
		}
		return nil, err
	}
	if agent.TenantID == "" {
		return nil, fmt.Errorf("%w: agent %s has no tenant", ErrNotFound, agentID)
	}
	if err := v.authorizeTenant(ctx, userID, agent.TenantID); err != nil {
		return nil, err
	}
	return agent, nil
}

// AuthorizeAPIKey authorizes the agent and then checks that the key is
// scoped to it. A key belonging to any other agent is reported as not found.
func (v *Verifier) AuthorizeAPIKey(ctx context.Context, userID, agentID, keyID string) (*model.Agent, *model.APIKey, error) {
	agent, key, err := v.authorizeAPIKey(ctx, userID, agentID, keyID)
	v.record("api_key", err)
	return agent, key, err
}

func (v *Verifier) authorizeAPIKey(ctx context.Context, userID, agentID, keyID string) (*model.Agent, *model.APIKey, error) {
	agent, err := v.authorizeAgent(ctx, userID, agentID)
	if err != nil {
		return nil, nil, err
	}
	if keyID == "" {
		return nil, nil, ErrNotFound
	}

	key, err := v.upstream.GetAPIKey(ctx, keyID)
	if err != nil {
		if errors.Is(err, upstream.ErrBusiness) {
			return nil, nil, fmt.Errorf("%w: api key %s", ErrNotFound, keyID)
		}
		return nil, nil, err
	}
	if !key.BelongsTo(agent) {
		v.logger.Info("api key scope mismatch",
			slog.String("api_key_id", keyID),
			slog.String("agent_id", agentID),
			slog.String("key_agent_id", key.AgentID),
		)
		return nil, nil, fmt.Errorf("%w: api key %s", ErrNotFound, keyID)
	}
	return agent, key, nil
}

func (v *Verifier) record(resource string, err error) {
	decision := metrics.DecisionAllow
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrDenied):
		decision = metrics.DecisionDeny
	case errors.Is(err, apperr.ErrNotFound):
		decision = metrics.DecisionNotFound
	default:
		decision = metrics.DecisionError
	}
	v.metrics.IncOwnershipDecision(resource, decision)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/maimweb/backend/internal/apperr"
	"github.com/maimweb/backend/internal/auth"
	"github.com/maimweb/backend/internal/metrics"
	"github.com/maimweb/backend/internal/model"
	"github.com/maimweb/backend/internal/repository"
	"github.com/maimweb/backend/internal/upstream"
)

// Provisioner keeps local users and tenant mirrors consistent with the
// tenants held upstream. There is no distributed transaction: the local
// write is held open across the upstream call and committed only after it
// succeeds.
type Provisioner struct {
	store    repository.IdentityStore
	upstream TenantBackend
	authz    Authorizer
	metrics  metrics.Recorder
	logger   *slog.Logger
	newID    func() string
}

// NewProvisioner creates a Provisioner.
func NewProvisioner(store repository.IdentityStore, backend TenantBackend, authz Authorizer, recorder metrics.Recorder, logger *slog.Logger) *Provisioner {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Provisioner{
		store:    store,
		upstream: backend,
		authz:    authz,
		metrics:  recorder,
		logger:   logger,
		newID:    NewUserID,
	}
}

// NewUserID returns a fresh opaque user identifier.
func NewUserID() string {
	return "user_" + strings.ToLower(ulid.Make().String())
}

// PersonalTenantName is the name given to a user's personal tenant.
func PersonalTenantName(username string) string {
	return username + "'s Personal Tenant"
}

// RegisterInput defines input for registering a user.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Register creates a user together with their personal tenant. Either both
// become visible or neither does.
func (p *Provisioner) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	if input.Username == "" || input.Password == "" {
		return nil, ErrInvalidRegistration
	}

	// Fail fast on duplicates before any remote side effect.
	if err := p.checkAvailable(ctx, input.Username, input.Email); err != nil {
		p.metrics.IncRegistration(registrationOutcome(err))
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
		}
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		ID:           p.newID(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		IsActive:     true,
	}

	var remote *model.RemoteTenant
	err = p.store.WithTx(ctx, func(tx repository.IdentityStore) error {
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}

		created, err := p.upstream.CreateTenant(ctx, upstream.CreateTenantRequest{
			Name:         PersonalTenantName(user.Username),
			Type:         model.TenantPersonal,
			ContactEmail: user.Email,
		})
		if err != nil {
			return fmt.Errorf("create personal tenant: %w", err)
		}
		remote = created
		if created.ID == "" {
			return fmt.Errorf("%w: tenant created without id", upstream.ErrUnavailable)
		}

		return tx.CreateTenant(ctx, &model.Tenant{
			ID:      created.ID,
			Name:    PersonalTenantName(user.Username),
			OwnerID: user.ID,
			Type:    model.TenantPersonal,
			Status:  model.TenantActive,
		})
	})
	if err != nil {
		if remote != nil {
			p.logger.Error("orphaned upstream tenant",
				slog.String("tenant_id", remote.ID),
				slog.String("username", user.Username),
				slog.String("flow", "register"),
				slog.String("error", err.Error()),
			)
			p.metrics.IncRegistration(metrics.OutcomeReconcile)
			return nil, err
		}
		p.metrics.IncRegistration(registrationOutcome(err))
		return nil, err
	}

	p.metrics.IncRegistration(metrics.OutcomeOK)
	p.logger.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("tenant_id", remote.ID),
	)
	return user, nil
}

func (p *Provisioner) checkAvailable(ctx context.Context, username, email string) error {
	if _, err := p.store.GetUserByUsername(ctx, username); err == nil {
		return repository.ErrUsernameExists
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return err
	}

	if email == "" {
		return nil
	}
	if _, err := p.store.GetUserByEmail(ctx, email); err == nil {
		return repository.ErrEmailExists
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return err
	}
	return nil
}

func registrationOutcome(err error) string {
	switch {
	case errors.Is(err, apperr.ErrConflict):
		return metrics.OutcomeConflict
	case errors.Is(err, apperr.ErrUpstreamBusiness):
		return metrics.OutcomeBusiness
	case errors.Is(err, apperr.ErrUpstreamUnavailable):
		return metrics.OutcomeUnavailable
	default:
		return metrics.OutcomeFailed
	}
}

// CreateTenantInput defines input for creating an organization tenant.
type CreateTenantInput struct {
	Name         string
	Description  string
	ContactEmail string
}

// CreateTenant creates an organization tenant upstream and mirrors it
// locally for owner.
func (p *Provisioner) CreateTenant(ctx context.Context, owner *model.User, input CreateTenantInput) (*model.Tenant, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: tenant name is required", apperr.ErrInvalidInput)
	}
	contact := input.ContactEmail
	if contact == "" {
		contact = owner.Email
	}

	remote, err := p.upstream.CreateTenant(ctx, upstream.CreateTenantRequest{
		Name:         name,
		Type:         model.TenantOrganization,
		ContactEmail: contact,
		Description:  input.Description,
	})
	if err != nil {
		p.metrics.IncTenantProvisioning("create", registrationOutcome(err))
		return nil, err
	}
	if remote.ID == "" {
		p.logger.Error("orphaned upstream tenant",
			slog.String("tenant_id", ""),
			slog.String("username", owner.Username),
			slog.String("flow", "create_tenant"),
			slog.String("error", "tenant created without id"),
		)
		p.metrics.IncTenantProvisioning("create", metrics.OutcomeReconcile)
		return nil, fmt.Errorf("%w: tenant created without id", upstream.ErrUnavailable)
	}

	tenant := &model.Tenant{
		ID:          remote.ID,
		Name:        name,
		OwnerID:     owner.ID,
		Type:        model.TenantOrganization,
		Status:      model.TenantActive,
		Description: input.Description,
	}
	if err := p.store.CreateTenant(ctx, tenant); err != nil {
		p.logger.Error("orphaned upstream tenant",
			slog.String("tenant_id", remote.ID),
			slog.String("username", owner.Username),
			slog.String("flow", "create_tenant"),
			slog.String("error", err.Error()),
		)
		p.metrics.IncTenantProvisioning("create", metrics.OutcomeReconcile)
		return nil, fmt.Errorf("mirror tenant %s: %w", remote.ID, err)
	}

	p.metrics.IncTenantProvisioning("create", metrics.OutcomeOK)
	return tenant, nil
}

// DeleteTenant deletes an owned organization tenant upstream and then its
// local mirror. Personal tenants cannot be deleted.
func (p *Provisioner) DeleteTenant(ctx context.Context, owner *model.User, tenantID string) error {
	if err := p.authz.AuthorizeTenant(ctx, owner.ID, tenantID); err != nil {
		return err
	}

	tenant, err := p.store.GetTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if tenant.IsPersonal() {
		p.metrics.IncTenantProvisioning("delete", metrics.OutcomeConflict)
		return ErrPersonalTenant
	}

	if err := p.upstream.DeleteTenant(ctx, tenantID); err != nil {
		p.metrics.IncTenantProvisioning("delete", registrationOutcome(err))
		return err
	}

	if err := p.store.DeleteTenant(ctx, tenantID); err != nil {
		p.logger.Error("local tenant mirror without upstream tenant",
			slog.String("tenant_id", tenantID),
			slog.String("username", owner.Username),
			slog.String("flow", "delete_tenant"),
			slog.String("error", err.Error()),
		)
		p.metrics.IncTenantProvisioning("delete", metrics.OutcomeReconcile)
		return fmt.Errorf("remove tenant mirror %s: %w", tenantID, err)
	}

	p.metrics.IncTenantProvisioning("delete", metrics.OutcomeOK)
	return nil
}

package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/maimweb/backend/internal/handler/dto"
	"github.com/maimweb/backend/internal/middleware"
	"github.com/maimweb/backend/internal/service"
)

// TenantHandler handles tenant endpoints. Creation and deletion go through
// the provisioner because they change the local ledger.
type TenantHandler struct {
	provisioner *service.Provisioner
	tenants     *service.TenantService
	logger      *slog.Logger
}

// NewTenantHandler creates a new TenantHandler.
func NewTenantHandler(provisioner *service.Provisioner, tenants *service.TenantService, logger *slog.Logger) *TenantHandler {
	return &TenantHandler{
		provisioner: provisioner,
		tenants:     tenants,
		logger:      logger,
	}
}

// List handles GET /tenants.
func (h *TenantHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := principal(w, r, h.logger)
	if !ok {
		return
	}

	tenants, err := h.tenants.ListTenants(r.Context(), user)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tenants)
}

// Create handles POST /tenants.
func (h *TenantHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := principal(w, r, h.logger)
	if !ok {
		return
	}

	var req dto.CreateTenantRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ContactEmail = strings.TrimSpace(req.ContactEmail)
	if err := validateAll(
		middleware.ValidateName(req.Name),
		middleware.ValidateDescription(req.Description),
		middleware.ValidateEmail(req.ContactEmail),
	); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	tenant, err := h.provisioner.CreateTenant(r.Context(), user, service.CreateTenantInput{
		Name:         req.Name,
		Description:  req.Description,
		ContactEmail: req.ContactEmail,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, tenant)
}

// Get handles GET /tenants/{id}.
func (h *TenantHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := principal(w, r, h.logger)
	if !ok {
		return
	}
	tenantID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	tenant, err := h.tenants.GetTenant(r.Context(), user, tenantID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

// Update handles PUT /tenants/{id}.
func (h *TenantHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := principal(w, r, h.logger)
	if !ok {
		return
	}
	tenantID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req dto.UpdateTenantRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name != nil {
		if err := middleware.ValidateName(*req.Name); err != nil {
			writeServiceError(w, r, h.logger, err)
			return
		}
	}
	if req.ContactEmail != nil {
		if err := middleware.ValidateEmail(*req.ContactEmail); err != nil {
			writeServiceError(w, r, h.logger, err)
			return
		}
	}

	tenant, err := h.tenants.UpdateTenant(r.Context(), user, tenantID, req.ToUpstream())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

// Delete handles DELETE /tenants/{id}.
func (h *TenantHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := principal(w, r, h.logger)
	if !ok {
		return
	}
	tenantID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.provisioner.DeleteTenant(r.Context(), user, tenantID); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	h.logger.Info("tenant_deleted", "tenant_id", tenantID, "user_id", user.ID)
	w.WriteHeader(http.StatusNoContent)
}

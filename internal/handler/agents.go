package handler

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/maimweb/backend/internal/handler/dto"
	"github.com/maimweb/backend/internal/middleware"
	"github.com/maimweb/backend/internal/service"
)

// AgentHandler handles agents, their API keys and plugin settings.
type AgentHandler struct {
	svc    *service.AgentService
	logger *slog.Logger
}

// NewAgentHandler creates a new AgentHandler.
func NewAgentHandler(svc *service.AgentService, logger *slog.Logger) *AgentHandler {
	return &AgentHandler{
		svc:    svc,
		logger: logger,
	}
}

// List handles GET /agents.
func (h *AgentHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := principal(w, r, h.logger)
	if !ok {
		return
	}

	skip, ok := queryInt(w, r, "skip", 0, math.MaxInt)
	if !ok {
		return
	}
	limit, ok := queryInt(w, r, "limit", service.DefaultAgentLimit, service.MaxAgentLimit)
	if !ok {
		return
	}

	agents, err := h.svc.ListAgents(r.Context(), user, skip, limit)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, agents)
}

// Create handles POST /agents.
func (h *AgentHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := principal(w, r, h.logger)
	if !ok {
		return
	}

	var req dto.CreateAgentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validateAll(
		middleware.ValidateName(req.Name),
		middleware.ValidateDescription(req.Description),
	); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if req.TenantID != "" {
		if err := middleware.ValidateIdentifier(req.TenantID); err != nil {
			writeServiceError(w, r, h.logger, err)
			return
		}
	}

	agent, err := h.svc.CreateAgent(r.Context(), user, service.CreateAgentInput{
		TenantID:    req.TenantID,
		Name:        req.Name,
		Description: req.Description,
		Config:      req.Config,
		TemplateID:  req.TemplateID,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, agent)
}

// Get handles GET /agents/{id}.
func (h *AgentHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := principal(w, r, h.logger)
	if !ok {
		return
	}
	agentID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	agent, err := h.svc.GetAgent(r.Context(), user, agentID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

// Update handles PUT /agents/{id}.
func (h *AgentHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := principal(w, r, h.logger)
	if !ok {
		return
	}
	agentID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req dto.UpdateAgentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name != nil {
		if err := middleware.ValidateName(*req.Name); err != nil {
			writeServiceError(w, r, h.logger, err)
			return
		}
	}
	if req.Description != nil {
		if err := middleware.ValidateDescription(*req.Description); err != nil {
			writeServiceError(w, r, h.logger, err)
			return
		}
	}

	agent, err := h.svc.UpdateAgent(r.Context(), user, agentID, req.ToUpstream())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

// Delete handles DELETE /agents/{id}.
func (h *AgentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := principal(w, r, h.logger)
	if !ok {
		return
	}
	agentID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteAgent(r.Context(), user, agentID); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateAPIKey handles POST /agents/{id}/api_keys.
func (h *AgentHandler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	user, ok := principal(w, r, h.logger)
	if !ok {
		return
	}
	agentID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req dto.CreateAPIKeyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validateAll(
		middleware.ValidateName(req.Name),
		middleware.ValidateDescription(req.Description),
		middleware.ValidatePermissions(req.Permissions),
	); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	key, err := h.svc.CreateAPIKey(r.Context(), user, agentID, service.CreateAPIKeyInput{
		Name:        req.Name,
		Description: req.Description,
		Permissions: req.Permissions,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusCreated, key)
}

// ListAPIKeys handles GET /agents/{id}/api_keys.
func (h *AgentHandler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	user, ok := principal(w, r, h.logger)
	if !ok {
		return
	}
	agentID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	keys, err := h.svc.ListAPIKeys(r.Context(), user, agentID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, keys)
}

// UpdateAPIKey handles PUT /agents/{id}/api_keys/{key_id}.
func (h *AgentHandler) UpdateAPIKey(w http.ResponseWriter, r *http.Request) {
	user, ok := principal(w, r, h.logger)
	if !ok {
		return
	}
	agentID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	keyID, ok := pathID(w, r, "key_id")
	if !ok {
		return
	}

	var req dto.UpdateAPIKeyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name != nil {
		if err := middleware.ValidateName(*req.Name); err != nil {
			writeServiceError(w, r, h.logger, err)
			return
		}
	}
	if req.Permissions != nil {
		if err := middleware.ValidatePermissions(*req.Permissions); err != nil {
			writeServiceError(w, r, h.logger, err)
			return
		}
	}

	key, err := h.svc.UpdateAPIKey(r.Context(), user, agentID, keyID, req.ToUpstream())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, key)
}

// DeleteAPIKey handles DELETE /agents/{id}/api_keys/{key_id}.
func (h *AgentHandler) DeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	user, ok := principal(w, r, h.logger)
	if !ok {
		return
	}
	agentID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	keyID, ok := pathID(w, r, "key_id")
	if !ok {
		return
	}

	if err := h.svc.DeleteAPIKey(r.Context(), user, agentID, keyID); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpsertPluginSetting handles POST /plugins/settings?agent_id=.
func (h *AgentHandler) UpsertPluginSetting(w http.ResponseWriter, r *http.Request) {
	user, ok := principal(w, r, h.logger)
	if !ok {
		return
	}
	agentID := r.URL.Query().Get("agent_id")
	if err := middleware.ValidateIdentifier(agentID); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "agent_id query parameter is required")
		return
	}

	var req dto.PluginSettingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	setting, err := h.svc.UpsertPluginSetting(r.Context(), user, agentID, req.ToModel())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, setting)
}

// pathID reads and validates a URL parameter naming a resource.
func pathID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id := chi.URLParam(r, name)
	if err := middleware.ValidateIdentifier(id); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid "+name)
		return "", false
	}
	return id, true
}

// queryInt parses an optional integer query parameter in [0, max].
func queryInt(w http.ResponseWriter, r *http.Request, name string, fallback, max int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", name+" must be a non-negative integer")
		return 0, false
	}
	if n > max {
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", fmt.Sprintf("%s must be at most %d", name, max))
		return 0, false
	}
	return n, true
}

// validateAll returns the first non-nil error.
func validateAll(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

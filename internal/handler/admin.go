package handler

import (
	"log/slog"
	"math"
	"net/http"

	"github.com/maimweb/backend/internal/middleware"
	"github.com/maimweb/backend/internal/service"
)

// AdminHandler serves paginated agent activity records.
type AdminHandler struct {
	svc    *service.AdminService
	logger *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(svc *service.AdminService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, logger: logger}
}

// ChatHistory handles GET /admin/chat-history.
func (h *AdminHandler) ChatHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := principal(w, r, h.logger)
	if !ok {
		return
	}
	q, ok := h.query(w, r)
	if !ok {
		return
	}

	page, err := h.svc.ChatHistory(r.Context(), user, q)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Files handles GET /admin/files.
func (h *AdminHandler) Files(w http.ResponseWriter, r *http.Request) {
	user, ok := principal(w, r, h.logger)
	if !ok {
		return
	}
	q, ok := h.query(w, r)
	if !ok {
		return
	}

	page, err := h.svc.Files(r.Context(), user, q)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Metrics handles GET /admin/metrics.
func (h *AdminHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	user, ok := principal(w, r, h.logger)
	if !ok {
		return
	}
	q, ok := h.query(w, r)
	if !ok {
		return
	}
	q.MetricName = r.URL.Query().Get("metric_name")

	page, err := h.svc.Metrics(r.Context(), user, q)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *AdminHandler) query(w http.ResponseWriter, r *http.Request) (service.AdminQuery, bool) {
	page, ok := queryInt(w, r, "page", 1, math.MaxInt)
	if !ok {
		return service.AdminQuery{}, false
	}
	size, ok := queryInt(w, r, "size", service.DefaultPageSize, service.MaxPageSize)
	if !ok {
		return service.AdminQuery{}, false
	}

	agentID := r.URL.Query().Get("agent_id")
	if agentID != "" {
		if err := middleware.ValidateIdentifier(agentID); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_QUERY", "Invalid agent_id")
			return service.AdminQuery{}, false
		}
	}

	return service.AdminQuery{
		AgentID: agentID,
		Page:    page,
		Size:    size,
	}, true
}

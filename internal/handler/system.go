package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/maimweb/backend/internal/service"
)

// SystemHandler serves the read-only system catalog.
type SystemHandler struct {
	catalog *service.CatalogService
	logger  *slog.Logger
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(catalog *service.CatalogService, logger *slog.Logger) *SystemHandler {
	return &SystemHandler{catalog: catalog, logger: logger}
}

// Models handles GET /system/models.
func (h *SystemHandler) Models(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.catalog.SystemModels)
}

// BotDefaults handles GET /system/bot-defaults.
func (h *SystemHandler) BotDefaults(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.catalog.BotDefaults)
}

func (h *SystemHandler) serve(w http.ResponseWriter, r *http.Request, fetch func(context.Context) (json.RawMessage, error)) {
	payload, err := fetch(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

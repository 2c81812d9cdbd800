package dto

import (
	"encoding/json"

	"github.com/maimweb/backend/internal/model"
	"github.com/maimweb/backend/internal/upstream"
)

// CreateAgentRequest represents the request body for creating an agent.
// TenantID is optional; the caller's personal tenant is used when empty.
type CreateAgentRequest struct {
	TenantID    string          `json:"tenant_id,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Config      json.RawMessage `json:"config,omitempty"`
	TemplateID  string          `json:"template_id,omitempty"`
}

// UpdateAgentRequest represents the request body for updating an agent.
type UpdateAgentRequest struct {
	Name        *string         `json:"name,omitempty"`
	Description *string         `json:"description,omitempty"`
	Config      json.RawMessage `json:"config,omitempty"`
	TemplateID  *string         `json:"template_id,omitempty"`
	Status      *string         `json:"status,omitempty"`
}

// ToUpstream converts the request to the upstream update body.
func (r *UpdateAgentRequest) ToUpstream() upstream.UpdateAgentRequest {
	return upstream.UpdateAgentRequest{
		Name:        r.Name,
		Description: r.Description,
		Config:      r.Config,
		TemplateID:  r.TemplateID,
		Status:      r.Status,
	}
}

// CreateAPIKeyRequest represents the request body for creating an API key.
type CreateAPIKeyRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Permissions []string `json:"permissions"`
}

// UpdateAPIKeyRequest represents the request body for updating an API key.
type UpdateAPIKeyRequest struct {
	Name        *string   `json:"name,omitempty"`
	Description *string   `json:"description,omitempty"`
	Status      *string   `json:"status,omitempty"`
	Permissions *[]string `json:"permissions,omitempty"`
}

// ToUpstream converts the request to the upstream update body.
func (r *UpdateAPIKeyRequest) ToUpstream() upstream.UpdateAPIKeyRequest {
	return upstream.UpdateAPIKeyRequest{
		Name:        r.Name,
		Description: r.Description,
		Status:      r.Status,
		Permissions: r.Permissions,
	}
}

// PluginSettingRequest represents the body of a plugin setting upsert.
type PluginSettingRequest struct {
	PluginName string          `json:"plugin_name"`
	Enabled    bool            `json:"enabled"`
	Config     json.RawMessage `json:"config,omitempty"`
}

// ToModel converts the request to a plugin setting. A missing config is
// sent as an empty object.
func (r *PluginSettingRequest) ToModel() model.PluginSetting {
	config := r.Config
	if len(config) == 0 {
		config = json.RawMessage(`{}`)
	}
	return model.PluginSetting{
		PluginName: r.PluginName,
		Enabled:    r.Enabled,
		Config:     config,
	}
}

package model

import "encoding/json"

// Agent is a configured bot owned by exactly one tenant. Agents live
// upstream; the local service only references them by ID.
type Agent struct {
	ID          string          `json:"id"`
	TenantID    string          `json:"tenant_id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Config      json.RawMessage `json:"config,omitempty"`
	TemplateID  string          `json:"template_id,omitempty"`
	Status      string          `json:"status"`
	CreatedAt   string          `json:"created_at,omitempty"`
	UpdatedAt   string          `json:"updated_at,omitempty"`
}

// PluginSetting is the per-agent configuration of one plugin.
type PluginSetting struct {
	PluginName string          `json:"plugin_name"`
	Enabled    bool            `json:"enabled"`
	Config     json.RawMessage `json:"config"`
}

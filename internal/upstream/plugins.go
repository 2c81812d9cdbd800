package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/maimweb/backend/internal/model"
)

type pluginSettingBody struct {
	TenantID   string          `json:"tenant_id"`
	AgentID    string          `json:"agent_id"`
	PluginName string          `json:"plugin_name"`
	Enabled    bool            `json:"enabled"`
	Config     json.RawMessage `json:"config"`
}

// UpsertPluginSetting creates or replaces the setting addressed by
// (tenantID, agentID, setting.PluginName).
func (c *Client) UpsertPluginSetting(ctx context.Context, tenantID, agentID string, setting model.PluginSetting) (*model.PluginSetting, error) {
	cfg := setting.Config
	if len(cfg) == 0 {
		cfg = json.RawMessage(`{}`)
	}
	body := pluginSettingBody{
		TenantID:   tenantID,
		AgentID:    agentID,
		PluginName: setting.PluginName,
		Enabled:    setting.Enabled,
		Config:     cfg,
	}

	data, err := c.call(ctx, "upsert_plugin_setting", http.MethodPost, "/plugin-settings", nil, body)
	if err != nil {
		return nil, err
	}

	out := model.PluginSetting{PluginName: setting.PluginName, Enabled: setting.Enabled, Config: cfg}
	if len(data) > 0 && data[0] == '{' {
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("%w: decode payload: %v", ErrUnavailable, err)
		}
	}
	return &out, nil
}

package upstream

import (
	"context"
	"encoding/json"
	"net/http"
)

// SystemModels returns the model catalog as opaque JSON.
func (c *Client) SystemModels(ctx context.Context) (json.RawMessage, error) {
	return c.call(ctx, "system_models", http.MethodGet, "/system/models", nil, nil)
}

// BotDefaults returns the default bot configuration as opaque JSON.
func (c *Client) BotDefaults(ctx context.Context) (json.RawMessage, error) {
	return c.call(ctx, "bot_defaults", http.MethodGet, "/system/bot-defaults", nil, nil)
}

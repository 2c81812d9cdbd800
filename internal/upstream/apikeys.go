package upstream

import (
	"context"
	"net/http"
	"net/url"

	"github.com/maimweb/backend/internal/model"
)

// CreateAPIKeyRequest is the body of POST /api-keys.
type CreateAPIKeyRequest struct {
	TenantID    string   `json:"tenant_id"`
	AgentID     string   `json:"agent_id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Permissions []string `json:"permissions"`
}

// UpdateAPIKeyRequest is the body of PUT /api-keys/{id}. Nil fields are
// left unchanged.
type UpdateAPIKeyRequest struct {
	Name        *string   `json:"name,omitempty"`
	Description *string   `json:"description,omitempty"`
	Status      *string   `json:"status,omitempty"`
	Permissions *[]string `json:"permissions,omitempty"`
}

// CreateAPIKey creates a key for one agent.
func (c *Client) CreateAPIKey(ctx context.Context, req CreateAPIKeyRequest) (*model.APIKey, error) {
	if req.Permissions == nil {
		req.Permissions = []string{}
	}
	data, err := c.call(ctx, "create_api_key", http.MethodPost, "/api-keys", nil, req)
	if err != nil {
		return nil, err
	}
	var k model.APIKey
	if err := decodeObject(data, "api_key_id", &k); err != nil {
		return nil, err
	}
	fillKeyScope(&k, req.TenantID, req.AgentID)
	return &k, nil
}

// GetAPIKey fetches one key.
func (c *Client) GetAPIKey(ctx context.Context, keyID string) (*model.APIKey, error) {
	data, err := c.call(ctx, "get_api_key", http.MethodGet, "/api-keys/"+escape(keyID), nil, nil)
	if err != nil {
		return nil, err
	}
	var k model.APIKey
	if err := decodeObject(data, "api_key_id", &k); err != nil {
		return nil, err
	}
	return &k, nil
}

// ListAPIKeys returns the keys of one agent.
func (c *Client) ListAPIKeys(ctx context.Context, tenantID, agentID string) ([]*model.APIKey, error) {
	query := url.Values{}
	query.Set("tenant_id", tenantID)
	if agentID != "" {
		query.Set("agent_id", agentID)
	}

	data, err := c.call(ctx, "list_api_keys", http.MethodGet, "/api-keys", query, nil)
	if err != nil {
		return nil, err
	}
	keys, _, err := decodeList[model.APIKey](data, "api_key_id")
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		fillKeyScope(k, tenantID, agentID)
	}
	return keys, nil
}

// UpdateAPIKey applies a partial update.
func (c *Client) UpdateAPIKey(ctx context.Context, keyID string, req UpdateAPIKeyRequest) (*model.APIKey, error) {
	data, err := c.call(ctx, "update_api_key", http.MethodPut, "/api-keys/"+escape(keyID), nil, req)
	if err != nil {
		return nil, err
	}
	var k model.APIKey
	if err := decodeObject(data, "api_key_id", &k); err != nil {
		return nil, err
	}
	if k.ID == "" {
		k.ID = keyID
	}
	return &k, nil
}

// DeleteAPIKey removes a key upstream.
func (c *Client) DeleteAPIKey(ctx context.Context, keyID string) error {
	_, err := c.call(ctx, "delete_api_key", http.MethodDelete, "/api-keys/"+escape(keyID), nil, nil)
	return err
}

// fillKeyScope fills scope fields the upstream omitted from a response to
// a request that was already scoped.
func fillKeyScope(k *model.APIKey, tenantID, agentID string) {
	if k.TenantID == "" {
		k.TenantID = tenantID
	}
	if k.AgentID == "" {
		k.AgentID = agentID
	}
	if k.Permissions == nil {
		k.Permissions = []string{}
	}
}

package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/maimweb/backend/internal/model"
)

// CreateAgentRequest is the body of POST /agents.
type CreateAgentRequest struct {
	TenantID    string          `json:"tenant_id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Config      json.RawMessage `json:"config,omitempty"`
	TemplateID  string          `json:"template_id,omitempty"`
}

// UpdateAgentRequest is the body of PUT /agents/{id}. Nil fields are left
// unchanged.
type UpdateAgentRequest struct {
	Name        *string         `json:"name,omitempty"`
	Description *string         `json:"description,omitempty"`
	Config      json.RawMessage `json:"config,omitempty"`
	TemplateID  *string         `json:"template_id,omitempty"`
	Status      *string         `json:"status,omitempty"`
}

// CreateAgent creates an agent in the given tenant.
func (c *Client) CreateAgent(ctx context.Context, req CreateAgentRequest) (*model.Agent, error) {
	data, err := c.call(ctx, "create_agent", http.MethodPost, "/agents", nil, req)
	if err != nil {
		return nil, err
	}
	var a model.Agent
	if err := decodeObject(data, "agent_id", &a); err != nil {
		return nil, err
	}
	if a.TenantID == "" {
		a.TenantID = req.TenantID
	}
	return &a, nil
}

// GetAgent fetches one agent.
func (c *Client) GetAgent(ctx context.Context, agentID string) (*model.Agent, error) {
	data, err := c.call(ctx, "get_agent", http.MethodGet, "/agents/"+escape(agentID), nil, nil)
	if err != nil {
		return nil, err
	}
	var a model.Agent
	if err := decodeObject(data, "agent_id", &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAgents returns the agents of one tenant in upstream order.
func (c *Client) ListAgents(ctx context.Context, tenantID string) ([]*model.Agent, error) {
	query := url.Values{}
	query.Set("tenant_id", tenantID)

	data, err := c.call(ctx, "list_agents", http.MethodGet, "/agents", query, nil)
	if err != nil {
		return nil, err
	}
	agents, _, err := decodeList[model.Agent](data, "agent_id")
	return agents, err
}

// UpdateAgent applies a partial update.
func (c *Client) UpdateAgent(ctx context.Context, agentID string, req UpdateAgentRequest) (*model.Agent, error) {
	data, err := c.call(ctx, "update_agent", http.MethodPut, "/agents/"+escape(agentID), nil, req)
	if err != nil {
		return nil, err
	}
	var a model.Agent
	if err := decodeObject(data, "agent_id", &a); err != nil {
		return nil, err
	}
	if a.ID == "" {
		a.ID = agentID
	}
	return &a, nil
}

// DeleteAgent removes an agent upstream.
func (c *Client) DeleteAgent(ctx context.Context, agentID string) error {
	_, err := c.call(ctx, "delete_agent", http.MethodDelete, "/agents/"+escape(agentID), nil, nil)
	return err
}

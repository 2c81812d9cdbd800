package model

// APIKey is a credential scoped to one agent. Keys live upstream.
type APIKey struct {
	ID          string   `json:"id"`
	TenantID    string   `json:"tenant_id"`
	AgentID     string   `json:"agent_id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Key         string   `json:"api_key"`
	Permissions []string `json:"permissions"`
	Status      string   `json:"status"`
	CreatedAt   string   `json:"created_at,omitempty"`
	LastUsedAt  string   `json:"last_used_at,omitempty"`
	ExpiresAt   string   `json:"expires_at,omitempty"`
}

// BelongsTo reports whether the key is scoped to the given agent.
func (k *APIKey) BelongsTo(agent *Agent) bool {
	return k.AgentID == agent.ID && k.TenantID == agent.TenantID
}

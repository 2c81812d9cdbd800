package service

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maimweb/backend/internal/apperr"
	"github.com/maimweb/backend/internal/model"
	"github.com/maimweb/backend/internal/upstream"
)

func TestAgentAndKeyLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	personal := env.personalTenant(t, alice)

	agent, err := env.agents.CreateAgent(ctx, alice, CreateAgentInput{Name: "Bot1"})
	require.NoError(t, err)
	assert.Equal(t, personal.ID, agent.TenantID)
	assert.NotEmpty(t, agent.ID)

	key, err := env.agents.CreateAPIKey(ctx, alice, agent.ID, CreateAPIKeyInput{
		Name:        "default",
		Permissions: []string{"chat"},
	})
	require.NoError(t, err)
	assert.Equal(t, agent.ID, key.AgentID)
	assert.Equal(t, personal.ID, key.TenantID)

	keys, err := env.agents.ListAPIKeys(ctx, alice, agent.ID)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, key.ID, keys[0].ID)
	assert.Equal(t, []string{"chat"}, keys[0].Permissions)

	require.NoError(t, env.agents.DeleteAPIKey(ctx, alice, agent.ID, key.ID))

	keys, err = env.agents.ListAPIKeys(ctx, alice, agent.ID)
	require.NoError(t, err)
	assert.Empty(t, keys)
	assert.NotNil(t, keys)
}

func TestAgentService_OtherUserIsDenied(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	carol := env.register(t, "carol")

	agent, err := env.agents.CreateAgent(ctx, alice, CreateAgentInput{Name: "Bot1"})
	require.NoError(t, err)
	key, err := env.agents.CreateAPIKey(ctx, alice, agent.ID, CreateAPIKeyInput{Name: "k"})
	require.NoError(t, err)

	_, err = env.agents.GetAgent(ctx, carol, agent.ID)
	assert.ErrorIs(t, err, apperr.ErrDenied)

	name := "stolen"
	_, err = env.agents.UpdateAgent(ctx, carol, agent.ID, upstream.UpdateAgentRequest{Name: &name})
	assert.ErrorIs(t, err, apperr.ErrDenied)

	assert.ErrorIs(t, env.agents.DeleteAgent(ctx, carol, agent.ID), apperr.ErrDenied)

	_, err = env.agents.CreateAPIKey(ctx, carol, agent.ID, CreateAPIKeyInput{Name: "k"})
	assert.ErrorIs(t, err, apperr.ErrDenied)

	_, err = env.agents.ListAPIKeys(ctx, carol, agent.ID)
	assert.ErrorIs(t, err, apperr.ErrDenied)

	assert.ErrorIs(t, env.agents.DeleteAPIKey(ctx, carol, agent.ID, key.ID), apperr.ErrDenied)

	_, err = env.agents.UpsertPluginSetting(ctx, carol, agent.ID, model.PluginSetting{PluginName: "web_search"})
	assert.ErrorIs(t, err, apperr.ErrDenied)

	// Nothing reached the upstream mutations.
	assert.Zero(t, env.fake.Calls("update_agent"))
	assert.Zero(t, env.fake.Calls("delete_agent"))
	assert.Zero(t, env.fake.Calls("delete_api_key"))
	assert.Equal(t, 1, env.fake.Calls("create_api_key"))

	got, err := env.agents.GetAgent(ctx, alice, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bot1", got.Name)
}

func TestAgentService_UpdateAndDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")

	agent, err := env.agents.CreateAgent(ctx, alice, CreateAgentInput{Name: "Bot1", Config: json.RawMessage(`{"model":"gpt-4o"}`)})
	require.NoError(t, err)

	name := "Bot2"
	updated, err := env.agents.UpdateAgent(ctx, alice, agent.ID, upstream.UpdateAgentRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Bot2", updated.Name)
	assert.Equal(t, agent.ID, updated.ID)

	require.NoError(t, env.agents.DeleteAgent(ctx, alice, agent.ID))

	_, err = env.agents.GetAgent(ctx, alice, agent.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAgentService_KeyMustBelongToAgent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")

	a1, err := env.agents.CreateAgent(ctx, alice, CreateAgentInput{Name: "Bot1"})
	require.NoError(t, err)
	a2, err := env.agents.CreateAgent(ctx, alice, CreateAgentInput{Name: "Bot2"})
	require.NoError(t, err)
	key, err := env.agents.CreateAPIKey(ctx, alice, a1.ID, CreateAPIKeyInput{Name: "k"})
	require.NoError(t, err)

	status := "revoked"
	_, err = env.agents.UpdateAPIKey(ctx, alice, a2.ID, key.ID, upstream.UpdateAPIKeyRequest{Status: &status})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	updated, err := env.agents.UpdateAPIKey(ctx, alice, a1.ID, key.ID, upstream.UpdateAPIKeyRequest{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, "revoked", updated.Status)
}

func TestCreateAgent_TargetTenant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	carol := env.register(t, "carol")

	org, err := env.provisioner.CreateTenant(ctx, alice, CreateTenantInput{Name: "Acme"})
	require.NoError(t, err)

	agent, err := env.agents.CreateAgent(ctx, alice, CreateAgentInput{TenantID: org.ID, Name: "OrgBot"})
	require.NoError(t, err)
	assert.Equal(t, org.ID, agent.TenantID)

	_, err = env.agents.CreateAgent(ctx, carol, CreateAgentInput{TenantID: org.ID, Name: "Intruder"})
	assert.ErrorIs(t, err, apperr.ErrDenied)

	_, err = env.agents.CreateAgent(ctx, alice, CreateAgentInput{Name: " "})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	loner := &model.User{ID: NewUserID(), Username: "loner", IsActive: true}
	require.NoError(t, env.store.CreateUser(ctx, loner))
	_, err = env.agents.CreateAgent(ctx, loner, CreateAgentInput{Name: "Bot"})
	assert.ErrorIs(t, err, ErrNoTenant)
}

func TestListAgents_MergesTenantsInOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	personal := env.personalTenant(t, alice)
	org, err := env.provisioner.CreateTenant(ctx, alice, CreateTenantInput{Name: "Acme"})
	require.NoError(t, err)
	require.Less(t, personal.ID, org.ID)

	env.fake.SeedAgent(org.ID, "o1")
	env.fake.SeedAgent(personal.ID, "p1")
	env.fake.SeedAgent(org.ID, "o2")

	carol := env.register(t, "carol")
	env.fake.SeedAgent(env.personalTenant(t, carol).ID, "c1")

	names := func(agents []*model.Agent) []string {
		out := make([]string, 0, len(agents))
		for _, a := range agents {
			out = append(out, a.Name)
		}
		return out
	}

	all, err := env.agents.ListAgents(ctx, alice, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "o1", "o2"}, names(all))

	page, err := env.agents.ListAgents(ctx, alice, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"o1"}, names(page))

	beyond, err := env.agents.ListAgents(ctx, alice, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, beyond)

	scope, err := env.agents.AgentScope(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, scope, 3)
}

func TestListAgents_Window(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	tenantID := env.personalTenant(t, alice).ID
	env.fake.SeedAgent(tenantID, "a1")
	env.fake.SeedAgent(tenantID, "a2")

	tests := []struct {
		name        string
		skip, limit int
		want        int
	}{
		{"zero limit uses default", 0, 0, 2},
		{"first page", 0, 1, 1},
		{"huge limit", 1, math.MaxInt, 1},
		{"skip past end", 5, 1, 0},
		{"huge skip and limit", math.MaxInt, math.MaxInt, 0},
		{"negative skip", -3, 10, 2},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			agents, err := env.agents.ListAgents(context.Background(), alice, tt.skip, tt.limit)
			require.NoError(t, err)
			assert.Len(t, agents, tt.want)
		})
	}
}

func TestListAgents_AnyTenantFailureFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	_, err := env.provisioner.CreateTenant(ctx, alice, CreateTenantInput{Name: "Acme"})
	require.NoError(t, err)

	env.fake.FailNext("list_agents", http.StatusBadGateway, "")
	_, err = env.agents.ListAgents(ctx, alice, 0, 10)
	assert.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)
}

func TestListAgents_NoTenants(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	loner := &model.User{ID: NewUserID(), Username: "loner", IsActive: true}
	require.NoError(t, env.store.CreateUser(ctx, loner))

	agents, err := env.agents.ListAgents(ctx, loner, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, agents)
	assert.Zero(t, env.fake.Calls("list_agents"))
}

func TestUpsertPluginSetting(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	agent, err := env.agents.CreateAgent(ctx, alice, CreateAgentInput{Name: "Bot1"})
	require.NoError(t, err)

	setting, err := env.agents.UpsertPluginSetting(ctx, alice, agent.ID, model.PluginSetting{
		PluginName: "web_search",
		Enabled:    true,
		Config:     json.RawMessage(`{"engine":"bing"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "web_search", setting.PluginName)
	assert.True(t, setting.Enabled)

	stored, ok := env.fake.PluginConfig(agent.ID, "web_search")
	require.True(t, ok)
	assert.JSONEq(t, `{"engine":"bing"}`, string(stored))

	_, err = env.agents.UpsertPluginSetting(ctx, alice, agent.ID, model.PluginSetting{})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

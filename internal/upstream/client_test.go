package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maimweb/backend/internal/apperr"
	"github.com/maimweb/backend/internal/metrics"
	"github.com/maimweb/backend/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *metrics.InMemoryRecorder) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	rec := metrics.NewInMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(Config{BaseURL: srv.URL + "/", Timeout: 2 * time.Second}, rec, logger), rec
}

func writeEnvelope(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestClient_CreateTenant_NormalizesID(t *testing.T) {
	var got map[string]any
	client, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/tenants", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeEnvelope(w, http.StatusOK, `{"success":true,"data":{"tenant_id":"t-123","tenant_name":"alice's Personal Tenant","tenant_type":"personal"}}`)
	})

	tenant, err := client.CreateTenant(context.Background(), CreateTenantRequest{
		Name:         "alice's Personal Tenant",
		Type:         model.TenantPersonal,
		ContactEmail: "alice@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "t-123", tenant.ID)
	assert.Equal(t, model.TenantPersonal, tenant.Type)

	assert.Equal(t, "alice's Personal Tenant", got["tenant_name"])
	assert.Equal(t, "personal", got["tenant_type"])
	assert.Equal(t, "alice@example.com", got["contact_email"])

	assert.Equal(t, uint64(1), rec.Snapshot().UpstreamCalls["create_tenant:ok"])
}

func TestClient_BusinessError(t *testing.T) {
	client, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, `{"success":false,"message":"agent not found"}`)
	})

	_, err := client.GetAgent(context.Background(), "missing")
	require.Error(t, err)

	var be *BusinessError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "agent not found", be.Message)
	assert.ErrorIs(t, err, ErrBusiness)
	assert.ErrorIs(t, err, apperr.ErrUpstreamBusiness)
	assert.NotErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, uint64(1), rec.Snapshot().UpstreamCalls["get_agent:business_error"])
}

func TestClient_ErrorStatusWithBody(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"message", `{"success":false,"message":"tenant name taken"}`, "tenant name taken"},
		{"detail string", `{"detail":"Not Found"}`, "Not Found"},
		{"detail list", `{"detail":[{"loc":["body","name"],"msg":"field required"}]}`, `[{"loc":["body","name"],"msg":"field required"}]`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeEnvelope(w, http.StatusUnprocessableEntity, tt.body)
			})

			_, err := client.GetTenant(context.Background(), "t-1")
			var be *BusinessError
			require.True(t, errors.As(err, &be), "got %v", err)
			assert.Equal(t, http.StatusUnprocessableEntity, be.Status)
			assert.Equal(t, tt.wantMsg, be.Message)
		})
	}
}

func TestClient_Unavailable(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"status without body", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}},
		{"status with html body", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, "<html>down</html>")
		}},
		{"2xx without envelope", func(w http.ResponseWriter, r *http.Request) {
			writeEnvelope(w, http.StatusOK, `{"agent_id":"a-1"}`)
		}},
		{"2xx garbage", func(w http.ResponseWriter, r *http.Request) {
			writeEnvelope(w, http.StatusOK, `not json`)
		}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			client, rec := newTestClient(t, tt.handler)

			_, err := client.GetAgent(context.Background(), "a-1")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnavailable)
			assert.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)
			assert.NotErrorIs(t, err, ErrBusiness)
			assert.Equal(t, uint64(1), rec.Snapshot().UpstreamCalls["get_agent:unavailable"])
		})
	}
}

func TestClient_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := New(Config{BaseURL: url, Timeout: time.Second}, nil, nil)
	_, err := client.SystemModels(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClient_Timeout_NoRetry(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(300 * time.Millisecond)
		writeEnvelope(w, http.StatusOK, `{"success":true,"data":{}}`)
	})
	client.http.SetTimeout(50 * time.Millisecond)

	_, err := client.CreateAgent(context.Background(), CreateAgentRequest{TenantID: "t-1", Name: "Bot1"})
	assert.ErrorIs(t, err, ErrUnavailable)

	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "mutations must not be retried")
}

func TestClient_ListAgents_Shapes(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"items object", `{"items":[{"agent_id":"a-1","tenant_id":"t-1","name":"Bot1"},{"agent_id":"a-2","tenant_id":"t-1","name":"Bot2"}],"total":2}`},
		{"bare array", `[{"agent_id":"a-1","tenant_id":"t-1","name":"Bot1"},{"id":"a-2","tenant_id":"t-1","name":"Bot2"}]`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "t-1", r.URL.Query().Get("tenant_id"))
				writeEnvelope(w, http.StatusOK, `{"success":true,"data":`+tt.data+`}`)
			})

			agents, err := client.ListAgents(context.Background(), "t-1")
			require.NoError(t, err)
			require.Len(t, agents, 2)
			assert.Equal(t, "a-1", agents[0].ID)
			assert.Equal(t, "a-2", agents[1].ID)
			assert.Equal(t, "t-1", agents[0].TenantID)
		})
	}
}

func TestClient_ListAgents_EmptyData(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, `{"success":true,"data":null}`)
	})

	agents, err := client.ListAgents(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Empty(t, agents)
	assert.NotNil(t, agents)
}

func TestClient_APIKeys(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api-keys":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "t-1", body["tenant_id"])
			assert.Equal(t, "a-1", body["agent_id"])
			assert.Equal(t, []any{"chat"}, body["permissions"])
			writeEnvelope(w, http.StatusOK, `{"success":true,"data":{"api_key_id":"k-1","tenant_id":"t-1","agent_id":"a-1","name":"default","api_key":"mk_secret","permissions":["chat"],"status":"active"}}`)
		case r.Method == http.MethodGet && r.URL.Path == "/api-keys":
			assert.Equal(t, "t-1", r.URL.Query().Get("tenant_id"))
			assert.Equal(t, "a-1", r.URL.Query().Get("agent_id"))
			writeEnvelope(w, http.StatusOK, `{"success":true,"data":{"items":[{"api_key_id":"k-1","name":"default","permissions":["chat"]}]}}`)
		case r.Method == http.MethodGet && r.URL.Path == "/api-keys/k-1":
			writeEnvelope(w, http.StatusOK, `{"success":true,"data":{"api_key_id":"k-1","tenant_id":"t-1","agent_id":"a-1"}}`)
		case r.Method == http.MethodPut && r.URL.Path == "/api-keys/k-1":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, map[string]any{"status": "disabled"}, body)
			writeEnvelope(w, http.StatusOK, `{"success":true,"data":{"status":"disabled"}}`)
		case r.Method == http.MethodDelete && r.URL.Path == "/api-keys/k-1":
			writeEnvelope(w, http.StatusOK, `{"success":true,"data":null}`)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	key, err := client.CreateAPIKey(ctx, CreateAPIKeyRequest{TenantID: "t-1", AgentID: "a-1", Name: "default", Permissions: []string{"chat"}})
	require.NoError(t, err)
	assert.Equal(t, "k-1", key.ID)
	assert.Equal(t, "mk_secret", key.Key)

	keys, err := client.ListAPIKeys(ctx, "t-1", "a-1")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "k-1", keys[0].ID)
	assert.Equal(t, "a-1", keys[0].AgentID)

	got, err := client.GetAPIKey(ctx, "k-1")
	require.NoError(t, err)
	assert.Equal(t, "t-1", got.TenantID)

	disabled := "disabled"
	updated, err := client.UpdateAPIKey(ctx, "k-1", UpdateAPIKeyRequest{Status: &disabled})
	require.NoError(t, err)
	assert.Equal(t, "k-1", updated.ID)
	assert.Equal(t, "disabled", updated.Status)

	require.NoError(t, client.DeleteAPIKey(ctx, "k-1"))
}

func TestClient_UpsertPluginSetting(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/plugin-settings", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "t-1", body["tenant_id"])
		assert.Equal(t, "a-1", body["agent_id"])
		assert.Equal(t, "weather", body["plugin_name"])
		assert.Equal(t, map[string]any{}, body["config"])
		writeEnvelope(w, http.StatusOK, `{"success":true,"data":{"plugin_name":"weather","enabled":true,"config":{}}}`)
	})

	setting, err := client.UpsertPluginSetting(context.Background(), "t-1", "a-1", model.PluginSetting{PluginName: "weather", Enabled: true})
	require.NoError(t, err)
	assert.Equal(t, "weather", setting.PluginName)
	assert.True(t, setting.Enabled)
}

func TestClient_SystemCatalog(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/system/models":
			writeEnvelope(w, http.StatusOK, `{"success":true,"data":[{"name":"gpt-4o"}]}`)
		case "/system/bot-defaults":
			writeEnvelope(w, http.StatusOK, `{"success":true,"data":{"temperature":0.7}}`)
		}
	})

	models, err := client.SystemModels(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"gpt-4o"}]`, string(models))

	defaults, err := client.BotDefaults(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"temperature":0.7}`, string(defaults))
}

func TestClient_ListTenants_Paging(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "50", r.URL.Query().Get("size"))
		writeEnvelope(w, http.StatusOK, `{"success":true,"data":{"items":[{"tenant_id":"t-9"}],"total":51}}`)
	})

	tenants, total, err := client.ListTenants(context.Background(), 2, 50)
	require.NoError(t, err)
	assert.Equal(t, 51, total)
	require.Len(t, tenants, 1)
	assert.Equal(t, "t-9", tenants[0].ID)
}

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		key  string
		want string
	}{
		{"alias wins", `{"api_key_id":"k-1","id":"other"}`, "api_key_id", `{"id":"k-1"}`},
		{"id kept when alias absent", `{"id":"k-1"}`, "api_key_id", `{"id":"k-1"}`},
		{"null alias keeps id", `{"agent_id":null,"id":"a-1"}`, "agent_id", `{"id":"a-1"}`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			out, err := normalizeID(json.RawMessage(tt.in), tt.key)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(out))
		})
	}

	_, err := normalizeID(json.RawMessage(`[1,2]`), "id")
	assert.ErrorIs(t, err, ErrUnavailable)
}

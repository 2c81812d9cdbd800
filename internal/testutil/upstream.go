package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

// FakeUpstream is an in-memory configuration service speaking the upstream
// envelope protocol. Responses use the upstream's own id field names
// (tenant_id, agent_id, api_key_id).
type FakeUpstream struct {
	Server *httptest.Server

	mu      sync.Mutex
	seq     int
	calls   map[string]int
	faults  map[string]fault
	tenants map[string]*fakeTenant
	agents  map[string]*fakeAgent
	keys    map[string]*fakeKey
	plugins map[string]json.RawMessage
	order   []string

	dropNextTenantID bool
}

type fault struct {
	status  int
	message string
}

type fakeTenant struct {
	TenantID     string `json:"tenant_id"`
	Name         string `json:"tenant_name"`
	Type         string `json:"tenant_type"`
	Status       string `json:"status"`
	Description  string `json:"description,omitempty"`
	ContactEmail string `json:"contact_email,omitempty"`
	CreatedAt    string `json:"created_at"`
}

type fakeAgent struct {
	AgentID     string          `json:"agent_id"`
	TenantID    string          `json:"tenant_id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Config      json.RawMessage `json:"config,omitempty"`
	TemplateID  string          `json:"template_id,omitempty"`
	Status      string          `json:"status"`
	CreatedAt   string          `json:"created_at"`
}

type fakeKey struct {
	APIKeyID    string   `json:"api_key_id"`
	TenantID    string   `json:"tenant_id"`
	AgentID     string   `json:"agent_id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	APIKey      string   `json:"api_key"`
	Permissions []string `json:"permissions"`
	Status      string   `json:"status"`
	CreatedAt   string   `json:"created_at"`
}

// NewFakeUpstream starts a fake upstream and closes it when the test ends.
func NewFakeUpstream(t testing.TB) *FakeUpstream {
	t.Helper()

	f := &FakeUpstream{
		calls:   make(map[string]int),
		faults:  make(map[string]fault),
		tenants: make(map[string]*fakeTenant),
		agents:  make(map[string]*fakeAgent),
		keys:    make(map[string]*fakeKey),
		plugins: make(map[string]json.RawMessage),
	}

	r := chi.NewRouter()
	r.Post("/tenants", f.handle("create_tenant", f.createTenant))
	r.Get("/tenants", f.handle("list_tenants", f.listTenants))
	r.Get("/tenants/{id}", f.handle("get_tenant", f.getTenant))
	r.Put("/tenants/{id}", f.handle("update_tenant", f.updateTenant))
	r.Delete("/tenants/{id}", f.handle("delete_tenant", f.deleteTenant))

	r.Post("/agents", f.handle("create_agent", f.createAgent))
	r.Get("/agents", f.handle("list_agents", f.listAgents))
	r.Get("/agents/{id}", f.handle("get_agent", f.getAgent))
	r.Put("/agents/{id}", f.handle("update_agent", f.updateAgent))
	r.Delete("/agents/{id}", f.handle("delete_agent", f.deleteAgent))

	r.Post("/api-keys", f.handle("create_api_key", f.createKey))
	r.Get("/api-keys", f.handle("list_api_keys", f.listKeys))
	r.Get("/api-keys/{id}", f.handle("get_api_key", f.getKey))
	r.Put("/api-keys/{id}", f.handle("update_api_key", f.updateKey))
	r.Delete("/api-keys/{id}", f.handle("delete_api_key", f.deleteKey))

	r.Post("/plugin-settings", f.handle("upsert_plugin_setting", f.upsertPlugin))

	r.Get("/system/models", f.handle("system_models", func(r *http.Request) (int, any) {
		return http.StatusOK, []map[string]string{{"id": "gpt-4o", "provider": "openai"}}
	}))
	r.Get("/system/bot-defaults", f.handle("bot_defaults", func(r *http.Request) (int, any) {
		return http.StatusOK, map[string]any{"temperature": 0.7, "max_tokens": 1024}
	}))

	f.Server = httptest.NewServer(r)
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the fake's base URL.
func (f *FakeUpstream) URL() string {
	return f.Server.URL
}

// Calls returns how many times op was invoked, failed calls included.
func (f *FakeUpstream) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// FailNext makes the next call to op fail. An empty message produces a
// bare 502 (unavailable); otherwise a business error with that message.
func (f *FakeUpstream) FailNext(op string, status int, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults[op] = fault{status: status, message: message}
}

// DropNextTenantID makes the next tenant creation succeed upstream while
// answering without a tenant id.
func (f *FakeUpstream) DropNextTenantID() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dropNextTenantID = true
}

// TenantCount returns the number of tenants held upstream.
func (f *FakeUpstream) TenantCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tenants)
}

// HasTenant reports whether the tenant exists upstream.
func (f *FakeUpstream) HasTenant(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.tenants[id]
	return ok
}

// PluginConfig returns the stored config of an agent's plugin.
func (f *FakeUpstream) PluginConfig(agentID, pluginName string) (json.RawMessage, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cfg, ok := f.plugins[agentID+"/"+pluginName]
	return cfg, ok
}

// SeedAgent creates an agent directly and returns its ID.
func (f *FakeUpstream) SeedAgent(tenantID, name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := &fakeAgent{
		AgentID:   f.nextID("agent"),
		TenantID:  tenantID,
		Name:      name,
		Status:    "active",
		CreatedAt: now(),
	}
	f.agents[a.AgentID] = a
	f.order = append(f.order, a.AgentID)
	return a.AgentID
}

// SeedAPIKey creates a key directly and returns its ID.
func (f *FakeUpstream) SeedAPIKey(tenantID, agentID, name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := &fakeKey{
		APIKeyID:    f.nextID("key"),
		TenantID:    tenantID,
		AgentID:     agentID,
		Name:        name,
		APIKey:      "sk_" + strconv.Itoa(f.seq),
		Permissions: []string{},
		Status:      "active",
		CreatedAt:   now(),
	}
	f.keys[k.APIKeyID] = k
	f.order = append(f.order, k.APIKeyID)
	return k.APIKeyID
}

type handlerFunc func(r *http.Request) (int, any)

func (f *FakeUpstream) handle(op string, fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls[op]++
		flt, failing := f.faults[op]
		delete(f.faults, op)
		f.mu.Unlock()

		if failing {
			if flt.message == "" {
				w.WriteHeader(http.StatusBadGateway)
				_, _ = w.Write([]byte("bad gateway"))
				return
			}
			writeEnvelope(w, flt.status, false, nil, flt.message)
			return
		}

		f.mu.Lock()
		status, data := fn(r)
		f.mu.Unlock()

		if msg, ok := data.(errorMessage); ok {
			writeEnvelope(w, status, false, nil, string(msg))
			return
		}
		writeEnvelope(w, status, true, data, "")
	}
}

type errorMessage string

func writeEnvelope(w http.ResponseWriter, status int, success bool, data any, message string) {
	body := map[string]any{"success": success}
	if data != nil {
		body["data"] = data
	}
	if message != "" {
		body["message"] = message
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (f *FakeUpstream) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s_%04d", prefix, f.seq)
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func (f *FakeUpstream) createTenant(r *http.Request) (int, any) {
	var t fakeTenant
	if err := decode(r, &t); err != nil || t.Name == "" {
		return http.StatusBadRequest, errorMessage("tenant_name is required")
	}
	t.TenantID = f.nextID("tenant")
	t.Status = "active"
	t.CreatedAt = now()
	f.tenants[t.TenantID] = &t
	f.order = append(f.order, t.TenantID)
	if f.dropNextTenantID {
		f.dropNextTenantID = false
		reply := t
		reply.TenantID = ""
		return http.StatusCreated, reply
	}
	return http.StatusCreated, t
}

func (f *FakeUpstream) listTenants(r *http.Request) (int, any) {
	items := []*fakeTenant{}
	for _, id := range f.order {
		if t, ok := f.tenants[id]; ok {
			items = append(items, t)
		}
	}
	total := len(items)
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	if page > 0 && size > 0 {
		start := min((page-1)*size, total)
		end := min(start+size, total)
		items = items[start:end]
	}
	return http.StatusOK, map[string]any{"items": items, "total": total}
}

func (f *FakeUpstream) getTenant(r *http.Request) (int, any) {
	t, ok := f.tenants[chi.URLParam(r, "id")]
	if !ok {
		return http.StatusNotFound, errorMessage("tenant not found")
	}
	return http.StatusOK, t
}

func (f *FakeUpstream) updateTenant(r *http.Request) (int, any) {
	t, ok := f.tenants[chi.URLParam(r, "id")]
	if !ok {
		return http.StatusNotFound, errorMessage("tenant not found")
	}
	var req struct {
		Name         *string `json:"tenant_name"`
		Description  *string `json:"description"`
		ContactEmail *string `json:"contact_email"`
		Status       *string `json:"status"`
	}
	if err := decode(r, &req); err != nil {
		return http.StatusBadRequest, errorMessage("invalid body")
	}
	if req.Name != nil {
		t.Name = *req.Name
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.ContactEmail != nil {
		t.ContactEmail = *req.ContactEmail
	}
	if req.Status != nil {
		t.Status = *req.Status
	}
	return http.StatusOK, t
}

func (f *FakeUpstream) deleteTenant(r *http.Request) (int, any) {
	id := chi.URLParam(r, "id")
	if _, ok := f.tenants[id]; !ok {
		return http.StatusNotFound, errorMessage("tenant not found")
	}
	delete(f.tenants, id)
	return http.StatusOK, map[string]string{"tenant_id": id}
}

func (f *FakeUpstream) createAgent(r *http.Request) (int, any) {
	var a fakeAgent
	if err := decode(r, &a); err != nil || a.Name == "" {
		return http.StatusBadRequest, errorMessage("name is required")
	}
	if _, ok := f.tenants[a.TenantID]; !ok {
		return http.StatusBadRequest, errorMessage("tenant does not exist")
	}
	a.AgentID = f.nextID("agent")
	a.Status = "active"
	a.CreatedAt = now()
	f.agents[a.AgentID] = &a
	f.order = append(f.order, a.AgentID)
	return http.StatusCreated, a
}

func (f *FakeUpstream) listAgents(r *http.Request) (int, any) {
	tenantID := r.URL.Query().Get("tenant_id")
	items := []*fakeAgent{}
	for _, id := range f.order {
		if a, ok := f.agents[id]; ok && (tenantID == "" || a.TenantID == tenantID) {
			items = append(items, a)
		}
	}
	return http.StatusOK, map[string]any{"items": items, "total": len(items)}
}

func (f *FakeUpstream) getAgent(r *http.Request) (int, any) {
	a, ok := f.agents[chi.URLParam(r, "id")]
	if !ok {
		return http.StatusNotFound, errorMessage("agent not found")
	}
	return http.StatusOK, a
}

func (f *FakeUpstream) updateAgent(r *http.Request) (int, any) {
	a, ok := f.agents[chi.URLParam(r, "id")]
	if !ok {
		return http.StatusNotFound, errorMessage("agent not found")
	}
	var req struct {
		Name        *string         `json:"name"`
		Description *string         `json:"description"`
		Config      json.RawMessage `json:"config"`
		TemplateID  *string         `json:"template_id"`
		Status      *string         `json:"status"`
	}
	if err := decode(r, &req); err != nil {
		return http.StatusBadRequest, errorMessage("invalid body")
	}
	if req.Name != nil {
		a.Name = *req.Name
	}
	if req.Description != nil {
		a.Description = *req.Description
	}
	if len(req.Config) > 0 {
		a.Config = req.Config
	}
	if req.TemplateID != nil {
		a.TemplateID = *req.TemplateID
	}
	if req.Status != nil {
		a.Status = *req.Status
	}
	return http.StatusOK, a
}

func (f *FakeUpstream) deleteAgent(r *http.Request) (int, any) {
	id := chi.URLParam(r, "id")
	if _, ok := f.agents[id]; !ok {
		return http.StatusNotFound, errorMessage("agent not found")
	}
	delete(f.agents, id)
	return http.StatusOK, map[string]string{"agent_id": id}
}

func (f *FakeUpstream) createKey(r *http.Request) (int, any) {
	var k fakeKey
	if err := decode(r, &k); err != nil || k.Name == "" {
		return http.StatusBadRequest, errorMessage("name is required")
	}
	a, ok := f.agents[k.AgentID]
	if !ok || a.TenantID != k.TenantID {
		return http.StatusBadRequest, errorMessage("agent does not exist")
	}
	k.APIKeyID = f.nextID("key")
	k.APIKey = fmt.Sprintf("sk_%d_%d", f.seq, time.Now().UnixNano())
	k.Status = "active"
	k.CreatedAt = now()
	if k.Permissions == nil {
		k.Permissions = []string{}
	}
	f.keys[k.APIKeyID] = &k
	f.order = append(f.order, k.APIKeyID)
	return http.StatusCreated, k
}

func (f *FakeUpstream) listKeys(r *http.Request) (int, any) {
	q := r.URL.Query()
	tenantID, agentID := q.Get("tenant_id"), q.Get("agent_id")
	items := []*fakeKey{}
	for _, id := range f.order {
		k, ok := f.keys[id]
		if !ok || k.TenantID != tenantID {
			continue
		}
		if agentID != "" && k.AgentID != agentID {
			continue
		}
		items = append(items, k)
	}
	return http.StatusOK, items
}

func (f *FakeUpstream) getKey(r *http.Request) (int, any) {
	k, ok := f.keys[chi.URLParam(r, "id")]
	if !ok {
		return http.StatusNotFound, errorMessage("api key not found")
	}
	return http.StatusOK, k
}

func (f *FakeUpstream) updateKey(r *http.Request) (int, any) {
	k, ok := f.keys[chi.URLParam(r, "id")]
	if !ok {
		return http.StatusNotFound, errorMessage("api key not found")
	}
	var req struct {
		Name        *string   `json:"name"`
		Description *string   `json:"description"`
		Status      *string   `json:"status"`
		Permissions *[]string `json:"permissions"`
	}
	if err := decode(r, &req); err != nil {
		return http.StatusBadRequest, errorMessage("invalid body")
	}
	if req.Name != nil {
		k.Name = *req.Name
	}
	if req.Description != nil {
		k.Description = *req.Description
	}
	if req.Status != nil {
		k.Status = *req.Status
	}
	if req.Permissions != nil {
		k.Permissions = *req.Permissions
	}
	return http.StatusOK, k
}

func (f *FakeUpstream) deleteKey(r *http.Request) (int, any) {
	id := chi.URLParam(r, "id")
	if _, ok := f.keys[id]; !ok {
		return http.StatusNotFound, errorMessage("api key not found")
	}
	delete(f.keys, id)
	return http.StatusOK, nil
}

func (f *FakeUpstream) upsertPlugin(r *http.Request) (int, any) {
	var req struct {
		TenantID   string          `json:"tenant_id"`
		AgentID    string          `json:"agent_id"`
		PluginName string          `json:"plugin_name"`
		Enabled    bool            `json:"enabled"`
		Config     json.RawMessage `json:"config"`
	}
	if err := decode(r, &req); err != nil || req.PluginName == "" {
		return http.StatusBadRequest, errorMessage("plugin_name is required")
	}
	if a, ok := f.agents[req.AgentID]; !ok || a.TenantID != req.TenantID {
		return http.StatusBadRequest, errorMessage("agent does not exist")
	}
	f.plugins[req.AgentID+"/"+req.PluginName] = req.Config
	return http.StatusOK, map[string]any{
		"plugin_name": req.PluginName,
		"enabled":     req.Enabled,
		"config":      req.Config,
	}
}

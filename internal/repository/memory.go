package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/maimweb/backend/internal/model"
)

// MemoryStore is an in-process IdentityStore and AdminStore used by tests
// and local tooling. Transactions work on a snapshot that replaces the live
// state on commit; writers are serialized so a commit never discards a
// concurrent write.
type MemoryStore struct {
	mu     *sync.Mutex
	write  *sync.Mutex
	data   *memData
	inTx   bool
	faults map[string]error
}

type memData struct {
	users   map[string]*model.User
	tenants map[string]*model.Tenant
	chats   []*model.ChatHistory
	files   []*model.FileUpload
	metrics []*model.SystemMetric
}

var (
	_ IdentityStore = (*MemoryStore)(nil)
	_ AdminStore    = (*MemoryStore)(nil)
)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mu:    &sync.Mutex{},
		write: &sync.Mutex{},
		data: &memData{
			users:   make(map[string]*model.User),
			tenants: make(map[string]*model.Tenant),
		},
		faults: make(map[string]error),
	}
}

// FailNext makes the next call of the named method return err.
func (s *MemoryStore) FailNext(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[method] = err
}

func (s *MemoryStore) fault(method string) error {
	if err, ok := s.faults[method]; ok {
		delete(s.faults, method)
		return err
	}
	return nil
}

// lockWrite serializes writers outside transactions. Inside a transaction
// the snapshot is private, so only the data mutex is needed.
func (s *MemoryStore) lockWrite() func() {
	if !s.inTx {
		s.write.Lock()
	}
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		if !s.inTx {
			s.write.Unlock()
		}
	}
}

// WithTx runs fn against a snapshot and publishes it when fn returns nil.
func (s *MemoryStore) WithTx(ctx context.Context, fn func(IdentityStore) error) error {
	if s.inTx {
		return fn(s)
	}

	s.write.Lock()
	defer s.write.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	tx := &MemoryStore{
		mu:     s.mu,
		write:  s.write,
		data:   snapshot,
		inTx:   true,
		faults: s.faults,
	}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("Commit"); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.data = snapshot
	return nil
}

// CreateUser stores a user, enforcing unique username and email.
func (s *MemoryStore) CreateUser(ctx context.Context, user *model.User) error {
	unlock := s.lockWrite()
	defer unlock()

	if err := s.fault("CreateUser"); err != nil {
		return err
	}
	for _, u := range s.data.users {
		if u.Username == user.Username {
			return ErrUsernameExists
		}
		if user.Email != "" && u.Email == user.Email {
			return ErrEmailExists
		}
	}
	if _, ok := s.data.users[user.ID]; ok {
		return ErrUsernameExists
	}

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}
	u := *user
	s.data.users[u.ID] = &u
	return nil
}

// GetUserByID returns a copy of the user with the given ID.
func (s *MemoryStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.findUser(func(u *model.User) bool { return u.ID == id })
}

// GetUserByUsername returns a copy of the user with the given username.
func (s *MemoryStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.findUser(func(u *model.User) bool { return u.Username == username })
}

// GetUserByEmail returns a copy of the user with the given email.
func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	if email == "" {
		return nil, ErrUserNotFound
	}
	return s.findUser(func(u *model.User) bool { return u.Email == email })
}

func (s *MemoryStore) findUser(match func(*model.User) bool) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.data.users {
		if match(u) {
			c := *u
			return &c, nil
		}
	}
	return nil, ErrUserNotFound
}

// CreateTenant stores a tenant mirror. The owner must exist.
func (s *MemoryStore) CreateTenant(ctx context.Context, tenant *model.Tenant) error {
	unlock := s.lockWrite()
	defer unlock()

	if err := s.fault("CreateTenant"); err != nil {
		return err
	}
	if _, ok := s.data.tenants[tenant.ID]; ok {
		return ErrTenantExists
	}
	if _, ok := s.data.users[tenant.OwnerID]; !ok {
		return fmt.Errorf("failed to create tenant: owner %q does not exist", tenant.OwnerID)
	}

	if tenant.CreatedAt.IsZero() {
		tenant.CreatedAt = time.Now().UTC()
	}
	if tenant.UpdatedAt.IsZero() {
		tenant.UpdatedAt = tenant.CreatedAt
	}
	t := *tenant
	s.data.tenants[t.ID] = &t
	return nil
}

// GetTenant returns a copy of the tenant with the given ID.
func (s *MemoryStore) GetTenant(ctx context.Context, id string) (*model.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.data.tenants[id]
	if !ok {
		return nil, ErrTenantNotFound
	}
	c := *t
	return &c, nil
}

// UpdateTenant overwrites the mutable fields of a tenant mirror.
func (s *MemoryStore) UpdateTenant(ctx context.Context, tenant *model.Tenant) error {
	unlock := s.lockWrite()
	defer unlock()

	t, ok := s.data.tenants[tenant.ID]
	if !ok {
		return ErrTenantNotFound
	}
	tenant.UpdatedAt = time.Now().UTC()
	t.Name = tenant.Name
	t.Status = tenant.Status
	t.Description = tenant.Description
	t.UpdatedAt = tenant.UpdatedAt
	return nil
}

// ListTenantsByOwner returns the user's tenants ordered by creation time.
func (s *MemoryStore) ListTenantsByOwner(ctx context.Context, ownerID string) ([]*model.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault("ListTenantsByOwner"); err != nil {
		return nil, err
	}
	tenants := make([]*model.Tenant, 0)
	for _, t := range s.data.tenants {
		if t.OwnerID == ownerID {
			c := *t
			tenants = append(tenants, &c)
		}
	}
	sort.Slice(tenants, func(i, j int) bool {
		if !tenants[i].CreatedAt.Equal(tenants[j].CreatedAt) {
			return tenants[i].CreatedAt.Before(tenants[j].CreatedAt)
		}
		return tenants[i].ID < tenants[j].ID
	})
	return tenants, nil
}

// ListTenantIDsByOwner returns the IDs of the user's tenants in ascending
// order.
func (s *MemoryStore) ListTenantIDsByOwner(ctx context.Context, ownerID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault("ListTenantIDsByOwner"); err != nil {
		return nil, err
	}
	ids := make([]string, 0)
	for _, t := range s.data.tenants {
		if t.OwnerID == ownerID {
			ids = append(ids, t.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ListAllTenantIDs returns the IDs of every tenant mirror in ascending
// order.
func (s *MemoryStore) ListAllTenantIDs(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.data.tenants))
	for id := range s.data.tenants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// TenantOwnedBy reports whether the tenant exists and belongs to the user.
func (s *MemoryStore) TenantOwnedBy(ctx context.Context, tenantID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault("TenantOwnedBy"); err != nil {
		return false, err
	}
	t, ok := s.data.tenants[tenantID]
	return ok && t.OwnerID == userID, nil
}

// DeleteTenant removes a tenant mirror.
func (s *MemoryStore) DeleteTenant(ctx context.Context, id string) error {
	unlock := s.lockWrite()
	defer unlock()

	if err := s.fault("DeleteTenant"); err != nil {
		return err
	}
	if _, ok := s.data.tenants[id]; !ok {
		return ErrTenantNotFound
	}
	delete(s.data.tenants, id)
	return nil
}

// Ping always succeeds; it lets the store stand in for the database in
// readiness checks.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// AddChatHistory seeds a chat history record.
func (s *MemoryStore) AddChatHistory(h *model.ChatHistory) {
	unlock := s.lockWrite()
	defer unlock()
	s.data.chats = append(s.data.chats, h)
}

// AddFile seeds a file upload record.
func (s *MemoryStore) AddFile(f *model.FileUpload) {
	unlock := s.lockWrite()
	defer unlock()
	s.data.files = append(s.data.files, f)
}

// AddMetric seeds a metric sample.
func (s *MemoryStore) AddMetric(m *model.SystemMetric) {
	unlock := s.lockWrite()
	defer unlock()
	s.data.metrics = append(s.data.metrics, m)
}

// ListChatHistory returns a page of chat history for the agents in scope.
func (s *MemoryStore) ListChatHistory(ctx context.Context, filter AdminFilter) ([]*model.ChatHistory, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]*model.ChatHistory, 0)
	for _, h := range s.data.chats {
		if inScope(filter.AgentIDs, h.AgentID) {
			matched = append(matched, h)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	return window(matched, filter), len(matched), nil
}

// ListFiles returns a page of uploaded files for the agents in scope.
func (s *MemoryStore) ListFiles(ctx context.Context, filter AdminFilter) ([]*model.FileUpload, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]*model.FileUpload, 0)
	for _, f := range s.data.files {
		if inScope(filter.AgentIDs, f.AgentID) {
			matched = append(matched, f)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	return window(matched, filter), len(matched), nil
}

// ListMetrics returns a page of metric samples for the agents in scope.
func (s *MemoryStore) ListMetrics(ctx context.Context, filter AdminFilter) ([]*model.SystemMetric, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]*model.SystemMetric, 0)
	for _, m := range s.data.metrics {
		if !inScope(filter.AgentIDs, m.AgentID) {
			continue
		}
		if filter.MetricName != "" && m.MetricName != filter.MetricName {
			continue
		}
		matched = append(matched, m)
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	return window(matched, filter), len(matched), nil
}

func inScope(agentIDs []string, agentID string) bool {
	for _, id := range agentIDs {
		if id == agentID {
			return true
		}
	}
	return false
}

func window[T any](items []T, filter AdminFilter) []T {
	start := filter.Offset()
	if start < 0 || start >= len(items) {
		return []T{}
	}
	end := len(items)
	if filter.Size > 0 && filter.Size < end-start {
		end = start + filter.Size
	}
	return items[start:end]
}

func (d *memData) clone() *memData {
	c := &memData{
		users:   make(map[string]*model.User, len(d.users)),
		tenants: make(map[string]*model.Tenant, len(d.tenants)),
		chats:   append([]*model.ChatHistory(nil), d.chats...),
		files:   append([]*model.FileUpload(nil), d.files...),
		metrics: append([]*model.SystemMetric(nil), d.metrics...),
	}
	for id, u := range d.users {
		cu := *u
		c.users[id] = &cu
	}
	for id, t := range d.tenants {
		ct := *t
		c.tenants[id] = &ct
	}
	return c
}

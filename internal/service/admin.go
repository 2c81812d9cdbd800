package service

import (
	"context"
	"fmt"
	"math"

	"github.com/maimweb/backend/internal/model"
	"github.com/maimweb/backend/internal/repository"
)

// Admin page defaults.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// AgentScoper resolves the agents a user may see.
type AgentScoper interface {
	AgentScope(ctx context.Context, user *model.User) ([]string, error)
}

// AdminQuery selects one page of admin records. AgentID narrows the scope
// to a single agent the caller owns.
type AdminQuery struct {
	AgentID    string
	MetricName string
	Page       int
	Size       int
}

// AdminService lists locally recorded agent activity, scoped to the
// caller's agents.
type AdminService struct {
	store  repository.AdminStore
	scoper AgentScoper
	authz  Authorizer
}

// NewAdminService creates an AdminService.
func NewAdminService(store repository.AdminStore, scoper AgentScoper, authz Authorizer) *AdminService {
	return &AdminService{store: store, scoper: scoper, authz: authz}
}

// ChatHistory returns a page of chat history.
func (s *AdminService) ChatHistory(ctx context.Context, user *model.User, q AdminQuery) (*model.Page[*model.ChatHistory], error) {
	filter, err := s.filter(ctx, user, q)
	if err != nil {
		return nil, err
	}
	items, total, err := s.store.ListChatHistory(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list chat history: %w", err)
	}
	return newPage(items, total, filter), nil
}

// Files returns a page of file uploads.
func (s *AdminService) Files(ctx context.Context, user *model.User, q AdminQuery) (*model.Page[*model.FileUpload], error) {
	filter, err := s.filter(ctx, user, q)
	if err != nil {
		return nil, err
	}
	items, total, err := s.store.ListFiles(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return newPage(items, total, filter), nil
}

// Metrics returns a page of system metrics, optionally filtered by name.
func (s *AdminService) Metrics(ctx context.Context, user *model.User, q AdminQuery) (*model.Page[*model.SystemMetric], error) {
	filter, err := s.filter(ctx, user, q)
	if err != nil {
		return nil, err
	}
	filter.MetricName = q.MetricName
	items, total, err := s.store.ListMetrics(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list metrics: %w", err)
	}
	return newPage(items, total, filter), nil
}

func (s *AdminService) filter(ctx context.Context, user *model.User, q AdminQuery) (repository.AdminFilter, error) {
	filter := repository.AdminFilter{Page: q.Page, Size: q.Size}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Size < 1 {
		filter.Size = DefaultPageSize
	}
	if filter.Size > MaxPageSize {
		filter.Size = MaxPageSize
	}
	if maxPage := math.MaxInt/filter.Size + 1; filter.Page > maxPage {
		filter.Page = maxPage
	}

	if q.AgentID != "" {
		if _, err := s.authz.AuthorizeAgent(ctx, user.ID, q.AgentID); err != nil {
			return filter, err
		}
		filter.AgentIDs = []string{q.AgentID}
		return filter, nil
	}

	scope, err := s.scoper.AgentScope(ctx, user)
	if err != nil {
		return filter, err
	}
	filter.AgentIDs = scope
	return filter, nil
}

func newPage[T any](items []T, total int, filter repository.AdminFilter) *model.Page[T] {
	if items == nil {
		items = []T{}
	}
	return &model.Page[T]{Items: items, Total: total, Page: filter.Page, Size: filter.Size}
}

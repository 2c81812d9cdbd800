package service

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maimweb/backend/internal/apperr"
	"github.com/maimweb/backend/internal/model"
)

func TestAdminService_ScopesToCallerAgents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	carol := env.register(t, "carol")

	a1 := env.fake.SeedAgent(env.personalTenant(t, alice).ID, "a1")
	a2 := env.fake.SeedAgent(env.personalTenant(t, alice).ID, "a2")
	c1 := env.fake.SeedAgent(env.personalTenant(t, carol).ID, "c1")

	base := time.Now().UTC()
	for i, agentID := range []string{a1, a1, a2, c1} {
		env.store.AddChatHistory(&model.ChatHistory{
			ID:        fmt.Sprintf("chat-%d", i),
			AgentID:   agentID,
			SessionID: "s",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}

	page, err := env.admin.ChatHistory(ctx, alice, AdminQuery{})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, DefaultPageSize, page.Size)
	for _, item := range page.Items {
		assert.NotEqual(t, c1, item.AgentID)
	}

	page, err = env.admin.ChatHistory(ctx, alice, AdminQuery{AgentID: a2})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "chat-2", page.Items[0].ID)

	_, err = env.admin.ChatHistory(ctx, alice, AdminQuery{AgentID: c1})
	assert.ErrorIs(t, err, apperr.ErrDenied)

	carolPage, err := env.admin.ChatHistory(ctx, carol, AdminQuery{Page: 1, Size: 1000})
	require.NoError(t, err)
	assert.Equal(t, 1, carolPage.Total)
	assert.Equal(t, MaxPageSize, carolPage.Size)
}

func TestAdminService_FilesAndMetrics(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	agentID := env.fake.SeedAgent(env.personalTenant(t, alice).ID, "a1")

	env.store.AddFile(&model.FileUpload{ID: "f1", AgentID: agentID, OriginalFilename: "a.txt", CreatedAt: time.Now()})
	env.store.AddMetric(&model.SystemMetric{ID: "m1", AgentID: agentID, MetricName: "latency_ms", MetricValue: 12, CreatedAt: time.Now()})
	env.store.AddMetric(&model.SystemMetric{ID: "m2", AgentID: agentID, MetricName: "tokens", MetricValue: 300, CreatedAt: time.Now()})

	files, err := env.admin.Files(ctx, alice, AdminQuery{})
	require.NoError(t, err)
	require.Len(t, files.Items, 1)
	assert.Equal(t, "a.txt", files.Items[0].OriginalFilename)

	all, err := env.admin.Metrics(ctx, alice, AdminQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, all.Total)

	latency, err := env.admin.Metrics(ctx, alice, AdminQuery{MetricName: "latency_ms"})
	require.NoError(t, err)
	require.Len(t, latency.Items, 1)
	assert.Equal(t, "m1", latency.Items[0].ID)
}

func TestAdminService_EmptyScope(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	env.store.AddFile(&model.FileUpload{ID: "f1", AgentID: "someone-else", CreatedAt: time.Now()})

	page, err := env.admin.Files(context.Background(), alice, AdminQuery{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items)
	assert.Zero(t, page.Total)
}

func TestAdminService_HugePageIsEmpty(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	agentID := env.fake.SeedAgent(env.personalTenant(t, alice).ID, "a1")
	env.store.AddChatHistory(&model.ChatHistory{ID: "chat-1", AgentID: agentID, SessionID: "s", CreatedAt: time.Now()})

	for _, page := range []int{math.MaxInt/DefaultPageSize + 2, math.MaxInt} {
		got, err := env.admin.ChatHistory(ctx, alice, AdminQuery{Page: page, Size: DefaultPageSize})
		require.NoError(t, err)
		assert.Empty(t, got.Items)
		assert.Equal(t, 1, got.Total)
		assert.Positive(t, got.Page)
	}
}

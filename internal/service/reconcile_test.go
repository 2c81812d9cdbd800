package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maimweb/backend/internal/model"
	"github.com/maimweb/backend/internal/testutil"
	"github.com/maimweb/backend/internal/upstream"
)

func TestReconciler_ConsistentAfterRegistration(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")
	env.register(t, "bob")

	report, err := NewReconciler(env.store, env.client, 0, discardLogger()).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Consistent())
	assert.Equal(t, 2, report.Upstream)
	assert.Equal(t, 2, report.Local)
	assert.Empty(t, report.UpstreamOnly)
	assert.Empty(t, report.LocalOnly)
}

func TestReconciler_ReportsBothDirections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.register(t, "alice")

	orphan, err := env.client.CreateTenant(ctx, upstream.CreateTenantRequest{
		Name: "left behind",
		Type: model.TenantPersonal,
	})
	require.NoError(t, err)

	dangling := testutil.NewTestTenant(t, user.ID)
	require.NoError(t, env.store.CreateTenant(ctx, dangling))

	report, err := NewReconciler(env.store, env.client, 0, slog.New(slog.NewJSONHandler(env.logs, nil))).Run(ctx)
	require.NoError(t, err)
	assert.False(t, report.Consistent())
	assert.Equal(t, []string{orphan.ID}, report.UpstreamOnly)
	assert.Equal(t, []string{dangling.ID}, report.LocalOnly)
	assert.Contains(t, env.logs.String(), "orphaned upstream tenant")
}

func TestReconciler_PagesThroughUpstream(t *testing.T) {
	env := newTestEnv(t)
	for _, name := range []string{"alice", "bob", "carol", "dave", "erin"} {
		env.register(t, name)
	}

	report, err := NewReconciler(env.store, env.client, 2, discardLogger()).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Consistent())
	assert.Equal(t, 5, report.Upstream)
	assert.Equal(t, 3, env.fake.Calls("list_tenants"))
}

type failingInventory struct{}

func (failingInventory) ListAllTenantIDs(context.Context) ([]string, error) {
	return nil, errors.New("connection refused")
}

func TestReconciler_PropagatesErrors(t *testing.T) {
	env := newTestEnv(t)

	_, err := NewReconciler(failingInventory{}, env.client, 0, discardLogger()).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list local tenants")

	env.fake.FailNext("list_tenants", 503, "maintenance")
	_, err = NewReconciler(env.store, env.client, 0, discardLogger()).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list upstream tenants page 1")
}

//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ============================================================================
// Migration Integration Tests
// ============================================================================

func TestIntegrationMigration_ApplyAllTables(t *testing.T) {
	ctx, repo := newIdentityTestEnv(t)

	for _, table := range []string{"users", "tenants", "chat_histories", "file_uploads", "system_metrics"} {
		table := table
		t.Run(table, func(t *testing.T) {
			exists, err := tableExists(ctx, repo.Pool(), table)
			if err != nil {
				t.Fatalf("tableExists failed: %v", err)
			}
			if !exists {
				t.Errorf("Table %q should exist after migrations", table)
			}
		})
	}
}

func TestIntegrationMigration_TenantConstraints(t *testing.T) {
	ctx, repo := newIdentityTestEnv(t)
	user := seedIntegrationUser(t, ctx, repo, "constraint")

	_, err := repo.Pool().Exec(ctx, `
		INSERT INTO tenants (id, name, owner_id, tenant_type)
		VALUES ('tenant-bad-type', 'x', $1, 'team')
	`, user.ID)
	if err == nil {
		t.Error("Expected check constraint violation for invalid tenant_type")
	}

	_, err = repo.Pool().Exec(ctx, `
		INSERT INTO tenants (id, name, owner_id, status)
		VALUES ('tenant-bad-status', 'x', $1, 'deleted')
	`, user.ID)
	if err == nil {
		t.Error("Expected check constraint violation for invalid status")
	}
}

func TestIntegrationMigration_Idempotency(t *testing.T) {
	ctx, repo := newIdentityTestEnv(t)

	// Applying the schema a second time must be a no-op.
	if err := repo.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
}

func tableExists(ctx context.Context, pool *pgxpool.Pool, tableName string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = $1
		)
	`, tableName).Scan(&exists)
	return exists, err
}


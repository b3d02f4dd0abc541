package snapshots_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildsync/guildsync/internal/accounts"
	"github.com/guildsync/guildsync/internal/roles"
	"github.com/guildsync/guildsync/internal/snapshots"
)

func TestSnapshotVersioningIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("skip integration test: TEST_POSTGRES_DSN is not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Skipf("skip integration test: cannot connect to database: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("skip integration test: database ping failed: %v", err)
	}
	t.Cleanup(pool.Close)

	account, err := accounts.NewService(nil, pool).Ensure(ctx, "it-"+uuid.NewString())
	require.NoError(t, err)
	svc := snapshots.NewService(nil, pool)

	_, err = svc.Get(ctx, account.ID, "guild")
	require.ErrorIs(t, err, snapshots.ErrNotFound)

	first, err := svc.Save(ctx, account.ID, "guild", roles.Snapshot{{ID: "r1", Name: "Member"}}, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, first.Version)

	_, err = svc.Save(ctx, account.ID, "guild", roles.Snapshot{}, 0)
	assert.ErrorIs(t, err, snapshots.ErrVersionConflict)

	second, err := svc.Save(ctx, account.ID, "guild", roles.Snapshot{{ID: "r2"}}, first.Version)
	require.NoError(t, err)
	assert.EqualValues(t, 2, second.Version)

	got, err := svc.Get(ctx, account.ID, "guild")
	require.NoError(t, err)
	assert.Equal(t, roles.Snapshot{{ID: "r2"}}, got.Roles)
}

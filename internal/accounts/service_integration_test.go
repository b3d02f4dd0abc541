package accounts_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildsync/guildsync/internal/accounts"
)

func setupAccountsIntegrationTest(t *testing.T) *accounts.Service {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("skip integration test: TEST_POSTGRES_DSN is not set")
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Skipf("skip integration test: cannot connect to database: %v", err)
	}
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		t.Skipf("skip integration test: database ping failed: %v", err)
	}
	t.Cleanup(pool.Close)
	return accounts.NewService(nil, pool)
}

func TestAccountLifecycleIntegration(t *testing.T) {
	svc := setupAccountsIntegrationTest(t)
	ctx := context.Background()
	discordID := "it-" + uuid.NewString()

	_, err := svc.Resolve(ctx, discordID)
	require.ErrorIs(t, err, accounts.ErrAccountNotFound)

	created, err := svc.Ensure(ctx, discordID)
	require.NoError(t, err)
	assert.True(t, created.Resolved())
	assert.False(t, created.GDriveLinked)

	again, err := svc.Ensure(ctx, discordID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)

	email, uid := "member@example.com", "abc123="
	linked, err := svc.UpdateLinks(ctx, discordID, accounts.LinksUpdate{GDriveEmail: &email, TeamSpeakUID: &uid})
	require.NoError(t, err)
	assert.True(t, linked.GDriveLinked)
	assert.True(t, linked.TeamSpeakLinked)

	none := ""
	unlinked, err := svc.UpdateLinks(ctx, discordID, accounts.LinksUpdate{TeamSpeakUID: &none})
	require.NoError(t, err)
	assert.True(t, unlinked.GDriveLinked)
	assert.False(t, unlinked.TeamSpeakLinked)
	assert.Empty(t, unlinked.TeamSpeakUID)

	resolved, err := svc.Resolve(ctx, discordID)
	require.NoError(t, err)
	assert.Equal(t, unlinked.ID, resolved.ID)
	assert.Equal(t, "member@example.com", resolved.GDriveEmail)
}

package accounts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildsync/guildsync/internal/db"
)

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

type fakeDB struct {
	rowErr  error
	lastSQL string
	args    []any
}

func (f *fakeDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("not implemented")
}

func (f *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.lastSQL = sql
	f.args = args
	return errRow{err: f.rowErr}
}

func TestResolveNotFound(t *testing.T) {
	svc := NewService(nil, &fakeDB{rowErr: pgx.ErrNoRows})
	_, err := svc.Resolve(context.Background(), "1234")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestResolveWrapsStoreErrors(t *testing.T) {
	boom := errors.New("connection reset")
	svc := NewService(nil, &fakeDB{rowErr: boom})
	_, err := svc.Resolve(context.Background(), "1234")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrAccountNotFound)
}

func TestResolveRequiresDiscordID(t *testing.T) {
	fake := &fakeDB{}
	svc := NewService(nil, fake)
	_, err := svc.Resolve(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrDiscordIDRequired)
	_, err = svc.Ensure(context.Background(), "")
	assert.ErrorIs(t, err, ErrDiscordIDRequired)
	assert.Empty(t, fake.lastSQL)
}

func TestServiceNotConfigured(t *testing.T) {
	svc := NewService(nil, nil)
	_, err := svc.Resolve(context.Background(), "1")
	assert.Error(t, err)
	_, err = svc.Ensure(context.Background(), "1")
	assert.Error(t, err)
	_, err = svc.UpdateLinks(context.Background(), "1", LinksUpdate{})
	assert.Error(t, err)
}

func TestUpdateLinksRejectsInvalidEmail(t *testing.T) {
	fake := &fakeDB{}
	svc := NewService(nil, fake)
	bad := "Jane <jane@example.com>"
	_, err := svc.UpdateLinks(context.Background(), "1", LinksUpdate{GDriveEmail: &bad})
	assert.ErrorIs(t, err, ErrInvalidEmail)
	assert.Empty(t, fake.lastSQL)
}

func TestUpdateLinksPassesNormalizedArgs(t *testing.T) {
	fake := &fakeDB{rowErr: errors.New("stop after capture")}
	svc := NewService(nil, fake)
	email := " Jane@Example.com "
	_, err := svc.UpdateLinks(context.Background(), " 42 ", LinksUpdate{GDriveEmail: &email})
	require.Error(t, err)

	require.Len(t, fake.args, 5)
	assert.Equal(t, "42", fake.args[0])
	assert.Equal(t, true, fake.args[1])
	assert.Equal(t, pgtype.Text{String: "jane@example.com", Valid: true}, fake.args[2])
	assert.Equal(t, false, fake.args[3])
	assert.Equal(t, pgtype.Text{}, fake.args[4])
}

func TestNormalizeEmail(t *testing.T) {
	value, set, err := normalizeEmail(nil)
	require.NoError(t, err)
	assert.False(t, set)
	assert.False(t, value.Valid)

	empty := ""
	value, set, err = normalizeEmail(&empty)
	require.NoError(t, err)
	assert.True(t, set)
	assert.False(t, value.Valid)

	invalid := "not-an-email"
	_, _, err = normalizeEmail(&invalid)
	assert.ErrorIs(t, err, ErrInvalidEmail)
}

func TestToLinkedAccountEnforcesFlagInvariant(t *testing.T) {
	id, err := db.ParseUUID("550e8400-e29b-41d4-a716-446655440000")
	require.NoError(t, err)
	now := time.Now().UTC()

	a := toLinkedAccount(id, "42", pgtype.Text{}, true, pgtype.Text{String: "uid=", Valid: true}, true, now, now)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", a.ID)
	assert.False(t, a.GDriveLinked, "flag must drop when the email is missing")
	assert.True(t, a.TeamSpeakLinked)
	assert.True(t, a.Resolved())

	_, ok := a.DocumentStorageIdentity()
	assert.False(t, ok)
	uid, ok := a.VoiceServerIdentity()
	assert.True(t, ok)
	assert.Equal(t, "uid=", uid)
}

func TestIdentityAccessorsRequireFlag(t *testing.T) {
	a := LinkedAccount{ID: "x", GDriveEmail: "a@example.com", GDriveLinked: false}
	_, ok := a.DocumentStorageIdentity()
	assert.False(t, ok)
	assert.False(t, LinkedAccount{}.Resolved())
}

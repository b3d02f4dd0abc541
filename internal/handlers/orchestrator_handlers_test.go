package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildsync/guildsync/internal/accounts"
	"github.com/guildsync/guildsync/internal/executor"
	"github.com/guildsync/guildsync/internal/mappings"
	"github.com/guildsync/guildsync/internal/orchestrator"
	"github.com/guildsync/guildsync/internal/reconcile"
	"github.com/guildsync/guildsync/internal/roles"
)

func serve(t *testing.T, h interface{ Register(*echo.Echo) }, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	h.Register(e)
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestPingHandler(t *testing.T) {
	t.Parallel()
	h := NewPingHandler(nil, "orchestrator")

	rec := serve(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{"status": "ok", "service": "orchestrator"}, decode[map[string]string](t, rec))

	rec = serve(t, h, http.MethodHead, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

type linkerFunc func(ctx context.Context, discordID string) (orchestrator.LinkResult, error)

func (f linkerFunc) LinkAccount(ctx context.Context, discordID string) (orchestrator.LinkResult, error) {
	return f(ctx, discordID)
}

func TestLinkDiscord(t *testing.T) {
	t.Parallel()
	h := NewLinkHandler(nil, linkerFunc(func(_ context.Context, id string) (orchestrator.LinkResult, error) {
		return orchestrator.LinkResult{
			DiscordID: id,
			GuildID:   "g",
			Roles:     roles.Snapshot{{ID: "r1", Name: "Member"}},
			Report:    reconcile.Report{RunID: "run"},
		}, nil
	}))

	rec := serve(t, h, http.MethodPost, "/user/link/discord", `{"discord_id":" 42 "}`)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[orchestrator.LinkResult](t, rec)
	assert.Equal(t, "42", got.DiscordID)
	assert.Equal(t, "g", got.GuildID)
	assert.Equal(t, roles.Snapshot{{ID: "r1", Name: "Member"}}, got.Roles)
	assert.Equal(t, "run", got.Report.RunID)
}

func TestLinkDiscordErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"missing id", `{}`, nil, http.StatusBadRequest},
		{"bad json", `{`, nil, http.StatusBadRequest},
		{"member not found", `{"discord_id":"1"}`, fmt.Errorf("%w: %w", orchestrator.ErrRolesUnavailable, executor.ErrMemberNotFound), http.StatusNotFound},
		{"adapter status", `{"discord_id":"1"}`, fmt.Errorf("%w: %w", orchestrator.ErrRolesUnavailable, &executor.StatusError{Code: http.StatusTooManyRequests}), http.StatusTooManyRequests},
		{"adapter down", `{"discord_id":"1"}`, fmt.Errorf("%w: %w", orchestrator.ErrRolesUnavailable, errors.New("connection refused")), http.StatusBadGateway},
		{"adapter timeout", `{"discord_id":"1"}`, fmt.Errorf("%w: %w", orchestrator.ErrRolesUnavailable, context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"no guild", `{"discord_id":"1"}`, orchestrator.ErrNoDefaultGuild, http.StatusServiceUnavailable},
		{"storage", `{"discord_id":"1"}`, errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewLinkHandler(nil, linkerFunc(func(context.Context, string) (orchestrator.LinkResult, error) {
				return orchestrator.LinkResult{}, tt.err
			}))
			rec := serve(t, h, http.MethodPost, "/user/link/discord", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			body := decode[ErrorResponse](t, rec)
			assert.Equal(t, tt.status, body.StatusCode)
			assert.NotEmpty(t, body.Error)
		})
	}
}

type roleChangeFunc func(ctx context.Context, change orchestrator.RoleChange) (reconcile.Report, error)

func (f roleChangeFunc) HandleRoleChange(ctx context.Context, change orchestrator.RoleChange) (reconcile.Report, error) {
	return f(ctx, change)
}

func TestWebhookRoleChange(t *testing.T) {
	t.Parallel()
	var got orchestrator.RoleChange
	h := NewWebhookHandler(nil, roleChangeFunc(func(_ context.Context, change orchestrator.RoleChange) (reconcile.Report, error) {
		got = change
		return reconcile.Report{
			RunID: "run",
			Added: []string{"r1"},
			Items: []reconcile.Item{
				{RoleID: "r1", Outcome: executor.Applied()},
				{RoleID: "r1", Outcome: executor.Failed(executor.FailureTimeout, "")},
			},
		}, nil
	}))

	rec := serve(t, h, http.MethodPost, "/webhooks/discord/role-change", `{"discord_id":"1","guild_id":"g","roles":[{"id":"r1","name":"Member"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, orchestrator.RoleChange{DiscordID: "1", GuildID: "g", Roles: roles.Snapshot{{ID: "r1", Name: "Member"}}}, got)

	body := decode[WebhookResponse](t, rec)
	assert.Equal(t, "received", body.Status)
	assert.Equal(t, "1 added, 0 removed, 2 calls, 1 not successful", body.Message)
	require.NotNil(t, body.Report)
	assert.Equal(t, "run", body.Report.RunID)
}

func TestWebhookRoleChangeErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		err        error
		report     reconcile.Report
		status     int
		withReport bool
	}{
		{"unknown account", accounts.ErrAccountNotFound, reconcile.Report{}, http.StatusNotFound, false},
		{"missing guild", orchestrator.ErrGuildIDRequired, reconcile.Report{}, http.StatusBadRequest, false},
		{"snapshot conflict", orchestrator.ErrSnapshotConflict, reconcile.Report{RunID: "run"}, http.StatusConflict, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewWebhookHandler(nil, roleChangeFunc(func(context.Context, orchestrator.RoleChange) (reconcile.Report, error) {
				return tt.report, tt.err
			}))
			rec := serve(t, h, http.MethodPost, "/webhooks/discord/role-change", `{"discord_id":"1","guild_id":"g","roles":[]}`)
			assert.Equal(t, tt.status, rec.Code)
			body := decode[WebhookResponse](t, rec)
			assert.Equal(t, "error", body.Status)
			assert.Equal(t, tt.withReport, body.Report != nil)
		})
	}
}

type memoryMappings struct {
	data map[string]mappings.Mapping
}

func (m *memoryMappings) GetMappings(_ context.Context, guildID string) (mappings.Mapping, error) {
	if guildID == "broken" {
		return nil, errors.New("db down")
	}
	return m.data[guildID], nil
}

func (m *memoryMappings) PutEntry(_ context.Context, guildID, roleID string, entry mappings.Entry) error {
	if m.data[guildID] == nil {
		m.data[guildID] = mappings.Mapping{}
	}
	m.data[guildID][roleID] = entry
	return nil
}

func (m *memoryMappings) DeleteEntry(_ context.Context, guildID, roleID string) error {
	if _, ok := m.data[guildID][roleID]; !ok {
		return mappings.ErrEntryNotFound
	}
	delete(m.data[guildID], roleID)
	return nil
}

func TestMappingsHandler(t *testing.T) {
	t.Parallel()
	store := &memoryMappings{data: map[string]mappings.Mapping{}}
	h := NewMappingsHandler(nil, store)

	rec := serve(t, h, http.MethodGet, "/guilds/g/mappings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"guild_id":"g","mappings":{}}`, rec.Body.String())

	rec = serve(t, h, http.MethodPut, "/guilds/g/mappings/r1", `{"gdrive":[{"item_id":"F1","permission":"reader"}],"teamspeak":[{"group_id":"G1"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "F1", store.data["g"]["r1"].GDrive[0].ItemID)

	rec = serve(t, h, http.MethodPut, "/guilds/g/mappings/r2", `{"gdrive":[{"item_id":"F1","permission":"owner"}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, h, http.MethodDelete, "/guilds/g/mappings/r1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(t, h, http.MethodDelete, "/guilds/g/mappings/r1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, h, http.MethodGet, "/guilds/broken/mappings", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type fakeAccountStore struct {
	account accounts.LinkedAccount
	update  accounts.LinksUpdate
	err     error
}

func (f *fakeAccountStore) Resolve(context.Context, string) (accounts.LinkedAccount, error) {
	return f.account, f.err
}

func (f *fakeAccountStore) UpdateLinks(_ context.Context, discordID string, update accounts.LinksUpdate) (accounts.LinkedAccount, error) {
	f.update = update
	if f.err != nil {
		return accounts.LinkedAccount{}, f.err
	}
	a := accounts.LinkedAccount{ID: "acc", DiscordID: discordID}
	if update.GDriveEmail != nil {
		a.GDriveEmail, a.GDriveLinked = *update.GDriveEmail, *update.GDriveEmail != ""
	}
	return a, nil
}

func TestAccountsHandler(t *testing.T) {
	t.Parallel()
	store := &fakeAccountStore{}
	h := NewAccountsHandler(nil, store)

	rec := serve(t, h, http.MethodPut, "/accounts/42/links", `{"gdrive_email":"u@example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, store.update.GDriveEmail)
	assert.Nil(t, store.update.TeamSpeakUID)
	got := decode[accounts.LinkedAccount](t, rec)
	assert.True(t, got.GDriveLinked)
	assert.Equal(t, "42", got.DiscordID)

	rec = serve(t, h, http.MethodPut, "/accounts/42/links", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	store.err = accounts.ErrInvalidEmail
	rec = serve(t, h, http.MethodPut, "/accounts/42/links", `{"gdrive_email":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	store.err = accounts.ErrAccountNotFound
	rec = serve(t, h, http.MethodGet, "/accounts/42", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

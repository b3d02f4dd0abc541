package gdrive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/guildsync/guildsync/internal/adapters/api"
)

type fakePermissions struct {
	items   map[string][]Permission
	nextID  int
	listErr error
	calls   []string
}

func (f *fakePermissions) List(_ context.Context, itemID string) ([]Permission, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	items, ok := f.items[itemID]
	if !ok {
		return nil, &googleapi.Error{Code: http.StatusNotFound, Message: "File not found: " + itemID}
	}
	return append([]Permission(nil), items...), nil
}

func (f *fakePermissions) Create(_ context.Context, itemID, email, role string) error {
	f.calls = append(f.calls, "create "+role)
	f.nextID++
	f.items[itemID] = append(f.items[itemID], Permission{ID: fmt.Sprint(f.nextID), Email: email, Role: role})
	return nil
}

func (f *fakePermissions) Update(_ context.Context, itemID, permissionID, role string) error {
	f.calls = append(f.calls, "update "+role)
	for i, p := range f.items[itemID] {
		if p.ID == permissionID {
			f.items[itemID][i].Role = role
		}
	}
	return nil
}

func (f *fakePermissions) Delete(_ context.Context, itemID, permissionID string) error {
	f.calls = append(f.calls, "delete "+permissionID)
	kept := f.items[itemID][:0]
	for _, p := range f.items[itemID] {
		if p.ID != permissionID {
			kept = append(kept, p)
		}
	}
	f.items[itemID] = kept
	return nil
}

func send(t *testing.T, h *Handler, method, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	e := echo.New()
	h.Register(e)
	req := httptest.NewRequest(method, "/permissions", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec, out
}

func TestGrantAndRevokeAreIdempotent(t *testing.T) {
	fake := &fakePermissions{items: map[string][]Permission{"F1": {{ID: "owner", Email: "owner@example.com", Role: "owner"}}}}
	h := NewHandler(nil, NewService(nil, fake))
	grant := `{"email":"User@Example.com","item_id":"F1","role":"reader"}`

	rec, body := send(t, h, http.MethodPost, grant)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, api.ResultApplied, body["result"])

	rec, body = send(t, h, http.MethodPost, `{"email":"user@example.com","item_id":"F1","role":"reader"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, api.ResultAlready, body["result"])

	rec, body = send(t, h, http.MethodPost, `{"email":"user@example.com","item_id":"F1","role":"writer"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, api.ResultApplied, body["result"])

	rec, _ = send(t, h, http.MethodDelete, `{"email":"user@example.com","item_id":"F1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = send(t, h, http.MethodDelete, `{"email":"user@example.com","item_id":"F1"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, []string{"create reader", "update writer", "delete 1"}, fake.calls)
	assert.Len(t, fake.items["F1"], 1)
}

func TestGrantValidation(t *testing.T) {
	h := NewHandler(nil, NewService(nil, &fakePermissions{items: map[string][]Permission{}}))
	for _, body := range []string{
		`{"email":"","item_id":"F1","role":"reader"}`,
		`{"email":"a@example.com","item_id":"F1","role":"owner"}`,
		`{`,
	} {
		rec, _ := send(t, h, http.MethodPost, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestDriveErrors(t *testing.T) {
	t.Run("missing item", func(t *testing.T) {
		h := NewHandler(nil, NewService(nil, &fakePermissions{items: map[string][]Permission{}}))
		rec, body := send(t, h, http.MethodPost, `{"email":"a@example.com","item_id":"nope","role":"reader"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.EqualValues(t, http.StatusNotFound, body["error_id"])
	})
	t.Run("rate limited", func(t *testing.T) {
		fake := &fakePermissions{listErr: &googleapi.Error{Code: http.StatusTooManyRequests, Message: "slow down"}}
		h := NewHandler(nil, NewService(nil, fake))
		rec, _ := send(t, h, http.MethodDelete, `{"email":"a@example.com","item_id":"F1"}`)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	})
	t.Run("not configured", func(t *testing.T) {
		h := NewHandler(nil, NewService(nil, nil))
		rec, _ := send(t, h, http.MethodPost, `{"email":"a@example.com","item_id":"F1","role":"reader"}`)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestNewDrivePermissionsWithoutCredentials(t *testing.T) {
	p, err := NewDrivePermissions(context.Background(), "")
	assert.NoError(t, err)
	assert.Nil(t, p)

	_, err = NewDrivePermissions(context.Background(), "/does/not/exist.json")
	assert.Error(t, err)
}

package teamspeak

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/multiplay/go-ts3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildsync/guildsync/internal/adapters/api"
	"github.com/guildsync/guildsync/internal/cache"
)

type fakeServer struct {
	clients map[string]int
	members map[int]map[int]bool
	groups  []Group
	dials   int
	closes  int
	calls   []string
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		clients: map[string]int{"abc/def=": 7},
		members: map[int]map[int]bool{5: {}},
		groups:  []Group{{ID: 5, Name: "Member"}, {ID: 6, Name: "Admin"}},
	}
}

func (f *fakeServer) dialer() Dialer {
	return func(context.Context) (Query, error) {
		f.dials++
		return fakeQuery{f}, nil
	}
}

type fakeQuery struct{ s *fakeServer }

func (q fakeQuery) GroupList() ([]Group, error) { return q.s.groups, nil }

func (q fakeQuery) ClientDBID(uid string) (int, error) {
	q.s.calls = append(q.s.calls, "dbid "+uid)
	id, ok := q.s.clients[uid]
	if !ok {
		return 0, &ts3.Error{ID: 512, Msg: "invalid clientID"}
	}
	return id, nil
}

func (q fakeQuery) GroupAddClient(gid, dbid int) error {
	if q.s.members[gid] == nil {
		return &ts3.Error{ID: 2560, Msg: "invalid group ID"}
	}
	if q.s.members[gid][dbid] {
		return &ts3.Error{ID: 2561, Msg: "duplicate entry"}
	}
	q.s.members[gid][dbid] = true
	return nil
}

func (q fakeQuery) GroupDelClient(gid, dbid int) error {
	if !q.s.members[gid][dbid] {
		return &ts3.Error{ID: 1281, Msg: "database empty result set"}
	}
	delete(q.s.members[gid], dbid)
	return nil
}

func (q fakeQuery) Close() error {
	q.s.closes++
	return nil
}

func call(t *testing.T, h *Handler, method, path, body string) (*httptest.ResponseRecorder, api.ErrorResponse) {
	t.Helper()
	e := echo.New()
	h.Register(e)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var errBody api.ErrorResponse
	if rec.Code != http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errBody))
	}
	return rec, errBody
}

func TestMembershipRelaysVendorCodes(t *testing.T) {
	srv := newFakeServer()
	h := NewHandler(nil, NewService(nil, srv.dialer(), nil))

	rec, _ := call(t, h, http.MethodPost, "/groups/5/members", `{"unique_id":"abc/def="}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, srv.members[5][7])

	rec, errBody := call(t, h, http.MethodPost, "/groups/5/members", `{"unique_id":"abc/def="}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, 2561, errBody.ErrorID)

	rec, _ = call(t, h, http.MethodDelete, "/groups/5/members/abc%2Fdef%3D", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, srv.members[5][7])

	rec, errBody = call(t, h, http.MethodDelete, "/groups/5/members/abc%2Fdef%3D", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, 1281, errBody.ErrorID)

	assert.Equal(t, 4, srv.dials)
	assert.Equal(t, srv.dials, srv.closes)
}

func TestMembershipValidation(t *testing.T) {
	srv := newFakeServer()
	h := NewHandler(nil, NewService(nil, srv.dialer(), nil))

	rec, _ := call(t, h, http.MethodPost, "/groups/abc/members", `{"unique_id":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = call(t, h, http.MethodPost, "/groups/5/members", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, errBody := call(t, h, http.MethodPost, "/groups/5/members", `{"unique_id":"unknown"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, 512, errBody.ErrorID)
	assert.Zero(t, srv.dials-srv.closes)
}

func TestGroupsAreCached(t *testing.T) {
	now := time.Unix(100, 0)
	srv := newFakeServer()
	h := NewHandler(nil, NewService(nil, srv.dialer(), cache.New[[]api.Group](time.Minute, func() time.Time { return now })))

	for i := 0; i < 2; i++ {
		rec, _ := call(t, h, http.MethodGet, "/groups", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var body api.GroupsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, []api.Group{{ID: "5", Name: "Member"}, {ID: "6", Name: "Admin"}}, body.Groups)
	}
	assert.Equal(t, 1, srv.dials)

	now = now.Add(time.Hour)
	_, _ = call(t, h, http.MethodGet, "/groups", "")
	assert.Equal(t, 2, srv.dials)
}

func TestDialFailures(t *testing.T) {
	t.Run("login rejected", func(t *testing.T) {
		dial := func(context.Context) (Query, error) {
			return nil, &ts3.Error{ID: 520, Msg: "invalid loginname or password"}
		}
		h := NewHandler(nil, NewService(nil, dial, nil))
		rec, errBody := call(t, h, http.MethodPost, "/groups/5/members", `{"unique_id":"x"}`)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, 520, errBody.ErrorID)
	})
	t.Run("unreachable", func(t *testing.T) {
		dial := func(context.Context) (Query, error) { return nil, errors.New("connection refused") }
		h := NewHandler(nil, NewService(nil, dial, nil))
		rec, _ := call(t, h, http.MethodGet, "/groups", "")
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
	t.Run("not configured", func(t *testing.T) {
		h := NewHandler(nil, NewService(nil, nil, nil))
		rec, _ := call(t, h, http.MethodGet, "/groups", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

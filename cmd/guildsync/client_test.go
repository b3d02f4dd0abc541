package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildsync/guildsync/internal/adapters/api"
)

func TestParseRoles(t *testing.T) {
	got := parseRoles([]string{"1", " 2=Moderator ", "", "=orphan"})
	assert.Equal(t, []api.Role{{ID: "1"}, {ID: "2", Name: "Moderator"}}, got)
}

func TestDefaultAPIBaseURL(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:8000", defaultAPIBaseURL(":8000"))
	assert.Equal(t, "http://orchestrator:8000", defaultAPIBaseURL("orchestrator:8000"))
	assert.Equal(t, "https://sync.example.com", defaultAPIBaseURL("https://sync.example.com/"))
	assert.Empty(t, defaultAPIBaseURL("  "))
}

func TestAPIClientPost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user/link/discord", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"discord_id":"42"}`))
	}))
	defer srv.Close()

	client := &apiClient{http: srv.Client(), baseURL: srv.URL, token: "tok"}
	var out map[string]any
	require.NoError(t, client.post(t.Context(), "/user/link/discord", map[string]string{"discord_id": "42"}, &out))
	assert.Equal(t, "42", out["discord_id"])
}

func TestAPIClientPostErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"no account"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	client := &apiClient{http: srv.Client(), baseURL: srv.URL}
	err := client.post(t.Context(), "/user/link/discord", map[string]string{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "no account")
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/guildsync/guildsync/internal/adapters/api"
	"github.com/guildsync/guildsync/internal/auth"
)

type roleChangeRequest struct {
	DiscordID string     `json:"discord_id"`
	GuildID   string     `json:"guild_id"`
	Roles     []api.Role `json:"roles"`
}

type apiClient struct {
	http    *http.Client
	baseURL string
	token   string
}

func newAPIClient(opts *cliOptions) (*apiClient, error) {
	cfg, rc, err := loadRuntime(opts)
	if err != nil {
		return nil, err
	}
	baseURL := normalizeBaseURL(opts.apiBaseURL)
	if baseURL == "" {
		baseURL = defaultAPIBaseURL(cfg.Server.Addr)
	}
	if baseURL == "" {
		return nil, fmt.Errorf("api url is required")
	}

	token := strings.TrimSpace(opts.jwtToken)
	if token == "" && rc.InternalSecret != "" {
		token, _, err = auth.GenerateToken("guildsync-cli", rc.InternalSecret, rc.TokenExpiresIn)
		if err != nil {
			return nil, fmt.Errorf("mint token: %w", err)
		}
	}
	return &apiClient{
		http:    &http.Client{Timeout: opts.timeout},
		baseURL: baseURL,
		token:   token,
	}, nil
}

func (c *apiClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: %s: %s", http.MethodPost, path, resp.Status, strings.TrimSpace(string(raw)))
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseRoles accepts "id" or "id=name" entries.
func parseRoles(raw []string) []api.Role {
	out := make([]api.Role, 0, len(raw))
	for _, entry := range raw {
		id, name, _ := strings.Cut(strings.TrimSpace(entry), "=")
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		out = append(out, api.Role{ID: id, Name: strings.TrimSpace(name)})
	}
	return out
}

func normalizeBaseURL(value string) string {
	return strings.TrimRight(strings.TrimSpace(value), "/")
}

func defaultAPIBaseURL(addr string) string {
	trimmed := strings.TrimSpace(addr)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return normalizeBaseURL(trimmed)
	}
	if strings.HasPrefix(trimmed, ":") {
		return "http://127.0.0.1" + trimmed
	}
	return "http://" + trimmed
}

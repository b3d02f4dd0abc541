package executor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/guildsync/guildsync/internal/adapters/api"
	"github.com/guildsync/guildsync/internal/roles"
)

// ErrMemberNotFound is returned when the user is not a member of the guild.
var ErrMemberNotFound = errors.New("discord member not found in guild")

// DiscordClient reads current roles from the Discord adapter. Unlike the
// mutating executors it returns errors, since a read has no desired state.
type DiscordClient struct {
	client  jsonClient
	timeout time.Duration
}

// NewDiscordClient creates a client for the Discord adapter at baseURL.
func NewDiscordClient(baseURL string, httpClient *http.Client) *DiscordClient {
	return &DiscordClient{client: newJSONClient(baseURL, httpClient), timeout: DefaultPolicy.Timeout}
}

// GetCurrentRoles returns the roles discordID holds in guildID. A ctx without
// a deadline gets DefaultPolicy.Timeout.
func (c *DiscordClient) GetCurrentRoles(ctx context.Context, discordID, guildID string) (roles.Snapshot, error) {
	if strings.TrimSpace(discordID) == "" || strings.TrimSpace(guildID) == "" {
		return nil, errors.New("discord id and guild id are required")
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	path := "/user/" + url.PathEscape(discordID) + "/roles?guild_id=" + url.QueryEscape(guildID)
	var res api.UserRolesResponse
	if err := c.client.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrMemberNotFound, discordID)
		}
		return nil, fmt.Errorf("fetch discord roles: %w", err)
	}
	snapshot := make(roles.Snapshot, 0, len(res.Roles))
	for _, r := range res.Roles {
		snapshot = append(snapshot, roles.Role{ID: r.ID, Name: r.Name})
	}
	return snapshot.Dedupe(), nil
}

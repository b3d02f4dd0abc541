package orchestrator

import (
	"context"
	"errors"

	"github.com/guildsync/guildsync/internal/accounts"
	"github.com/guildsync/guildsync/internal/reconcile"
	"github.com/guildsync/guildsync/internal/roles"
)

// Errors returned by the entry points. Anything else is an infrastructure failure.
var (
	ErrGuildIDRequired  = errors.New("guild id is required")
	ErrNoDefaultGuild   = errors.New("no default discord guild configured")
	ErrRolesUnavailable = errors.New("could not fetch current discord roles")
	ErrSnapshotConflict = errors.New("role snapshot changed during reconciliation")
)

// RoleSource reads a member's current roles from the chat platform.
type RoleSource interface {
	GetCurrentRoles(ctx context.Context, discordID, guildID string) (roles.Snapshot, error)
}

// Reconciler fans a delta out to downstream services.
type Reconciler interface {
	Reconcile(ctx context.Context, account accounts.LinkedAccount, guildID string, delta roles.Delta) reconcile.Report
}

// RoleChange is a "roles changed" notification for one member of one guild.
type RoleChange struct {
	DiscordID string         `json:"discord_id"`
	GuildID   string         `json:"guild_id"`
	Roles     roles.Snapshot `json:"roles"`
}

// LinkResult is returned by LinkAccount.
type LinkResult struct {
	DiscordID string           `json:"discord_id"`
	GuildID   string           `json:"guild_id"`
	Roles     roles.Snapshot   `json:"roles"`
	Report    reconcile.Report `json:"report"`
}

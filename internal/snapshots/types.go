package snapshots

import (
	"errors"
	"time"

	"github.com/guildsync/guildsync/internal/roles"
)

// Errors returned by snapshot stores.
var (
	ErrNotFound        = errors.New("no stored role snapshot")
	ErrVersionConflict = errors.New("role snapshot was updated concurrently")
)

// Record is the last-known role snapshot of an account in a guild.
// Version starts at 1 and increases on every save.
type Record struct {
	AccountID string         `json:"account_id"`
	GuildID   string         `json:"guild_id"`
	Roles     roles.Snapshot `json:"roles"`
	Version   int64          `json:"version"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Package api holds the JSON bodies exchanged between the orchestrator and the platform adapters.
package api

// HealthResponse is returned by every adapter's GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service,omitempty"`
}

// Role is a chat-platform role on the wire.
type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UserRolesResponse answers GET /user/:discord_id/roles.
type UserRolesResponse struct {
	DiscordID string `json:"discord_id"`
	GuildID   string `json:"guild_id"`
	Roles     []Role `json:"roles"`
}

// GuildRolesResponse answers GET /guilds/:guild_id/roles.
type GuildRolesResponse struct {
	GuildID string `json:"guild_id"`
	Roles   []Role `json:"roles"`
}

// PermissionRequest is the body of POST and DELETE /permissions on the document-storage adapter.
// Role is ignored on DELETE.
type PermissionRequest struct {
	Email  string `json:"email"`
	ItemID string `json:"item_id"`
	Role   string `json:"role,omitempty"`
}

// MemberRequest is the body of POST /groups/:group_id/members on the voice-server adapter.
type MemberRequest struct {
	UniqueID string `json:"unique_id"`
}

// Result values reported by adapters for mutating calls.
const (
	ResultApplied = "applied"
	ResultAlready = "already"
)

// ResultResponse is the success body of a mutating adapter call.
type ResultResponse struct {
	Result string `json:"result"`
}

// ErrorResponse is the error body of every adapter. ErrorID carries the vendor
// error code when the failure came from the platform itself.
type ErrorResponse struct {
	Message string `json:"message"`
	ErrorID int    `json:"error_id,omitempty"`
}

// Group is a voice-server group on the wire.
type Group struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GroupsResponse answers GET /groups on the voice-server adapter.
type GroupsResponse struct {
	Groups []Group `json:"groups"`
}

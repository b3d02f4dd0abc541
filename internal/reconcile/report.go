package reconcile

import (
	"time"

	"github.com/guildsync/guildsync/internal/executor"
)

// Service names a downstream platform.
type Service string

const (
	ServiceGDrive    Service = "gdrive"
	ServiceTeamSpeak Service = "teamspeak"
)

// Action is the direction of a role change.
type Action string

const (
	ActionAdd    Action = "added"
	ActionRemove Action = "removed"
)

// Item is one attempted downstream call.
type Item struct {
	RoleID  string           `json:"role_id"`
	Action  Action           `json:"action"`
	Service Service          `json:"service"`
	Target  string           `json:"target"`
	Level   string           `json:"level,omitempty"`
	Outcome executor.Outcome `json:"outcome"`
}

// Report enumerates every call attempted for one reconciliation.
type Report struct {
	RunID        string                  `json:"run_id"`
	AccountID    string                  `json:"internal_account_id"`
	DiscordID    string                  `json:"discord_id"`
	GuildID      string                  `json:"guild_id"`
	Added        []string                `json:"added"`
	Removed      []string                `json:"removed"`
	Items        []Item                  `json:"items"`
	Counts       map[executor.Status]int `json:"counts"`
	MappingError string                  `json:"mapping_error,omitempty"`
	StartedAt    time.Time               `json:"started_at"`
	Duration     time.Duration           `json:"duration_ns"`
}

// Failures returns the items whose call did not succeed.
func (r Report) Failures() []Item {
	var out []Item
	for _, it := range r.Items {
		if !it.Outcome.Succeeded() {
			out = append(out, it)
		}
	}
	return out
}

// OK reports whether every attempted call succeeded and the mapping loaded.
func (r Report) OK() bool {
	return r.MappingError == "" && len(r.Failures()) == 0
}

func (r *Report) tally() {
	r.Counts = make(map[executor.Status]int, 4)
	for _, it := range r.Items {
		r.Counts[it.Outcome.Status]++
	}
}

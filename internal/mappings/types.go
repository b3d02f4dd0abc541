package mappings

import (
	"errors"
	"fmt"
	"strings"
)

// Errors returned by mapping operations.
var (
	ErrGuildIDRequired = errors.New("guild id is required")
	ErrRoleIDRequired  = errors.New("role id is required")
	ErrEntryNotFound   = errors.New("role mapping not found")
)

// DrivePermissions are the permission levels the Drive API accepts for a user grant.
var DrivePermissions = []string{"reader", "commenter", "writer", "fileOrganizer", "organizer"}

// DriveGrant gives the role holder a permission level on one Drive item.
type DriveGrant struct {
	ItemID     string `json:"item_id"`
	Permission string `json:"permission"`
}

// VoiceGroup puts the role holder in one TeamSpeak server group.
type VoiceGroup struct {
	GroupID string `json:"group_id"`
}

// Entry lists everything one role implies downstream.
type Entry struct {
	GDrive    []DriveGrant `json:"gdrive"`
	TeamSpeak []VoiceGroup `json:"teamspeak"`
}

// Empty reports whether the entry implies no downstream action.
func (e Entry) Empty() bool {
	return len(e.GDrive) == 0 && len(e.TeamSpeak) == 0
}

// Validate checks that every target is addressable.
func (e Entry) Validate() error {
	for i, g := range e.GDrive {
		if strings.TrimSpace(g.ItemID) == "" {
			return fmt.Errorf("gdrive[%d]: item_id is required", i)
		}
		if !validPermission(g.Permission) {
			return fmt.Errorf("gdrive[%d]: permission %q is not one of %s", i, g.Permission, strings.Join(DrivePermissions, ", "))
		}
	}
	for i, v := range e.TeamSpeak {
		if strings.TrimSpace(v.GroupID) == "" {
			return fmt.Errorf("teamspeak[%d]: group_id is required", i)
		}
	}
	return nil
}

func validPermission(p string) bool {
	for _, candidate := range DrivePermissions {
		if p == candidate {
			return true
		}
	}
	return false
}

// Mapping maps role IDs of one guild to their downstream entries.
type Mapping map[string]Entry

// Lookup returns the entry for roleID; missing roles yield ok=false.
func (m Mapping) Lookup(roleID string) (Entry, bool) {
	e, ok := m[roleID]
	return e, ok && !e.Empty()
}

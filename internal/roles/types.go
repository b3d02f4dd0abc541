package roles

// Role is a chat-platform role as carried in a snapshot. The ID is opaque.
type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Snapshot is the set of roles an identity holds in one community at one instant.
// Order carries no meaning; duplicate IDs collapse to one role.
type Snapshot []Role

// Delta is the difference between two snapshots, as sorted role IDs.
type Delta struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}

// Empty reports whether the delta implies no downstream work.
func (d Delta) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

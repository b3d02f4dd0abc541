// Package roles holds role snapshots and the delta engine comparing them.
package roles

import (
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
)

// IDs returns the set of role IDs in the snapshot.
func (s Snapshot) IDs() mapset.Set[string] {
	ids := mapset.NewThreadUnsafeSetWithSize[string](len(s))
	for _, r := range s {
		ids.Add(r.ID)
	}
	return ids
}

// Dedupe returns a copy of the snapshot with one entry per role ID, keeping the first name seen.
func (s Snapshot) Dedupe() Snapshot {
	if len(s) == 0 {
		return Snapshot{}
	}
	seen := mapset.NewThreadUnsafeSetWithSize[string](len(s))
	out := make(Snapshot, 0, len(s))
	for _, r := range s {
		if seen.Add(r.ID) {
			out = append(out, r)
		}
	}
	return out
}

// ComputeDelta returns the role IDs present only in current (added) and only in previous (removed).
// IDs are not validated against any mapping.
func ComputeDelta(previous, current Snapshot) Delta {
	prev := previous.IDs()
	cur := current.IDs()
	return Delta{
		Added:   sortedSlice(cur.Difference(prev)),
		Removed: sortedSlice(prev.Difference(cur)),
	}
}

func sortedSlice(set mapset.Set[string]) []string {
	out := set.ToSlice()
	slices.Sort(out)
	return out
}

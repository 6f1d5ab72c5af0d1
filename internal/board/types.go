// Package board implements the dashboard's data plane: the periodic
// fetch-and-reconcile scheduler, the snapshot diff engine, the staged
// removal queue that gives disappearing records a visual grace period, and
// the durable snapshot cache that lets a restarted kiosk paint last-known
// data before its first fetch.
package board

import (
	"sort"

	"github.com/openclinic/kioskboard/internal/api"
)

// Snapshot is the full ordered set of records as of one synchronization
// cycle.
type Snapshot = []api.Encounter

// ChangeSet classifies how one snapshot differs from its predecessor.
// Computed once per cycle and immutable afterwards; every identity appears
// in exactly one list.
type ChangeSet struct {
	Added     []string
	Changed   []string
	Removed   []string
	Unchanged []string
}

// Empty reports whether the cycle produced no visible difference.
func (cs *ChangeSet) Empty() bool {
	return len(cs.Added) == 0 && len(cs.Changed) == 0 && len(cs.Removed) == 0
}

// Update is what the scheduler publishes to its subscriber after each cycle
// and after each eviction.
type Update struct {
	CycleID string
	Changes ChangeSet
	Evicted []string // identities whose grace period elapsed this update

	// Visible is the presentation-sorted set the UI should render: live
	// records plus any still inside their removal grace period.
	Visible []api.Encounter

	// Err is set when the cycle failed and Visible carries retained stale
	// data. The dashboard prefers stale data over an empty screen; the
	// subscriber surfaces Err as a dismissible banner.
	Err error
}

// SortForDisplay returns records in presentation order: ascending by room
// number, with unassigned records (absent, zero, or "TBD" locations) last.
// The sort is stable, so ties keep their relative order from the input.
// Recomputed every cycle, never cached.
func SortForDisplay(records []api.Encounter) []api.Encounter {
	out := make([]api.Encounter, len(records))
	copy(out, records)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := &out[i], &out[j]

		if a.Unassigned() != b.Unassigned() {
			return !a.Unassigned()
		}

		if a.Unassigned() {
			return false // both unassigned: stable sort keeps input order
		}

		return a.Location < b.Location
	})

	return out
}

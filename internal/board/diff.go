package board

import "github.com/openclinic/kioskboard/internal/api"

// Diff compares two snapshots by record identity and returns the
// classification of every identity. Pure function: no clocks, no I/O.
//
// Identities present only in cur are added; present in both with any
// watched field differing are changed; present in both and equal are
// unchanged; present only in prev are removed. A duplicate identity within
// cur is classified once (first occurrence wins) — normalization upstream
// should have deduplicated already.
func Diff(prev, cur Snapshot) ChangeSet {
	index := make(map[string]*api.Encounter, len(prev))
	for i := range prev {
		if _, dup := index[prev[i].ID]; !dup {
			index[prev[i].ID] = &prev[i]
		}
	}

	var cs ChangeSet

	seen := make(map[string]bool, len(cur))

	for i := range cur {
		rec := &cur[i]

		if seen[rec.ID] {
			continue
		}

		seen[rec.ID] = true

		old, ok := index[rec.ID]
		if !ok {
			cs.Added = append(cs.Added, rec.ID)
			continue
		}

		if recordChanged(old, rec) {
			cs.Changed = append(cs.Changed, rec.ID)
		} else {
			cs.Unchanged = append(cs.Unchanged, rec.ID)
		}
	}

	for i := range prev {
		if !seen[prev[i].ID] {
			seen[prev[i].ID] = true
			cs.Removed = append(cs.Removed, prev[i].ID)
		}
	}

	return cs
}

// recordChanged reports whether any watched field differs between two
// versions of a record: status, assigned location, arrival timestamp, or
// the assigned-staff list (deep equality).
func recordChanged(old, cur *api.Encounter) bool {
	if old.Status != cur.Status {
		return true
	}

	if old.Location != cur.Location {
		return true
	}

	if !old.ArrivedAt.Equal(cur.ArrivedAt) {
		return true
	}

	return !old.StaffEqual(cur)
}

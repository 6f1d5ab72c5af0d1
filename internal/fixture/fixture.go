// Package fixture provides a deterministic offline encounter feed for
// development without the remote authority. Selected by the fixture config
// flag; explicitly outside the production failure model.
package fixture

import (
	"context"
	stdsync "sync"
	"time"

	"github.com/openclinic/kioskboard/internal/api"
)

// Feed implements board.Fetcher with a scripted rotation of encounters so
// all three transitions (added, changed, removed) appear within a few
// cycles without a backend.
type Feed struct {
	mu   stdsync.Mutex
	tick int
}

// NewFeed creates a fixture feed starting at the first frame.
func NewFeed() *Feed {
	return &Feed{}
}

// Encounters returns the current frame and advances the script. The filter
// is ignored — the fixture is a single small department.
func (f *Feed) Encounters(_ context.Context, _ api.EncounterFilter) ([]api.Encounter, error) {
	f.mu.Lock()
	tick := f.tick
	f.tick++
	f.mu.Unlock()

	return frame(tick), nil
}

// Base arrival time for the scripted encounters.
var arrivalBase = time.Date(2026, time.March, 9, 8, 30, 0, 0, time.UTC)

// frame renders the scripted state for one tick. The script loops every
// four ticks: a stable roster, one status change, one departure, then one
// arrival that reuses the departed room.
func frame(tick int) []api.Encounter {
	phase := tick % 4

	recs := []api.Encounter{
		{
			ID:        "enc-1001",
			Status:    "IN_ROOM",
			Location:  2,
			ArrivedAt: arrivalBase,
			Staff:     []string{"R. Okafor"},
		},
		{
			ID:        "enc-1002",
			Status:    "WAITING",
			Location:  0,
			ArrivedAt: arrivalBase.Add(10 * time.Minute),
		},
		{
			ID:        "enc-1003",
			Status:    "IN_ROOM",
			Location:  5,
			ArrivedAt: arrivalBase.Add(20 * time.Minute),
			Staff:     []string{"M. Laine", "T. Haugen"},
		},
	}

	switch phase {
	case 1:
		recs[0].Status = "WITH_PROVIDER"
	case 2:
		recs[0].Status = "WITH_PROVIDER"
		recs = recs[:2] // enc-1003 departs
	case 3:
		recs[0].Status = "WITH_PROVIDER"
		recs = append(recs[:2], api.Encounter{
			ID:        "enc-1004",
			Status:    "IN_ROOM",
			Location:  5,
			ArrivedAt: arrivalBase.Add(45 * time.Minute),
			Staff:     []string{"M. Laine"},
		})
	}

	return recs
}

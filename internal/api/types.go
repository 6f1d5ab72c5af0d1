package api

import (
	"encoding/json"
	"time"
)

// Credentials is the token bundle returned by the login and refresh
// endpoints. Origin is only populated by login; refresh responses keep the
// origin the session was established against.
type Credentials struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	Origin       string    `json:"origin,omitempty"`
}

// Encounter is one normalized live record on the dashboard. Identity is the
// sole diff key; Status, Location, ArrivedAt, and Staff are the watched
// mutable fields.
type Encounter struct {
	ID          string
	Status      string // opaque backend taxonomy, passed through
	Location    int    // room number; 0 = unassigned
	LocationRaw string // original wire value, kept for display ("TBD", "")
	ArrivedAt   time.Time
	Staff       []string // assigned staff display names, order preserved
}

// StaffEqual reports whether the assigned-staff lists of e and other match
// element-wise. Used by the diff engine for deep comparison.
func (e *Encounter) StaffEqual(other *Encounter) bool {
	if len(e.Staff) != len(other.Staff) {
		return false
	}

	for i := range e.Staff {
		if e.Staff[i] != other.Staff[i] {
			return false
		}
	}

	return true
}

// Unassigned reports whether the encounter has no usable room assignment.
// Absent, zero, and sentinel ("TBD") wire values all normalize to zero.
func (e *Encounter) Unassigned() bool {
	return e.Location <= 0
}

// wireEncounter mirrors the backend's loosely-typed encounter shape.
// Location arrives as a number, a numeric string, a sentinel string, or not
// at all; normalization resolves it before any record enters the diff.
type wireEncounter struct {
	ID        string          `json:"id"`
	Status    string          `json:"status"`
	Location  json.RawMessage `json:"location"`
	ArrivedAt string          `json:"arrived_at"`
	Staff     []wireStaff     `json:"staff"`
}

// wireStaff is one assigned staff member as sent by the backend.
type wireStaff struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// JobRequest is one note-compliance check request within a batch.
type JobRequest struct {
	EncounterID string `json:"encounter_id"`
	Kind        string `json:"kind"` // "check" or "recheck"
}

// Job kinds accepted by the notes endpoint.
const (
	JobCheck   = "check"
	JobRecheck = "recheck"
)

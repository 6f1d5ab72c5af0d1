package api

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// locationTBD is the backend's placeholder for an encounter that has not yet
// been assigned a room.
const locationTBD = "TBD"

// normalizeEncounters validates and converts a batch of wire records into
// typed Encounters. Records without an identity are dropped with a warning
// rather than propagated into the diff. The pipeline runs in a fixed order:
//  1. Drop records missing an identity
//  2. Resolve the loosely-typed location field
//  3. Parse arrival timestamps (unparseable → zero time)
//  4. NFC-normalize staff display names
func normalizeEncounters(wire []wireEncounter, logger *slog.Logger) []Encounter {
	out := make([]Encounter, 0, len(wire))

	for i := range wire {
		w := &wire[i]

		if w.ID == "" {
			logger.Warn("dropping encounter with missing identity",
				slog.Int("index", i),
				slog.String("status", w.Status),
			)

			continue
		}

		loc, raw := parseLocation(w.Location)

		out = append(out, Encounter{
			ID:          w.ID,
			Status:      w.Status,
			Location:    loc,
			LocationRaw: raw,
			ArrivedAt:   parseArrival(w.ArrivedAt, w.ID, logger),
			Staff:       normalizeStaff(w.Staff),
		})
	}

	if dropped := len(wire) - len(out); dropped > 0 {
		logger.Warn("dropped malformed encounters from batch",
			slog.Int("dropped_count", dropped),
			slog.Int("remaining_count", len(out)),
		)
	}

	return out
}

// parseLocation resolves the backend's location field, which may be a JSON
// number, a numeric string, a sentinel string, or absent. Anything that does
// not resolve to a positive room number normalizes to 0 (unassigned).
func parseLocation(raw json.RawMessage) (int, string) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, ""
	}

	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		if n < 0 {
			return 0, strconv.Itoa(n)
		}

		return n, strconv.Itoa(n)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		trimmed := strings.TrimSpace(s)
		if trimmed == "" || strings.EqualFold(trimmed, locationTBD) {
			return 0, trimmed
		}

		if n, convErr := strconv.Atoi(trimmed); convErr == nil && n > 0 {
			return n, trimmed
		}

		return 0, trimmed
	}

	return 0, string(raw)
}

// parseArrival parses an RFC 3339 arrival timestamp. The zero time is used
// for missing or malformed values so the record still participates in the
// cycle.
func parseArrival(s, id string, logger *slog.Logger) time.Time {
	if s == "" {
		return time.Time{}
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		logger.Warn("unparseable arrival timestamp",
			slog.String("encounter_id", id),
			slog.String("value", s),
		)

		return time.Time{}
	}

	return t
}

// normalizeStaff converts wire staff entries to NFC-normalized display names.
// Entries with empty names are skipped; order is preserved.
func normalizeStaff(staff []wireStaff) []string {
	if len(staff) == 0 {
		return nil
	}

	names := make([]string, 0, len(staff))

	for _, s := range staff {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			continue
		}

		names = append(names, norm.NFC.String(name))
	}

	if len(names) == 0 {
		return nil
	}

	return names
}

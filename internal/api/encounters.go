package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// pathEncounters is the protected endpoint listing live encounters.
const pathEncounters = "/encounters"

// EncounterFilter narrows the encounter listing. Zero values mean "no
// filter".
type EncounterFilter struct {
	Department string // department code, e.g. "urgent-care"
	Location   int    // restrict to one room
}

// query renders the filter as URL query parameters.
func (f EncounterFilter) query() string {
	v := url.Values{}

	if f.Department != "" {
		v.Set("department", f.Department)
	}

	if f.Location > 0 {
		v.Set("location", strconv.Itoa(f.Location))
	}

	if len(v) == 0 {
		return ""
	}

	return "?" + v.Encode()
}

// Encounters fetches the current live encounter list. The response is
// validated and normalized at this boundary: records missing an identity are
// dropped with a warning and never reach the diff engine.
func (c *Client) Encounters(ctx context.Context, filter EncounterFilter) ([]Encounter, error) {
	var wire []wireEncounter
	if err := c.doJSON(ctx, http.MethodGet, pathEncounters+filter.query(), nil, true, &wire); err != nil {
		return nil, fmt.Errorf("api: fetching encounters: %w", err)
	}

	return normalizeEncounters(wire, c.logger), nil
}

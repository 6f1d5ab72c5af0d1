package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncountersFetchAndNormalize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, pathEncounters, r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		_, _ = w.Write([]byte(`[
			{"id": "enc-1", "status": "IN_ROOM", "location": 3,
			 "arrived_at": "2026-03-09T08:30:00Z",
			 "staff": [{"name": "R. Okafor", "role": "RN"}]},
			{"id": "", "status": "GHOST"},
			{"id": "enc-2", "status": "WAITING", "location": "TBD"}
		]`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, staticToken("tok"))

	recs, err := c.Encounters(context.Background(), EncounterFilter{})
	require.NoError(t, err)

	// The record missing an identity was dropped at the boundary.
	require.Len(t, recs, 2)

	assert.Equal(t, "enc-1", recs[0].ID)
	assert.Equal(t, 3, recs[0].Location)
	assert.Equal(t, []string{"R. Okafor"}, recs[0].Staff)

	assert.Equal(t, "enc-2", recs[1].ID)
	assert.True(t, recs[1].Unassigned())
	assert.Equal(t, "TBD", recs[1].LocationRaw)
}

func TestEncountersFilterQuery(t *testing.T) {
	var gotQuery string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, staticToken("tok"))

	_, err := c.Encounters(context.Background(), EncounterFilter{Department: "urgent-care", Location: 4})
	require.NoError(t, err)

	assert.Equal(t, "department=urgent-care&location=4", gotQuery)
}

func TestEncountersUnauthorizedSurfacesAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, staticToken("tok"))

	_, err := c.Encounters(context.Background(), EncounterFilter{})
	require.Error(t, err)
	assert.True(t, IsAuthError(err))
}

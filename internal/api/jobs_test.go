package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitJobBatchSingleRequest(t *testing.T) {
	var requests atomic.Int32

	var gotBatch struct {
		BatchID string       `json:"batch_id"`
		Jobs    []JobRequest `json:"jobs"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)

		require.Equal(t, pathNoteChecks, r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBatch))

		_, _ = w.Write([]byte(`{"accepted": true}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, staticToken("t"))

	jobs := []JobRequest{
		{EncounterID: "enc-1", Kind: JobCheck},
		{EncounterID: "enc-2", Kind: JobCheck},
		{EncounterID: "enc-3", Kind: JobRecheck},
	}

	batchID, err := c.SubmitJobBatch(context.Background(), jobs)
	require.NoError(t, err)

	// One request for the whole batch, never one per job.
	assert.Equal(t, int32(1), requests.Load())
	assert.Equal(t, jobs, gotBatch.Jobs)
	assert.Equal(t, batchID, gotBatch.BatchID)

	_, parseErr := uuid.Parse(batchID)
	assert.NoError(t, parseErr)
}

func TestSubmitJobBatchRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"accepted": false}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, staticToken("t"))

	_, err := c.SubmitJobBatch(context.Background(), []JobRequest{{EncounterID: "enc-1", Kind: JobCheck}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBatchRejected)
}

func TestSubmitJobBatchEmpty(t *testing.T) {
	c := NewClient("http://unused", nil, staticToken("t"), testLogger(t))

	_, err := c.SubmitJobBatch(context.Background(), nil)
	require.Error(t, err)
}

func TestSubmitJobBatchWholeBatchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`malformed batch`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, staticToken("t"))

	_, err := c.SubmitJobBatch(context.Background(), []JobRequest{{EncounterID: "enc-1", Kind: JobCheck}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadRequest)
}

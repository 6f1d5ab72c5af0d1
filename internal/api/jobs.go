package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// pathNoteChecks is the protected endpoint accepting note-compliance check
// batches.
const pathNoteChecks = "/notes/checks"

// ErrBatchRejected indicates the downstream queue did not accept the batch.
// The whole batch must be re-submitted; there is no per-job acknowledgment.
var ErrBatchRejected = errors.New("api: note check batch rejected")

// SubmitJobBatch enqueues a batch of note-compliance checks as exactly one
// request. Acceptance is all-or-nothing: on any failure the caller re-submits
// the whole batch. The generated batch ID is returned for log correlation.
func (c *Client) SubmitJobBatch(ctx context.Context, jobs []JobRequest) (string, error) {
	if len(jobs) == 0 {
		return "", fmt.Errorf("api: empty job batch")
	}

	batchID := uuid.NewString()

	body, err := json.Marshal(struct {
		BatchID string       `json:"batch_id"`
		Jobs    []JobRequest `json:"jobs"`
	}{BatchID: batchID, Jobs: jobs})
	if err != nil {
		return "", fmt.Errorf("api: encoding job batch: %w", err)
	}

	var result struct {
		Accepted bool `json:"accepted"`
	}

	if err := c.doJSON(ctx, http.MethodPost, pathNoteChecks, body, true, &result); err != nil {
		return batchID, fmt.Errorf("api: submitting batch %s: %w", batchID, err)
	}

	if !result.Accepted {
		return batchID, fmt.Errorf("api: batch %s: %w", batchID, ErrBatchRejected)
	}

	c.logger.Info("note check batch accepted",
		slog.String("batch_id", batchID),
		slog.Int("jobs", len(jobs)),
	)

	return batchID, nil
}

package board

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// evictRecorder collects onEvict callbacks.
type evictRecorder struct {
	mu  sync.Mutex
	ids []string
	ch  chan string
}

func newEvictRecorder() *evictRecorder {
	return &evictRecorder{ch: make(chan string, 16)}
}

func (r *evictRecorder) record(id string) {
	r.mu.Lock()
	r.ids = append(r.ids, id)
	r.mu.Unlock()

	r.ch <- id
}

func (r *evictRecorder) evicted() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.ids...)
}

func TestRemovalQueueEvictsAfterGrace(t *testing.T) {
	rec := newEvictRecorder()
	q := NewRemovalQueue(20*time.Millisecond, rec.record, quietLogger())
	defer q.Stop()

	q.MarkRemoved(enc("A", "WAITING", 1))
	assert.True(t, q.IsPending("A"))

	select {
	case id := <-rec.ch:
		assert.Equal(t, "A", id)
	case <-time.After(time.Second):
		t.Fatal("eviction never fired")
	}

	assert.False(t, q.IsPending("A"))
	assert.Empty(t, q.Pending())
}

func TestRemovalQueueReappearanceCancels(t *testing.T) {
	rec := newEvictRecorder()
	q := NewRemovalQueue(30*time.Millisecond, rec.record, quietLogger())
	defer q.Stop()

	q.MarkRemoved(enc("A", "WAITING", 1))
	require.True(t, q.MarkLive("A"))
	assert.False(t, q.IsPending("A"))

	// Past the original deadline: no eviction may fire.
	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, rec.evicted())
}

func TestRemovalQueueRepeatedRemovalKeepsTimer(t *testing.T) {
	rec := newEvictRecorder()
	q := NewRemovalQueue(40*time.Millisecond, rec.record, quietLogger())
	defer q.Stop()

	q.MarkRemoved(enc("A", "WAITING", 1))
	time.Sleep(25 * time.Millisecond)

	// A second removal report must not reset the original deadline.
	q.MarkRemoved(enc("A", "WAITING", 1))

	select {
	case <-rec.ch:
		// Fired on the first timer's schedule.
	case <-time.After(40 * time.Millisecond):
		t.Fatal("original eviction timer was reset")
	}

	assert.Equal(t, []string{"A"}, rec.evicted())
}

func TestRemovalQueueMarkLiveUnknownID(t *testing.T) {
	q := NewRemovalQueue(time.Minute, nil, quietLogger())
	defer q.Stop()

	assert.False(t, q.MarkLive("nobody"))
}

func TestRemovalQueuePendingSnapshots(t *testing.T) {
	q := NewRemovalQueue(time.Minute, nil, quietLogger())
	defer q.Stop()

	a := enc("A", "WAITING", 1)
	b := enc("B", "IN_ROOM", 2)
	q.MarkRemoved(a)
	q.MarkRemoved(b)

	pending := q.Pending()
	require.Len(t, pending, 2)

	ids := []string{pending[0].ID, pending[1].ID}
	assert.ElementsMatch(t, []string{"A", "B"}, ids)
}

func TestRemovalQueueStopCancelsTimers(t *testing.T) {
	rec := newEvictRecorder()
	q := NewRemovalQueue(20*time.Millisecond, rec.record, quietLogger())

	q.MarkRemoved(enc("A", "WAITING", 1))
	q.Stop()

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, rec.evicted())
	assert.Empty(t, q.Pending())
}

func TestRemovalQueueDefaultGrace(t *testing.T) {
	q := NewRemovalQueue(0, nil, nil)
	defer q.Stop()

	assert.Equal(t, DefaultGracePeriod, q.grace)
}

package board

import (
	"log/slog"
	stdsync "sync"
	"time"

	"github.com/openclinic/kioskboard/internal/api"
)

// DefaultGracePeriod is how long a disappeared record stays visible before
// final eviction, giving the UI time to animate it out.
const DefaultGracePeriod = 500 * time.Millisecond

// entryState is the per-identity removal state. Live records are not
// tracked here; an identity appears in the queue only while pending, and is
// deleted again on eviction or reappearance. One map, one state machine —
// not parallel membership sets.
type entryState int

const (
	statePending entryState = iota
	stateEvicted            // transient, observed only inside the timer callback
)

// pendingEntry holds a removed record's snapshot and its eviction timer.
type pendingEntry struct {
	record api.Encounter
	state  entryState
	timer  *time.Timer
	due    time.Time
}

// RemovalQueue implements the Live → PendingRemoval → Evicted state machine.
// A record that disappears from a snapshot is held here for the grace
// period; if it reappears before the timer fires it returns to Live with no
// visible flicker. At most one eviction timer exists per identity.
type RemovalQueue struct {
	grace   time.Duration
	logger  *slog.Logger
	onEvict func(id string)

	mu      stdsync.Mutex
	pending map[string]*pendingEntry
}

// NewRemovalQueue creates a queue with the given grace period (0 → default).
// onEvict is called from the timer goroutine after an identity's grace
// period elapses without reappearance; it must not call back into the queue
// while holding its own locks in a conflicting order.
func NewRemovalQueue(grace time.Duration, onEvict func(id string), logger *slog.Logger) *RemovalQueue {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &RemovalQueue{
		grace:   grace,
		logger:  logger,
		onEvict: onEvict,
		pending: make(map[string]*pendingEntry),
	}
}

// MarkRemoved transitions an identity to PendingRemoval, scheduling its
// eviction. No-op if the identity is already pending — a record reported
// removed across consecutive cycles keeps its original timer.
func (q *RemovalQueue) MarkRemoved(rec api.Encounter) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.pending[rec.ID]; exists {
		return
	}

	entry := &pendingEntry{
		record: rec,
		state:  statePending,
		due:    time.Now().Add(q.grace),
	}

	id := rec.ID
	entry.timer = time.AfterFunc(q.grace, func() {
		q.evict(id)
	})

	q.pending[id] = entry

	q.logger.Debug("record pending removal",
		slog.String("id", id),
		slog.Duration("grace", q.grace),
	)
}

// MarkLive cancels a pending removal because the identity reappeared.
// Returns true if a pending entry was cancelled. After MarkLive the
// identity has no residual timer.
func (q *RemovalQueue) MarkLive(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, exists := q.pending[id]
	if !exists {
		return false
	}

	entry.timer.Stop()
	delete(q.pending, id)

	q.logger.Debug("record reappeared within grace period", slog.String("id", id))

	return true
}

// Pending returns the snapshots of all records currently inside their grace
// period, for inclusion in the visible set alongside live records.
func (q *RemovalQueue) Pending() []api.Encounter {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return nil
	}

	out := make([]api.Encounter, 0, len(q.pending))
	for _, entry := range q.pending {
		out = append(out, entry.record)
	}

	return out
}

// IsPending reports whether an identity is currently awaiting eviction.
func (q *RemovalQueue) IsPending(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	_, exists := q.pending[id]

	return exists
}

// Stop cancels all outstanding timers. Used on shutdown so no eviction
// callback fires into a stopped scheduler.
func (q *RemovalQueue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for id, entry := range q.pending {
		entry.timer.Stop()
		delete(q.pending, id)
	}
}

// evict finalizes a removal after the grace period. The entry may already
// be gone if MarkLive raced the timer; time.AfterFunc can fire after Stop
// when the callback was already in flight, so presence is re-checked under
// the lock.
func (q *RemovalQueue) evict(id string) {
	q.mu.Lock()

	entry, exists := q.pending[id]
	if !exists {
		q.mu.Unlock()
		return
	}

	entry.state = stateEvicted
	delete(q.pending, id)
	q.mu.Unlock()

	q.logger.Debug("record evicted after grace period", slog.String("id", id))

	if q.onEvict != nil {
		q.onEvict(id)
	}
}

package board

import (
	"context"
	"fmt"
	"log/slog"
	stdsync "sync"
	"time"

	"github.com/google/uuid"

	"github.com/openclinic/kioskboard/internal/api"
)

// Fetcher retrieves the current live record list. Satisfied by *api.Client
// and by the offline fixture feed.
type Fetcher interface {
	Encounters(ctx context.Context, filter api.EncounterFilter) ([]api.Encounter, error)
}

// SessionRecovery is the slice of the session manager the scheduler needs:
// one recovery attempt after an authorization failure.
type SessionRecovery interface {
	AttemptRecovery(ctx context.Context) error
}

// SchedulerConfig holds the options for NewScheduler.
type SchedulerConfig struct {
	Fetcher  Fetcher
	Sessions SessionRecovery
	Filter   api.EncounterFilter
	Cache    *Cache        // optional: snapshot cache for restart warm-up
	Grace    time.Duration // removal grace period (0 → DefaultGracePeriod)
	Publish  func(Update)  // subscriber; called from scheduler goroutines
	Logger   *slog.Logger
}

// Scheduler runs the recurring fetch-and-reconcile cycle. Cycles are
// serialized by a single in-flight flag; a generation counter guarantees
// that results from a cycle started before Stop never mutate state after it.
type Scheduler struct {
	fetcher  Fetcher
	sessions SessionRecovery
	filter   api.EncounterFilter
	cache    *Cache
	publish  func(Update)
	logger   *slog.Logger
	removal  *RemovalQueue

	trigger    chan struct{}
	intervalCh chan time.Duration

	mu         stdsync.Mutex
	baseline   Snapshot // live records plus pending-removal snapshots
	inFlight   bool
	generation int64
	running    bool
	cancel     context.CancelFunc
}

// NewScheduler creates a Scheduler. Publish must be non-nil; it receives
// every cycle's Update and every eviction.
func NewScheduler(cfg *SchedulerConfig) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Scheduler{
		fetcher:    cfg.Fetcher,
		sessions:   cfg.Sessions,
		filter:     cfg.Filter,
		cache:      cfg.Cache,
		publish:    cfg.Publish,
		logger:     logger,
		trigger:    make(chan struct{}, 1),
		intervalCh: make(chan time.Duration, 1),
	}

	s.removal = NewRemovalQueue(cfg.Grace, s.handleEvict, logger)

	return s
}

// Prime loads the cached snapshot, if any, and publishes it as the initial
// visible set so a restarted kiosk paints last-known data before its first
// fetch. Call before Start.
func (s *Scheduler) Prime(ctx context.Context) {
	if s.cache == nil {
		return
	}

	recs, err := s.cache.Load(ctx)
	if err != nil {
		s.logger.Warn("snapshot cache unreadable, starting cold",
			slog.String("error", err.Error()),
		)

		return
	}

	if len(recs) == 0 {
		return
	}

	s.mu.Lock()
	s.baseline = recs
	s.mu.Unlock()

	s.logger.Info("primed from snapshot cache", slog.Int("records", len(recs)))

	s.publish(Update{
		CycleID: uuid.NewString(),
		Visible: SortForDisplay(recs),
	})
}

// Start launches the cycle loop with the given polling interval. The first
// cycle runs immediately. Returns an error if already running.
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) error {
	s.mu.Lock()

	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("board: scheduler already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.generation++
	s.mu.Unlock()

	s.logger.Info("scheduler starting", slog.Duration("interval", interval))

	go s.loop(loopCtx, interval)

	return nil
}

// Stop halts the cycle loop and cancels all pending eviction timers. Any
// in-flight cycle's result is discarded: the generation advances, so its
// post-fetch state update fails the liveness check.
func (s *Scheduler) Stop() {
	s.mu.Lock()

	if !s.running {
		s.mu.Unlock()
		return
	}

	s.running = false
	s.generation++
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	s.removal.Stop()

	s.logger.Info("scheduler stopped")
}

// TriggerNow requests an immediate cycle without waiting for the next tick.
// No-ops when a cycle is already in flight or a trigger is already queued.
func (s *Scheduler) TriggerNow() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// SetInterval changes the polling interval of a running scheduler. Used by
// config hot-reload; takes effect before the next tick.
func (s *Scheduler) SetInterval(interval time.Duration) {
	select {
	case s.intervalCh <- interval:
	default:
	}
}

// loop is the scheduler goroutine: one immediate cycle, then ticks,
// triggers, and interval changes until the context is canceled.
func (s *Scheduler) loop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			s.runCycle(ctx)

		case <-s.trigger:
			s.runCycle(ctx)

		case newInterval := <-s.intervalCh:
			if newInterval > 0 && newInterval != interval {
				interval = newInterval
				ticker.Reset(interval)

				s.logger.Info("poll interval updated",
					slog.Duration("interval", interval),
				)
			}
		}
	}
}

// runCycle executes one fetch-and-reconcile cycle. Every failure is caught
// and classified here; nothing propagates past the scheduler boundary.
func (s *Scheduler) runCycle(ctx context.Context) {
	s.mu.Lock()

	if s.inFlight {
		s.mu.Unlock()
		s.logger.Debug("cycle already in flight, skipping")

		return
	}

	s.inFlight = true
	gen := s.generation
	prev := cloneSnapshot(s.baseline)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	cycleID := uuid.NewString()
	start := time.Now()

	recs, err := s.fetchWithRecovery(ctx)
	if err != nil {
		s.reportFailure(ctx, cycleID, gen, prev, err)
		return
	}

	changes := Diff(prev, recs)

	// Liveness check: a Stop (or Stop/Start) since this cycle began means
	// its results must not touch state.
	if !s.currentGeneration(gen) {
		s.logger.Debug("discarding results from stale cycle",
			slog.String("cycle_id", cycleID),
		)

		return
	}

	// Removal bookkeeping: disappeared records enter their grace period;
	// reappeared ones return to Live with their timer cancelled.
	prevByID := make(map[string]api.Encounter, len(prev))
	for i := range prev {
		prevByID[prev[i].ID] = prev[i]
	}

	for _, id := range changes.Removed {
		s.removal.MarkRemoved(prevByID[id])
	}

	for i := range recs {
		s.removal.MarkLive(recs[i].ID)
	}

	pending := s.removal.Pending()
	visible := SortForDisplay(append(cloneSnapshot(recs), pending...))

	s.publish(Update{
		CycleID: cycleID,
		Changes: changes,
		Visible: visible,
	})

	// Advance the baseline only after the ChangeSet has been delivered, and
	// only if the scheduler generation is unchanged. Pending-removal records
	// stay in the baseline until their eviction actually fires, keeping the
	// diff consistent with what is on screen.
	s.mu.Lock()
	if gen == s.generation {
		s.baseline = append(cloneSnapshot(recs), pending...)
	}
	s.mu.Unlock()

	if s.cache != nil {
		if cacheErr := s.cache.Save(ctx, recs); cacheErr != nil {
			s.logger.Warn("failed to persist snapshot cache",
				slog.String("error", cacheErr.Error()),
			)
		}
	}

	s.logger.Info("cycle complete",
		slog.String("cycle_id", cycleID),
		slog.Int("added", len(changes.Added)),
		slog.Int("changed", len(changes.Changed)),
		slog.Int("removed", len(changes.Removed)),
		slog.Int("visible", len(visible)),
		slog.Duration("duration", time.Since(start)),
	)
}

// fetchWithRecovery fetches the record list, attempting exactly one session
// recovery and one re-fetch when the backend rejects authorization. Any
// other failure is returned as-is: the next scheduled tick is the retry.
func (s *Scheduler) fetchWithRecovery(ctx context.Context) ([]api.Encounter, error) {
	recs, err := s.fetcher.Encounters(ctx, s.filter)
	if err == nil {
		return recs, nil
	}

	if !api.IsAuthError(err) || s.sessions == nil {
		return nil, err
	}

	s.logger.Warn("fetch rejected as unauthorized, attempting recovery")

	if recoverErr := s.sessions.AttemptRecovery(ctx); recoverErr != nil {
		return nil, fmt.Errorf("board: session recovery failed: %w", recoverErr)
	}

	recs, err = s.fetcher.Encounters(ctx, s.filter)
	if err != nil {
		return nil, fmt.Errorf("board: re-fetch after recovery: %w", err)
	}

	return recs, nil
}

// reportFailure publishes a failed cycle with the retained previous data.
// Stale data beats an empty dashboard.
func (s *Scheduler) reportFailure(_ context.Context, cycleID string, gen int64, prev Snapshot, err error) {
	if !s.currentGeneration(gen) {
		return
	}

	s.logger.Warn("cycle failed, retaining previous snapshot",
		slog.String("cycle_id", cycleID),
		slog.String("error", err.Error()),
	)

	s.publish(Update{
		CycleID: cycleID,
		Visible: SortForDisplay(prev),
		Err:     err,
	})
}

// handleEvict is the removal queue's callback: the grace period for id
// elapsed, so the record leaves the baseline and the UI gets a new visible
// set.
func (s *Scheduler) handleEvict(id string) {
	s.mu.Lock()

	if !s.running {
		s.mu.Unlock()
		return
	}

	kept := make(Snapshot, 0, len(s.baseline))

	for i := range s.baseline {
		if s.baseline[i].ID != id {
			kept = append(kept, s.baseline[i])
		}
	}

	s.baseline = kept
	visible := SortForDisplay(kept)
	s.mu.Unlock()

	s.publish(Update{
		CycleID: uuid.NewString(),
		Evicted: []string{id},
		Visible: visible,
	})
}

// currentGeneration reports whether gen is still the live scheduler epoch.
func (s *Scheduler) currentGeneration(gen int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return gen == s.generation
}

// cloneSnapshot returns a shallow copy so cycle-local slices never alias
// the shared baseline.
func cloneSnapshot(snap Snapshot) Snapshot {
	out := make(Snapshot, len(snap))
	copy(out, snap)

	return out
}

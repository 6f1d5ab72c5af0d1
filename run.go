package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	stdsync "sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/openclinic/kioskboard/internal/api"
	"github.com/openclinic/kioskboard/internal/board"
	"github.com/openclinic/kioskboard/internal/config"
	"github.com/openclinic/kioskboard/internal/fixture"
	"github.com/openclinic/kioskboard/internal/notify"
	"github.com/openclinic/kioskboard/internal/session"
)

func newRunCmd() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the kiosk dashboard loop",
		Long: `Start the unattended dashboard: restore the saved session, paint the
last cached snapshot, then poll the backend and apply incremental updates
until interrupted. Authorization failures are recovered silently; when
recovery is impossible a notice is shown and the display keeps running.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDashboard(cmd, interval)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "poll interval override (e.g. 15s)")

	return cmd
}

func runDashboard(cmd *cobra.Command, intervalFlag time.Duration) error {
	cfg, cfgPath, err := resolveConfig()
	if err != nil {
		return err
	}

	if intervalFlag > 0 {
		cfg.PollInterval = config.Duration(intervalFlag)
	}

	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Pick the data source: remote authority or offline fixture feed.
	var (
		fetcher  board.Fetcher
		sessions board.SessionRecovery
		mgr      *session.Manager
	)

	if cfg.Fixture {
		logger.Info("using built-in fixture data source")

		fetcher = fixture.NewFeed()
	} else {
		var client *api.Client

		mgr, client = buildSessionManager(ctx, cfg, logger)
		fetcher = client
		sessions = mgr

		// Restoration must complete before any authorization-dependent call.
		if err := mgr.RestoreAtStartup(ctx); err != nil {
			logger.Warn("session restoration failed", "error", err.Error())
		}

		if !mgr.IsAuthenticated() {
			// Unattended device: keep the display alive showing cached data
			// and a notice rather than exiting to a blank screen.
			logger.Warn("no usable session, dashboard will show cached data until login",
				"hint", "run: kioskboard login")
		}
	}

	// Snapshot cache: best-effort warm-up store. A broken cache degrades to
	// a cold start, never to a dead kiosk.
	cache, cacheErr := board.NewCache(config.CachePath(dataDir()), logger)
	if cacheErr != nil {
		logger.Warn("snapshot cache unavailable, running without warm-up",
			"error", cacheErr.Error())

		cache = nil
	} else {
		defer cache.Close()
	}

	display := newRenderer(os.Stdout)

	sched := board.NewScheduler(&board.SchedulerConfig{
		Fetcher:  fetcher,
		Sessions: sessions,
		Filter:   api.EncounterFilter{Department: cfg.Department},
		Cache:    cache,
		Grace:    cfg.GracePeriod.Std(),
		Publish:  display.Render,
		Logger:   logger,
	})

	sched.Prime(ctx)

	if err := sched.Start(ctx, cfg.PollInterval.Std()); err != nil {
		return err
	}
	defer sched.Stop()

	g, gctx := errgroup.WithContext(ctx)

	// Optional push channel: any server nudge triggers an immediate cycle.
	if cfg.NotifyURL != "" {
		listener := notify.NewListener(cfg.NotifyURL, sched.TriggerNow, logger)

		g.Go(func() error {
			return listener.Run(gctx)
		})
	}

	// Config hot-reload: interval changes apply without restarting the
	// unattended device.
	if _, statErr := os.Stat(cfgPath); statErr == nil {
		g.Go(func() error {
			return config.Watch(gctx, cfgPath, func(newCfg *config.Config) {
				sched.SetInterval(newCfg.PollInterval.Std())
			}, logger)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("dashboard stopped")

	return nil
}

// renderer is the dashboard's subscriber: it redraws the visible set after
// every published update. Serialized by a mutex because cycle updates and
// eviction callbacks arrive from different goroutines.
type renderer struct {
	mu     stdsync.Mutex
	out    io.Writer
	tty    bool
	notice string
}

func newRenderer(out io.Writer) *renderer {
	return &renderer{
		out: out,
		tty: stdoutIsTTY(),
	}
}

// Render draws one update. Change classifications become row markers:
// "+" added, "~" changed, "-" pending removal.
func (r *renderer) Render(u board.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u.Err != nil {
		// Non-blocking notice: stale data stays on screen below it.
		if errors.Is(u.Err, session.ErrSessionLost) {
			r.notice = "Session lost - displayed data may be stale until re-login"
		} else {
			r.notice = fmt.Sprintf("Update failed (%v) - retrying on next cycle", u.Err)
		}
	} else {
		r.notice = ""
	}

	if r.tty {
		fmt.Fprint(r.out, "\x1b[2J\x1b[H") // clear and home
	}

	if r.notice != "" {
		fmt.Fprintln(r.out, colorize("! "+r.notice, ansiYellow, r.tty))
	}

	marks := rowMarks(&u)

	headers := []string{"", "ROOM", "ENCOUNTER", "STATUS", "ARRIVED", "STAFF"}
	rows := make([][]string, 0, len(u.Visible))

	for i := range u.Visible {
		rec := &u.Visible[i]

		rows = append(rows, []string{
			marks[rec.ID],
			formatLocation(rec.Location, rec.LocationRaw),
			rec.ID,
			rec.Status,
			formatArrival(rec.ArrivedAt),
			joinStaff(rec.Staff),
		})
	}

	printTable(r.out, headers, rows)
	fmt.Fprintln(r.out)
}

// rowMarks builds the per-identity marker column for one update. A record
// reported removed but still visible is inside its grace period.
func rowMarks(u *board.Update) map[string]string {
	marks := make(map[string]string)

	for _, id := range u.Changes.Added {
		marks[id] = "+"
	}

	for _, id := range u.Changes.Changed {
		marks[id] = "~"
	}

	for _, id := range u.Changes.Removed {
		marks[id] = "-"
	}

	return marks
}

// joinStaff renders the assigned-staff list for one row.
func joinStaff(staff []string) string {
	if len(staff) == 0 {
		return "-"
	}

	out := staff[0]
	for _, s := range staff[1:] {
		out += ", " + s
	}

	return out
}

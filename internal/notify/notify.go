// Package notify maintains an optional websocket connection to the backend
// and nudges the dashboard whenever the server announces that encounters
// changed. Push is advisory only: polling continues regardless, so a dead
// websocket degrades freshness, never correctness.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/coder/websocket"
)

// Reconnect backoff bounds.
const (
	initialBackoff = 5 * time.Second
	maxBackoff     = 5 * time.Minute
	backoffFactor  = 2
)

// Listener holds one websocket subscription with automatic reconnect.
type Listener struct {
	url    string
	nudge  func()
	logger *slog.Logger

	// dialFunc is swappable for tests.
	dialFunc func(ctx context.Context, url string) (conn, error)
}

// conn is the slice of *websocket.Conn the listener uses.
type conn interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
	Close(code websocket.StatusCode, reason string) error
}

// NewListener creates a Listener that calls nudge on every server message.
func NewListener(url string, nudge func(), logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}

	return &Listener{
		url:      url,
		nudge:    nudge,
		logger:   logger,
		dialFunc: dial,
	}
}

// dial is the default dialFunc.
func dial(ctx context.Context, url string) (conn, error) {
	c, _, err := websocket.Dial(ctx, url, nil) //nolint:bodyclose // library owns the response body
	if err != nil {
		return nil, err
	}

	return c, nil
}

// Run connects and reads until ctx is canceled, reconnecting with
// exponential backoff after any failure. Always returns nil on clean
// cancellation.
func (l *Listener) Run(ctx context.Context) error {
	backoff := initialBackoff

	for {
		if ctx.Err() != nil {
			return nil
		}

		if err := l.listenOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}

			l.logger.Warn("notify connection lost, reconnecting",
				slog.String("error", err.Error()),
				slog.Duration("backoff", backoff),
			)

			if sleepErr := sleep(ctx, backoff); sleepErr != nil {
				return nil
			}

			backoff *= backoffFactor
			if backoff > maxBackoff {
				backoff = maxBackoff
			}

			continue
		}

		// Clean close from the server: reconnect promptly.
		backoff = initialBackoff
	}
}

// listenOnce dials and reads messages until the connection drops.
func (l *Listener) listenOnce(ctx context.Context) error {
	c, err := l.dialFunc(ctx, l.url)
	if err != nil {
		return err
	}

	defer c.Close(websocket.StatusNormalClosure, "")

	l.logger.Info("notify channel connected", slog.String("url", l.url))

	for {
		_, _, err := c.Read(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}

			return err
		}

		// Message content is ignored: any server push means "re-fetch now".
		l.logger.Debug("change nudge received")
		l.nudge()
	}
}

// sleep waits for d or until ctx is canceled.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

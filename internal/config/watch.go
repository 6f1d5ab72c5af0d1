package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the burst of filesystem events most editors
// produce for a single save.
const watchDebounce = 500 * time.Millisecond

// Watch reloads the config file whenever it changes on disk and calls
// onReload with the new value. Invalid edits are logged and skipped — the
// kiosk keeps running on the previous configuration. Blocks until ctx is
// canceled.
//
// The parent directory is watched rather than the file itself: atomic
// save-and-rename (how most editors and config management tools write)
// replaces the inode, which would silently detach a file-level watch.
func Watch(ctx context.Context, path string, onReload func(*Config), logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: creating watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("config: watching %s: %w", dir, err)
	}

	logger.Info("watching config for changes", slog.String("path", path))

	var debounce *time.Timer

	reloads := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Name != path {
				continue
			}

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			// Restart the debounce window on every event in the burst.
			if debounce != nil {
				debounce.Stop()
			}

			debounce = time.AfterFunc(watchDebounce, func() {
				select {
				case reloads <- struct{}{}:
				default:
				}
			})

		case <-reloads:
			cfg, err := Load(path)
			if err != nil {
				logger.Warn("config reload failed, keeping previous configuration",
					slog.String("error", err.Error()),
				)

				continue
			}

			logger.Info("config reloaded",
				slog.Duration("poll_interval", cfg.PollInterval.Std()),
			)

			onReload(cfg)

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			logger.Warn("config watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses the burst of events editors emit on save.
const DefaultDebounce = 500 * time.Millisecond

// Watch reloads the catalog whenever its file changes until ctx is done.
// The parent directory is watched rather than the file itself so that
// atomic rename-on-save keeps working.
func (c *Catalog) Watch(ctx context.Context, debounce time.Duration) error {
	if c.path == "" {
		return fmt.Errorf("watch catalog: no backing file")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	dir := filepath.Dir(c.path)
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	go c.watchLoop(ctx, w, debounce)

	c.logger.Info("source catalog watcher started",
		slog.String("path", c.path),
		slog.Duration("debounce", debounce))
	return nil
}

func (c *Catalog) watchLoop(ctx context.Context, w *fsnotify.Watcher, debounce time.Duration) {
	defer func() { _ = w.Close() }()

	target := filepath.Clean(c.path)
	timer := time.NewTimer(debounce)
	timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return

		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			pending = true
			timer.Reset(debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			c.logger.Error("source catalog watcher error", slog.Any("error", err))

		case <-timer.C:
			if pending {
				pending = false
				// 失敗時は前回のカタログを維持する
				_ = c.Reload()
			}
		}
	}
}

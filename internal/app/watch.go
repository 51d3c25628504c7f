package app

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vk/appgraphgo/internal/ctxlog"
)

// overlayWatcher re-applies the config overlay whenever the file changes.
// Rapid editor write bursts are debounced.
type overlayWatcher struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
}

const overlayDebounce = 500 * time.Millisecond

func newOverlayWatcher(ctx context.Context, path string, apply func() error) (*overlayWatcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatcher.Add(path); err != nil {
		fsWatcher.Close()
		return nil, err
	}

	w := &overlayWatcher{watcher: fsWatcher, done: make(chan struct{})}
	go w.loop(ctx, path, apply)

	ctxlog.FromContext(ctx).Info("Watching config overlay for changes.", "path", path)
	return w, nil
}

func (w *overlayWatcher) loop(ctx context.Context, path string, apply func() error) {
	logger := ctxlog.FromContext(ctx)
	var debounce *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			logger.Debug("Overlay change detected.", "event", event.Op.String())
			if debounce == nil {
				debounce = time.NewTimer(overlayDebounce)
			} else {
				debounce.Reset(overlayDebounce)
			}
			fire = debounce.C
		case <-fire:
			fire = nil
			if err := apply(); err != nil {
				logger.Error("Failed to re-apply config overlay.", "path", path, "error", err)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Error("Overlay watcher error.", "error", err)
		}
	}
}

// Close stops the watcher goroutine and releases the inotify handle.
func (w *overlayWatcher) Close() {
	close(w.done)
	w.watcher.Close()
}

package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces bursts of events (an editor's save, a copy of many
// files) into a single change notification.
const watchDebounce = 250 * time.Millisecond

// Watcher is implemented by directories that can report changes to their
// direct children. Callers type-assert for it; not every backend has one.
type Watcher interface {
	// Watch returns a channel receiving one value per settled burst of
	// changes. The channel is closed when ctx is cancelled or the
	// underlying watch fails.
	Watch(ctx context.Context) (<-chan struct{}, error)
}

// Watch implements Watcher using fsnotify on the directory itself, which
// reports create, write, remove and rename of direct children.
func (d *LocalDirectory) Watch(ctx context.Context) (<-chan struct{}, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("storage: creating watcher: %w", err)
	}

	if err := w.Add(d.path); err != nil {
		w.Close()
		return nil, fmt.Errorf("storage: watching %q: %w", d.path, err)
	}

	changes := make(chan struct{}, 1)

	go d.watchLoop(ctx, w, changes)

	return changes, nil
}

// watchLoop forwards debounced fsnotify events until ctx is done or the
// watcher's channels close.
func (d *LocalDirectory) watchLoop(ctx context.Context, w *fsnotify.Watcher, changes chan<- struct{}) {
	defer close(changes)
	defer w.Close()

	var debounce <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.Events:
			if !ok {
				return
			}

			// Mode changes do not alter the listing.
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}

			d.logger.Debug("storage: change detected",
				slog.String("path", ev.Name), slog.String("op", ev.Op.String()))

			debounce = time.After(watchDebounce)

		case werr, ok := <-w.Errors:
			if !ok {
				return
			}

			d.logger.Warn("storage: watcher error",
				slog.String("path", d.path), slog.String("error", werr.Error()))

		case <-debounce:
			debounce = nil

			// Non-blocking send: one pending notification is enough.
			select {
			case changes <- struct{}{}:
			default:
			}
		}
	}
}

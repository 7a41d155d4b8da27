package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchImmersions invalidates cached descriptors whenever their files change
// on disk. It blocks until ctx is done. ready, when non-nil, is closed once
// the watch is in place.
func (r *RedisStorage) WatchImmersions(ctx context.Context, ready chan<- struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create immersion watcher: %w", err)
	}
	defer watcher.Close()

	dir := r.immersionsDir()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	r.logger.Info("Watching immersions for changes", "dir", dir)
	if ready != nil {
		close(ready)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(event.Name)
			if !isDescriptorFile(name) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				r.Invalidate(name)
				r.logger.Info("Immersion changed, cache dropped", "filename", name, "op", event.Op.String())
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("Immersion watcher error", "error", err)
		}
	}
}

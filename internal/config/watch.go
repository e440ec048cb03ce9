package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/xdg/cmdgate/internal/clog"
)

// watchDebounce collapses the burst of events an editor produces on save.
const watchDebounce = 200 * time.Millisecond

// Watch calls onChange after the file at path is written, created or
// replaced, until ctx is done. The parent directory is watched so that
// editors which save by rename are seen. Bursts of events are coalesced.
func Watch(ctx context.Context, path string, onChange func()) error {
	path = filepath.Clean(path)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return fmt.Errorf("watch config: %w", err)
	}

	go func() {
		defer w.Close()

		timer := time.NewTimer(watchDebounce)
		timer.Stop()
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != path {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
					timer.Reset(watchDebounce)
				}

			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				clog.Warn("config watch: %v", err)

			case <-timer.C:
				onChange()
			}
		}
	}()

	return nil
}

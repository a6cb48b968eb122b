package runner

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rotisserie/eris"

	"github.com/ZenFlux/rollup-toolkit/pkg/tklog"
)

// ManifestDebounce collapses bursts of writes (editors often write a file several times) into one notification
var ManifestDebounce = 300 * time.Millisecond

// WatchManifest calls onChange whenever the manifest at path is written, created or renamed.
// It blocks until ctx is cancelled.
func WatchManifest(ctx context.Context, path string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return eris.Wrap(err, "failed to create file watcher")
	}
	defer watcher.Close()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return eris.Wrapf(err, "failed to resolve %s", path)
	}

	// The directory is watched instead of the file since editors tend to replace files on save.
	err = watcher.Add(filepath.Dir(absPath))
	if err != nil {
		return eris.Wrapf(err, "failed to watch %s", filepath.Dir(absPath))
	}

	var timerLock sync.Mutex
	var timer *time.Timer
	defer func() {
		timerLock.Lock()
		defer timerLock.Unlock()
		if timer != nil {
			timer.Stop()
		}
	}()

	trigger := func() {
		timerLock.Lock()
		defer timerLock.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(ManifestDebounce, onChange)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(event.Name) != absPath {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				tklog.Log(ctx).Debug().Str("op", event.Op.String()).Msgf("%s changed", event.Name)
				trigger()
			} else if event.Has(fsnotify.Remove) {
				tklog.Log(ctx).Warn().Msgf("%s was removed", event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			tklog.Log(ctx).Error().Err(err).Msg("Manifest watcher error")
		}
	}
}

// Package watch re-runs the validation pipeline whenever the manifest,
// its reference documents, the policy file, or the declared source tree
// changes. Events are debounced so an editor save burst triggers one
// run, not ten.
package watch

import (
	"context"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/rvachev/trustgate/internal/pipeline"
)

// debounceDefault is the default debounce interval for file events.
const debounceDefault = 300 * time.Millisecond

// Watcher re-validates a manifest on filesystem changes.
type Watcher struct {
	cfg      pipeline.Config
	handler  func(*pipeline.Result, error)
	debounce time.Duration
}

// New creates a Watcher. handler is invoked with each run's outcome,
// including the initial run at startup.
func New(cfg pipeline.Config, handler func(*pipeline.Result, error)) *Watcher {
	return &Watcher{
		cfg:      cfg,
		handler:  handler,
		debounce: debounceDefault,
	}
}

// Run validates once, then blocks watching for changes until ctx is
// cancelled. Directories under the jail are watched recursively so new
// reference documents and source files are picked up.
func (w *Watcher) Run(ctx context.Context) error {
	w.handler(pipeline.Run(w.cfg))

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	jail := w.cfg.Jail
	if jail == "" {
		jail = filepath.Dir(w.cfg.ManifestPath)
	}
	if err := addRecursive(watcher, jail); err != nil {
		return err
	}
	if w.cfg.PolicyPath != "" {
		// Watch the policy's directory: editors replace files on save.
		if err := watcher.Add(filepath.Dir(w.cfg.PolicyPath)); err != nil {
			return err
		}
	}

	// A single timer resets on each event; when it fires, one
	// validation run flushes the accumulated changes.
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				// New directories must be watched too.
				_ = addRecursive(watcher, event.Name)
			}
			timer.Reset(w.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.handler(nil, err)

		case <-timer.C:
			w.handler(pipeline.Run(w.cfg))
		}
	}
}

// addRecursive watches path and every directory beneath it. Non-
// directories and vanished paths are ignored.
func addRecursive(watcher *fsnotify.Watcher, path string) error {
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := watcher.Add(p); err != nil {
				return nil
			}
		}
		return nil
	})
}

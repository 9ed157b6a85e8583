package catalog

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const DefaultDebounce = 500 * time.Millisecond

// Watcher reloads a YAMLCatalog when files in its directory change and
// reports every bot whose definition changed.
type Watcher struct {
	catalog  *YAMLCatalog
	watcher  *fsnotify.Watcher
	debounce time.Duration
	log      *zap.Logger
}

func NewWatcher(catalog *YAMLCatalog, debounce time.Duration, log *zap.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(catalog.Dir()); err != nil {
		w.Close()
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{catalog: catalog, watcher: w, debounce: debounce, log: log}, nil
}

// Run blocks until ctx is done. Editors write files in bursts, so events are
// coalesced for the debounce window before reloading.
func (w *Watcher) Run(ctx context.Context, onChange func(botID string)) {
	defer w.watcher.Close()

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isDefinition(filepath.Base(event.Name)) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(w.debounce)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("catalog watcher error", zap.Error(err))
		case <-timer.C:
			changed, err := w.catalog.Reload()
			if err != nil {
				w.log.Error("catalog reload failed", zap.Error(err))
			}
			for _, id := range changed {
				onChange(id)
			}
		}
	}
}

package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/izupress/internal/logfields"
)

// SourceWatcher reports changes to exported documents in a directory.
type SourceWatcher struct {
	dir     string
	watcher *fsnotify.Watcher
	notify  func(reason string)
	logger  *slog.Logger
}

// NewSourceWatcher watches dir and calls notify with the changed file name.
func NewSourceWatcher(dir string, notify func(reason string), logger *slog.Logger) (*SourceWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source dir: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := w.Add(abs); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch source directory %s: %w", abs, err)
	}
	return &SourceWatcher{dir: abs, watcher: w, notify: notify, logger: logger}, nil
}

// relevant filters editor noise: hidden files, backups and swap files.
func relevant(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	switch filepath.Ext(base) {
	case ".swp", ".tmp", ".part":
		return false
	}
	return true
}

// Run forwards events until ctx is done, then closes the watcher.
func (sw *SourceWatcher) Run(ctx context.Context) {
	defer func() {
		if err := sw.watcher.Close(); err != nil {
			sw.logger.Error("Error closing file watcher", logfields.Error(err))
		}
	}()
	sw.logger.Info("Watching source directory", logfields.Path(sw.dir))
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if !relevant(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			sw.logger.Debug("Source change detected",
				logfields.Path(event.Name),
				slog.String("op", event.Op.String()))
			sw.notify(filepath.Base(event.Name))
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			sw.logger.Error("Source watcher error", logfields.Error(err))
		}
	}
}

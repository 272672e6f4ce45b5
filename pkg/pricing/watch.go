package pricing

import (
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher hot-reloads a rate table file into a calculator. Editors and
// config-management tools often replace files rather than write them in
// place, so the watch covers the parent directory.
type Watcher struct {
	path    string
	calc    *Calculator
	logger  *slog.Logger
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewWatcher starts watching the rate table at path. The file's
// current content is loaded immediately.
func NewWatcher(path string, calc *Calculator, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	table, err := LoadTable(path)
	if err != nil {
		return nil, err
	}
	calc.Update(table)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		path:    path,
		calc:    calc,
		logger:  logger,
		watcher: fsw,
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *Watcher) run() {
	defer close(w.done)

	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("rate table watch error", "error", err)
		}
	}
}

// reload applies the table if it parses; a malformed edit keeps the
// previous rates in place.
func (w *Watcher) reload() {
	table, err := LoadTable(w.path)
	if err != nil {
		w.logger.Warn("rate table reload failed, keeping previous rates",
			"path", w.path, "error", err)
		return
	}
	w.calc.Update(table)
	w.logger.Info("rate table reloaded", "path", w.path, "entries", len(table))
}

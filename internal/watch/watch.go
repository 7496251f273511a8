// Package watch recompiles units whenever their input file changes.
package watch

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/tliron/commonlog"

	"bfc/internal/driver"
)

var log = commonlog.GetLogger("bfc.watch")

// Settle is how long a file must stay quiet before it is recompiled.
// Editors often write a file in several steps.
const Settle = 50 * time.Millisecond

// Watcher recompiles units on change. Parent directories are watched rather
// than the files themselves so that editors replacing a file by rename are
// still noticed.
type Watcher struct {
	w        *fsnotify.Watcher
	units    map[string]driver.Unit // by cleaned input path
	opts     driver.Options
	onResult func(driver.Result)
}

// New starts watching the inputs of units. onResult is called from Run's
// goroutine with the outcome of every recompilation.
func New(units []driver.Unit, opts driver.Options, onResult func(driver.Result)) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	watcher := &Watcher{
		w:        w,
		units:    make(map[string]driver.Unit, len(units)),
		opts:     opts,
		onResult: onResult,
	}

	dirs := make(map[string]bool)
	for _, unit := range units {
		path := filepath.Clean(unit.Input)
		watcher.units[path] = unit

		dir := filepath.Dir(path)
		if dirs[dir] {
			continue
		}
		dirs[dir] = true
		if err := w.Add(dir); err != nil {
			w.Close()
			return nil, err
		}
		log.Debugf("watching %s", dir)
	}
	return watcher, nil
}

// Run handles file events until ctx is cancelled or the watcher is closed
func (w *Watcher) Run(ctx context.Context) error {
	pending := make(map[string]bool)
	settle := time.NewTimer(Settle)
	settle.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			path := filepath.Clean(ev.Name)
			if _, ok := w.units[path]; !ok {
				continue
			}
			pending[path] = true
			settle.Reset(Settle)

		case err, ok := <-w.w.Errors:
			if !ok {
				return nil
			}
			log.Errorf("watch error: %s", err)

		case <-settle.C:
			for path := range pending {
				unit := w.units[path]
				log.Infof("%s changed, recompiling", unit.Input)
				w.onResult(driver.CompileUnit(ctx, unit, w.opts))
			}
			pending = make(map[string]bool)
		}
	}
}

// Close stops watching
func (w *Watcher) Close() error {
	return w.w.Close()
}

package cmd

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/oakwood-commons/gridkit/pkg/logger"
)

// watchDebounce collapses the burst of events one save produces.
var watchDebounce = 150 * time.Millisecond

// watchInputs calls onChange after any of paths is written, created or
// renamed. Parent directories are watched so editors that replace files on
// save keep triggering. The context passed to onChange is done once stop
// has been called.
func watchInputs(ctx context.Context, paths []string, onChange func(context.Context)) (func(), error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	wanted := make(map[string]bool, len(paths))
	dirs := map[string]bool{}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			_ = w.Close()
			return nil, err
		}
		wanted[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return nil, err
		}
	}

	wctx, cancel := context.WithCancel(ctx)
	lgr := logger.FromContext(ctx)
	go func() {
		var (
			timer *time.Timer
			fire  <-chan time.Time
		)
		for {
			select {
			case <-wctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !wanted[filepath.Clean(ev.Name)] || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
					continue
				}
				lgr.V(1).Info("input changed", "path", ev.Name, "op", ev.Op.String())
				if timer == nil {
					timer = time.NewTimer(watchDebounce)
				} else {
					timer.Reset(watchDebounce)
				}
				fire = timer.C
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				lgr.Error(err, "watch")
			case <-fire:
				fire = nil
				onChange(wctx)
			}
		}
	}()

	return func() {
		cancel()
		_ = w.Close()
	}, nil
}

// Package watch notices changes to a single file through fsnotify so a
// polling loop can react before its next scheduled tick.
package watch

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/TimelordUK/logsrc/internal/debug"
)

// Watcher calls onChange whenever the watched file is created, written,
// removed, renamed or has its attributes changed.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onChange func()

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// New starts watching path. The parent directory is watched rather than
// the file itself so deletion and re-creation keep being observed.
func New(path string, onChange func()) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		watcher:  fw,
		path:     abs,
		onChange: onChange,
		ctx:      ctx,
		cancel:   cancel,
	}

	w.wg.Add(1)
	go w.processEvents()

	debug.Log("WATCH", "watching %s", abs)
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		w.cancel()
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			debug.Log("WATCH", "%v %s", event.Op, event.Name)
			w.onChange()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("watch %s: %v", w.path, err)
		}
	}
}

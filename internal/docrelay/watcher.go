package docrelay

import (
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// StagingWatcher signals on Wake whenever a file lands in the staging
// directory, so the run loop can flush promptly instead of waiting for
// the next poll tick. Signals are coalesced; a missed signal only means
// the flush happens on the tick instead.
type StagingWatcher struct {
	watcher *fsnotify.Watcher
	wake    chan struct{}
	done    chan struct{}
}

func NewStagingWatcher(dir string) (*StagingWatcher, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, ErrInvalidInput
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	w := &StagingWatcher{
		watcher: watcher,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *StagingWatcher) Wake() <-chan struct{} {
	if w == nil {
		return nil
	}
	return w.wake
}

func (w *StagingWatcher) Close() error {
	if w == nil || w.watcher == nil {
		return nil
	}
	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *StagingWatcher) loop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			select {
			case w.wake <- struct{}{}:
			default:
			}
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

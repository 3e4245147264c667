package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kmorrow/daybell/internal/logger"
)

// Watcher reloads the schedule when its file changes on disk. The
// parent directory is watched rather than the file itself because most
// editors replace the file on save, which would drop a file-level watch.
type Watcher struct {
	path     string
	strict   bool
	onChange func(*Schedule)
	fw       *fsnotify.Watcher

	debounceMu    sync.Mutex
	debounceTimer *time.Timer

	done chan struct{}
	wg   sync.WaitGroup
}

const watchDebounce = 500 * time.Millisecond

// WatchFile starts watching the schedule file. onChange is invoked with
// the freshly loaded schedule after each change that parses; loads that
// fail are logged and skipped so a half-saved file never tears down the
// running schedule.
func WatchFile(path string, strict bool, onChange func(*Schedule)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create schedule watcher: %w", err)
	}

	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch schedule dir: %w", err)
	}

	w := &Watcher{
		path:     filepath.Clean(path),
		strict:   strict,
		onChange: onChange,
		fw:       fw,
		done:     make(chan struct{}),
	}

	w.wg.Add(1)
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.debounceReload()

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			logger.Warn("Schedule watcher error", "error", err)

		case <-w.done:
			return
		}
	}
}

// debounceReload coalesces the burst of events an editor save produces
// into one reload.
func (w *Watcher) debounceReload() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(watchDebounce, w.reload)
}

func (w *Watcher) reload() {
	sched, err := Load(w.path, w.strict)
	if err != nil {
		logger.Warn("Schedule changed but failed to load, keeping previous", "path", w.path, "error", err)
		return
	}

	logger.Info("Schedule file changed, reloading", "path", w.path, "tasks", len(sched.Templates))
	w.onChange(sched)
}

// Close stops the watcher. Pending debounced reloads are cancelled.
func (w *Watcher) Close() error {
	w.debounceMu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceMu.Unlock()

	close(w.done)
	err := w.fw.Close()
	w.wg.Wait()
	return err
}

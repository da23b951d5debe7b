package relay

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// StatusWatcher follows the status file for the tray host. It watches the
// parent directory because WriteStatus replaces the file by rename.
type StatusWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	updates  chan Status
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewStatusWatcher creates the directory if needed and starts watching it.
func NewStatusWatcher(path string) (*StatusWatcher, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatcher.Add(dir); err != nil {
		_ = fsWatcher.Close()
		return nil, err
	}
	w := &StatusWatcher{
		path:     filepath.Clean(path),
		watcher:  fsWatcher,
		debounce: 100 * time.Millisecond,
		updates:  make(chan Status, 1),
		stopCh:   make(chan struct{}),
	}
	w.wg.Add(1)
	go w.watchLoop()
	return w, nil
}

// Updates delivers the latest status after each settled change.
func (w *StatusWatcher) Updates() <-chan Status { return w.updates }

// Stop ends the watch loop. Safe to call more than once.
func (w *StatusWatcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopCh)
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}

func (w *StatusWatcher) watchLoop() {
	defer w.wg.Done()
	var debounceTimer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-w.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			st, err := ReadStatus(w.path)
			if err != nil {
				relayLog.Debug("status_read_failed", slog.String("error", err.Error()))
				continue
			}
			w.publish(st)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			relayLog.Debug("status_watch_error", slog.String("error", err.Error()))
		}
	}
}

func (w *StatusWatcher) publish(st Status) {
	for {
		select {
		case w.updates <- st:
			return
		default:
		}
		select {
		case <-w.updates:
		default:
		}
	}
}

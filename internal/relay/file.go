package relay

import (
	"log/slog"
	"sync"
	"time"

	"github.com/asheshgoplani/tama-deck/internal/logging"
	"github.com/asheshgoplani/tama-deck/internal/session"
	"github.com/asheshgoplani/tama-deck/internal/snapshot"
)

// FileRelay writes the latest snapshot to a status file from its own
// goroutine. Forward never blocks: an unwritten older status is replaced
// by the newer one.
type FileRelay struct {
	path    string
	mailbox chan Status
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
	now     func() time.Time
}

// NewFileRelay starts a relay writing to path. Call Close to stop it.
func NewFileRelay(path string) *FileRelay {
	r := &FileRelay{
		path:    path,
		mailbox: make(chan Status, 1),
		done:    make(chan struct{}),
		now:     time.Now,
	}
	r.wg.Add(1)
	go r.loop()
	return r
}

// Path returns the status file path.
func (r *FileRelay) Path() string { return r.path }

// Forward implements Relay.
func (r *FileRelay) Forward(s snapshot.Snapshot, phase session.Phase) {
	st := NewStatus(s, phase, r.now())
	for {
		select {
		case r.mailbox <- st:
			return
		default:
		}
		select {
		case <-r.mailbox:
		default:
		}
	}
}

// Close writes any pending snapshot and stops the goroutine.
func (r *FileRelay) Close() {
	r.once.Do(func() {
		close(r.done)
		r.wg.Wait()
	})
}

func (r *FileRelay) loop() {
	defer r.wg.Done()
	for {
		select {
		case st := <-r.mailbox:
			r.write(st)
		case <-r.done:
			select {
			case st := <-r.mailbox:
				r.write(st)
			default:
			}
			return
		}
	}
}

func (r *FileRelay) write(st Status) {
	if err := WriteStatus(r.path, st); err != nil {
		relayLog.Debug("status_write_failed", slog.String("path", r.path), slog.String("error", err.Error()))
		return
	}
	logging.Aggregate(logging.CompRelay, "status_written", slog.String("path", r.path))
}

package logging

import (
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
)

type tally struct {
	component string
	event     string
	count     int64
	last      []slog.Attr
}

// Aggregator counts repeated events, such as one per inbound snapshot, and
// logs a single event_summary per (component, event) each interval.
type Aggregator struct {
	logger *slog.Logger
	every  time.Duration

	mu      sync.Mutex
	tallies map[string]*tally

	started  bool
	stop     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// NewAggregator flushes into logger every intervalSecs seconds. A nil logger
// drops everything.
func NewAggregator(logger *slog.Logger, intervalSecs int) *Aggregator {
	if intervalSecs <= 0 {
		intervalSecs = 30
	}
	return &Aggregator{
		logger:  logger,
		every:   time.Duration(intervalSecs) * time.Second,
		tallies: map[string]*tally{},
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

func tallyKey(component, event string) string { return component + "\x00" + event }

// Start runs the periodic flush until Stop.
func (a *Aggregator) Start() {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return
	}
	a.started = true
	a.mu.Unlock()
	go func() {
		defer close(a.stopped)
		t := time.NewTicker(a.every)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				a.flush()
			case <-a.stop:
				return
			}
		}
	}()
}

// Stop ends the flush loop and writes what is left. Repeated calls are no-ops.
// Stop on an aggregator that was never started only flushes.
func (a *Aggregator) Stop() {
	a.stopOnce.Do(func() {
		close(a.stop)
		a.mu.Lock()
		started := a.started
		a.mu.Unlock()
		if started {
			<-a.stopped
		}
		a.flush()
	})
}

// Record bumps the count for an event. Non-empty fields replace the ones
// reported with the summary.
func (a *Aggregator) Record(component, event string, fields ...slog.Attr) {
	a.mu.Lock()
	defer a.mu.Unlock()
	k := tallyKey(component, event)
	t := a.tallies[k]
	if t == nil {
		t = &tally{component: component, event: event}
		a.tallies[k] = t
	}
	t.count++
	if len(fields) > 0 {
		t.last = fields
	}
}

// Pending returns the unflushed count for an event.
func (a *Aggregator) Pending(component, event string) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if t := a.tallies[tallyKey(component, event)]; t != nil {
		return t.count
	}
	return 0
}

func (a *Aggregator) flush() {
	a.mu.Lock()
	batch := a.tallies
	a.tallies = map[string]*tally{}
	a.mu.Unlock()

	if a.logger == nil || len(batch) == 0 {
		return
	}
	keys := make([]string, 0, len(batch))
	for k := range batch {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, strings.Compare)

	window := int(a.every / time.Second)
	for _, k := range keys {
		t := batch[k]
		args := make([]any, 0, 4+len(t.last))
		args = append(args,
			slog.String("component", t.component),
			slog.String("event", t.event),
			slog.Int64("count", t.count),
			slog.Int("window_seconds", window))
		for _, f := range t.last {
			args = append(args, f)
		}
		a.logger.Info("event_summary", args...)
	}
}

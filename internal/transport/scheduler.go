package transport

import (
	"sync"
	"time"
)

// Timer is a cancel handle for a scheduled task.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemScheduler struct{}

func (systemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemScheduler uses real timers.
var SystemScheduler Scheduler = systemScheduler{}

// ManualScheduler records scheduled tasks and runs them only when told to.
// Tests use it to simulate time instead of sleeping.
type ManualScheduler struct {
	mu      sync.Mutex
	tasks   []*manualTask
	history []time.Duration
}

type manualTask struct {
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
	sched   *ManualScheduler
}

func (t *manualTask) Stop() bool {
	t.sched.mu.Lock()
	defer t.sched.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// AfterFunc implements Scheduler.
func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	task := &manualTask{delay: d, fn: f, sched: s}
	s.tasks = append(s.tasks, task)
	s.history = append(s.history, d)
	return task
}

// Pending returns how many tasks are scheduled and neither fired nor stopped.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// Scheduled returns the delay of every task ever scheduled, in order.
func (s *ManualScheduler) Scheduled() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.history))
	copy(out, s.history)
	return out
}

// Fire runs every pending task and returns how many ran.
func (s *ManualScheduler) Fire() int {
	s.mu.Lock()
	var due []*manualTask
	for _, t := range s.tasks {
		if !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t)
		}
	}
	s.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
	return len(due)
}

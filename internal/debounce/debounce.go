// Package debounce provides a per-key cancelable task scheduler with
// latest-wins coalescing. Scheduling a key that already has a pending task
// replaces the task and restarts its timer; at most one task per key is
// ever pending.
package debounce

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Task is a pending unit of work keyed by the value it supersedes.
type Task struct {
	Key string
	Fn  func() error
}

// Scheduler fires tasks after a fixed delay on an injectable clock.
type Scheduler struct {
	clk     clock.Clock
	delay   time.Duration
	onError func(key string, err error)

	mu      sync.Mutex
	pending map[string]*entry
	closed  bool
}

type entry struct {
	timer *clock.Timer
	fn    func() error
}

// New creates a scheduler. onError receives failures of timer-fired tasks;
// it may be nil.
func New(clk clock.Clock, delay time.Duration, onError func(key string, err error)) *Scheduler {
	if clk == nil {
		clk = clock.New()
	}
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	return &Scheduler{
		clk:     clk,
		delay:   delay,
		onError: onError,
		pending: make(map[string]*entry),
	}
}

// Schedule replaces any pending task for key with fn and restarts the delay.
func (s *Scheduler) Schedule(key string, fn func() error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if prev, ok := s.pending[key]; ok {
		prev.timer.Stop()
	}
	e := &entry{fn: fn}
	e.timer = s.clk.AfterFunc(s.delay, func() { s.fire(key, e) })
	s.pending[key] = e
	s.mu.Unlock()
}

func (s *Scheduler) fire(key string, e *entry) {
	s.mu.Lock()
	// A replacement may have raced the timer; only the current entry runs.
	if s.pending[key] != e {
		s.mu.Unlock()
		return
	}
	delete(s.pending, key)
	s.mu.Unlock()

	if err := e.fn(); err != nil && s.onError != nil {
		s.onError(key, err)
	}
}

// Cancel drops the pending task for key, reporting whether one existed.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.pending[key]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(s.pending, key)
	return true
}

// Flush detaches and returns all pending tasks without running them.
// Their timers are stopped; the caller decides how to execute them.
func (s *Scheduler) Flush() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks := make([]Task, 0, len(s.pending))
	for key, e := range s.pending {
		e.timer.Stop()
		tasks = append(tasks, Task{Key: key, Fn: e.fn})
	}
	s.pending = make(map[string]*entry)
	return tasks
}

// Len reports the number of pending tasks.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Close cancels all pending tasks. The scheduler accepts no further work.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.pending {
		e.timer.Stop()
	}
	s.pending = make(map[string]*entry)
	s.closed = true
}

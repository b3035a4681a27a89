package server

import (
	"sync"
	"time"
)

// Scheduler runs fn repeatedly until the returned stop function is called.
// Stop must be safe to call more than once and from inside fn.
type Scheduler interface {
	Every(interval time.Duration, fn func()) (stop func())
}

// TickerScheduler drives tasks from a time.Ticker goroutine.
type TickerScheduler struct{}

// Compile-time check that TickerScheduler implements Scheduler.
var _ Scheduler = TickerScheduler{}

// Every starts a goroutine calling fn once per interval.
func (TickerScheduler) Every(interval time.Duration, fn func()) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}

// ManualScheduler fires tasks only when Fire is called. Used to step the
// engine deterministically.
type ManualScheduler struct {
	mu     sync.Mutex
	tasks  map[int]func()
	order  []int
	nextID int
}

// Compile-time check that ManualScheduler implements Scheduler.
var _ Scheduler = (*ManualScheduler)(nil)

// NewManualScheduler creates an idle ManualScheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{tasks: make(map[int]func())}
}

// Every registers fn; interval is ignored.
func (m *ManualScheduler) Every(_ time.Duration, fn func()) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.tasks[id] = fn
	m.order = append(m.order, id)
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.tasks, id)
		m.mu.Unlock()
	}
}

// Fire runs every registered task once, in registration order, and returns
// how many ran.
func (m *ManualScheduler) Fire() int {
	m.mu.Lock()
	var fns []func()
	kept := m.order[:0]
	for _, id := range m.order {
		if fn, ok := m.tasks[id]; ok {
			fns = append(fns, fn)
			kept = append(kept, id)
		}
	}
	m.order = kept
	m.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

// Active returns the number of registered tasks.
func (m *ManualScheduler) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

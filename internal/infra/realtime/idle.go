package realtime

import (
	"sync"
	"time"
)

// idleTimer fires fn once after d without a Reset. Stop makes any pending or later fire a no-op.
type idleTimer struct {
	mu      sync.Mutex
	d       time.Duration
	fn      func()
	t       *time.Timer
	gen     uint64
	stopped bool
}

func newIdleTimer(d time.Duration, fn func()) *idleTimer {
	return &idleTimer{d: d, fn: fn}
}

// Reset cancels the outstanding timer and schedules a new one.
func (it *idleTimer) Reset() {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.stopped {
		return
	}
	if it.t != nil {
		it.t.Stop()
	}
	it.gen++
	gen := it.gen
	it.t = time.AfterFunc(it.d, func() { it.fire(gen) })
}

func (it *idleTimer) fire(gen uint64) {
	it.mu.Lock()
	// a timer that was reset or stopped after it started firing is stale
	if it.stopped || gen != it.gen {
		it.mu.Unlock()
		return
	}
	it.stopped = true
	it.mu.Unlock()
	it.fn()
}

func (it *idleTimer) Stop() {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.stopped = true
	if it.t != nil {
		it.t.Stop()
	}
}

package engine

import (
	"sync"
	"time"
)

// Timer tracks elapsed and remaining time for one attempt at one-second
// granularity. It owns a single ticking goroutine; pause stops ticking
// without losing state and resume continues from the paused value. The
// expiry callback fires exactly once, and only while not paused.
//
// The timer persists nothing itself: the owning state machine consumes
// OnTick and reads elapsed/remaining to update derived state.
type Timer struct {
	mu sync.Mutex

	durationS int // 0 means unbounded (count up only)
	elapsedS  int
	running   bool
	expired   bool

	onTick    func()
	onExpired func()

	stop chan struct{}
	done chan struct{}
}

// NewTimer builds a timer. durationSeconds <= 0 means unbounded.
func NewTimer(durationSeconds int, onTick, onExpired func()) *Timer {
	return &Timer{
		durationS: durationSeconds,
		onTick:    onTick,
		onExpired: onExpired,
	}
}

// Start begins ticking from zero elapsed; use Resume to continue a paused
// timer from its current value. Starting a running timer is a no-op.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	t.running = true
	t.elapsedS = 0
	t.expired = false
	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	go t.loop(t.stop, t.done)
}

// Pause stops ticking, preserving elapsed and remaining time.
func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pauseLocked()
}

func (t *Timer) pauseLocked() {
	if !t.running {
		return
	}
	t.running = false
	close(t.stop)
}

// Resume continues ticking from the paused value.
func (t *Timer) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running || t.expired {
		return
	}
	t.running = true
	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	go t.loop(t.stop, t.done)
}

// Reset stops the timer and rewinds it. A non-zero newDuration replaces the
// configured duration; zero keeps it.
func (t *Timer) Reset(newDurationSeconds int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pauseLocked()
	if newDurationSeconds > 0 {
		t.durationS = newDurationSeconds
	}
	t.elapsedS = 0
	t.expired = false
}

// Stop halts ticking permanently for this attempt.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pauseLocked()
}

// Elapsed returns whole seconds counted so far.
func (t *Timer) Elapsed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.elapsedS
}

// Remaining returns seconds left, or -1 for an unbounded timer.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remainingLocked()
}

func (t *Timer) remainingLocked() int {
	if t.durationS <= 0 {
		return -1
	}
	r := t.durationS - t.elapsedS
	if r < 0 {
		return 0
	}
	return r
}

func (t *Timer) loop(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !t.tick() {
				return
			}
		}
	}
}

// tick advances one second and reports whether ticking should continue.
func (t *Timer) tick() bool {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return false
	}
	t.elapsedS++
	onTick := t.onTick
	var onExpired func()
	if t.durationS > 0 && t.remainingLocked() == 0 && !t.expired {
		t.expired = true
		t.running = false
		onExpired = t.onExpired
	}
	t.mu.Unlock()

	// Callbacks run outside the lock so they may query the timer.
	if onTick != nil {
		onTick()
	}
	if onExpired != nil {
		onExpired()
	}
	return onExpired == nil
}

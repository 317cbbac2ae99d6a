package countdown

import (
	"sync"
	"time"
)

// Clock is the ticking wall-clock reference countdowns are computed against.
// Start is idempotent and Stop releases the ticker exactly once, so a view
// can acquire the clock on mount and release it on unmount without leaking
// timers.
type Clock struct {
	interval time.Duration

	mu  sync.RWMutex
	now time.Time

	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewClock builds a clock ticking at the given cadence (1s when zero).
func NewClock(interval time.Duration) *Clock {
	if interval <= 0 {
		interval = time.Second
	}
	return &Clock{
		interval: interval,
		now:      time.Now(),
		done:     make(chan struct{}),
	}
}

// Start launches the ticker goroutine. Calling Start again is a no-op.
func (c *Clock) Start() {
	c.startOnce.Do(func() {
		go c.run()
	})
}

func (c *Clock) run() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case t := <-ticker.C:
			c.mu.Lock()
			c.now = t
			c.mu.Unlock()
		}
	}
}

// Now returns the last observed tick.
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// Stop releases the ticker. Calling Stop again is a no-op.
func (c *Clock) Stop() {
	c.stopOnce.Do(func() {
		close(c.done)
	})
}

package proctor

import (
	"sync"
	"time"
)

// Countdown ticks once per interval and expires exactly once at zero.
// Callbacks run on the clock's goroutine and must not block.
type Countdown struct {
	clock    Clock
	interval time.Duration
	onTick   func(remaining time.Duration)
	onExpire func()

	mu        sync.Mutex
	remaining time.Duration
	timer     Timer
	stopped   bool
	started   bool
}

// NewCountdown prepares a countdown of total. Call Start to arm it.
func NewCountdown(clock Clock, total, interval time.Duration, onTick func(time.Duration), onExpire func()) *Countdown {
	if interval <= 0 {
		interval = time.Second
	}
	if onTick == nil {
		onTick = func(time.Duration) {}
	}
	return &Countdown{
		clock:     clock,
		interval:  interval,
		onTick:    onTick,
		onExpire:  onExpire,
		remaining: total,
	}
}

// Start arms the first tick. A second call is a no-op.
func (c *Countdown) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started || c.stopped {
		return
	}
	c.started = true
	if c.remaining <= 0 {
		c.stopped = true
		go c.onExpire()
		return
	}
	c.timer = c.clock.AfterFunc(c.step(), c.fire)
}

// Stop cancels the countdown. Idempotent.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// Remaining returns the time left as of the last tick.
func (c *Countdown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

func (c *Countdown) step() time.Duration {
	if c.remaining < c.interval {
		return c.remaining
	}
	return c.interval
}

func (c *Countdown) fire() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.remaining -= c.step()
	remaining := c.remaining
	expired := remaining <= 0
	if expired {
		c.stopped = true
		c.timer = nil
	} else {
		c.timer = c.clock.AfterFunc(c.step(), c.fire)
	}
	c.mu.Unlock()

	if expired {
		c.onExpire()
		return
	}
	c.onTick(remaining)
}

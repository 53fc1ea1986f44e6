package linktest

import (
	"sort"
	"sync"
	"time"

	"github.com/hashpad-dev/hashpad/pkg/linksync"
)

// Clock is a manual linksync.Clock.
type Clock struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*timer
}

type timer struct {
	clock   *Clock
	at      time.Duration
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

// NewClock creates a Clock at time zero.
func NewClock() *Clock {
	return &Clock{}
}

// AfterFunc implements linksync.Clock.
func (c *Clock) AfterFunc(d time.Duration, f func()) linksync.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &timer{clock: c, at: c.now + d, seq: c.seq, fn: f}
	c.seq++
	c.timers = append(c.timers, t)
	return t
}

// Stop implements linksync.Timer.
func (t *timer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves the clock forward by d and runs every timer that comes due,
// in deadline order, on the calling goroutine.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.nextDueLocked(target)
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = next.at
		next.fired = true
		c.mu.Unlock()
		next.fn()
	}
}

func (c *Clock) nextDueLocked(target time.Duration) *timer {
	live := c.timers[:0]
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	c.timers = live
	sort.Slice(live, func(i, j int) bool {
		if live[i].at != live[j].at {
			return live[i].at < live[j].at
		}
		return live[i].seq < live[j].seq
	})
	if len(live) == 0 || live[0].at > target {
		return nil
	}
	return live[0]
}

// Pending returns the number of timers that have neither fired nor been
// stopped.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// Now returns the elapsed manual time.
func (c *Clock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Inline is a dispatch function that runs callbacks immediately on the
// calling goroutine. With a manual Clock that goroutine is the test's.
func Inline(fn func()) {
	fn()
}

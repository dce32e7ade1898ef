package timeutil

import (
	"sync"
	"time"
)

// FakeClock fires every wait immediately and delivers ticks as fast as the reader
// consumes them, advancing its notion of now by the requested durations. It records
// the waits and ticker periods it was asked for.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	waits   []time.Duration
	periods []time.Duration
}

// NewFakeClock returns a fake clock starting at start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.waits = append(c.waits, d)
	now := c.now
	c.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

func (c *FakeClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	c.periods = append(c.periods, d)
	c.mu.Unlock()

	t := &fakeTicker{c: make(chan time.Time), stop: make(chan struct{})}
	go func() {
		for {
			c.mu.Lock()
			c.now = c.now.Add(d)
			now := c.now
			c.mu.Unlock()

			select {
			case t.c <- now:
			case <-t.stop:
				return
			}
		}
	}()
	return t
}

// Waits returns the durations passed to After, in order.
func (c *FakeClock) Waits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.waits...)
}

// Periods returns the periods of every ticker created.
func (c *FakeClock) Periods() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.periods...)
}

type fakeTicker struct {
	c    chan time.Time
	stop chan struct{}
	once sync.Once
}

func (t *fakeTicker) C() <-chan time.Time { return t.c }
func (t *fakeTicker) Stop()               { t.once.Do(func() { close(t.stop) }) }

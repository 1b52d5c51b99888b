package autosave

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultDelay is the debounce window used when none is configured.
const DefaultDelay = 2 * time.Second

// Coordinator debounces persistence of a live draft. Every observed
// change restarts the countdown; when it elapses the save callback
// receives the latest value, not the one that started the countdown.
// At most one save is in flight at a time: a change arriving mid-save
// re-arms the timer once the save returns. A failed save is logged,
// not retried. Close cancels the pending countdown and flushes any
// unflushed change synchronously.
type Coordinator struct {
	mu      sync.Mutex
	save    func(value string) error
	delay   time.Duration
	enabled bool

	timer    *time.Timer
	last     string
	dirty    bool
	saving   bool
	primed   bool
	closed   bool
	flushing sync.WaitGroup
}

// New creates a Coordinator around the save callback. A non-positive
// delay falls back to DefaultDelay. A disabled coordinator observes
// values but never saves.
func New(save func(value string) error, delay time.Duration, enabled bool) *Coordinator {
	if delay <= 0 {
		delay = DefaultDelay
	}

	return &Coordinator{
		save:    save,
		delay:   delay,
		enabled: enabled,
	}
}

// Observe records a new value of the draft. The first value after
// start is the just-loaded baseline and never triggers a save.
func (c *Coordinator) Observe(value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	if !c.primed {
		c.primed = true
		c.last = value
		return
	}

	c.last = value
	if !c.enabled {
		return
	}

	c.dirty = true
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.delay, c.flush)
}

func (c *Coordinator) flush() {
	c.mu.Lock()
	if c.closed || !c.dirty {
		c.mu.Unlock()
		return
	}
	if c.saving {
		// a save is in flight, it re-arms the timer when it returns
		c.mu.Unlock()
		return
	}

	c.saving = true
	c.dirty = false
	value := c.last
	c.flushing.Add(1)
	c.mu.Unlock()

	err := c.save(value)

	c.mu.Lock()
	c.saving = false
	if err != nil {
		logrus.Errorf("autosave failed: %v", err)
	}
	if c.dirty && !c.closed {
		if c.timer != nil {
			c.timer.Stop()
		}
		c.timer = time.AfterFunc(c.delay, c.flush)
	}
	c.flushing.Done()
	c.mu.Unlock()
}

// Close ends the coordinator. Any pending debounce is cancelled and an
// unflushed change is saved synchronously with the last observed value,
// so no edit is silently dropped at shutdown.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
	}
	dirty := c.dirty && c.enabled
	c.dirty = false
	value := c.last
	c.mu.Unlock()

	// let an in-flight save finish before the final flush
	c.flushing.Wait()

	if dirty {
		if err := c.save(value); err != nil {
			logrus.Errorf("final autosave failed: %v", err)
		}
	}
}

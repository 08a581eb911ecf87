package session

import (
	"fmt"
	"time"

	"github.com/vsariola/scrawl"
)

// Clock maps elapsed wall time to timeline time. It keeps the timeline time
// of its last anchor and the wall time elapsed since, so that many small
// advances never accumulate rounding drift. The zero value is a stopped clock
// at time 0 with rate 1.
type Clock struct {
	anchor  scrawl.Time
	elapsed scrawl.Diff // wall time since anchor
	rate    scrawl.Rate
	running bool
}

func (c *Clock) Now() scrawl.Time {
	if !c.running {
		return c.anchor
	}
	return c.anchor.Add(c.Rate().Scale(c.elapsed))
}

func (c *Clock) Rate() scrawl.Rate {
	if !c.rate.Valid() {
		return scrawl.Normal
	}
	return c.rate
}

func (c *Clock) Running() bool { return c.running }

// Advance moves a running clock forward by elapsed wall time and returns the
// new time. A stopped clock does not move.
func (c *Clock) Advance(elapsed time.Duration) scrawl.Time {
	if c.running && elapsed > 0 {
		c.elapsed += scrawl.FromDuration(elapsed)
	}
	return c.Now()
}

// SetRate changes the rate from now on.
func (c *Clock) SetRate(r scrawl.Rate) error {
	if !r.Valid() {
		return fmt.Errorf("%w: %v", scrawl.ErrInvalidRate, r)
	}
	c.reanchor()
	c.rate = r
	return nil
}

// Start lets the clock run from its current time.
func (c *Clock) Start() {
	c.reanchor()
	c.running = true
}

// Stop freezes the clock at its current time.
func (c *Clock) Stop() {
	c.reanchor()
	c.running = false
}

// Seek moves a stopped clock. Seeking a running clock fails with
// ErrInvalidState.
func (c *Clock) Seek(t scrawl.Time) error {
	if c.running {
		return fmt.Errorf("%w: cannot seek a running clock", scrawl.ErrInvalidState)
	}
	c.anchor = max(t, 0)
	c.elapsed = 0
	return nil
}

// stopAt stops the clock and moves it to t. Unlike Seek it cannot fail.
func (c *Clock) stopAt(t scrawl.Time) {
	c.running = false
	c.set(t)
}

// Until returns the wall time the clock needs at its current rate to reach t.
// ok is false if the clock would never reach t.
func (c *Clock) Until(t scrawl.Time) (d time.Duration, ok bool) {
	r := c.Rate()
	diff := t.Sub(c.Now())
	if r.Num == 0 || (diff > 0) != (r.Num > 0) {
		return 0, diff == 0
	}
	if r.Num < 0 {
		r, diff = r.Neg(), -diff
	}
	return r.Unscale(diff).Duration(), true
}

func (c *Clock) reanchor() {
	c.anchor = c.Now()
	c.elapsed = 0
}

// set moves the clock to t without stopping it.
func (c *Clock) set(t scrawl.Time) {
	c.anchor = max(t, 0)
	c.elapsed = 0
}

package session

import (
	"sync"
	"time"
)

type (
	// Capture is a bounded queue between the audio device callback and the
	// session. Push never waits for the session's mutation lock; when the
	// queue is full, the oldest samples are dropped and counted as an
	// overrun. The session drains the queue into the timeline.
	Capture struct {
		mu       sync.Mutex
		blocks   []captureBlock
		queued   int
		capacity int
		rate     int
		dropped  int
		signal   chan struct{}
		broker   *Broker
	}

	captureBlock struct {
		samples *[]int16
		// device time of the first sample
		at time.Duration
	}
)

// NewCapture returns a queue holding at most capacity samples of audio at
// the given sample rate.
func NewCapture(capacity, sampleRate int, broker *Broker) *Capture {
	return &Capture{
		capacity: max(capacity, 1),
		rate:     sampleRate,
		signal:   make(chan struct{}, 1),
		broker:   broker,
	}
}

// Push enqueues a block of captured samples whose first sample was recorded
// at device time at. The samples are copied. Device times must be monotonic
// within a recording.
func (c *Capture) Push(samples []int16, at time.Duration) {
	if len(samples) == 0 {
		return
	}
	buf := c.broker.GetBuffer()
	*buf = append(*buf, samples...)
	c.mu.Lock()
	if over := len(*buf) - c.capacity; over > 0 {
		// the block alone does not fit; keep its newest samples
		copy(*buf, (*buf)[over:])
		*buf = (*buf)[:c.capacity]
		at += time.Duration(over) * time.Second / time.Duration(c.rate)
		c.dropped += over
	}
	for c.queued+len(*buf) > c.capacity && len(c.blocks) > 0 {
		old := c.blocks[0]
		c.blocks[0] = captureBlock{}
		c.blocks = c.blocks[1:]
		c.queued -= len(*old.samples)
		c.dropped += len(*old.samples)
		c.broker.PutBuffer(old.samples)
	}
	c.blocks = append(c.blocks, captureBlock{samples: buf, at: at})
	c.queued += len(*buf)
	c.mu.Unlock()
	TrySend(c.signal, struct{}{})
}

// Ready is signalled after a Push.
func (c *Capture) Ready() <-chan struct{} { return c.signal }

// Queued returns the number of samples waiting to be drained.
func (c *Capture) Queued() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queued
}

// take removes all queued blocks and returns them with the number of samples
// dropped since the last take.
func (c *Capture) take() (blocks []captureBlock, dropped int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	blocks, dropped = c.blocks, c.dropped
	c.blocks, c.queued, c.dropped = nil, 0, 0
	return blocks, dropped
}

func (c *Capture) discard() {
	blocks, _ := c.take()
	for _, b := range blocks {
		c.broker.PutBuffer(b.samples)
	}
}

package session

import (
	"sync"
	"time"

	"github.com/vsariola/scrawl"
)

type (
	// Broker carries messages from the session to the goroutines around it.
	// Each recipient has its own channel. For closing goroutines, there are
	// two channels: CloseXXX has a capacity of 1, so an empty struct can
	// always be sent without blocking; FinishedXXX is closed by the
	// goroutine once it has cleaned up. Wait for it with a timeout:
	//    select {
	//      case <-FinishedXXX:
	//      case <-time.After(3 * time.Second):
	//    }
	//
	// The broker also has a sync.Pool of sample buffers, so that the capture
	// callback can hand over audio without allocating.
	Broker struct {
		Alerts     chan Alert
		ToAutosave chan *scrawl.Timeline

		CloseAutosave    chan struct{}
		FinishedAutosave chan struct{}

		bufferPool sync.Pool
	}
)

func NewBroker() *Broker {
	return &Broker{
		Alerts:           make(chan Alert, 64),
		ToAutosave:       make(chan *scrawl.Timeline, 1),
		CloseAutosave:    make(chan struct{}, 1),
		FinishedAutosave: make(chan struct{}),
		bufferPool:       sync.Pool{New: func() any { return &[]int16{} }},
	}
}

// GetBuffer returns an empty sample buffer from the pool. Return it with
// PutBuffer when done.
func (b *Broker) GetBuffer() *[]int16 {
	return b.bufferPool.Get().(*[]int16)
}

// PutBuffer returns a buffer to the pool. Its length is reset, its capacity
// kept.
func (b *Broker) PutBuffer(buf *[]int16) {
	*buf = (*buf)[:0]
	b.bufferPool.Put(buf)
}

// SendAlert sends an alert without blocking; the alert is dropped if nobody
// is listening.
func (b *Broker) SendAlert(name, message string, priority AlertPriority) {
	TrySend(b.Alerts, Alert{Name: name, Message: message, Priority: priority, Duration: defaultAlertDuration})
}

// RequestAutosave replaces any pending autosave request with t.
func (b *Broker) RequestAutosave(t *scrawl.Timeline) {
	for {
		if TrySend(b.ToAutosave, t) {
			return
		}
		select {
		case <-b.ToAutosave:
		default:
		}
	}
}

// TrySend sends v to c unless c is full. It never blocks and reports
// whether v was sent.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
		return true
	default:
		return false
	}
}

// TimeoutReceive waits at most t for a value from c. ok is false on a
// timeout or a closed channel.
func TimeoutReceive[T any](c <-chan T, t time.Duration) (v T, ok bool) {
	timer := time.NewTimer(t)
	defer timer.Stop()
	select {
	case v, ok = <-c:
	case <-timer.C:
	}
	return v, ok
}

package publish

import (
	"sync/atomic"

	"github.com/bemasher/rtl5800/device"
)

// Queue is a bounded message queue that discards its oldest entry rather
// than block the producer. It supports a single producer.
type Queue struct {
	ch      chan device.Message
	dropped uint64
}

func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{ch: make(chan device.Message, capacity)}
}

// Push enqueues msg, discarding the oldest queued message if full. It reports
// whether a message was discarded.
func (q *Queue) Push(msg device.Message) (dropped bool) {
	for {
		select {
		case q.ch <- msg:
			return dropped
		default:
		}

		select {
		case <-q.ch:
			dropped = true
			atomic.AddUint64(&q.dropped, 1)
		default:
		}
	}
}

// C returns the channel consumers receive from.
func (q *Queue) C() <-chan device.Message {
	return q.ch
}

// Close signals that no more messages will be pushed.
func (q *Queue) Close() {
	close(q.ch)
}

func (q *Queue) Len() int {
	return len(q.ch)
}

func (q *Queue) Dropped() uint64 {
	return atomic.LoadUint64(&q.dropped)
}

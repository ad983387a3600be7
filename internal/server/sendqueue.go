package server

// Per-client outbound queue: bounded FIFO, multi-producer (render workers,
// control responses), single-consumer (send worker). Modeled on the
// teacher's stream relay (snapshot-under-lock, non-blocking try-send) but
// reshaped into a single owned queue per client rather than a fan-out
// broadcast list, since each client has exactly one send worker.

import (
	"sync"
	"time"

	"github.com/asciichat/asciichat/internal/protocol/packet"
)

// sendQueueCapacity bounds the number of packets buffered per client
// before overflow policy kicks in.
const sendQueueCapacity = 64

// controlSendTimeout bounds how long a control packet may block when the
// queue is full before being dropped.
const controlSendTimeout = 200 * time.Millisecond

// shutdownSentinel is returned by dequeue once the queue has been shut
// down and drained, so the send worker can exit without hanging.
var shutdownSentinel = &packet.Packet{}

// SendQueue is a bounded FIFO of outbound packets with shutdown semantics
// matching §4.5: drop-oldest overflow for video frames, block-with-timeout
// for control packets, and handshake packets are never dropped.
type SendQueue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	items    []*packet.Packet
	shutdown bool
}

// NewSendQueue returns an empty, open queue.
func NewSendQueue() *SendQueue {
	q := &SendQueue{}
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// Enqueue adds p to the queue, applying the overflow policy for its type
// when the queue is already at capacity.
func (q *SendQueue) Enqueue(p *packet.Packet) bool {
	q.mu.Lock()
	if q.shutdown {
		q.mu.Unlock()
		return false
	}
	if len(q.items) < sendQueueCapacity {
		q.items = append(q.items, p)
		q.mu.Unlock()
		q.notEmpty.Signal()
		return true
	}

	switch {
	case p.Type.IsHandshake():
		// Never dropped: grow past capacity rather than lose it.
		q.items = append(q.items, p)
		q.mu.Unlock()
		q.notEmpty.Signal()
		return true
	case p.Type == packet.TypeASCIIFrame:
		// Drop-oldest: freshness wins for rendered video.
		q.items = append(q.items[1:], p)
		q.mu.Unlock()
		q.notEmpty.Signal()
		return true
	default:
		q.mu.Unlock()
		return q.enqueueWithTimeout(p)
	}
}

func (q *SendQueue) enqueueWithTimeout(p *packet.Packet) bool {
	deadline := time.Now().Add(controlSendTimeout)
	for {
		q.mu.Lock()
		if q.shutdown {
			q.mu.Unlock()
			return false
		}
		if len(q.items) < sendQueueCapacity {
			q.items = append(q.items, p)
			q.mu.Unlock()
			q.notEmpty.Signal()
			return true
		}
		q.mu.Unlock()
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
}

// Dequeue blocks until an item is available or the queue is shut down, in
// which case it returns the shutdown sentinel.
func (q *SendQueue) Dequeue() *packet.Packet {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.shutdown {
		q.notEmpty.Wait()
	}
	if len(q.items) == 0 {
		return shutdownSentinel
	}
	p := q.items[0]
	q.items = q.items[1:]
	return p
}

// IsShutdownSentinel reports whether p is the sentinel returned by a
// drained, shut-down queue.
func IsShutdownSentinel(p *packet.Packet) bool {
	return p == shutdownSentinel
}

// Shutdown wakes all blocked dequeuers; subsequent Dequeue calls drain
// remaining items first, then return the sentinel.
func (q *SendQueue) Shutdown() {
	q.mu.Lock()
	q.shutdown = true
	q.mu.Unlock()
	q.notEmpty.Broadcast()
}

// Len reports the current queue depth (diagnostic use only).
func (q *SendQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

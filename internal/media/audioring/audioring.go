// Package audioring implements the single-producer/single-consumer ring of
// fixed-size PCM frames feeding each client's audio render loop. Push on a
// full ring overwrites the oldest entry, favoring freshness over
// completeness; pop never blocks and returns ok=false on an empty ring. A
// shutdown flag turns push into a no-op during teardown.
package audioring

import "sync/atomic"

// Capacity is the number of PCM frames buffered per client. At 256 samples
// per frame / 48kHz this holds roughly capacity*5.33ms of audio.
const Capacity = 8

// Ring is a lock-free fixed-capacity ring buffer of PCM frames.
type Ring struct {
	slots    [Capacity][]int16
	head     atomic.Uint64 // next write index
	tail     atomic.Uint64 // next read index
	count    atomic.Int64
	shutdown atomic.Bool
}

// New returns an empty ring.
func New() *Ring {
	return &Ring{}
}

// Push enqueues frame, overwriting the oldest entry if the ring is full.
func (r *Ring) Push(frame []int16) {
	if r.shutdown.Load() {
		return
	}
	h := r.head.Add(1) - 1
	r.slots[h%Capacity] = frame
	if r.count.Add(1) > Capacity {
		// Ring was already full: the slot we just wrote also overwrote the
		// oldest entry, so advance tail past it and correct the count.
		r.tail.Add(1)
		r.count.Add(-1)
	}
}

// Pop dequeues the oldest frame. ok is false if the ring is empty or has
// been shut down and drained.
func (r *Ring) Pop() (frame []int16, ok bool) {
	for {
		c := r.count.Load()
		if c <= 0 {
			return nil, false
		}
		if r.count.CompareAndSwap(c, c-1) {
			t := r.tail.Add(1) - 1
			return r.slots[t%Capacity], true
		}
	}
}

// Shutdown marks the ring as shutting down; subsequent Push calls are
// no-ops, but Pop continues to drain whatever remains until empty.
func (r *Ring) Shutdown() {
	r.shutdown.Store(true)
}

// ShuttingDown reports whether Shutdown has been called.
func (r *Ring) ShuttingDown() bool {
	return r.shutdown.Load()
}

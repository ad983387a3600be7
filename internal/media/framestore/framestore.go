// Package framestore implements the per-client double-buffered video frame
// store: the receive worker commits decoded frames, render workers acquire
// the latest complete one. The critical invariant is drop-not-overwrite —
// a consumer that hasn't picked up the previous frame causes the next
// commit to be dropped rather than silently replacing what's pending.
package framestore

import (
	"sync"
	"sync/atomic"

	"github.com/asciichat/asciichat/internal/media"
)

// Store holds a pair of equally sized frame buffers for one client.
type Store struct {
	mu    sync.Mutex // guards swap of front/back roles
	front *media.VideoFrame
	back  *media.VideoFrame

	newAvailable atomic.Bool
	received     atomic.Uint64
	dropped      atomic.Uint64
}

// New returns an empty store with no committed frame yet.
func New() *Store {
	return &Store{}
}

// Commit copies frame into the back buffer and swaps it in, unless the
// previously committed frame hasn't been consumed yet — in which case this
// frame is dropped and the dropped counter is incremented. The frame store
// owns this decision so the receive worker never blocks on render
// consumers.
func (s *Store) Commit(frame *media.VideoFrame) {
	s.received.Add(1)
	if s.newAvailable.Load() {
		s.dropped.Add(1)
		return
	}
	s.mu.Lock()
	s.back = cloneFrame(frame)
	s.front, s.back = s.back, s.front
	s.mu.Unlock()
	s.newAvailable.Store(true)
}

// AcquireLatest returns the most recently committed frame, or nil if no
// frame has ever been committed. If no new frame has arrived since the
// last call, the previously returned frame is returned again so callers
// can reuse their cached copy.
func (s *Store) AcquireLatest() *media.VideoFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.newAvailable.Load() {
		s.newAvailable.Store(false)
	}
	return s.front
}

// Stats reports the lifetime received and dropped frame counts.
func (s *Store) Stats() (received, dropped uint64) {
	return s.received.Load(), s.dropped.Load()
}

func cloneFrame(f *media.VideoFrame) *media.VideoFrame {
	if f == nil {
		return nil
	}
	pixels := make([]byte, len(f.Pixels))
	copy(pixels, f.Pixels)
	return &media.VideoFrame{Width: f.Width, Height: f.Height, Format: f.Format, Pixels: pixels}
}

package framestore

import (
	"testing"

	"github.com/asciichat/asciichat/internal/media"
)

func testFrame(tag byte) *media.VideoFrame {
	return &media.VideoFrame{Width: 1, Height: 1, Format: media.PixelFormatGray8, Pixels: []byte{tag}}
}

func TestDropSemanticsUnderSlowReader(t *testing.T) {
	s := New()
	for i := 0; i < 100; i++ {
		s.Commit(testFrame(byte(i)))
	}
	received, dropped := s.Stats()
	if received != 100 {
		t.Fatalf("received = %d, want 100", received)
	}
	if dropped != 99 {
		t.Fatalf("dropped = %d, want 99", dropped)
	}
	f := s.AcquireLatest()
	if f == nil || f.Pixels[0] != 0 {
		t.Fatalf("expected the first committed frame's contents, got %+v", f)
	}
}

func TestAcquireLatestReusesWhenNoNewFrame(t *testing.T) {
	s := New()
	s.Commit(testFrame(7))
	first := s.AcquireLatest()
	second := s.AcquireLatest()
	if first != second {
		t.Fatalf("expected the same cached frame to be returned again")
	}
}

func TestAcquireLatestEmptyStore(t *testing.T) {
	s := New()
	if f := s.AcquireLatest(); f != nil {
		t.Fatalf("expected nil frame for empty store, got %+v", f)
	}
}

func TestCommitAfterAcquireSwaps(t *testing.T) {
	s := New()
	s.Commit(testFrame(1))
	s.AcquireLatest()
	s.Commit(testFrame(2))
	f := s.AcquireLatest()
	if f.Pixels[0] != 2 {
		t.Fatalf("expected latest frame tag 2, got %d", f.Pixels[0])
	}
	_, dropped := s.Stats()
	if dropped != 0 {
		t.Fatalf("expected no drops when reader keeps up, got %d", dropped)
	}
}

package server

import (
	"encoding/binary"
	"net"
	"testing"

	"github.com/asciichat/asciichat/internal/media"
	"github.com/asciichat/asciichat/internal/protocol/packet"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	conn, peer := net.Pipe()
	t.Cleanup(func() { _ = conn.Close(); _ = peer.Close() })
	return newClient(1, conn)
}

func TestHandleImageFrameCommitsToFrameStore(t *testing.T) {
	c := newTestClient(t)

	payload, err := media.EncodeVideoFrame(&media.VideoFrame{
		Width:  2,
		Height: 2,
		Format: media.PixelFormatRGB24,
		Pixels: make([]byte, 2*2*3),
	})
	if err != nil {
		t.Fatalf("encode video frame: %v", err)
	}

	if err := c.handleImageFrame(&packet.Packet{Type: packet.TypeImageFrame, Payload: payload}); err != nil {
		t.Fatalf("handleImageFrame: %v", err)
	}
	if f := c.FrameStore.AcquireLatest(); f == nil || f.Width != 2 || f.Height != 2 {
		t.Fatalf("expected a committed 2x2 frame, got %+v", f)
	}
}

func TestHandleImageFrameRejectsMalformedPayload(t *testing.T) {
	c := newTestClient(t)
	if err := c.handleImageFrame(&packet.Packet{Type: packet.TypeImageFrame, Payload: []byte{1, 2}}); err == nil {
		t.Fatalf("expected an error for a truncated IMAGE_FRAME payload")
	}
}

func TestHandleAudioBatchPushesEveryFrame(t *testing.T) {
	c := newTestClient(t)

	frames := make([][]int16, 3)
	for i := range frames {
		frames[i] = make([]int16, media.SamplesPerFrame*media.Channels)
	}
	payload, err := media.EncodeAudioBatch(frames)
	if err != nil {
		t.Fatalf("encode audio batch: %v", err)
	}

	if err := c.handleAudioBatch(&packet.Packet{Type: packet.TypeAudioBatch, Payload: payload}); err != nil {
		t.Fatalf("handleAudioBatch: %v", err)
	}

	seen := 0
	for {
		if _, ok := c.AudioRing.Pop(); !ok {
			break
		}
		seen++
	}
	if seen != 3 {
		t.Fatalf("expected 3 frames pushed onto the ring, popped %d", seen)
	}
}

func TestHandleTerminalSizeUpdatesDimensions(t *testing.T) {
	c := newTestClient(t)

	payload := make([]byte, 4)
	binary.LittleEndian.PutUint16(payload[0:2], 120)
	binary.LittleEndian.PutUint16(payload[2:4], 40)

	if err := c.handleTerminalSize(&packet.Packet{Type: packet.TypeTerminalSize, Payload: payload}); err != nil {
		t.Fatalf("handleTerminalSize: %v", err)
	}
	w, h, _, _ := c.Dimensions()
	if w != 120 || h != 40 {
		t.Fatalf("expected dimensions (120,40), got (%d,%d)", w, h)
	}
}

func TestHandleTerminalSizeRejectsWrongLength(t *testing.T) {
	c := newTestClient(t)
	if err := c.handleTerminalSize(&packet.Packet{Type: packet.TypeTerminalSize, Payload: []byte{1, 2, 3}}); err == nil {
		t.Fatalf("expected an error for a wrong-length TERMINAL_SIZE payload")
	}
}

func TestHandlePingEnqueuesPong(t *testing.T) {
	c := newTestClient(t)

	if err := c.handlePing(&packet.Packet{Type: packet.TypePing, Payload: []byte("token")}); err != nil {
		t.Fatalf("handlePing: %v", err)
	}

	p := c.SendQ.Dequeue()
	if p == nil || p.Type != packet.TypePong || string(p.Payload) != "token" {
		t.Fatalf("expected a PONG echoing the ping token, got %+v", p)
	}
}

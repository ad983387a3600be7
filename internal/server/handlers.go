package server

// Per-packet-type handlers invoked by the receive worker's dispatch switch:
// parse payload, validate, mutate connection-local state, never block on
// render or send-side consumers.

import (
	"encoding/binary"
	"fmt"

	"github.com/asciichat/asciichat/internal/media"
	"github.com/asciichat/asciichat/internal/protocol/packet"
)

func (c *Client) handleImageFrame(p *packet.Packet) error {
	frame, err := media.ParseVideoFrame(p.Payload)
	if err != nil {
		return fmt.Errorf("handle image_frame: %w", err)
	}
	c.FrameStore.Commit(frame)
	return nil
}

func (c *Client) handleAudioBatch(p *packet.Packet) error {
	batch, err := media.ParseAudioBatch(p.Payload)
	if err != nil {
		return fmt.Errorf("handle audio_batch: %w", err)
	}
	for _, frame := range batch.Frames {
		c.AudioRing.Push(frame)
	}
	return nil
}

// terminalSizePayloadLen is width(2B) | height(2B).
const terminalSizePayloadLen = 4

func (c *Client) handleTerminalSize(p *packet.Packet) error {
	if len(p.Payload) != terminalSizePayloadLen {
		return fmt.Errorf("handle terminal_size: expected %d bytes, got %d", terminalSizePayloadLen, len(p.Payload))
	}
	width := int(binary.LittleEndian.Uint16(p.Payload[0:2]))
	height := int(binary.LittleEndian.Uint16(p.Payload[2:4]))
	c.SetDimensions(width, height)
	return nil
}

// handlePing echoes the ping token straight back as a PONG. It joins the
// tail of the FIFO send queue like any other packet; as a control packet
// it waits up to controlSendTimeout for room rather than evicting when the
// queue is full.
func (c *Client) handlePing(p *packet.Packet) error {
	if !c.SendQ.Enqueue(&packet.Packet{Type: packet.TypePong, ClientID: c.ID, Payload: p.Payload}) {
		return fmt.Errorf("handle ping: send queue rejected pong")
	}
	return nil
}

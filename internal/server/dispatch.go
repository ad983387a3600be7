package server

// Receive worker: drives the server side of the handshake, then dispatches
// every post-handshake packet by type through a single per-client loop,
// since this protocol's packet types are a closed enum.

import (
	"errors"
	"io"
	"net"

	"github.com/asciichat/asciichat/internal/crypto/envelope"
	protoerr "github.com/asciichat/asciichat/internal/errors"
	"github.com/asciichat/asciichat/internal/protocol/packet"
)

// runReceiveWorker drives the handshake to completion, then loops reading
// and dispatching packets until EOF, a fatal codec error, or teardown.
func (c *Client) runReceiveWorker(reg *Registry) {
	defer c.teardown(reg)

	env, err := envelope.ServerHandshake(c.conn, reg.HandshakeConfig)
	if err != nil {
		c.log.Warn("handshake failed", "error", err)
		reg.fireHandshakeFailed(c, err)
		return
	}
	c.setEnvelope(env)
	reg.fireClientJoin(c)

	for c.liveReceive.Load() {
		p, err := packet.ReadSealed(c.conn, c.conn, env)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				c.log.Debug("receive worker: connection closed")
			} else if protoerr.IsTimeout(err) {
				continue
			} else {
				c.log.Warn("receive worker: read error", "error", err)
			}
			return
		}

		if err := c.dispatch(reg, p); err != nil {
			c.log.Warn("receive worker: dispatch error", "type", p.Type.String(), "error", err)
			if c.recordError() {
				c.log.Error("receive worker: three consecutive errors within one second, dropping connection")
				return
			}
			continue
		}
		c.recordSuccess()

		if p.Type == packet.TypeClientLeave {
			return
		}
	}
}

// dispatch routes one decoded packet to its handler, per §4.8.
func (c *Client) dispatch(reg *Registry, p *packet.Packet) error {
	switch p.Type {
	case packet.TypeImageFrame:
		return c.handleImageFrame(p)
	case packet.TypeAudioBatch:
		return c.handleAudioBatch(p)
	case packet.TypeTerminalSize:
		return c.handleTerminalSize(p)
	case packet.TypePing:
		return c.handlePing(p)
	case packet.TypeStreamStart:
		c.HasVideo.Store(true)
		reg.fireStreamStart(c)
		return nil
	case packet.TypeStreamStop:
		c.HasVideo.Store(false)
		c.HasAudio.Store(false)
		reg.fireStreamStop(c)
		return nil
	case packet.TypeClientLeave:
		return nil
	default:
		c.log.Warn("receive worker: unhandled packet type", "type", p.Type.String())
		return nil
	}
}

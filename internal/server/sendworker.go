package server

// Send worker: the single consumer of a client's bounded FIFO send queue,
// writing each packet out through the sealed/plaintext codec.

import (
	"errors"
	"net"

	"github.com/asciichat/asciichat/internal/protocol/packet"
)

// runSendWorker dequeues packets and writes them to the socket, encrypting
// once the handshake has completed. It exits on shutdown sentinel or I/O
// error, in both cases triggering teardown.
func (c *Client) runSendWorker(reg *Registry) {
	defer c.teardown(reg)

	for c.liveSend.Load() {
		p := c.SendQ.Dequeue()
		if IsShutdownSentinel(p) {
			return
		}

		var err error
		if env := c.Envelope(); env != nil && !p.Type.IsHandshake() {
			err = packet.WriteSealed(c.conn, c.conn, env, p)
		} else {
			err = packet.WritePlain(c.conn, c.conn, p)
		}
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				c.log.Debug("send worker: connection closed")
			} else {
				c.log.Warn("send worker: write error", "error", err)
			}
			return
		}
	}
}

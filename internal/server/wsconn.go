package server

// wsConn adapts a *websocket.Conn to net.Conn so the framed packet codec
// can treat a WebSocket connection exactly like a TCP one, per §6's "same
// packet wire format as binary WS messages, one WS message per packet".

import (
	"net"
	"time"

	"github.com/gorilla/websocket"
)

func newWSConn(c *websocket.Conn) *wsConn {
	return &wsConn{Conn: c, reader: &wsMessageReader{}}
}

// wsMessageReader buffers the tail of a partially consumed WS message so
// Read can honor an arbitrary caller-supplied buffer size, the way a TCP
// byte stream does.
type wsMessageReader struct {
	buf []byte
}

func (c *wsConn) Read(p []byte) (int, error) {
	for len(c.reader.buf) == 0 {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			return 0, err
		}
		c.reader.buf = data
	}
	n := copy(p, c.reader.buf)
	c.reader.buf = c.reader.buf[n:]
	return n, nil
}

func (c *wsConn) Write(p []byte) (int, error) {
	if err := c.Conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *wsConn) Close() error { return c.Conn.Close() }

func (c *wsConn) LocalAddr() net.Addr  { return c.Conn.LocalAddr() }
func (c *wsConn) RemoteAddr() net.Addr { return c.Conn.RemoteAddr() }

func (c *wsConn) SetDeadline(t time.Time) error {
	if err := c.Conn.SetReadDeadline(t); err != nil {
		return err
	}
	return c.Conn.SetWriteDeadline(t)
}

func (c *wsConn) SetReadDeadline(t time.Time) error  { return c.Conn.SetReadDeadline(t) }
func (c *wsConn) SetWriteDeadline(t time.Time) error { return c.Conn.SetWriteDeadline(t) }

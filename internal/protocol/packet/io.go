package packet

import (
	"io"
	"net"
	"time"

	protoerr "github.com/asciichat/asciichat/internal/errors"
)

// Timeouts, per the design's §4.1/§5 deadlines.
const (
	ConnectTimeout = 10 * time.Second
	SendTimeout    = 5 * time.Second
	RecvTimeout    = 5 * time.Second
	AcceptTimeout  = 30 * time.Second
)

// AEADSealer seals and opens packet bodies once the handshake has reached
// Ready. internal/crypto/envelope provides the concrete implementation;
// this package only depends on the interface so the plaintext codec has no
// import cycle on the crypto layer.
type AEADSealer interface {
	Seal(typ Type, clientID uint32, payload []byte) ([]byte, error)
	Open(sealed []byte) (typ Type, clientID uint32, payload []byte, err error)
}

// ReadPlain reads one plaintext-framed packet from r, enforcing RecvTimeout
// via the deadline setter dl (nil for connections without deadlines, e.g.
// in-memory pipes used by tests).
func ReadPlain(r io.Reader, dl deadliner) (*Packet, error) {
	if dl != nil {
		if err := dl.SetReadDeadline(time.Now().Add(RecvTimeout)); err != nil {
			return nil, protoerr.NewCodecError("packet.read.set_deadline", err)
		}
	}
	hdr := make([]byte, PlainHeaderSize)
	if _, err := io.ReadFull(r, hdr); err != nil {
		if isTimeout(err) {
			return nil, protoerr.NewTimeoutError("packet.read.header", RecvTimeout, err)
		}
		return nil, protoerr.NewCodecError("packet.read.header", err)
	}
	typ, length, crc, clientID, err := DecodePlainHeader(hdr)
	if err != nil {
		return nil, protoerr.NewCodecError("packet.read.decode_header", err)
	}
	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			if isTimeout(err) {
				return nil, protoerr.NewTimeoutError("packet.read.payload", RecvTimeout, err)
			}
			return nil, protoerr.NewCodecError("packet.read.payload", err)
		}
	}
	if !VerifyCRC(clientID, payload, crc) {
		return nil, protoerr.NewCodecError("packet.read.crc", errCrcMismatch)
	}
	return &Packet{Type: typ, ClientID: clientID, Payload: payload}, nil
}

// WritePlain writes p to w as a plaintext-framed packet, enforcing
// SendTimeout via dl.
func WritePlain(w io.Writer, dl deadliner, p *Packet) error {
	buf, err := EncodePlain(p)
	if err != nil {
		return protoerr.NewCodecError("packet.write.encode", err)
	}
	if dl != nil {
		if err := dl.SetWriteDeadline(time.Now().Add(SendTimeout)); err != nil {
			return protoerr.NewCodecError("packet.write.set_deadline", err)
		}
	}
	if err := writeFull(w, buf); err != nil {
		if isTimeout(err) {
			return protoerr.NewTimeoutError("packet.write", SendTimeout, err)
		}
		return protoerr.NewCodecError("packet.write", err)
	}
	return nil
}

// deadliner is satisfied by net.Conn; kept as a narrow interface so callers
// can pass nil (or a fake) in tests without dragging in net.Conn.
type deadliner interface {
	SetReadDeadline(time.Time) error
	SetWriteDeadline(time.Time) error
}

var _ deadliner = (net.Conn)(nil)

func writeFull(w io.Writer, b []byte) error {
	off := 0
	for off < len(b) {
		n, err := w.Write(b[off:])
		if err != nil {
			return err
		}
		off += n
	}
	return nil
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	type to interface{ Timeout() bool }
	if ne, ok := err.(to); ok && ne.Timeout() {
		return true
	}
	return false
}

type crcMismatchErr struct{}

func (crcMismatchErr) Error() string { return "crc32 mismatch" }

var errCrcMismatch = crcMismatchErr{}

package packet

import (
	"encoding/binary"
	"io"
	"time"

	protoerr "github.com/asciichat/asciichat/internal/errors"
)

// sealedHeaderSize is the on-wire size of a sealed packet's own length
// prefix: magic(4) + sealed_length(4). The sealed bytes that follow are
// nonce(8, unencrypted) | ciphertext of type | length | client_id | payload,
// plus the AEAD tag, opaque to this layer.
const sealedHeaderSize = 4 + 4

// ReadSealed reads one post-handshake encrypted packet from r and opens it
// via sealer. Only the magic and a length prefix are read in the clear;
// everything else is interpreted by the AEAD layer.
func ReadSealed(r io.Reader, dl deadliner, sealer AEADSealer) (*Packet, error) {
	if dl != nil {
		if err := dl.SetReadDeadline(time.Now().Add(RecvTimeout)); err != nil {
			return nil, protoerr.NewCodecError("packet.read_sealed.set_deadline", err)
		}
	}
	hdr := make([]byte, sealedHeaderSize)
	if _, err := io.ReadFull(r, hdr); err != nil {
		if isTimeout(err) {
			return nil, protoerr.NewTimeoutError("packet.read_sealed.header", RecvTimeout, err)
		}
		return nil, protoerr.NewCodecError("packet.read_sealed.header", err)
	}
	magic := binary.LittleEndian.Uint32(hdr[0:4])
	if magic != Magic {
		return nil, protoerr.NewCodecError("packet.read_sealed.magic", errBadMagic(magic))
	}
	sealedLen := binary.LittleEndian.Uint32(hdr[4:8])
	if sealedLen > MaxPayload {
		return nil, protoerr.NewCodecError("packet.read_sealed.length", errTooLarge(sealedLen))
	}
	sealed := make([]byte, sealedLen)
	if _, err := io.ReadFull(r, sealed); err != nil {
		if isTimeout(err) {
			return nil, protoerr.NewTimeoutError("packet.read_sealed.body", RecvTimeout, err)
		}
		return nil, protoerr.NewCodecError("packet.read_sealed.body", err)
	}
	typ, clientID, payload, err := sealer.Open(sealed)
	if err != nil {
		return nil, protoerr.NewCryptoError("packet.read_sealed.open", err)
	}
	return &Packet{Type: typ, ClientID: clientID, Payload: payload}, nil
}

// WriteSealed seals p via sealer and writes it to w with the sealed framing.
func WriteSealed(w io.Writer, dl deadliner, sealer AEADSealer, p *Packet) error {
	sealed, err := sealer.Seal(p.Type, p.ClientID, p.Payload)
	if err != nil {
		return protoerr.NewCryptoError("packet.write_sealed.seal", err)
	}
	buf := make([]byte, sealedHeaderSize+len(sealed))
	binary.LittleEndian.PutUint32(buf[0:4], Magic)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(sealed)))
	copy(buf[8:], sealed)
	if dl != nil {
		if err := dl.SetWriteDeadline(time.Now().Add(SendTimeout)); err != nil {
			return protoerr.NewCodecError("packet.write_sealed.set_deadline", err)
		}
	}
	if err := writeFull(w, buf); err != nil {
		if isTimeout(err) {
			return protoerr.NewTimeoutError("packet.write_sealed", SendTimeout, err)
		}
		return protoerr.NewCodecError("packet.write_sealed", err)
	}
	return nil
}

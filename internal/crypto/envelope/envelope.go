package envelope

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"golang.org/x/crypto/chacha20poly1305"

	protoerr "github.com/asciichat/asciichat/internal/errors"
	"github.com/asciichat/asciichat/internal/protocol/packet"
)

// Envelope holds the per-connection, per-direction AEAD keys and nonce
// counters negotiated by the handshake. It implements packet.AEADSealer.
// sendKey/recvKey are wiped on Close.
type Envelope struct {
	sendKey [32]byte
	recvKey [32]byte

	sendCounter uint64 // atomic
	recvHighest uint64 // atomic; last accepted nonce on the receive direction

	sendAEAD cipherAEAD
	recvAEAD cipherAEAD
}

// cipherAEAD is the narrow slice of cipher.AEAD this package needs,
// satisfied by chacha20poly1305's returned type.
type cipherAEAD interface {
	Seal(dst, nonce, plaintext, additionalData []byte) []byte
	Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
	NonceSize() int
	Overhead() int
}

func newEnvelope(sendKey, recvKey [32]byte) (*Envelope, error) {
	sendAEAD, err := chacha20poly1305.New(sendKey[:])
	if err != nil {
		return nil, fmt.Errorf("envelope: new send aead: %w", err)
	}
	recvAEAD, err := chacha20poly1305.New(recvKey[:])
	if err != nil {
		return nil, fmt.Errorf("envelope: new recv aead: %w", err)
	}
	return &Envelope{sendKey: sendKey, recvKey: recvKey, sendAEAD: sendAEAD, recvAEAD: recvAEAD}, nil
}

// nonceBytes expands a 64-bit counter into chacha20poly1305's 12-byte nonce:
// 4 zero bytes followed by the big-endian counter. Each direction has its
// own key, so a shared counter scheme across directions is safe.
func nonceBytes(counter uint64) []byte {
	n := make([]byte, chacha20poly1305.NonceSize)
	binary.BigEndian.PutUint64(n[4:], counter)
	return n
}

// Seal implements packet.AEADSealer. It advances the send nonce counter,
// authenticates (type, client_id, payload) and returns
// nonce(8B) || ciphertext; the nonce itself is not encrypted.
func (e *Envelope) Seal(typ packet.Type, clientID uint32, payload []byte) ([]byte, error) {
	counter := atomic.AddUint64(&e.sendCounter, 1)
	plain := make([]byte, 2+4+4+len(payload))
	binary.LittleEndian.PutUint16(plain[0:2], uint16(typ))
	binary.LittleEndian.PutUint32(plain[2:6], uint32(len(payload)))
	binary.LittleEndian.PutUint32(plain[6:10], clientID)
	copy(plain[10:], payload)

	sealed := e.sendAEAD.Seal(nil, nonceBytes(counter), plain, nil)
	out := make([]byte, 8+len(sealed))
	binary.LittleEndian.PutUint64(out[0:8], counter)
	copy(out[8:], sealed)
	return out, nil
}

// Open implements packet.AEADSealer. It rejects any nonce that is not
// strictly greater than the highest nonce accepted so far on this
// direction (replay protection), then authenticates and decrypts.
func (e *Envelope) Open(sealed []byte) (packet.Type, uint32, []byte, error) {
	if len(sealed) < 8 {
		return 0, 0, nil, protoerr.NewCodecError("envelope.open", fmt.Errorf("sealed frame too short"))
	}
	counter := binary.LittleEndian.Uint64(sealed[0:8])
	if !e.acceptNonce(counter) {
		return 0, 0, nil, protoerr.NewCryptoError("envelope.open.replay", fmt.Errorf("nonce %d already seen or out of order", counter))
	}
	plain, err := e.recvAEAD.Open(nil, nonceBytes(counter), sealed[8:], nil)
	if err != nil {
		return 0, 0, nil, protoerr.NewCryptoError("envelope.open.decrypt", err)
	}
	if len(plain) < 10 {
		return 0, 0, nil, protoerr.NewCodecError("envelope.open.short_plaintext", fmt.Errorf("decrypted frame too short"))
	}
	typ := packet.Type(binary.LittleEndian.Uint16(plain[0:2]))
	length := binary.LittleEndian.Uint32(plain[2:6])
	clientID := binary.LittleEndian.Uint32(plain[6:10])
	if int(length) != len(plain)-10 {
		return 0, 0, nil, protoerr.NewCodecError("envelope.open.length", fmt.Errorf("length field %d does not match payload %d", length, len(plain)-10))
	}
	payload := plain[10:]
	return typ, clientID, payload, nil
}

// acceptNonce implements the monotonic, strictly-increasing replay check
// with a lock-free compare-and-swap loop.
func (e *Envelope) acceptNonce(counter uint64) bool {
	for {
		cur := atomic.LoadUint64(&e.recvHighest)
		if counter <= cur {
			return false
		}
		if atomic.CompareAndSwapUint64(&e.recvHighest, cur, counter) {
			return true
		}
	}
}

// Close wipes the key material. Safe to call multiple times.
func (e *Envelope) Close() {
	for i := range e.sendKey {
		e.sendKey[i] = 0
	}
	for i := range e.recvKey {
		e.recvKey[i] = 0
	}
}

var _ packet.AEADSealer = (*Envelope)(nil)

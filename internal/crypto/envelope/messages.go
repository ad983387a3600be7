package envelope

import (
	"crypto/ed25519"
	"encoding/binary"
	"fmt"
)

// keyExchangeMsg is the payload shape shared by KEY_EXCHANGE_INIT (server→
// client) and KEY_EXCHANGE_RESPONSE (client→server): an ephemeral X25519
// public key plus an optional long-term Ed25519 identity key and a
// signature of the ephemeral key under that identity.
type keyExchangeMsg struct {
	Ephemeral    [32]byte
	HasIdentity  bool
	IdentityPub  [32]byte // ed25519.PublicKey is 32 bytes
	HasSignature bool
	Signature    [64]byte // ed25519.Sign output is 64 bytes
}

func (m *keyExchangeMsg) encode() []byte {
	buf := make([]byte, 0, 32+1+32+1+64)
	buf = append(buf, m.Ephemeral[:]...)
	buf = append(buf, boolByte(m.HasIdentity))
	if m.HasIdentity {
		buf = append(buf, m.IdentityPub[:]...)
	}
	buf = append(buf, boolByte(m.HasSignature))
	if m.HasSignature {
		buf = append(buf, m.Signature[:]...)
	}
	return buf
}

func decodeKeyExchangeMsg(b []byte) (*keyExchangeMsg, error) {
	m := &keyExchangeMsg{}
	if len(b) < 33 {
		return nil, fmt.Errorf("envelope: key exchange message too short")
	}
	copy(m.Ephemeral[:], b[0:32])
	off := 32
	m.HasIdentity = b[off] != 0
	off++
	if m.HasIdentity {
		if len(b) < off+32 {
			return nil, fmt.Errorf("envelope: key exchange message truncated (identity)")
		}
		copy(m.IdentityPub[:], b[off:off+32])
		off += 32
	}
	if len(b) < off+1 {
		return nil, fmt.Errorf("envelope: key exchange message truncated (sig flag)")
	}
	m.HasSignature = b[off] != 0
	off++
	if m.HasSignature {
		if len(b) < off+64 {
			return nil, fmt.Errorf("envelope: key exchange message truncated (signature)")
		}
		copy(m.Signature[:], b[off:off+64])
	}
	return m, nil
}

// verify checks the identity signature over the ephemeral key, if present.
func (m *keyExchangeMsg) verify() bool {
	if !m.HasIdentity || !m.HasSignature {
		return true // identity is optional; nothing to check
	}
	return ed25519.Verify(ed25519.PublicKey(m.IdentityPub[:]), m.Ephemeral[:], m.Signature[:])
}

type authChallengeMsg struct {
	Nonce            [32]byte
	PasswordRequired bool
}

func (m *authChallengeMsg) encode() []byte {
	buf := make([]byte, 33)
	copy(buf[0:32], m.Nonce[:])
	buf[32] = boolByte(m.PasswordRequired)
	return buf
}

func decodeAuthChallengeMsg(b []byte) (*authChallengeMsg, error) {
	if len(b) != 33 {
		return nil, fmt.Errorf("envelope: auth challenge must be 33 bytes, got %d", len(b))
	}
	m := &authChallengeMsg{PasswordRequired: b[32] != 0}
	copy(m.Nonce[:], b[0:32])
	return m, nil
}

type authResponseMsg struct {
	ClientNonce [32]byte
	HMAC        [32]byte
}

func (m *authResponseMsg) encode() []byte {
	buf := make([]byte, 64)
	copy(buf[0:32], m.ClientNonce[:])
	copy(buf[32:64], m.HMAC[:])
	return buf
}

func decodeAuthResponseMsg(b []byte) (*authResponseMsg, error) {
	if len(b) != 64 {
		return nil, fmt.Errorf("envelope: auth response must be 64 bytes, got %d", len(b))
	}
	m := &authResponseMsg{}
	copy(m.ClientNonce[:], b[0:32])
	copy(m.HMAC[:], b[32:64])
	return m, nil
}

type serverAuthResponseMsg struct {
	HMAC [32]byte
}

func (m *serverAuthResponseMsg) encode() []byte { return append([]byte(nil), m.HMAC[:]...) }

func decodeServerAuthResponseMsg(b []byte) (*serverAuthResponseMsg, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("envelope: server auth response must be 32 bytes, got %d", len(b))
	}
	m := &serverAuthResponseMsg{}
	copy(m.HMAC[:], b)
	return m, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// little-endian helper kept for symmetry with the rest of the wire format;
// nothing in the package calls it.
func putUint32(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }

package envelope

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// ephemeralKeyPair generates a fresh X25519 key pair for one handshake.
func ephemeralKeyPair() (priv, pub [32]byte, err error) {
	if _, err = io.ReadFull(rand.Reader, priv[:]); err != nil {
		return priv, pub, fmt.Errorf("envelope: generate ephemeral key: %w", err)
	}
	p, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return priv, pub, fmt.Errorf("envelope: derive ephemeral public key: %w", err)
	}
	copy(pub[:], p)
	return priv, pub, nil
}

// sharedSecret computes the X25519 Diffie-Hellman shared secret given our
// ephemeral private key and the peer's ephemeral public key.
func sharedSecret(priv, peerPub [32]byte) ([32]byte, error) {
	var out [32]byte
	s, err := curve25519.X25519(priv[:], peerPub[:])
	if err != nil {
		return out, fmt.Errorf("envelope: compute shared secret: %w", err)
	}
	copy(out[:], s)
	return out, nil
}

// deriveDirectionalKeys expands the raw shared secret into two independent
// 32-byte AEAD keys, one per direction, via HKDF-SHA256.
func deriveDirectionalKeys(secret [32]byte) (c2s, s2c [32]byte, err error) {
	if err = hkdfExpand(secret[:], "asciichat c2s", c2s[:]); err != nil {
		return c2s, s2c, err
	}
	if err = hkdfExpand(secret[:], "asciichat s2c", s2c[:]); err != nil {
		return c2s, s2c, err
	}
	return c2s, s2c, nil
}

// deriveAuthKey derives the key used to HMAC the mutual-auth challenge
// responses. When password is non-empty it is folded in as HKDF salt so
// the resulting key requires knowledge of both the DH secret and the
// password; otherwise the shared secret alone is expanded.
func deriveAuthKey(secret [32]byte, password string) ([32]byte, error) {
	var key [32]byte
	if password == "" {
		if err := hkdfExpand(secret[:], "asciichat auth", key[:]); err != nil {
			return key, err
		}
		return key, nil
	}
	h := hkdf.New(sha256.New, secret[:], []byte(password), []byte("asciichat auth password"))
	if _, err := io.ReadFull(h, key[:]); err != nil {
		return key, fmt.Errorf("envelope: derive password-bound auth key: %w", err)
	}
	return key, nil
}

func hkdfExpand(secret []byte, info string, out []byte) error {
	h := hkdf.New(sha256.New, secret, nil, []byte(info))
	_, err := io.ReadFull(h, out)
	if err != nil {
		return fmt.Errorf("envelope: hkdf expand %q: %w", info, err)
	}
	return nil
}

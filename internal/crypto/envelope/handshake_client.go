package envelope

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/rand"
	"fmt"
	"io"
	"net"
	"time"

	protoerr "github.com/asciichat/asciichat/internal/errors"
	"github.com/asciichat/asciichat/internal/logger"
	"github.com/asciichat/asciichat/internal/protocol/packet"
)

// IdentityVerifier is consulted with the server's presented identity key
// (if any) so the caller can apply a fingerprint pin or a trust-on-first-use
// known-hosts lookup. Returning an error aborts the handshake; the error is
// surfaced to the user per §7's "identity mismatch prints a loud warning".
type IdentityVerifier func(serverIdentity ed25519.PublicKey, present bool) error

// ClientConfig configures the client side of the handshake.
type ClientConfig struct {
	// IdentityKey is the client's optional long-term identity key.
	IdentityKey ed25519.PrivateKey
	// Password, if non-empty, must match the server's configured password.
	Password string
	// VerifyServerIdentity implements pinning/TOFU; may be nil to accept
	// any server identity (not recommended outside tests).
	VerifyServerIdentity IdentityVerifier
}

// ClientHandshake drives the client side of the six-packet handshake.
func ClientHandshake(conn net.Conn, cfg ClientConfig) (*Envelope, error) {
	log := logger.Logger().With("phase", "handshake", "side", "client")
	f := newFSM()
	deadline := time.Now().Add(HandshakeTimeout)
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, protoerr.NewCryptoError("envelope.client.set_deadline", err)
	}
	defer conn.SetDeadline(time.Time{})

	initPkt, err := packet.ReadPlain(conn, conn)
	if err != nil {
		return nil, f.fail("envelope.client.read_kex_init", err)
	}
	if initPkt.Type != packet.TypeKeyExchangeInit {
		return nil, f.fail("envelope.client.read_kex_init", fmt.Errorf("unexpected type %v", initPkt.Type))
	}
	init, err := decodeKeyExchangeMsg(initPkt.Payload)
	if err != nil {
		return nil, f.fail("envelope.client.decode_kex_init", err)
	}
	if !init.verify() {
		return nil, f.fail("envelope.client.verify_server_identity", fmt.Errorf("server identity signature invalid"))
	}
	if cfg.VerifyServerIdentity != nil {
		if err := cfg.VerifyServerIdentity(ed25519.PublicKey(init.IdentityPub[:]), init.HasIdentity); err != nil {
			return nil, f.fail("envelope.client.verify_server_identity", err)
		}
	}
	if err := f.transition(StateInit, StateKexSent, "envelope.client.kex_received"); err != nil {
		return nil, err
	}

	ephPriv, ephPub, err := ephemeralKeyPair()
	if err != nil {
		return nil, f.fail("envelope.client.ephemeral", err)
	}
	resp := &keyExchangeMsg{Ephemeral: ephPub}
	if cfg.IdentityKey != nil {
		copy(resp.IdentityPub[:], cfg.IdentityKey.Public().(ed25519.PublicKey))
		resp.HasIdentity = true
		sig := ed25519.Sign(cfg.IdentityKey, ephPub[:])
		copy(resp.Signature[:], sig)
		resp.HasSignature = true
	}
	if err := packet.WritePlain(conn, conn, &packet.Packet{Type: packet.TypeKeyExchangeResponse, Payload: resp.encode()}); err != nil {
		return nil, f.fail("envelope.client.send_kex_response", err)
	}

	secret, err := sharedSecret(ephPriv, init.Ephemeral)
	if err != nil {
		return nil, f.fail("envelope.client.shared_secret", err)
	}
	c2sKey, s2cKey, err := deriveDirectionalKeys(secret)
	if err != nil {
		return nil, f.fail("envelope.client.derive_keys", err)
	}
	if err := f.transition(StateKexSent, StateKexCompleted, "envelope.client.kex_completed"); err != nil {
		return nil, err
	}

	challengePkt, err := packet.ReadPlain(conn, conn)
	if err != nil {
		return nil, f.fail("envelope.client.read_challenge", err)
	}
	if challengePkt.Type == packet.TypeAuthFailed {
		return nil, f.fail("envelope.client.read_challenge", fmt.Errorf("server rejected connection: %s", string(challengePkt.Payload)))
	}
	if challengePkt.Type != packet.TypeAuthChallenge {
		return nil, f.fail("envelope.client.read_challenge", fmt.Errorf("unexpected type %v", challengePkt.Type))
	}
	challenge, err := decodeAuthChallengeMsg(challengePkt.Payload)
	if err != nil {
		return nil, f.fail("envelope.client.decode_challenge", err)
	}
	if err := f.transition(StateKexCompleted, StateChallengeSent, "envelope.client.challenge_received"); err != nil {
		return nil, err
	}

	password := ""
	if challenge.PasswordRequired {
		password = cfg.Password
	}
	authKey, err := deriveAuthKey(secret, password)
	if err != nil {
		return nil, f.fail("envelope.client.derive_auth_key", err)
	}

	var clientNonce [32]byte
	if _, err := io.ReadFull(rand.Reader, clientNonce[:]); err != nil {
		return nil, f.fail("envelope.client.rand_nonce", err)
	}
	clientHMAC := computeHMAC(authKey, challenge.Nonce[:], secret[:])
	authResp := &authResponseMsg{ClientNonce: clientNonce}
	copy(authResp.HMAC[:], clientHMAC)
	if err := packet.WritePlain(conn, conn, &packet.Packet{Type: packet.TypeAuthResponse, Payload: authResp.encode()}); err != nil {
		return nil, f.fail("envelope.client.send_auth_response", err)
	}

	saPkt, err := packet.ReadPlain(conn, conn)
	if err != nil {
		return nil, f.fail("envelope.client.read_server_auth", err)
	}
	if saPkt.Type == packet.TypeAuthFailed {
		return nil, f.fail("envelope.client.read_server_auth", fmt.Errorf("server rejected auth: %s", string(saPkt.Payload)))
	}
	if saPkt.Type != packet.TypeServerAuthResponse {
		return nil, f.fail("envelope.client.read_server_auth", fmt.Errorf("unexpected type %v", saPkt.Type))
	}
	saResp, err := decodeServerAuthResponseMsg(saPkt.Payload)
	if err != nil {
		return nil, f.fail("envelope.client.decode_server_auth", err)
	}
	expected := computeHMAC(authKey, clientNonce[:], secret[:])
	if !hmac.Equal(expected, saResp.HMAC[:]) {
		return nil, f.fail("envelope.client.verify_server_auth", fmt.Errorf("server auth hmac mismatch (possible MITM)"))
	}
	if err := f.transition(StateChallengeSent, StateAuthenticated, "envelope.client.authenticated"); err != nil {
		return nil, err
	}

	completePkt, err := packet.ReadPlain(conn, conn)
	if err != nil {
		return nil, f.fail("envelope.client.read_complete", err)
	}
	if completePkt.Type != packet.TypeHandshakeComplete {
		return nil, f.fail("envelope.client.read_complete", fmt.Errorf("unexpected type %v", completePkt.Type))
	}
	if err := f.transition(StateAuthenticated, StateReady, "envelope.client.ready"); err != nil {
		return nil, err
	}

	env, err := newEnvelope(c2sKey, s2cKey)
	if err != nil {
		return nil, f.fail("envelope.client.new_envelope", err)
	}
	log.Info("handshake completed", "side", "client")
	return env, nil
}

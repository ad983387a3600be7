package envelope

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"net"
	"time"

	protoerr "github.com/asciichat/asciichat/internal/errors"
	"github.com/asciichat/asciichat/internal/logger"
	"github.com/asciichat/asciichat/internal/protocol/packet"
)

// HandshakeTimeout bounds the full six-packet exchange, per §5.
const HandshakeTimeout = 10 * time.Second

// ServerConfig configures the server side of the handshake.
type ServerConfig struct {
	// IdentityKey is the server's long-term Ed25519 signing key. Nil means
	// the server presents no identity (clients cannot pin it).
	IdentityKey ed25519.PrivateKey
	// Password, if non-empty, is mixed into the mutual-auth key.
	Password string
	// AuthorizeClient is consulted when the client presents a long-term
	// identity key; nil means any (or no) client identity is accepted.
	AuthorizeClient func(pub ed25519.PublicKey) bool
}

// ServerHandshake drives the server side of the six-packet handshake over
// conn, which must already be past TCP accept. On success it returns a
// ready-to-use Envelope positioned at StateReady.
func ServerHandshake(conn net.Conn, cfg ServerConfig) (*Envelope, error) {
	log := logger.Logger().With("phase", "handshake", "side", "server")
	f := newFSM()
	deadline := time.Now().Add(HandshakeTimeout)
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, protoerr.NewCryptoError("envelope.server.set_deadline", err)
	}
	defer conn.SetDeadline(time.Time{})

	ephPriv, ephPub, err := ephemeralKeyPair()
	if err != nil {
		return nil, f.fail("envelope.server.ephemeral", err)
	}

	init := &keyExchangeMsg{Ephemeral: ephPub}
	if cfg.IdentityKey != nil {
		copy(init.IdentityPub[:], cfg.IdentityKey.Public().(ed25519.PublicKey))
		init.HasIdentity = true
		sig := ed25519.Sign(cfg.IdentityKey, ephPub[:])
		copy(init.Signature[:], sig)
		init.HasSignature = true
	}
	if err := packet.WritePlain(conn, conn, &packet.Packet{Type: packet.TypeKeyExchangeInit, Payload: init.encode()}); err != nil {
		return nil, f.fail("envelope.server.send_kex_init", err)
	}
	if err := f.transition(StateInit, StateKexSent, "envelope.server.kex_sent"); err != nil {
		return nil, err
	}

	respPkt, err := packet.ReadPlain(conn, conn)
	if err != nil {
		return nil, f.fail("envelope.server.read_kex_response", err)
	}
	if respPkt.Type != packet.TypeKeyExchangeResponse {
		return nil, f.fail("envelope.server.read_kex_response", fmt.Errorf("unexpected type %v", respPkt.Type))
	}
	resp, err := decodeKeyExchangeMsg(respPkt.Payload)
	if err != nil {
		return nil, f.fail("envelope.server.decode_kex_response", err)
	}
	if !resp.verify() {
		return nil, f.fail("envelope.server.verify_client_identity", fmt.Errorf("client identity signature invalid"))
	}
	if resp.HasIdentity && cfg.AuthorizeClient != nil {
		if !cfg.AuthorizeClient(ed25519.PublicKey(resp.IdentityPub[:])) {
			_ = sendAuthFailed(conn, "client identity not authorized")
			return nil, f.fail("envelope.server.authorize_client", fmt.Errorf("client identity rejected"))
		}
	}

	secret, err := sharedSecret(ephPriv, resp.Ephemeral)
	if err != nil {
		return nil, f.fail("envelope.server.shared_secret", err)
	}
	c2sKey, s2cKey, err := deriveDirectionalKeys(secret)
	if err != nil {
		return nil, f.fail("envelope.server.derive_keys", err)
	}
	if err := f.transition(StateKexSent, StateKexCompleted, "envelope.server.kex_completed"); err != nil {
		return nil, err
	}

	var serverNonce [32]byte
	if _, err := io.ReadFull(rand.Reader, serverNonce[:]); err != nil {
		return nil, f.fail("envelope.server.rand_nonce", err)
	}
	challenge := &authChallengeMsg{Nonce: serverNonce, PasswordRequired: cfg.Password != ""}
	if err := packet.WritePlain(conn, conn, &packet.Packet{Type: packet.TypeAuthChallenge, Payload: challenge.encode()}); err != nil {
		return nil, f.fail("envelope.server.send_challenge", err)
	}
	if err := f.transition(StateKexCompleted, StateChallengeSent, "envelope.server.challenge_sent"); err != nil {
		return nil, err
	}

	authKey, err := deriveAuthKey(secret, cfg.Password)
	if err != nil {
		return nil, f.fail("envelope.server.derive_auth_key", err)
	}

	authPkt, err := packet.ReadPlain(conn, conn)
	if err != nil {
		return nil, f.fail("envelope.server.read_auth_response", err)
	}
	if authPkt.Type != packet.TypeAuthResponse {
		return nil, f.fail("envelope.server.read_auth_response", fmt.Errorf("unexpected type %v", authPkt.Type))
	}
	authResp, err := decodeAuthResponseMsg(authPkt.Payload)
	if err != nil {
		return nil, f.fail("envelope.server.decode_auth_response", err)
	}
	expected := computeHMAC(authKey, serverNonce[:], secret[:])
	if !hmac.Equal(expected, authResp.HMAC[:]) {
		_ = sendAuthFailed(conn, "password mismatch")
		return nil, f.fail("envelope.server.verify_auth", fmt.Errorf("client auth hmac mismatch"))
	}
	if err := f.transition(StateChallengeSent, StateAuthenticated, "envelope.server.authenticated"); err != nil {
		return nil, err
	}

	serverHMAC := computeHMAC(authKey, authResp.ClientNonce[:], secret[:])
	saResp := &serverAuthResponseMsg{}
	copy(saResp.HMAC[:], serverHMAC)
	if err := packet.WritePlain(conn, conn, &packet.Packet{Type: packet.TypeServerAuthResponse, Payload: saResp.encode()}); err != nil {
		return nil, f.fail("envelope.server.send_server_auth", err)
	}
	if err := packet.WritePlain(conn, conn, &packet.Packet{Type: packet.TypeHandshakeComplete}); err != nil {
		return nil, f.fail("envelope.server.send_complete", err)
	}
	if err := f.transition(StateAuthenticated, StateReady, "envelope.server.ready"); err != nil {
		return nil, err
	}

	env, err := newEnvelope(s2cKey, c2sKey)
	if err != nil {
		return nil, f.fail("envelope.server.new_envelope", err)
	}
	log.Info("handshake completed", "side", "server")
	return env, nil
}

func sendAuthFailed(conn net.Conn, reason string) error {
	return packet.WritePlain(conn, conn, &packet.Packet{Type: packet.TypeAuthFailed, Payload: []byte(reason)})
}

func computeHMAC(key []byte, parts ...[]byte) []byte {
	mac := hmac.New(sha256.New, key)
	for _, p := range parts {
		mac.Write(p)
	}
	return mac.Sum(nil)
}

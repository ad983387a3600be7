package envelope

import (
	"crypto/ed25519"
	"net"
	"testing"
	"time"

	"github.com/asciichat/asciichat/internal/protocol/packet"
)

func runHandshakePair(t *testing.T, serverCfg ServerConfig, clientCfg ClientConfig) (*Envelope, *Envelope, error, error) {
	t.Helper()
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	type result struct {
		env *Envelope
		err error
	}
	serverCh := make(chan result, 1)
	clientCh := make(chan result, 1)

	go func() {
		env, err := ServerHandshake(serverConn, serverCfg)
		serverCh <- result{env, err}
	}()
	go func() {
		env, err := ClientHandshake(clientConn, clientCfg)
		clientCh <- result{env, err}
	}()

	var sr, cr result
	timeout := time.After(2 * time.Second)
	select {
	case sr = <-serverCh:
	case <-timeout:
		t.Fatalf("server handshake timed out")
	}
	select {
	case cr = <-clientCh:
	case <-timeout:
		t.Fatalf("client handshake timed out")
	}
	return sr.env, cr.env, sr.err, cr.err
}

func TestHandshakeNoPasswordNoIdentity(t *testing.T) {
	serverEnv, clientEnv, serverErr, clientErr := runHandshakePair(t, ServerConfig{}, ClientConfig{})
	if serverErr != nil {
		t.Fatalf("server handshake: %v", serverErr)
	}
	if clientErr != nil {
		t.Fatalf("client handshake: %v", clientErr)
	}
	if serverEnv == nil || clientEnv == nil {
		t.Fatalf("expected non-nil envelopes")
	}

	sealed, err := clientEnv.Seal(packet.TypeImageFrame, 7, []byte("frame payload"))
	if err != nil {
		t.Fatalf("client seal: %v", err)
	}
	typ, clientID, payload, err := serverEnv.Open(sealed)
	if err != nil {
		t.Fatalf("server open: %v", err)
	}
	if typ != packet.TypeImageFrame || clientID != 7 || string(payload) != "frame payload" {
		t.Fatalf("round trip mismatch: %v %d %q", typ, clientID, payload)
	}
}

func TestHandshakeWithPassword(t *testing.T) {
	serverEnv, clientEnv, serverErr, clientErr := runHandshakePair(t,
		ServerConfig{Password: "correct horse"},
		ClientConfig{Password: "correct horse"})
	if serverErr != nil || clientErr != nil {
		t.Fatalf("handshake failed: server=%v client=%v", serverErr, clientErr)
	}
	if serverEnv == nil || clientEnv == nil {
		t.Fatalf("expected envelopes")
	}
}

func TestHandshakeWrongPasswordFails(t *testing.T) {
	_, _, serverErr, clientErr := runHandshakePair(t,
		ServerConfig{Password: "correct horse"},
		ClientConfig{Password: "wrong password"})
	if serverErr == nil {
		t.Fatalf("expected server to reject mismatched password")
	}
	if clientErr == nil {
		t.Fatalf("expected client to see auth failure")
	}
}

func TestReplayRejected(t *testing.T) {
	serverEnv, clientEnv, serverErr, clientErr := runHandshakePair(t, ServerConfig{}, ClientConfig{})
	if serverErr != nil || clientErr != nil {
		t.Fatalf("handshake failed: server=%v client=%v", serverErr, clientErr)
	}
	sealed, err := clientEnv.Seal(packet.TypePing, 1, []byte("a"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if _, _, _, err := serverEnv.Open(sealed); err != nil {
		t.Fatalf("first open should succeed: %v", err)
	}
	if _, _, _, err := serverEnv.Open(sealed); err == nil {
		t.Fatalf("expected replay rejection on second open of same sealed frame")
	}
}

func TestServerIdentitySignedAndVerified(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	var sawIdentity ed25519.PublicKey
	verifier := func(serverIdentity ed25519.PublicKey, present bool) error {
		if present {
			sawIdentity = append(ed25519.PublicKey(nil), serverIdentity...)
		}
		return nil
	}
	_, _, serverErr, clientErr := runHandshakePair(t,
		ServerConfig{IdentityKey: priv},
		ClientConfig{VerifyServerIdentity: verifier})
	if serverErr != nil || clientErr != nil {
		t.Fatalf("handshake failed: server=%v client=%v", serverErr, clientErr)
	}
	if len(sawIdentity) != ed25519.PublicKeySize {
		t.Fatalf("expected verifier to observe server identity")
	}
	if string(sawIdentity) != string(pub) {
		t.Fatalf("identity mismatch")
	}
}

package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/asciichat/asciichat/internal/crypto/envelope"
	"github.com/asciichat/asciichat/internal/crypto/knownhosts"
)

// identityVerifierFor builds the client's server-identity check: an
// explicit --server-key pin if one was supplied, otherwise trust-on-first-use
// against the known-hosts file at knownHostsPath.
func identityVerifierFor(address, pinnedHex, knownHostsPath string) (envelope.IdentityVerifier, error) {
	if pinnedHex != "" {
		pinned, err := hex.DecodeString(pinnedHex)
		if err != nil || len(pinned) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("invalid --server-key %q: expected %d hex-encoded bytes", pinnedHex, ed25519.PublicKeySize)
		}
		return func(serverIdentity ed25519.PublicKey, present bool) error {
			if !present {
				return fmt.Errorf("server presented no identity key, but --server-key=%s was pinned", pinnedHex)
			}
			if !ed25519.PublicKey(pinned).Equal(serverIdentity) {
				return fmt.Errorf("server identity mismatch: expected %x, got %x (possible MITM)", pinned, serverIdentity)
			}
			return nil
		}, nil
	}

	path := knownHostsPath
	if path == "" {
		path = defaultKnownHostsPath()
	}
	store, err := knownhosts.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load known-hosts %s: %w", path, err)
	}
	return func(serverIdentity ed25519.PublicKey, present bool) error {
		if !present {
			return nil // server runs without an identity key; nothing to pin
		}
		if pinned, ok := store.Lookup(address); ok {
			if !pinned.Equal(serverIdentity) {
				return fmt.Errorf("known-hosts mismatch for %s: expected %x, got %x (possible MITM)", address, pinned, serverIdentity)
			}
			return nil
		}
		return store.Append(address, serverIdentity, "")
	}, nil
}

// loadIdentityKey reads a hex-encoded Ed25519 seed from path, the same
// format the server's --keyfile writes.
func loadIdentityKey(path string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("identity key %s: %w", path, err)
	}
	seed, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil || len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("identity key %s: expected a %d-byte hex seed", path, ed25519.SeedSize)
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

func defaultKnownHostsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ascii-chat-known-hosts"
	}
	return filepath.Join(home, ".ascii-chat-known-hosts")
}

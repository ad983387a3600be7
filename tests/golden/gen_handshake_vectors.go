//go:build ignore

// Generates deterministic golden vectors for the plaintext packet framing
// used during the handshake, before any AEAD envelope exists.
// Run: go run ./tests/golden/gen_handshake_vectors.go
//
// Files:
//   - packet_key_exchange_init.bin   KEY_EXCHANGE_INIT, client_id=0
//   - packet_terminal_size.bin       TERMINAL_SIZE(80,24), client_id=7
//   - packet_auth_failed.bin        AUTH_FAILED with a fixed reason string
//
// Header layout (§4.1, little-endian): magic(4)|type(2)|length(4)|crc32(4)|client_id(4).
package main

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/asciichat/asciichat/internal/protocol/packet"
)

func writeVector(dir, name string, p *packet.Packet) {
	data, err := packet.EncodePlain(p)
	if err != nil {
		fmt.Fprintln(os.Stderr, "encode error:", err)
		os.Exit(1)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fmt.Fprintln(os.Stderr, "write error:", err)
		os.Exit(1)
	}
	h := sha256.Sum256(data)
	fmt.Printf("Wrote %-32s size=%4d sha256=%s\n", name, len(data), hex.EncodeToString(h[:8]))
}

func main() {
	dir, _ := os.Getwd()
	fmt.Println("Generating packet framing golden vectors in", dir)

	writeVector(dir, "packet_key_exchange_init.bin", &packet.Packet{
		Type:     packet.TypeKeyExchangeInit,
		ClientID: 0,
		Payload:  make([]byte, 64), // placeholder-sized ephemeral+identity fields
	})

	termSize := []byte{80, 0, 24, 0} // width=80, height=24, little-endian uint16 pairs
	writeVector(dir, "packet_terminal_size.bin", &packet.Packet{
		Type:     packet.TypeTerminalSize,
		ClientID: 7,
		Payload:  termSize,
	})

	writeVector(dir, "packet_auth_failed.bin", &packet.Packet{
		Type:     packet.TypeAuthFailed,
		ClientID: 0,
		Payload:  []byte("password required"),
	})
}

package knownhosts

import (
	"crypto/ed25519"
	"os"
	"path/filepath"
	"testing"
)

func TestAppendThenLookup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "known_hosts")
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	pub, _, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	if err := s.Append("203.0.113.1:27224", pub, "first connection"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load reloaded: %v", err)
	}
	got, ok := reloaded.Lookup("203.0.113.1:27224")
	if !ok {
		t.Fatalf("expected entry to be found after reload")
	}
	if !got.Equal(pub) {
		t.Fatalf("key mismatch after reload")
	}
}

func TestAppendRejectsKeyChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "known_hosts")
	s, _ := Load(path)
	pub1, _, _ := ed25519.GenerateKey(nil)
	pub2, _, _ := ed25519.GenerateKey(nil)
	if err := s.Append("198.51.100.2:27224", pub1, ""); err != nil {
		t.Fatalf("first append: %v", err)
	}
	if err := s.Append("198.51.100.2:27224", pub2, ""); err == nil {
		t.Fatalf("expected append to reject a changed key for the same address")
	}
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "does_not_exist"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := s.Lookup("anything:1"); ok {
		t.Fatalf("expected empty store")
	}
}

func TestIPv6Bracketed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "known_hosts")
	s, _ := Load(path)
	pub, _, _ := ed25519.GenerateKey(nil)
	addr := "[::1]:27224"
	if err := s.Append(addr, pub, ""); err != nil {
		t.Fatalf("Append: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected non-empty known_hosts file")
	}
	if _, ok := s.Lookup(addr); !ok {
		t.Fatalf("expected lookup to find bracketed IPv6 address")
	}
}

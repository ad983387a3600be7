// Package knownhosts implements the client's trust-on-first-use store of
// server identity fingerprints, keyed by "ip:port". The on-disk line
// format is:
//
//	ip:port key-type base64(key) [comment]
//
// IPv6 addresses are bracketed ("[::1]:27224"). Lines beginning with '#'
// are comments and blank lines are ignored.
package knownhosts

import (
	"bufio"
	"crypto/ed25519"
	"fmt"
	"net"
	"os"
	"strings"

	"golang.org/x/crypto/ssh"

	protoerr "github.com/asciichat/asciichat/internal/errors"
)

// Entry is one parsed known-hosts line.
type Entry struct {
	Address string // "ip:port", IPv6 bracketed
	KeyType string
	Key     ed25519.PublicKey
	Comment string
}

// Store is an in-memory view of a known-hosts file, keyed by address.
type Store struct {
	path    string
	entries map[string]Entry
}

// Load parses the known-hosts file at path. A missing file is treated as an
// empty store (first connection to any server will TOFU-populate it).
func Load(path string) (*Store, error) {
	s := &Store{path: path, entries: make(map[string]Entry)}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, protoerr.NewResourceError("knownhosts.load", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		e, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("knownhosts: %s:%d: %w", path, lineNo, err)
		}
		s.entries[e.Address] = e
	}
	if err := scanner.Err(); err != nil {
		return nil, protoerr.NewResourceError("knownhosts.load.scan", err)
	}
	return s, nil
}

func parseLine(line string) (Entry, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return Entry{}, fmt.Errorf("expected at least 3 fields, got %d", len(fields))
	}
	address := fields[0]
	if _, _, err := net.SplitHostPort(address); err != nil {
		return Entry{}, fmt.Errorf("invalid address %q: %w", address, err)
	}
	authorizedKeyLine := fields[1] + " " + fields[2]
	pub, comment, _, _, err := ssh.ParseAuthorizedKey([]byte(authorizedKeyLine))
	if err != nil {
		return Entry{}, fmt.Errorf("invalid key: %w", err)
	}
	cpk, ok := pub.(ssh.CryptoPublicKey)
	if !ok {
		return Entry{}, fmt.Errorf("unsupported key type %s", pub.Type())
	}
	edPub, ok := cpk.CryptoPublicKey().(ed25519.PublicKey)
	if !ok {
		return Entry{}, fmt.Errorf("only ed25519 keys are supported, got %s", pub.Type())
	}
	if len(fields) > 3 {
		comment = strings.Join(fields[3:], " ")
	}
	return Entry{Address: address, KeyType: pub.Type(), Key: edPub, Comment: comment}, nil
}

// Lookup returns the pinned key for address, if any.
func (s *Store) Lookup(address string) (ed25519.PublicKey, bool) {
	e, ok := s.entries[address]
	if !ok {
		return nil, false
	}
	return e.Key, true
}

// Append adds a new entry for address and persists it to the store's file,
// implementing trust-on-first-use. It is a no-op if address is already
// present with the same key (idempotent reconnects).
func (s *Store) Append(address string, key ed25519.PublicKey, comment string) error {
	if existing, ok := s.entries[address]; ok {
		if existing.Key.Equal(key) {
			return nil
		}
		return fmt.Errorf("knownhosts: refusing to overwrite existing entry for %s (possible MITM)", address)
	}
	sshPub, err := ssh.NewPublicKey(key)
	if err != nil {
		return protoerr.NewCryptoError("knownhosts.append.marshal_key", err)
	}
	line := fmt.Sprintf("%s %s %s", address, sshPub.Type(), b64(sshPub))
	if comment != "" {
		line += " " + comment
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return protoerr.NewResourceError("knownhosts.append.open", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		return protoerr.NewResourceError("knownhosts.append.write", err)
	}
	s.entries[address] = Entry{Address: address, KeyType: sshPub.Type(), Key: key, Comment: comment}
	return nil
}

func b64(pub ssh.PublicKey) string {
	marshaled := ssh.MarshalAuthorizedKey(pub)
	// MarshalAuthorizedKey returns "type base64...\n"; we only want the base64 part.
	fields := strings.Fields(string(marshaled))
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}

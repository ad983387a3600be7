// Package authkeys loads the server's client allow-list: a file in the
// same syntax as OpenSSH's authorized_keys, Ed25519 lines only (others are
// ignored with a warning), and supports fetching a user's public keys from
// a forge's public HTTPS endpoint as a convenience for the client side.
package authkeys

import (
	"bufio"
	"context"
	"crypto/ed25519"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"golang.org/x/crypto/ssh"

	protoerr "github.com/asciichat/asciichat/internal/errors"
	"github.com/asciichat/asciichat/internal/logger"
)

// List is an allow-list of Ed25519 public keys, usually loaded once at
// server startup.
type List struct {
	keys []ed25519.PublicKey
}

// Load parses path in authorized_keys syntax. Non-Ed25519 lines are
// skipped with a warning log rather than rejected, matching the design's
// "Ed25519 lines only; others ignored with a warning" contract.
func Load(path string) (*List, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, protoerr.NewResourceError("authkeys.load", err)
	}
	defer f.Close()
	return parse(f)
}

// ParseLines parses authorized_keys syntax directly from a list of raw
// lines, used when keys are supplied on the CLI rather than from a file.
func ParseLines(lines []string) (*List, error) {
	return parse(strings.NewReader(strings.Join(lines, "\n")))
}

func parse(r io.Reader) (*List, error) {
	list := &List{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		pub, _, _, _, err := ssh.ParseAuthorizedKey([]byte(line))
		if err != nil {
			logger.Warn("authkeys: skipping unparsable line", "error", err)
			continue
		}
		if pub.Type() != ssh.KeyAlgoED25519 {
			logger.Warn("authkeys: skipping non-ed25519 key", "type", pub.Type())
			continue
		}
		cpk, ok := pub.(ssh.CryptoPublicKey)
		if !ok {
			continue
		}
		edPub, ok := cpk.CryptoPublicKey().(ed25519.PublicKey)
		if !ok {
			continue
		}
		list.keys = append(list.keys, edPub)
	}
	if err := scanner.Err(); err != nil {
		return nil, protoerr.NewResourceError("authkeys.parse", err)
	}
	return list, nil
}

// Authorize reports whether pub is present in the allow-list. An empty
// list authorizes everyone (no client allow-list configured).
func (l *List) Authorize(pub ed25519.PublicKey) bool {
	if l == nil || len(l.keys) == 0 {
		return true
	}
	for _, k := range l.keys {
		if k.Equal(pub) {
			return true
		}
	}
	return false
}

// fetchHTTPClient is a package-level retryable client reused across calls;
// retryablehttp's backoff/retry policy absorbs transient forge outages.
var fetchHTTPClient = func() *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = 3
	c.HTTPClient.Timeout = 10 * time.Second
	c.Logger = nil
	return c
}()

// FetchRemoteKey retrieves the first Ed25519 key from
// https://{github|gitlab}.com/{user}.keys, per §6's remote key fetch
// contract.
func FetchRemoteKey(ctx context.Context, forge, user string) (ed25519.PublicKey, error) {
	var host string
	switch strings.ToLower(forge) {
	case "github":
		host = "github.com"
	case "gitlab":
		host = "gitlab.com"
	default:
		return nil, fmt.Errorf("authkeys: unsupported forge %q", forge)
	}
	url := fmt.Sprintf("https://%s/%s.keys", host, user)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, protoerr.NewResourceError("authkeys.fetch_remote.new_request", err)
	}
	resp, err := fetchHTTPClient.Do(req)
	if err != nil {
		return nil, protoerr.NewResourceError("authkeys.fetch_remote.do", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("authkeys: fetching %s: unexpected status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return nil, protoerr.NewResourceError("authkeys.fetch_remote.read_body", err)
	}
	list, err := parse(strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	if len(list.keys) == 0 {
		return nil, fmt.Errorf("authkeys: no ed25519 keys found for %s/%s", forge, user)
	}
	return list.keys[0], nil
}

package server

// Global client registry: a fixed-size array of client records plus a
// secondary id->slot hash index, matching §3's "array of MAX_CLIENTS
// client records plus a secondary hash index". A bounded array instead of
// an open map since the domain has a hard capacity limit admission must
// enforce, with the id->slot index giving render workers O(1) lookup by
// participant id every frame.

import (
	"errors"
	"sync"

	"github.com/asciichat/asciichat/internal/crypto/envelope"
	"github.com/asciichat/asciichat/internal/layout"
	"github.com/asciichat/asciichat/internal/server/hooks"
)

// MaxClients bounds how many participants a single server instance may
// admit at once.
const MaxClients = 64

// ErrRegistryFull is returned by Admit when no slot is available.
var ErrRegistryFull = errors.New("registry: no free client slot")

// Registry holds all admitted clients. Lock ordering (per the concurrency
// notes): registry lock first, then a client's own mutex, then any more
// specialized mutex (frame-store swap, send-queue) — never the reverse,
// and never two client mutexes held at once.
type Registry struct {
	mu       sync.RWMutex
	slots    [MaxClients]*Client
	index    map[uint32]*Client
	nextID   uint32
	shutdown bool

	// HandshakeConfig is consulted by each client's receive worker to
	// drive the server side of the six-packet handshake.
	HandshakeConfig envelope.ServerConfig

	// MirrorSelfDefault seeds newly admitted clients' mirror-self
	// preference (see SPEC_FULL.md §C).
	MirrorSelfDefault bool

	// Hooks fires client lifecycle events (join/leave/handshake-failed/auth-failed).
	Hooks *hooks.HookManager

	// AudioEnabled gates whether audio render workers mix and send
	// AUDIO_BATCH traffic at all, per the server's --audio flag.
	AudioEnabled bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[uint32]*Client, MaxClients), MirrorSelfDefault: true, AudioEnabled: true}
}

// Admit finds an empty slot, allocates a monotonic id, and inserts conn's
// new client record. adminW/adminH gate admission against the
// terminal-capacity policy from §4.11: a new client is refused if seating
// it would push any cell of an adminW x adminH terminal below
// layout.MinCellWidth x layout.MinCellHeight (0,0 disables the check).
func (r *Registry) Admit(newClientFn func(id uint32) *Client, adminW, adminH int) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.shutdown {
		return nil, errors.New("registry: shutting down")
	}

	slot := -1
	for i, c := range r.slots {
		if c == nil {
			slot = i
			break
		}
	}
	if slot == -1 {
		return nil, ErrRegistryFull
	}

	if adminW > 0 && adminH > 0 {
		n := r.countActiveLocked() + 1
		capacity := (adminW / layout.MinCellWidth) * (adminH / layout.MinCellHeight)
		if capacity > 0 && n > capacity {
			return nil, errors.New("registry: admitting this client would violate minimum cell size")
		}
	}

	r.nextID++
	id := r.nextID
	c := newClientFn(id)
	c.MirrorSelf = r.MirrorSelfDefault
	r.slots[slot] = c
	r.index[id] = c
	return c, nil
}

func (r *Registry) countActiveLocked() int {
	n := 0
	for _, c := range r.slots {
		if c != nil {
			n++
		}
	}
	return n
}

// Remove clears id's slot and hash entry. Idempotent.
func (r *Registry) Remove(id uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.index[id]
	if !ok {
		return
	}
	delete(r.index, id)
	for i, s := range r.slots {
		if s == c {
			r.slots[i] = nil
			break
		}
	}
	r.fireClientLeave(c)
}

// Get returns the client for id, or nil if not admitted.
func (r *Registry) Get(id uint32) *Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index[id]
}

// Snapshot returns every currently admitted client. Callers must not hold
// the registry lock across any I/O performed using the returned clients;
// this is exactly the snapshot-then-release pattern render workers use to
// read peer frame stores without serializing on the registry lock.
func (r *Registry) Snapshot() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, MaxClients)
	for _, c := range r.slots {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

// Count returns the number of currently admitted clients.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.countActiveLocked()
}

// Shutdown marks the registry as shutting down (no further admissions) and
// tears down every currently admitted client.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	r.shutdown = true
	clients := make([]*Client, 0, MaxClients)
	for _, c := range r.slots {
		if c != nil {
			clients = append(clients, c)
		}
	}
	r.mu.Unlock()

	for _, c := range clients {
		c.teardown(r)
	}
}

package server

import (
	"net"
	"testing"
)

func TestRegistryAdmitAssignsMonotonicIDs(t *testing.T) {
	r := NewRegistry()
	conn1, conn2 := net.Pipe()
	t.Cleanup(func() { _ = conn1.Close(); _ = conn2.Close() })

	c1, err := r.Admit(func(id uint32) *Client { return newClient(id, conn1) }, 0, 0)
	if err != nil {
		t.Fatalf("admit first client: %v", err)
	}
	c2, err := r.Admit(func(id uint32) *Client { return newClient(id, conn2) }, 0, 0)
	if err != nil {
		t.Fatalf("admit second client: %v", err)
	}
	if c1.ID == c2.ID {
		t.Fatalf("expected distinct ids, both got %d", c1.ID)
	}
	if r.Count() != 2 {
		t.Fatalf("expected registry count 2, got %d", r.Count())
	}
	if got := r.Get(c1.ID); got != c1 {
		t.Fatalf("Get did not return the admitted client")
	}
}

func TestRegistryAdmitRejectsWhenFull(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < MaxClients; i++ {
		conn, peer := net.Pipe()
		t.Cleanup(func() { _ = conn.Close(); _ = peer.Close() })
		if _, err := r.Admit(func(id uint32) *Client { return newClient(id, conn) }, 0, 0); err != nil {
			t.Fatalf("admit client %d: %v", i, err)
		}
	}
	conn, peer := net.Pipe()
	t.Cleanup(func() { _ = conn.Close(); _ = peer.Close() })
	if _, err := r.Admit(func(id uint32) *Client { return newClient(id, conn) }, 0, 0); err != ErrRegistryFull {
		t.Fatalf("expected ErrRegistryFull once the registry is full, got %v", err)
	}
}

func TestRegistryAdmitEnforcesMinimumCellCapacity(t *testing.T) {
	r := NewRegistry()
	conn1, peer1 := net.Pipe()
	t.Cleanup(func() { _ = conn1.Close(); _ = peer1.Close() })
	if _, err := r.Admit(func(id uint32) *Client { return newClient(id, conn1) }, 15, 6); err != nil {
		t.Fatalf("admit first client within capacity: %v", err)
	}

	conn2, peer2 := net.Pipe()
	t.Cleanup(func() { _ = conn2.Close(); _ = peer2.Close() })
	if _, err := r.Admit(func(id uint32) *Client { return newClient(id, conn2) }, 15, 6); err == nil {
		t.Fatalf("expected admission to be refused once capacity for the admin terminal is exceeded")
	}
}

func TestRegistryRemoveIsIdempotent(t *testing.T) {
	r := NewRegistry()
	conn, peer := net.Pipe()
	t.Cleanup(func() { _ = conn.Close(); _ = peer.Close() })

	c, err := r.Admit(func(id uint32) *Client { return newClient(id, conn) }, 0, 0)
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	r.Remove(c.ID)
	if r.Count() != 0 {
		t.Fatalf("expected count 0 after remove, got %d", r.Count())
	}
	if got := r.Get(c.ID); got != nil {
		t.Fatalf("expected Get to return nil after removal, got %+v", got)
	}
	r.Remove(c.ID) // must not panic on a second removal
}

func TestRegistrySnapshotExcludesRemovedClients(t *testing.T) {
	r := NewRegistry()
	conn1, peer1 := net.Pipe()
	conn2, peer2 := net.Pipe()
	t.Cleanup(func() {
		_ = conn1.Close()
		_ = peer1.Close()
		_ = conn2.Close()
		_ = peer2.Close()
	})

	c1, _ := r.Admit(func(id uint32) *Client { return newClient(id, conn1) }, 0, 0)
	_, _ = r.Admit(func(id uint32) *Client { return newClient(id, conn2) }, 0, 0)
	r.Remove(c1.ID)

	snap := r.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("expected snapshot of 1 client after removal, got %d", len(snap))
	}
}

func TestRegistryAdmitRejectsAfterShutdown(t *testing.T) {
	r := NewRegistry()
	r.Shutdown()

	conn, peer := net.Pipe()
	t.Cleanup(func() { _ = conn.Close(); _ = peer.Close() })
	if _, err := r.Admit(func(id uint32) *Client { return newClient(id, conn) }, 0, 0); err == nil {
		t.Fatalf("expected admit to fail on a shut-down registry")
	}
}

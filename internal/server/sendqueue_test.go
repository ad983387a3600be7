package server

import (
	"testing"
	"time"

	"github.com/asciichat/asciichat/internal/protocol/packet"
)

func TestSendQueueFIFOOrder(t *testing.T) {
	q := NewSendQueue()
	q.Enqueue(&packet.Packet{Type: packet.TypePing, ClientID: 1})
	q.Enqueue(&packet.Packet{Type: packet.TypePing, ClientID: 2})
	first := q.Dequeue()
	second := q.Dequeue()
	if first.ClientID != 1 || second.ClientID != 2 {
		t.Fatalf("expected FIFO order, got %d then %d", first.ClientID, second.ClientID)
	}
}

func TestSendQueueDropOldestVideoOnOverflow(t *testing.T) {
	q := NewSendQueue()
	for i := 0; i < sendQueueCapacity; i++ {
		q.Enqueue(&packet.Packet{Type: packet.TypeASCIIFrame, ClientID: uint32(i)})
	}
	// Queue is full; this should evict the oldest (ClientID 0) and append.
	q.Enqueue(&packet.Packet{Type: packet.TypeASCIIFrame, ClientID: 999})
	if q.Len() != sendQueueCapacity {
		t.Fatalf("expected queue to stay at capacity, got %d", q.Len())
	}
	first := q.Dequeue()
	if first.ClientID == 0 {
		t.Fatalf("expected oldest video frame to have been dropped")
	}
}

func TestSendQueueNeverDropsHandshakePackets(t *testing.T) {
	q := NewSendQueue()
	for i := 0; i < sendQueueCapacity+5; i++ {
		q.Enqueue(&packet.Packet{Type: packet.TypeKeyExchangeInit})
	}
	if q.Len() != sendQueueCapacity+5 {
		t.Fatalf("expected all handshake packets retained, got %d", q.Len())
	}
}

func TestSendQueueShutdownDrainsThenSentinel(t *testing.T) {
	q := NewSendQueue()
	q.Enqueue(&packet.Packet{Type: packet.TypePing})
	q.Shutdown()

	p := q.Dequeue()
	if IsShutdownSentinel(p) {
		t.Fatalf("expected the remaining item to drain before the sentinel")
	}
	p = q.Dequeue()
	if !IsShutdownSentinel(p) {
		t.Fatalf("expected sentinel once drained")
	}
}

func TestSendQueueDequeueBlocksUntilEnqueue(t *testing.T) {
	q := NewSendQueue()
	done := make(chan *packet.Packet, 1)
	go func() {
		done <- q.Dequeue()
	}()
	time.Sleep(10 * time.Millisecond)
	q.Enqueue(&packet.Packet{Type: packet.TypePing, ClientID: 42})

	select {
	case p := <-done:
		if p.ClientID != 42 {
			t.Fatalf("unexpected packet: %+v", p)
		}
	case <-time.After(time.Second):
		t.Fatalf("Dequeue did not unblock after Enqueue")
	}
}

func TestSendQueueEnqueueAfterShutdownFails(t *testing.T) {
	q := NewSendQueue()
	q.Shutdown()
	if q.Enqueue(&packet.Packet{Type: packet.TypePing}) {
		t.Fatalf("expected enqueue to fail after shutdown")
	}
}

package server

// Per-client record and its four workers: receive, send, video-render,
// audio-render, matching §3/§4.8-4.10's worker model.

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/asciichat/asciichat/internal/ascii"
	"github.com/asciichat/asciichat/internal/crypto/envelope"
	"github.com/asciichat/asciichat/internal/logger"
	"github.com/asciichat/asciichat/internal/media/audioring"
	"github.com/asciichat/asciichat/internal/media/framestore"
)

// Client is one connected participant's server-side state.
type Client struct {
	ID         uint32
	conn       net.Conn
	RemoteAddr string

	env atomic.Pointer[envelope.Envelope]

	mu         sync.Mutex // guards the fields below
	Width      int
	Height     int
	ColorDepth ascii.ColorDepth
	Palette    string
	FocusPref  uint32
	MirrorSelf bool

	HasVideo atomic.Bool
	HasAudio atomic.Bool
	Active   atomic.Bool

	FrameStore *framestore.Store
	AudioRing  *audioring.Ring
	SendQ      *SendQueue

	liveReceive     atomic.Bool
	liveSend        atomic.Bool
	liveVideoRender atomic.Bool
	liveAudioRender atomic.Bool

	consecutiveErrors atomic.Int32
	lastErrorAt       atomic.Int64 // unix nanos

	log *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// defaultTerminalWidth/Height seed a client record before its first
// TERMINAL_SIZE packet arrives.
const (
	defaultTerminalWidth  = 80
	defaultTerminalHeight = 24
)

// newClient constructs a client record in the pre-Ready state; workers are
// started separately by the registry once admission succeeds.
func newClient(id uint32, conn net.Conn) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		ID:         id,
		conn:       conn,
		RemoteAddr: conn.RemoteAddr().String(),
		Width:      defaultTerminalWidth,
		Height:     defaultTerminalHeight,
		ColorDepth: ascii.ColorTrueColor,
		Palette:    ascii.DefaultPalette,
		MirrorSelf: true,
		FrameStore: framestore.New(),
		AudioRing:  audioring.New(),
		SendQ:      NewSendQueue(),
		log:        logger.WithClient(logger.Logger(), id, conn.RemoteAddr().String()),
		ctx:        ctx,
		cancel:     cancel,
	}
	c.Active.Store(true)
	return c
}

// Envelope returns the client's crypto envelope once the handshake has
// completed, or nil before then.
func (c *Client) Envelope() *envelope.Envelope {
	return c.env.Load()
}

// setEnvelope installs the envelope once the handshake reaches Ready.
func (c *Client) setEnvelope(e *envelope.Envelope) {
	c.env.Store(e)
}

// Ready reports whether the handshake has completed.
func (c *Client) Ready() bool {
	return c.env.Load() != nil
}

// Dimensions returns the client's current terminal size and capabilities.
func (c *Client) Dimensions() (width, height int, depth ascii.ColorDepth, palette string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Width, c.Height, c.ColorDepth, c.Palette
}

// SetDimensions updates the client's declared terminal size, called from
// the TERMINAL_SIZE handler.
func (c *Client) SetDimensions(width, height int) {
	c.mu.Lock()
	c.Width = width
	c.Height = height
	c.mu.Unlock()
}

// FocusAndMirror returns the client's current focus target and mirror-self
// preference.
func (c *Client) FocusAndMirror() (focus uint32, mirror bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.FocusPref, c.MirrorSelf
}

// SetFocus updates the focus target (0 clears it, switching back to a
// gallery layout).
func (c *Client) SetFocus(id uint32) {
	c.mu.Lock()
	c.FocusPref = id
	c.mu.Unlock()
}

// SetMirrorSelf toggles whether this client's own feed appears in its own
// composite render.
func (c *Client) SetMirrorSelf(on bool) {
	c.mu.Lock()
	c.MirrorSelf = on
	c.mu.Unlock()
}

// recordError tracks consecutive per-message errors for the "three errors
// within one second" connection-drop policy from §4.8.
func (c *Client) recordError() (shouldDrop bool) {
	now := time.Now().UnixNano()
	last := c.lastErrorAt.Swap(now)
	if now-last > int64(time.Second) {
		c.consecutiveErrors.Store(1)
		return false
	}
	n := c.consecutiveErrors.Add(1)
	return n >= 3
}

// recordSuccess resets the consecutive-error counter after a clean message.
func (c *Client) recordSuccess() {
	c.consecutiveErrors.Store(0)
}

// startWorkers launches the four per-client workers in the order §4.11
// specifies: send, receive, then render workers (receive drives the
// handshake before anything else can run).
func (c *Client) startWorkers(reg *Registry) {
	c.liveSend.Store(true)
	c.liveReceive.Store(true)
	c.liveVideoRender.Store(true)
	c.liveAudioRender.Store(true)

	c.wg.Add(4)
	go func() { defer c.wg.Done(); c.runSendWorker(reg) }()
	go func() { defer c.wg.Done(); c.runReceiveWorker(reg) }()
	go func() { defer c.wg.Done(); c.runVideoRenderWorker(reg) }()
	go func() { defer c.wg.Done(); c.runAudioRenderWorker(reg) }()
}

// teardown implements the idempotent shutdown sequence from §4.11: clear
// liveness, wake blocked workers, close the socket, join workers, then
// remove the client's slot from the registry so §8's index/slot invariant
// never outlives the connection that backs it.
func (c *Client) teardown(reg *Registry) {
	if !c.Active.CompareAndSwap(true, false) {
		return // already torn down
	}
	c.liveReceive.Store(false)
	c.liveSend.Store(false)
	c.liveVideoRender.Store(false)
	c.liveAudioRender.Store(false)

	c.SendQ.Shutdown()
	c.AudioRing.Shutdown()
	c.cancel()
	_ = c.conn.Close()

	c.wg.Wait()

	if e := c.env.Load(); e != nil {
		e.Close()
	}

	c.HasVideo.Store(false)
	c.HasAudio.Store(false)
	reg.Remove(c.ID)
}

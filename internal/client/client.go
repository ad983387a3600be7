// Package client implements the network side of an ASCII-Chat participant:
// dial, perform the mutual handshake, exchange framed packets, and
// automatically reconnect on drop. OS-level webcam/microphone capture and
// terminal rendering are out of scope here (see capture.go/render.go for the
// interface contracts a host application wires in); this package only
// speaks the wire protocol.
package client

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/asciichat/asciichat/internal/crypto/envelope"
	"github.com/asciichat/asciichat/internal/logger"
	"github.com/asciichat/asciichat/internal/protocol/packet"
)

// Backoff schedule for reconnection, per the design's network resilience
// section: linear growth with a cap and jitter.
const (
	backoffInitial = 10 * time.Millisecond
	backoffStep    = 200 * time.Millisecond
	backoffCap     = 5 * time.Second
	backoffJitter  = 0.10
)

// Config configures a Client's connection and handshake behavior.
type Config struct {
	Address string // host:port of the server

	IdentityKey ed25519.PrivateKey // optional client identity key
	Password    string

	// VerifyServerIdentity implements pinning/TOFU against the server's
	// presented identity key; nil accepts any identity.
	VerifyServerIdentity envelope.IdentityVerifier

	DialTimeout time.Duration

	// OnPacket is invoked from the receive loop for every packet that
	// isn't consumed internally (PING is answered automatically).
	OnPacket func(*packet.Packet)

	// OnStateChange is invoked whenever the connection transitions
	// between connected/disconnected/reconnecting.
	OnStateChange func(State)
}

func (c *Config) applyDefaults() {
	if c.DialTimeout == 0 {
		c.DialTimeout = packet.ConnectTimeout
	}
}

// State enumerates the client's connection lifecycle.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Client owns a single connection to an ASCII-Chat server, including the
// post-handshake encrypted envelope and the reconnect loop.
type Client struct {
	cfg Config
	log interface {
		Info(msg string, args ...any)
		Warn(msg string, args ...any)
		Error(msg string, args ...any)
	}

	mu       sync.RWMutex
	conn     net.Conn
	env      *envelope.Envelope
	state    State
	clientID uint32

	stopCh chan struct{}
	once   sync.Once
}

// New constructs an unconnected Client.
func New(cfg Config) *Client {
	cfg.applyDefaults()
	return &Client{
		cfg:    cfg,
		log:    logger.Logger().With("component", "client"),
		stopCh: make(chan struct{}),
	}
}

// Run dials the server and drives the receive loop, reconnecting with
// backoff on any connection error, until Close is called.
func (c *Client) Run() error {
	attempt := 0
	for {
		select {
		case <-c.stopCh:
			return nil
		default:
		}

		c.setState(StateConnecting)
		if err := c.connectOnce(); err != nil {
			c.log.Warn("connect failed", "attempt", attempt, "error", err)
			attempt++
			if !c.sleepBackoff(attempt) {
				return nil
			}
			continue
		}
		attempt = 0
		c.setState(StateConnected)

		err := c.receiveLoop()
		c.teardownConn()
		if err == nil {
			return nil // clean shutdown (Close called)
		}
		c.log.Warn("connection lost", "error", err)
		c.setState(StateReconnecting)
	}
}

// Close terminates the connection and stops the reconnect loop.
func (c *Client) Close() error {
	c.once.Do(func() { close(c.stopCh) })
	c.teardownConn()
	c.setState(StateDisconnected)
	return nil
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	if c.cfg.OnStateChange != nil {
		c.cfg.OnStateChange(s)
	}
}

// State returns the client's current connection state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) sleepBackoff(attempt int) bool {
	delay := backoffInitial + time.Duration(attempt)*backoffStep
	if delay > backoffCap {
		delay = backoffCap
	}
	jitter := 1 + (rand.Float64()*2-1)*backoffJitter
	delay = time.Duration(float64(delay) * jitter)

	select {
	case <-time.After(delay):
		return true
	case <-c.stopCh:
		return false
	}
}

func (c *Client) connectOnce() error {
	conn, err := net.DialTimeout("tcp", c.cfg.Address, c.cfg.DialTimeout)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.cfg.Address, err)
	}

	env, err := envelope.ClientHandshake(conn, envelope.ClientConfig{
		IdentityKey:          c.cfg.IdentityKey,
		Password:             c.cfg.Password,
		VerifyServerIdentity: c.cfg.VerifyServerIdentity,
	})
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("handshake: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.env = env
	c.mu.Unlock()
	c.log.Info("connected", "addr", c.cfg.Address)
	return nil
}

func (c *Client) teardownConn() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.env = nil
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

func (c *Client) receiveLoop() error {
	for {
		select {
		case <-c.stopCh:
			return nil
		default:
		}

		c.mu.RLock()
		conn, env := c.conn, c.env
		c.mu.RUnlock()
		if conn == nil {
			return errors.New("receive loop: connection closed")
		}

		p, err := packet.ReadSealed(conn, conn, env)
		if err != nil {
			return fmt.Errorf("receive: %w", err)
		}

		switch p.Type {
		case packet.TypePing:
			_ = c.Send(packet.TypePong, p.Payload)
		case packet.TypeClientLeave:
			return nil
		default:
			if c.cfg.OnPacket != nil {
				c.cfg.OnPacket(p)
			}
		}
	}
}

// Send seals and writes a single packet on the current connection. It
// returns an error (rather than blocking) when not connected, leaving
// reconnect/retry policy to the caller.
func (c *Client) Send(typ packet.Type, payload []byte) error {
	c.mu.RLock()
	conn, env := c.conn, c.env
	c.mu.RUnlock()
	if conn == nil || env == nil {
		return errors.New("client: not connected")
	}
	return packet.WriteSealed(conn, conn, env, &packet.Packet{Type: typ, Payload: payload})
}

// SendTerminalSize reports this client's terminal dimensions to the server.
func (c *Client) SendTerminalSize(width, height uint16) error {
	payload := make([]byte, 4)
	payload[0] = byte(width)
	payload[1] = byte(width >> 8)
	payload[2] = byte(height)
	payload[3] = byte(height >> 8)
	return c.Send(packet.TypeTerminalSize, payload)
}

// SendVideoFrame submits one already-encoded IMAGE_FRAME payload.
func (c *Client) SendVideoFrame(payload []byte) error {
	return c.Send(packet.TypeImageFrame, payload)
}

// SendAudioBatch submits one already-encoded AUDIO_BATCH payload.
func (c *Client) SendAudioBatch(payload []byte) error {
	return c.Send(packet.TypeAudioBatch, payload)
}

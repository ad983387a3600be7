package server

// TCP (and optional WebSocket) listener plus the accept loop: Start/Stop/
// Addr plus hook-manager wiring, a token-bucket limiter on accept, and each
// accepted connection handed to the registry's four-worker client
// lifecycle.

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/asciichat/asciichat/internal/crypto/envelope"
	"github.com/asciichat/asciichat/internal/logger"
	"github.com/asciichat/asciichat/internal/server/hooks"
)

// Config holds server listener configuration.
type Config struct {
	ListenAddr string
	WSAddr     string // optional; empty disables the WebSocket listener

	IdentityKey       ed25519.PrivateKey
	Password          string
	AuthorizeClient   func(pub ed25519.PublicKey) bool
	MirrorSelfDefault bool
	DisableAudio      bool

	AdminWidth, AdminHeight int // 0,0 disables the terminal-capacity admission check

	AcceptRatePerSecond float64 // token-bucket rate; 0 disables throttling
	AcceptBurst         int

	HookScripts     []string // event_type=script_path pairs
	HookWebhooks    []string // event_type=webhook_url pairs
	HookStdioFormat string
	HookTimeout     string
	HookConcurrency int
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = "0.0.0.0:27224"
	}
	if c.AcceptRatePerSecond == 0 {
		c.AcceptRatePerSecond = 50
	}
	if c.AcceptBurst == 0 {
		c.AcceptBurst = 10
	}
}

// Server owns the registry, listener(s), and accept loop.
type Server struct {
	cfg Config
	log *slog.Logger
	reg *Registry

	mu          sync.RWMutex
	ln          net.Listener
	wsServer    *http.Server
	limiter     *rate.Limiter
	closing     bool
	acceptingWg sync.WaitGroup
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// New creates a new, unstarted Server.
func New(cfg Config) *Server {
	cfg.applyDefaults()

	reg := NewRegistry()
	reg.MirrorSelfDefault = cfg.MirrorSelfDefault
	reg.AudioEnabled = !cfg.DisableAudio
	reg.HandshakeConfig = envelope.ServerConfig{
		IdentityKey:     cfg.IdentityKey,
		Password:        cfg.Password,
		AuthorizeClient: cfg.AuthorizeClient,
	}
	reg.Hooks = initializeHookManager(cfg, logger.Logger())

	return &Server{
		cfg:     cfg,
		reg:     reg,
		log:     logger.Logger().With("component", "server"),
		limiter: rate.NewLimiter(rate.Limit(cfg.AcceptRatePerSecond), cfg.AcceptBurst),
	}
}

// Start begins listening (TCP, and WebSocket if configured) and launches
// the accept loop(s).
func (s *Server) Start() error {
	s.mu.Lock()
	if s.ln != nil {
		s.mu.Unlock()
		return errors.New("server already started")
	}
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("listen %s: %w", s.cfg.ListenAddr, err)
	}
	s.ln = ln
	s.mu.Unlock()

	s.log.Info("server listening", "addr", ln.Addr().String())
	s.acceptingWg.Add(1)
	go s.acceptLoop()

	if s.cfg.WSAddr != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/ws", s.handleWebSocket)
		s.mu.Lock()
		s.wsServer = &http.Server{Addr: s.cfg.WSAddr, Handler: mux}
		s.mu.Unlock()
		s.acceptingWg.Add(1)
		go func() {
			defer s.acceptingWg.Done()
			if err := s.wsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.log.Error("websocket listener failed", "error", err)
			}
		}()
		s.log.Info("websocket server listening", "addr", s.cfg.WSAddr)
	}
	return nil
}

func (s *Server) acceptLoop() {
	defer s.acceptingWg.Done()
	for {
		s.mu.RLock()
		ln := s.ln
		s.mu.RUnlock()
		if ln == nil {
			return
		}

		if err := s.limiter.Wait(context.Background()); err != nil {
			return
		}
		raw, err := ln.Accept()
		if err != nil {
			s.mu.RLock()
			closing := s.closing
			s.mu.RUnlock()
			if closing || errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warn("accept error", "error", err)
			continue
		}
		s.admit(raw)
	}
}

func (s *Server) admit(conn net.Conn) {
	c, err := s.reg.Admit(func(id uint32) *Client { return newClient(id, conn) }, s.cfg.AdminWidth, s.cfg.AdminHeight)
	if err != nil {
		s.log.Warn("admission refused", "remote", conn.RemoteAddr().String(), "error", err)
		_ = conn.Close()
		return
	}
	s.log.Info("client admitted", "client_id", c.ID, "remote", c.RemoteAddr)
	c.startWorkers(s.reg)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	s.admit(newWSConn(conn))
}

// Stop gracefully shuts down the server: stops accepting, tears down every
// client, waits for the accept loop(s) to exit.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.ln == nil {
		s.mu.Unlock()
		return nil
	}
	s.closing = true
	ln := s.ln
	s.ln = nil
	wsServer := s.wsServer
	s.mu.Unlock()

	_ = ln.Close()
	if wsServer != nil {
		_ = wsServer.Shutdown(context.Background())
	}

	s.reg.Shutdown()
	if s.reg.Hooks != nil {
		_ = s.reg.Hooks.Close()
	}

	s.acceptingWg.Wait()
	s.log.Info("server stopped")
	return nil
}

// Addr returns the bound TCP listener address, or nil if not started.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// ClientCount returns the number of currently admitted clients.
func (s *Server) ClientCount() int {
	return s.reg.Count()
}

// Registry exposes the server's client registry, e.g. for wiring an
// OpsServer's health endpoint.
func (s *Server) Registry() *Registry {
	return s.reg
}

func initializeHookManager(cfg Config, log *slog.Logger) *hooks.HookManager {
	hookConfig := hooks.Config{
		Timeout:     cfg.HookTimeout,
		Concurrency: cfg.HookConcurrency,
		StdioFormat: cfg.HookStdioFormat,
	}
	if hookConfig.Timeout == "" {
		hookConfig.Timeout = "30s"
	}
	if hookConfig.Concurrency == 0 {
		hookConfig.Concurrency = 10
	}

	manager := hooks.NewHookManager(hookConfig, log)
	if err := registerShellHooks(manager, cfg.HookScripts, log); err != nil {
		log.Error("failed to register shell hooks", "error", err)
	}
	if err := registerWebhookHooks(manager, cfg.HookWebhooks, log); err != nil {
		log.Error("failed to register webhook hooks", "error", err)
	}
	return manager
}

func registerShellHooks(manager *hooks.HookManager, scripts []string, log *slog.Logger) error {
	for i, script := range scripts {
		parts := strings.SplitN(script, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid shell hook format: %s", script)
		}
		eventType := hooks.EventType(parts[0])
		hook := hooks.NewShellHook(fmt.Sprintf("shell_%d", i), parts[1], 30*time.Second)
		if err := manager.RegisterHook(eventType, hook); err != nil {
			return fmt.Errorf("register shell hook %s: %w", script, err)
		}
		log.Info("registered shell hook", "event_type", eventType, "script_path", parts[1])
	}
	return nil
}

func registerWebhookHooks(manager *hooks.HookManager, webhooks []string, log *slog.Logger) error {
	for i, wh := range webhooks {
		parts := strings.SplitN(wh, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid webhook hook format: %s", wh)
		}
		eventType := hooks.EventType(parts[0])
		hook := hooks.NewWebhookHook(fmt.Sprintf("webhook_%d", i), parts[1], 30*time.Second)
		if err := manager.RegisterHook(eventType, hook); err != nil {
			return fmt.Errorf("register webhook hook %s: %w", wh, err)
		}
		log.Info("registered webhook hook", "event_type", eventType, "webhook_url", parts[1])
	}
	return nil
}

// Command ascii-chat-client connects to an ASCII-Chat server, performs the
// mutual-auth handshake, reports the terminal's size, and writes received
// composite frames straight to stdout. OS-level webcam/microphone capture
// and interactive terminal rendering are interface contracts only
// (internal/client/capture.go, render.go); this binary exercises the
// handshake/transport path and a minimal stdout-writing renderer.
package main

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	asciiclient "github.com/asciichat/asciichat/internal/client"
	"github.com/asciichat/asciichat/internal/logger"
	"github.com/asciichat/asciichat/internal/protocol/packet"
)

var version = "dev"

type clientOptions struct {
	Address     string `mapstructure:"address"`
	Key         string `mapstructure:"key"`
	IdentityKey string `mapstructure:"identity-key"`
	ServerKey   string `mapstructure:"server-key"`
	KnownHosts  string `mapstructure:"known-hosts"`
	Snapshot    bool   `mapstructure:"snapshot"`
	FPS         int    `mapstructure:"fps"`
	LogLevel    string `mapstructure:"log-level"`
}

func newRootCmd() *cobra.Command {
	opts := &clientOptions{FPS: 60, LogLevel: "info"}
	v := viper.New()
	v.SetEnvPrefix("ASCIICHAT")
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:     "ascii-chat-client <address>",
		Short:   "Connect to an ASCII-Chat server",
		Version: version,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Address = args[0]
			if err := v.Unmarshal(opts); err != nil {
				return fmt.Errorf("parse configuration: %w", err)
			}
			opts.Address = args[0]
			return runClient(opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.Key, "key", "", "Password required by the server")
	flags.StringVar(&opts.IdentityKey, "identity-key", "", "Path to this client's Ed25519 identity key (hex seed); omit for an anonymous connection")
	flags.StringVar(&opts.ServerKey, "server-key", "", "Pin the server's expected Ed25519 identity key, hex-encoded, instead of using known-hosts TOFU")
	flags.StringVar(&opts.KnownHosts, "known-hosts", "", "Path to the known-hosts file (default ~/.ascii-chat-known-hosts)")
	flags.BoolVar(&opts.Snapshot, "snapshot", false, "Connect, report terminal size, wait for one ASCII_FRAME, print it, and exit")
	flags.IntVar(&opts.FPS, "fps", opts.FPS, "Local capture/render target frame rate (advisory; the server renders on its own cadence)")
	flags.StringVar(&opts.LogLevel, "log-level", opts.LogLevel, "Log level: debug|info|warn|error")

	_ = v.BindPFlags(flags)
	return cmd
}

func runClient(opts *clientOptions) error {
	logger.Init()
	if err := logger.SetLevel(opts.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "warning: invalid log level %q, using default\n", opts.LogLevel)
	}
	log := logger.Logger().With("component", "cli")

	var identity ed25519.PrivateKey
	if opts.IdentityKey != "" {
		var err error
		identity, err = loadIdentityKey(opts.IdentityKey)
		if err != nil {
			return err
		}
	}

	verify, err := identityVerifierFor(opts.Address, opts.ServerKey, opts.KnownHosts)
	if err != nil {
		return err
	}

	frames := make(chan *packet.Packet, 4)
	c := asciiclient.New(asciiclient.Config{
		Address:              opts.Address,
		IdentityKey:          identity,
		Password:             opts.Key,
		VerifyServerIdentity: verify,
		OnPacket: func(p *packet.Packet) {
			if p.Type == packet.TypeASCIIFrame {
				select {
				case frames <- p:
				default:
				}
			}
		},
	})

	runErr := make(chan error, 1)
	go func() { runErr <- c.Run() }()
	defer c.Close()

	if err := waitConnected(c, 5*time.Second); err != nil {
		return err
	}
	w, h := detectTerminalSize()
	if err := c.SendTerminalSize(uint16(w), uint16(h)); err != nil {
		log.Warn("send terminal size failed", "error", err)
	}

	if opts.Snapshot {
		select {
		case p := <-frames:
			os.Stdout.Write(p.Payload)
			return nil
		case err := <-runErr:
			return err
		case <-time.After(10 * time.Second):
			return fmt.Errorf("snapshot: timed out waiting for a frame")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return nil
		case p := <-frames:
			os.Stdout.Write(p.Payload)
		case err := <-runErr:
			return err
		}
	}
}

func waitConnected(c *asciiclient.Client, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if c.State() == asciiclient.StateConnected {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	return fmt.Errorf("timed out connecting")
}

func detectTerminalSize() (width, height int) {
	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		return w, h
	}
	return 80, 24
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, strings.TrimSpace(err.Error()))
		os.Exit(1)
	}
}

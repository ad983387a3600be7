// Command ascii-chat-server runs the conferencing server: accepts client
// connections, performs the mutual-auth handshake, and composites every
// participant's video/audio for every other participant.
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

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/asciichat/asciichat/internal/logger"
	"github.com/asciichat/asciichat/internal/server"
)

var version = "dev"

// serverOptions mirrors the indicative CLI surface from the design's
// external interfaces section, bound through viper so every flag also has
// an ASCIICHAT_-prefixed environment variable equivalent.
type serverOptions struct {
	Address     string   `mapstructure:"address" validate:"required,ip|hostname|fqdn"`
	Port        int      `mapstructure:"port" validate:"gte=0,lte=65535"`
	Audio       bool     `mapstructure:"audio"`
	LogFile     string   `mapstructure:"log-file"`
	LogLevel    string   `mapstructure:"log-level" validate:"oneof=debug info warn error"`
	Key         string   `mapstructure:"key"`
	KeyFile     string   `mapstructure:"keyfile"`
	SSHKey      string   `mapstructure:"ssh-key"`
	ClientKeys  string   `mapstructure:"client-keys"`
	NoEncrypt   bool     `mapstructure:"no-encrypt"`
	WSAddr      string   `mapstructure:"ws-address"`
	OpsAddr     string   `mapstructure:"ops-address"`
	MirrorSelf  bool     `mapstructure:"mirror-self"`
	HookScripts []string `mapstructure:"hook-script"`
	HookWebhook []string `mapstructure:"hook-webhook"`
}

func newRootCmd() *cobra.Command {
	opts := &serverOptions{Address: "0.0.0.0", Port: 27224, LogLevel: "info", Audio: true}
	v := viper.New()
	v.SetEnvPrefix("ASCIICHAT")
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:     "ascii-chat-server",
		Short:   "Run the ASCII-Chat conferencing server",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := v.Unmarshal(opts); err != nil {
				return fmt.Errorf("parse configuration: %w", err)
			}
			if err := validator.New().Struct(opts); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return runServer(opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.Address, "address", opts.Address, "Listen address")
	flags.IntVar(&opts.Port, "port", opts.Port, "Listen port")
	flags.BoolVar(&opts.Audio, "audio", opts.Audio, "Enable audio mixing")
	flags.StringVar(&opts.LogFile, "log-file", "", "Write logs to this file instead of stderr")
	flags.StringVar(&opts.LogLevel, "log-level", opts.LogLevel, "Log level: debug|info|warn|error")
	flags.StringVar(&opts.Key, "key", "", "Shared password required of connecting clients")
	flags.StringVar(&opts.KeyFile, "keyfile", "", "Path to this server's Ed25519 identity key (generated on first run)")
	flags.StringVar(&opts.SSHKey, "ssh-key", "", "Path to an OpenSSH-format Ed25519 private key to use as identity instead of --keyfile")
	flags.StringVar(&opts.ClientKeys, "client-keys", "", "authorized_keys-style allow-list, as a file path or comma-separated inline entries")
	flags.BoolVar(&opts.NoEncrypt, "no-encrypt", false, "Accepted but has no effect: packets after the handshake are always AEAD-encrypted")
	flags.StringVar(&opts.WSAddr, "ws-address", "", "Optional WebSocket listen address (host:port)")
	flags.StringVar(&opts.OpsAddr, "ops-address", "", "Optional /healthz and /metrics listen address (host:port)")
	flags.BoolVar(&opts.MirrorSelf, "mirror-self", true, "Include a client's own video in its own composite by default")
	flags.StringSliceVar(&opts.HookScripts, "hook-script", nil, "event_type=script_path pairs, may be repeated")
	flags.StringSliceVar(&opts.HookWebhook, "hook-webhook", nil, "event_type=webhook_url pairs, may be repeated")

	_ = v.BindPFlags(flags)
	return cmd
}

func runServer(opts *serverOptions) error {
	logger.Init()
	if err := logger.SetLevel(opts.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "warning: invalid log level %q, using default\n", opts.LogLevel)
	}
	if opts.LogFile != "" {
		f, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logger.UseWriter(f)
	}
	log := logger.Logger().With("component", "cli")

	identity, err := resolveIdentity(opts)
	if err != nil {
		return err
	}
	allowList, err := loadClientAllowList(opts.ClientKeys)
	if err != nil {
		return fmt.Errorf("load client allow-list: %w", err)
	}

	cfg := server.Config{
		ListenAddr:        fmt.Sprintf("%s:%d", opts.Address, opts.Port),
		WSAddr:            opts.WSAddr,
		IdentityKey:       identity,
		Password:          opts.Key,
		MirrorSelfDefault: opts.MirrorSelf,
		DisableAudio:      !opts.Audio,
		HookScripts:       opts.HookScripts,
		HookWebhooks:      opts.HookWebhook,
	}
	if allowList != nil {
		cfg.AuthorizeClient = allowList.Authorize
	}
	if opts.NoEncrypt {
		log.Warn("--no-encrypt has no effect: packets after the handshake are still encrypted")
	}

	srv := server.New(cfg)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	log.Info("server started", "addr", srv.Addr().String(), "version", version)

	var ops *server.OpsServer
	if opts.OpsAddr != "" {
		ops = server.NewOpsServer(opts.OpsAddr, srv.Registry())
		ops.Start()
		log.Info("ops server started", "addr", opts.OpsAddr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		if err := srv.Stop(); err != nil {
			log.Error("server stop error", "error", err)
		}
		if ops != nil {
			_ = ops.Stop()
		}
		close(done)
	}()

	select {
	case <-done:
		log.Info("server stopped cleanly")
	case <-shutdownCtx.Done():
		log.Error("forced exit after timeout")
	}
	return nil
}

func resolveIdentity(opts *serverOptions) (ed25519.PrivateKey, error) {
	if opts.SSHKey != "" {
		return loadSSHIdentity(opts.SSHKey)
	}
	if opts.KeyFile != "" {
		return loadOrGenerateIdentity(opts.KeyFile)
	}
	return nil, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, strings.TrimSpace(err.Error()))
		os.Exit(1)
	}
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"beacon/internal/app"
	"beacon/internal/capability"
	"beacon/internal/config"
	"beacon/pkg/logging"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"
)

// serveDebug enables verbose logging across the application.
var serveDebug bool

// serveTransport overrides the configured transport (stdio, sse, none).
var serveTransport string

// serveConfigPath points at a configuration directory containing config.yaml.
// When empty, the default search path is used.
var serveConfigPath string

// serveCmd defines the serve command. It bootstraps the capability pipeline
// and serves the engine until interrupted.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the beacon server",
	Long: `Starts the beacon server: discovers annotated capabilities, registers
them into the protocol engine, and serves clients over the configured
transport.

Transports:
  stdio  speak the protocol on stdin/stdout (logs go to stderr)
  sse    expose a session-keyed HTTP event-stream endpoint
  none   bootstrap only, without connecting a transport

Configuration is read from config.yaml in the configuration directory; a
missing file falls back to defaults. Use --config-path to point at a custom
directory and --transport to override the configured transport.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// runServe is the main entry point for the serve command.
func runServe(cmd *cobra.Command, args []string) error {
	logLevel := logging.LevelInfo
	if serveDebug {
		logLevel = logging.LevelDebug
	}
	// Stdout may carry protocol bytes in stdio mode, so logs always go to
	// stderr regardless of transport.
	logging.Init(logLevel, os.Stderr)

	cfg, err := config.LoadConfig(serveConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if serveTransport != "" {
		cfg.Transport = serveTransport
	}
	if rootCmd.Version != "" {
		cfg.Server.Version = rootCmd.Version
	}

	catalog := capability.NewCatalog()
	if err := app.RegisterSystemCapabilities(catalog); err != nil {
		return fmt.Errorf("failed to register built-in capabilities: %w", err)
	}

	application, err := app.New(cfg, catalog, app.NewSystemProvider(cfg))
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	application.Bootstrap()

	// Tell systemd we are ready; a no-op outside a systemd unit.
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		logging.Warn("Serve", "Failed to notify service manager: %v", err)
	}

	return application.Run(ctx)
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging")
	serveCmd.Flags().StringVar(&serveTransport, "transport", "", "Transport to serve on: stdio, sse, or none (overrides config)")
	serveCmd.Flags().StringVar(&serveConfigPath, "config-path", "", "Custom configuration directory path")
}

package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"beacon/internal/capability"
	"beacon/internal/config"
	"beacon/internal/push"
	"beacon/internal/registrar"
	"beacon/pkg/logging"

	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"
)

// Application bootstraps and runs a beacon server. It owns the single
// protocol engine instance, the capability catalog, and the provider
// instances whose annotated methods become the server's surface.
//
// Initialization is two-phase:
//  1. Bootstrap: discover annotated capabilities and register them into the
//     engine, producing a report
//  2. Run: serve the engine over the configured transport
type Application struct {
	cfg       config.Config
	catalog   *capability.Catalog
	instances []any

	engine *server.MCPServer
	reg    *registrar.Registrar

	bootstrapOnce sync.Once
	report        *registrar.Report
}

// New creates an application from a validated config. The engine is
// constructed exactly once, here; everything downstream shares this handle.
func New(cfg config.Config, catalog *capability.Catalog, instances ...any) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if catalog == nil {
		return nil, errors.New("capability catalog is required")
	}

	opts := []server.ServerOption{
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, true),
		server.WithPromptCapabilities(true),
	}
	if cfg.Server.Instructions != "" {
		opts = append(opts, server.WithInstructions(cfg.Server.Instructions))
	}
	engine := server.NewMCPServer(cfg.Server.Name, cfg.Server.Version, opts...)

	return &Application{
		cfg:       cfg,
		catalog:   catalog,
		instances: instances,
		engine:    engine,
		reg:       registrar.New(engine),
	}, nil
}

// NewFromFactory creates an application with configuration produced by a
// factory, deferring config resolution until startup.
func NewFromFactory(ctx context.Context, factory config.Factory, catalog *capability.Catalog, instances ...any) (*Application, error) {
	cfg, err := factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("configuration factory failed: %w", err)
	}
	return New(cfg, catalog, instances...)
}

// Engine exposes the shared protocol engine, e.g. for embedding the server
// into an existing process.
func (a *Application) Engine() *server.MCPServer {
	return a.engine
}

// Bootstrap discovers every annotated capability on the provider instances
// and registers it into the engine. It runs at most once; repeated calls
// return the same report. Registration is best-effort: malformed definitions
// are skipped and reported, never fatal.
func (a *Application) Bootstrap() *registrar.Report {
	a.bootstrapOnce.Do(func() {
		scanner := capability.NewScanner(a.catalog, a.instances...)

		for _, item := range scanner.Discover(capability.KindResource) {
			a.reg.RegisterResource(item)
		}
		for _, item := range scanner.Discover(capability.KindTool) {
			a.reg.RegisterTool(item)
		}
		for _, item := range scanner.Discover(capability.KindPrompt) {
			a.reg.RegisterPrompt(item)
		}

		a.report = a.reg.Report()
		logging.Info("Bootstrap", "Capability registration complete: %s", a.report.Summary())
	})
	return a.report
}

// Run bootstraps the application and serves the configured transport. It
// blocks until the context is cancelled or the transport fails.
func (a *Application) Run(ctx context.Context) error {
	a.Bootstrap()

	switch a.cfg.Transport {
	case config.TransportStdio:
		return a.runStdio(ctx)
	case config.TransportSSE:
		return a.runSSE(ctx)
	case config.TransportNone:
		logging.Info("Bootstrap", "Transport disabled, running bootstrap only")
		return nil
	default:
		return fmt.Errorf("unknown transport %q", a.cfg.Transport)
	}
}

// runStdio serves the engine over stdin/stdout. Logging must already be
// routed to stderr; stdout belongs to the protocol.
func (a *Application) runStdio(ctx context.Context) error {
	logging.Info("Bootstrap", "Serving on stdio")
	if err := server.NewStdioServer(a.engine).Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		// Transport loss must not take the host process down.
		logging.Error("Bootstrap", err, "Stdio transport failed")
	}
	return nil
}

// runSSE serves the push transport over HTTP until the context is cancelled,
// then drains sessions and shuts the listener down.
func (a *Application) runSSE(ctx context.Context) error {
	registry := push.NewSessionRegistry()
	registry.StartCleanup(push.DefaultIdleTimeout)
	handler := push.NewHandler(a.engine, registry, a.cfg.SSE.BasePath)

	httpServer := &http.Server{
		Addr:    a.cfg.SSE.Addr(),
		Handler: handler.Routes(),
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logging.Info("Bootstrap", "Serving push transport on http://%s%s", a.cfg.SSE.Addr(), a.cfg.SSE.BasePath)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("push transport failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logging.Info("Bootstrap", "Shutting down push transport")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		registry.Stop()
		registry.Shutdown()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logging.Warn("Bootstrap", "HTTP shutdown did not complete cleanly: %v", err)
		}
		return nil
	})

	return g.Wait()
}

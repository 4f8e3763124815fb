package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"beacon/internal/capability"
	"beacon/internal/config"

	"github.com/mark3labs/mcp-go/mcp"
)

// SystemProvider exposes the server's own identity as capabilities, so a
// freshly started process is immediately inspectable by any client. It doubles
// as the reference provider for the annotation pipeline.
type SystemProvider struct {
	cfg     config.Config
	started time.Time
}

// NewSystemProvider creates the built-in provider.
func NewSystemProvider(cfg config.Config) *SystemProvider {
	return &SystemProvider{cfg: cfg, started: time.Now()}
}

// Status reports the server's identity and uptime as a JSON payload.
func (p *SystemProvider) Status(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	payload, err := json.Marshal(map[string]any{
		"name":      p.cfg.Server.Name,
		"version":   p.cfg.Server.Version,
		"transport": p.cfg.Transport,
		"uptime":    time.Since(p.started).Round(time.Second).String(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode status: %w", err)
	}
	return &mcp.CallToolResult{Content: []mcp.Content{mcp.NewTextContent(string(payload))}}, nil
}

// About serves the server's instructions text as a readable resource.
func (p *SystemProvider) About(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	text := p.cfg.Server.Instructions
	if text == "" {
		text = fmt.Sprintf("%s %s", p.cfg.Server.Name, p.cfg.Server.Version)
	}
	return []mcp.ResourceContents{mcp.TextResourceContents{
		URI:      req.Params.URI,
		MIMEType: "text/plain",
		Text:     text,
	}}, nil
}

// RegisterSystemCapabilities annotates the built-in provider's methods into a
// catalog.
func RegisterSystemCapabilities(catalog *capability.Catalog) error {
	if err := catalog.Annotate(capability.Definition{
		Kind:        capability.KindTool,
		Name:        "server_status",
		Description: "Report the server's name, version, transport, and uptime",
	}, (*SystemProvider).Status); err != nil {
		return fmt.Errorf("failed to annotate server_status: %w", err)
	}

	if err := catalog.Annotate(capability.Definition{
		Kind:        capability.KindResource,
		Name:        "about",
		URI:         "beacon://about",
		Description: "Server identity and usage instructions",
		MIMEType:    "text/plain",
	}, (*SystemProvider).About); err != nil {
		return fmt.Errorf("failed to annotate about resource: %w", err)
	}

	return nil
}

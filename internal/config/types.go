package config

import "fmt"

// Transport selects how the engine is connected to the outside world.
const (
	// TransportStdio connects the engine to the process stdin/stdout pair.
	TransportStdio = "stdio"
	// TransportSSE serves the push transport over HTTP (SSE + message POST).
	TransportSSE = "sse"
	// TransportNone performs no automatic connection; an external HTTP layer
	// is expected to drive connections instead.
	TransportNone = "none"
)

// Config is the top-level configuration structure for beacon.
type Config struct {
	Server    ServerConfig `yaml:"server"`
	Transport string       `yaml:"transport,omitempty"` // stdio, sse, or none (default: stdio)
	SSE       SSEConfig    `yaml:"sse,omitempty"`
}

// ServerConfig identifies the MCP server and carries the engine options the
// protocol engine is constructed with.
type ServerConfig struct {
	Name         string `yaml:"name"`
	Version      string `yaml:"version"`
	Instructions string `yaml:"instructions,omitempty"`
}

// SSEConfig defines where the push transport listens when transport is "sse".
type SSEConfig struct {
	Host     string `yaml:"host,omitempty"`     // Host to bind to (default: localhost)
	Port     int    `yaml:"port,omitempty"`     // Port for the SSE endpoints (default: 8090)
	BasePath string `yaml:"basePath,omitempty"` // Path prefix for sse/messages/health (default: /mcp)
}

// Addr returns the listen address for the SSE HTTP server.
func (s SSEConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Validate checks the configuration for values the bootstrap cannot work with.
func (c Config) Validate() error {
	if c.Server.Name == "" {
		return fmt.Errorf("server.name must not be empty")
	}
	if c.Server.Version == "" {
		return fmt.Errorf("server.version must not be empty")
	}
	switch c.Transport {
	case TransportStdio, TransportSSE, TransportNone:
	default:
		return fmt.Errorf("unknown transport %q (expected %s, %s, or %s)",
			c.Transport, TransportStdio, TransportSSE, TransportNone)
	}
	if c.Transport == TransportSSE && c.SSE.Port <= 0 {
		return fmt.Errorf("sse.port must be set when transport is %s", TransportSSE)
	}
	return nil
}

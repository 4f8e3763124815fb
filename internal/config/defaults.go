package config

const (
	// DefaultSSEPort is the port the push transport binds to by default.
	DefaultSSEPort = 8090

	// DefaultSSEHost is the host the push transport binds to by default.
	DefaultSSEHost = "localhost"

	// DefaultBasePath is the path prefix the push endpoints are mounted under.
	DefaultBasePath = "/mcp"
)

// GetDefaultConfig returns the default configuration: a stdio-connected server
// with SSE settings prefilled for when the transport is switched over.
func GetDefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Name:    "beacon",
			Version: "0.1.0",
		},
		Transport: TransportStdio,
		SSE: SSEConfig{
			Host:     DefaultSSEHost,
			Port:     DefaultSSEPort,
			BasePath: DefaultBasePath,
		},
	}
}

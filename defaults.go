package mcpconn

import "time"

// Timeout defaults.
const (
	// DefaultConnectTimeout bounds each server connect attempt.
	DefaultConnectTimeout = 10 * time.Second

	// DefaultCloseTimeout bounds each server close.
	DefaultCloseTimeout = 10 * time.Second
)

// Client identity reported to MCP servers during the handshake.
const (
	clientName    = "mcp-conn-go"
	clientVersion = "0.3.0"
)

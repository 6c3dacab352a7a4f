package mcpconn

import (
	"context"
	"encoding/json"
)

// ToolInfo describes a tool discovered from an MCP server.
type ToolInfo struct {
	// Name is the tool's name as reported by the server.
	Name string

	// Description is a human-readable description of the tool.
	Description string

	// InputSchema is the raw JSON schema for the tool's input.
	InputSchema json.RawMessage
}

// Resource represents an MCP resource exposed by a server.
type Resource struct {
	// URI is the resource identifier (e.g. "file:///path" or "db://table").
	URI string

	// Name is a human-readable name for the resource.
	Name string

	// Description explains what the resource contains.
	Description string

	// MIMEType is the content type (e.g. "text/plain", "application/json").
	MIMEType string
}

// Server is the capability contract for a single MCP server. The Session
// drives Connect and Close; ListTools and CallTool are invoked by higher
// layers once a server is active.
//
// Identity is reference identity, not name: the Session keys its
// bookkeeping by the interface value, so implementations must be
// comparable (in practice, pointer receivers). Two servers may share a
// display name.
type Server interface {
	// Name returns a stable display identifier. Not guaranteed unique.
	Name() string

	// Connect establishes the connection. It may fail or hang
	// indefinitely; the Session bounds its own wait and leaves a
	// timed-out Connect running in the background.
	Connect(ctx context.Context) error

	// Close tears down the connection. Implementations must tolerate
	// Close on a server that never connected, and concurrent idempotent
	// calls.
	Close() error

	// ListTools discovers available tools from the server.
	ListTools(ctx context.Context) ([]ToolInfo, error)

	// CallTool invokes a tool on the server by name with the given
	// arguments.
	CallTool(ctx context.Context, name string, args map[string]any) (string, error)

	// InvalidateToolsCache discards any cached tool list so the next
	// ListTools hits the server again.
	InvalidateToolsCache()
}

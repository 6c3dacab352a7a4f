package mcpconn

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Construction ---

func TestNewSDKServer_InvalidConfig(t *testing.T) {
	_, err := NewSDKServer("empty", ServerConfig{})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewSDKServer("no-command", ServerConfig{Transport: TransportStdio})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewSDKServer("no-url", ServerConfig{Transport: TransportSSE})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewSDKServer_Name(t *testing.T) {
	s, err := NewSDKServer("github", ServerConfig{Command: "npx"})
	require.NoError(t, err)
	assert.Equal(t, "github", s.Name())
}

// --- Transport selection ---

func TestTransportFor_ExplicitTypes(t *testing.T) {
	tr, err := transportFor(ServerConfig{Transport: TransportStdio, Command: "npx"})
	require.NoError(t, err)
	assert.IsType(t, &mcp.CommandTransport{}, tr)

	tr, err = transportFor(ServerConfig{Transport: TransportSSE, URL: "http://localhost:3000/sse"})
	require.NoError(t, err)
	assert.IsType(t, &mcp.SSEClientTransport{}, tr)

	tr, err = transportFor(ServerConfig{Transport: TransportStreamableHTTP, URL: "http://localhost:3000/mcp"})
	require.NoError(t, err)
	assert.IsType(t, &mcp.StreamableClientTransport{}, tr)
}

func TestTransportFor_InferredFromConfig(t *testing.T) {
	tr, err := transportFor(ServerConfig{Command: "uvx", Args: []string{"mcp-server-git"}})
	require.NoError(t, err)
	assert.IsType(t, &mcp.CommandTransport{}, tr)

	// Endpoints ending in /sse prefer the SSE transport.
	tr, err = transportFor(ServerConfig{URL: "http://localhost:3000/sse"})
	require.NoError(t, err)
	assert.IsType(t, &mcp.SSEClientTransport{}, tr)

	tr, err = transportFor(ServerConfig{URL: "http://localhost:3000/mcp"})
	require.NoError(t, err)
	assert.IsType(t, &mcp.StreamableClientTransport{}, tr)
}

// --- Disconnected behavior ---

func TestSDKServer_OperationsRequireConnection(t *testing.T) {
	s, err := NewSDKServer("github", ServerConfig{Command: "npx"})
	require.NoError(t, err)

	_, err = s.ListTools(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = s.CallTool(context.Background(), "search", nil)
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = s.ListResources(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = s.ReadResource(context.Background(), "file:///x")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestSDKServer_CloseWithoutConnectIsNoop(t *testing.T) {
	s, err := NewSDKServer("github", ServerConfig{Command: "npx"})
	require.NoError(t, err)

	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

func TestSDKServer_InvalidateToolsCache(t *testing.T) {
	s, err := NewSDKServer("github", ServerConfig{Command: "npx"})
	require.NoError(t, err)

	s.tools = []ToolInfo{{Name: "search"}}
	s.toolsValid = true

	s.InvalidateToolsCache()
	assert.Nil(t, s.tools)
	assert.False(t, s.toolsValid)
}

// --- Wire conversion ---

func TestToolInfoFromSDK(t *testing.T) {
	tool := &mcp.Tool{
		Name:        "search",
		Description: "Search the index",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"query": {Type: "string"},
			},
			Required: []string{"query"},
		},
	}

	info := toolInfoFromSDK(tool)
	assert.Equal(t, "search", info.Name)
	assert.Equal(t, "Search the index", info.Description)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(info.InputSchema, &parsed))
	assert.Equal(t, "object", parsed["type"])
}

func TestToolInfoFromSDK_NilSchema(t *testing.T) {
	info := toolInfoFromSDK(&mcp.Tool{Name: "ping"})
	assert.Equal(t, "ping", info.Name)
	assert.Nil(t, info.InputSchema)
}

// --- Content flattening ---

func TestContentText(t *testing.T) {
	text := contentText([]mcp.Content{
		&mcp.TextContent{Text: "hello "},
		&mcp.TextContent{Text: "world"},
	})
	assert.Equal(t, "hello world", text)

	assert.Empty(t, contentText(nil))
}

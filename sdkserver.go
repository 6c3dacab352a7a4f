package mcpconn

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SDKServer is a Server backed by the official MCP Go SDK. It speaks the
// wire protocol over a stdio subprocess, SSE, or streamable HTTP depending
// on its ServerConfig, and caches the server's tool list until
// InvalidateToolsCache or Close.
//
// SDKServer is safe for the concurrent idempotent Close calls the Session
// may issue. Connect after Close establishes a fresh protocol session.
type SDKServer struct {
	name   string
	config ServerConfig

	mu         sync.Mutex
	session    *mcp.ClientSession
	tools      []ToolInfo
	toolsValid bool
}

var _ Server = (*SDKServer)(nil)

// NewSDKServer creates an SDKServer with the given display name and
// config. Returns ErrInvalidConfig when the config cannot yield a
// transport.
func NewSDKServer(name string, cfg ServerConfig) (*SDKServer, error) {
	if _, err := transportFor(cfg); err != nil {
		return nil, err
	}
	return &SDKServer{name: name, config: cfg}, nil
}

// Name returns the server's display name.
func (s *SDKServer) Name() string { return s.name }

// Connect builds the transport, performs the MCP handshake and stores the
// resulting protocol session. Connecting an already-connected server is a
// no-op.
func (s *SDKServer) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.session != nil {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	transport, err := transportFor(s.config)
	if err != nil {
		return err
	}
	client := mcp.NewClient(&mcp.Implementation{Name: clientName, Version: clientVersion}, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("mcpconn: connect %q: %w", s.name, err)
	}

	s.mu.Lock()
	if s.session != nil {
		// Lost the race against a concurrent Connect; keep the first.
		s.mu.Unlock()
		return session.Close()
	}
	s.session = session
	s.mu.Unlock()
	return nil
}

// Close tears down the protocol session and drops the tool cache.
// Closing a server that never connected is a no-op.
func (s *SDKServer) Close() error {
	s.mu.Lock()
	session := s.session
	s.session = nil
	s.tools = nil
	s.toolsValid = false
	s.mu.Unlock()
	if session == nil {
		return nil
	}
	return session.Close()
}

// ListTools returns the server's tools, serving from cache when a prior
// call succeeded and the cache has not been invalidated.
func (s *SDKServer) ListTools(ctx context.Context) ([]ToolInfo, error) {
	s.mu.Lock()
	if s.toolsValid {
		tools := append([]ToolInfo(nil), s.tools...)
		s.mu.Unlock()
		return tools, nil
	}
	session := s.session
	s.mu.Unlock()
	if session == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotConnected, s.name)
	}

	res, err := session.ListTools(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("mcpconn: list tools %q: %w", s.name, err)
	}
	tools := make([]ToolInfo, 0, len(res.Tools))
	for _, t := range res.Tools {
		tools = append(tools, toolInfoFromSDK(t))
	}

	s.mu.Lock()
	s.tools = tools
	s.toolsValid = true
	s.mu.Unlock()
	return append([]ToolInfo(nil), tools...), nil
}

// CallTool invokes a tool by name and returns the concatenated text
// content of the result. A result flagged as an error by the server is
// returned as a Go error.
func (s *SDKServer) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	s.mu.Lock()
	session := s.session
	s.mu.Unlock()
	if session == nil {
		return "", fmt.Errorf("%w: %s", ErrNotConnected, s.name)
	}

	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return "", fmt.Errorf("mcpconn: call tool %q on %q: %w", name, s.name, err)
	}
	text := contentText(res.Content)
	if res.IsError {
		return "", fmt.Errorf("mcpconn: tool %q on %q failed: %s", name, s.name, text)
	}
	return text, nil
}

// InvalidateToolsCache discards the cached tool list so the next
// ListTools hits the server again.
func (s *SDKServer) InvalidateToolsCache() {
	s.mu.Lock()
	s.tools = nil
	s.toolsValid = false
	s.mu.Unlock()
}

// ListResources discovers available resources from the server.
func (s *SDKServer) ListResources(ctx context.Context) ([]Resource, error) {
	s.mu.Lock()
	session := s.session
	s.mu.Unlock()
	if session == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotConnected, s.name)
	}

	res, err := session.ListResources(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("mcpconn: list resources %q: %w", s.name, err)
	}
	resources := make([]Resource, 0, len(res.Resources))
	for _, r := range res.Resources {
		resources = append(resources, Resource{
			URI:         r.URI,
			Name:        r.Name,
			Description: r.Description,
			MIMEType:    r.MIMEType,
		})
	}
	return resources, nil
}

// ReadResource reads a resource by URI and returns its text contents.
func (s *SDKServer) ReadResource(ctx context.Context, uri string) (string, error) {
	s.mu.Lock()
	session := s.session
	s.mu.Unlock()
	if session == nil {
		return "", fmt.Errorf("%w: %s", ErrNotConnected, s.name)
	}

	res, err := session.ReadResource(ctx, &mcp.ReadResourceParams{URI: uri})
	if err != nil {
		return "", fmt.Errorf("mcpconn: read resource %q from %q: %w", uri, s.name, err)
	}
	var sb strings.Builder
	for _, c := range res.Contents {
		sb.WriteString(c.Text)
	}
	return sb.String(), nil
}

// toolInfoFromSDK converts a wire tool into a ToolInfo, flattening its
// input schema to raw JSON.
func toolInfoFromSDK(t *mcp.Tool) ToolInfo {
	info := ToolInfo{Name: t.Name, Description: t.Description}
	if t.InputSchema != nil {
		if raw, err := json.Marshal(t.InputSchema); err == nil {
			info.InputSchema = raw
		}
	}
	return info
}

// contentText concatenates the text blocks of a tool result.
func contentText(content []mcp.Content) string {
	var sb strings.Builder
	for _, c := range content {
		if tc, ok := c.(*mcp.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}

// transportFor creates an SDK transport for the given config based on its
// Transport type. When the type is unset, stdio is inferred from Command
// and an HTTP transport from URL, preferring SSE for endpoints ending in
// "/sse".
func transportFor(cfg ServerConfig) (mcp.Transport, error) {
	switch cfg.Transport {
	case TransportStdio:
		return stdioTransport(cfg)
	case TransportSSE:
		if cfg.URL == "" {
			return nil, fmt.Errorf("%w: sse transport requires URL", ErrInvalidConfig)
		}
		return &mcp.SSEClientTransport{Endpoint: cfg.URL}, nil
	case TransportStreamableHTTP:
		if cfg.URL == "" {
			return nil, fmt.Errorf("%w: streamable-http transport requires URL", ErrInvalidConfig)
		}
		return &mcp.StreamableClientTransport{Endpoint: cfg.URL}, nil
	default:
		if cfg.Command != "" {
			return stdioTransport(cfg)
		}
		if cfg.URL != "" {
			if strings.HasSuffix(strings.TrimSpace(cfg.URL), "/sse") {
				return &mcp.SSEClientTransport{Endpoint: cfg.URL}, nil
			}
			return &mcp.StreamableClientTransport{Endpoint: cfg.URL}, nil
		}
		return nil, ErrInvalidConfig
	}
}

// stdioTransport builds a subprocess transport from the config.
func stdioTransport(cfg ServerConfig) (mcp.Transport, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("%w: stdio transport requires command", ErrInvalidConfig)
	}
	cmd := exec.Command(cfg.Command, cfg.Args...)
	if len(cfg.Env) > 0 {
		env := os.Environ()
		for k, v := range cfg.Env {
			env = append(env, k+"="+v)
		}
		cmd.Env = env
	}
	return &mcp.CommandTransport{Command: cmd}, nil
}

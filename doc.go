// Package mcpconn manages the connection lifecycle for a pool of MCP
// (Model Context Protocol) tool-provider servers on behalf of an agent
// framework.
//
// Individual servers are unreliable: a connect can fail or hang, and a
// close can outlive any reasonable deadline. The pool makes them look like
// one coherent, recoverable unit. It connects every server, tracks which
// attempts succeeded, supports selective or full reconnection, and
// guarantees orderly shutdown in reverse connect order even when an
// operation never returns.
//
// # Quick Start
//
//	srv, _ := mcpconn.NewSDKServer("context7", mcpconn.ServerConfig{
//	    Command:   "npx",
//	    Args:      []string{"-y", "@context7/mcp"},
//	    Transport: mcpconn.TransportStdio,
//	})
//	sess, err := mcpconn.Open(ctx, []mcpconn.Server{srv})
//	if err != nil {
//	    return err
//	}
//	defer sess.Close(ctx)
//
//	for _, s := range sess.Active() {
//	    tools, _ := s.ListTools(ctx)
//	    // bridge tools into the agent's registry
//	}
//
// # Main types
//
//   - [Server] is the capability contract this package drives but does not
//     implement.
//   - [SDKServer] is a production Server backed by the official MCP Go SDK
//     (stdio subprocess, SSE, or streamable HTTP).
//   - [Session] owns the full server list and its aggregate
//     connect/fail/error state.
//
// Tool schema translation, tool bridging, and the agent run loop are out of
// scope; they consume the pool this package maintains.
package mcpconn

// Package transport implements the two MCP wire transports (stdio child
// process, HTTP+SSE) behind a single interface, grounded on the
// transporter/connector split other MCP clients in the wild use to keep
// per-transport I/O out of the shared protocol logic (§4.2, §6).
package transport

import (
	"context"

	"github.com/hydai/mcplug/pkg/mcplug"
)

// Transport is the four-operation surface the runtime drives. A Transport is
// owned by exactly one goroutine at a time for Initialize, but Call/ListTools
// may be invoked concurrently once initialized; implementations serialize
// their own wire access.
type Transport interface {
	// Initialize performs the MCP handshake and returns the server's
	// advertised identity.
	Initialize(ctx context.Context) (*mcplug.ServerInfo, error)

	// ListTools returns the server's tool catalogue.
	ListTools(ctx context.Context) ([]mcplug.ToolDefinition, error)

	// CallTool invokes a named tool with the given arguments.
	CallTool(ctx context.Context, name string, args map[string]any) (*mcplug.CallResult, error)

	// Close releases the transport's underlying resources (child process,
	// HTTP connections). Idempotent.
	Close() error
}

// protocolVersion is the MCP protocol version mcplug advertises during the
// initialize handshake.
const protocolVersion = "2024-11-05"

// clientInfo identifies mcplug itself to servers during initialize.
var clientInfo = map[string]any{
	"name":    "mcplug",
	"version": "0.1.0",
}

func initializeParams() map[string]any {
	return map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities":    map[string]any{},
		"clientInfo":      clientInfo,
	}
}

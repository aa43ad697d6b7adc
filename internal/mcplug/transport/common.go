package transport

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/hydai/mcplug/internal/mcplug/jsonrpc"
	"github.com/hydai/mcplug/pkg/mcplug"
)

// wrapCallErr classifies a transport-level failure into the closed error
// taxonomy. Context cancellation/deadline errors are passed through
// unwrapped: the Runtime owns timeout policy (§4.4) and is the one place
// that knows the configured deadline, so it is the one that turns a
// deadline expiry into a Timeout carrying elapsed duration.
func wrapCallErr(server, op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	if _, ok := mcplug.AsMcplugError(err); ok {
		return err
	}
	return mcplug.ErrTransportError(server, "request failed", err)
}

// rpcErrToMcplug maps a JSON-RPC error member to AuthRequired or
// ProtocolError depending on its content (§4.2).
func rpcErrToMcplug(server string, rpcErr *jsonrpc.RPCError) error {
	if rpcErr.IsAuthChallenge() {
		return mcplug.ErrAuthRequired(server, rpcErr.Message)
	}
	return mcplug.ErrProtocolError(server, rpcErr.Error(), nil)
}

// rpcErrToMcplugTool is rpcErrToMcplug with the failing tool name attached
// for tools/call failures.
func rpcErrToMcplugTool(server, tool string, rpcErr *jsonrpc.RPCError) error {
	if rpcErr.IsAuthChallenge() {
		return mcplug.ErrAuthRequired(server, rpcErr.Message)
	}
	e := mcplug.ErrProtocolError(server, rpcErr.Error(), nil)
	e.Tool = tool
	return e
}

// decodeCallResult parses a tools/call result envelope into a CallResult,
// preserving the raw JSON for --raw consumers (§8 property 6).
func decodeCallResult(server, tool string, raw json.RawMessage) (*mcplug.CallResult, error) {
	var result struct {
		Content []mcplug.ContentBlock `json:"content"`
		IsError bool                  `json:"isError"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		e := mcplug.ErrProtocolError(server, "failed to decode tools/call result", err)
		e.Tool = tool
		return nil, e
	}

	cr := &mcplug.CallResult{Content: result.Content, RawJSON: raw}
	if result.IsError {
		e := mcplug.ErrProtocolError(server, cr.Text(), nil)
		e.Tool = tool
		return nil, e
	}
	return cr, nil
}

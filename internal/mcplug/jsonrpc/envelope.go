// Package jsonrpc implements the request/response/notification envelopes
// and id allocation used by both mcplug transports. It knows nothing about
// stdio or HTTP — only the wire shape (§4.2, §6).
package jsonrpc

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
)

const Version = "2.0"

// Request is an outbound JSON-RPC call. ID is omitted (nil) for
// notifications.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      *int64 `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// Response is an inbound JSON-RPC reply, matched to an outstanding Request
// by ID. Exactly one of Result or Error is populated on success paths; both
// nil is a notification, which the core accepts and ignores (§4.2).
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"` // populated for notifications
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// IsNotification reports whether this message carries no id (a server
// notification, §4.2).
func (r *Response) IsNotification() bool {
	return r.ID == nil
}

// RPCError is the `error` member of a JSON-RPC response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// IDCounter allocates monotonically increasing request ids, one per
// transport instance (§4.2: "monotonically increasing numeric id
// (per-transport counter)").
type IDCounter struct {
	n int64
}

// Next returns the next id, starting at 1.
func (c *IDCounter) Next() int64 {
	return atomic.AddInt64(&c.n, 1)
}

// NewRequest builds a Request with an allocated id.
func NewRequest(id int64, method string, params any) Request {
	return Request{JSONRPC: Version, ID: &id, Method: method, Params: params}
}

// NewNotification builds a Request with no id.
func NewNotification(method string, params any) Request {
	return Request{JSONRPC: Version, Method: method, Params: params}
}

// authChallengeMarkers are substrings in a JSON-RPC error's message/data
// that indicate the server wants authentication rather than a generic
// protocol failure (§4.2: "the error's data or message indicates
// authentication is required").
var authChallengeMarkers = []string{
	"unauthorized", "unauthenticated", "auth required", "authentication required",
	"oauth", "bearer", "401",
}

// IsAuthChallenge reports whether an RPCError should be surfaced as
// AuthRequired instead of a generic ProtocolError.
func (e *RPCError) IsAuthChallenge() bool {
	if e == nil {
		return false
	}
	haystack := strings.ToLower(e.Message)
	if s, ok := e.Data.(string); ok {
		haystack += " " + strings.ToLower(s)
	}
	for _, marker := range authChallengeMarkers {
		if strings.Contains(haystack, marker) {
			return true
		}
	}
	return false
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// Marshal renders req as compact single-line JSON with no embedded
// newlines, as the stdio framing (§6) requires.
func Marshal(req Request) ([]byte, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	if strings.ContainsAny(string(b), "\n\r") {
		return nil, fmt.Errorf("jsonrpc: request for method %q serialized with embedded newline", req.Method)
	}
	return b, nil
}

// Unmarshal decodes a single JSON-RPC message line into a Response.
func Unmarshal(line []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hydai/mcplug/internal/mcplug/jsonrpc"
	"github.com/hydai/mcplug/pkg/mcplug"
)

// SSE is the HTTP transport: every call is a POST of one JSON-RPC request;
// the response is either a plain application/json body or a
// text/event-stream carrying one or more "data:" events, the first of them
// that decodes as a response with the request's id being the answer
// (§4.2, §6).
type SSE struct {
	serverName string
	baseURL    string
	headers    map[string]string
	client     *http.Client
	ids        jsonrpc.IDCounter
}

// NewSSE builds an HTTP+SSE transport for cfg. A cleartext (http://) baseUrl
// is rejected unless the caller passes allowInsecure (the CLI's
// --allow-insecure-http flag), matching the transport's refusal to send
// bearer tokens over an unencrypted channel by default.
func NewSSE(cfg *mcplug.ServerConfig, allowInsecure bool) (*SSE, error) {
	if strings.HasPrefix(cfg.BaseURL, "http://") && !allowInsecure {
		return nil, mcplug.ErrConnectionFailed(cfg.Name,
			"refusing to use cleartext http:// baseUrl (pass --allow-insecure-http to override)", nil)
	}

	headers := make(map[string]string, len(cfg.Headers))
	for k, v := range cfg.Headers {
		headers[k] = v
	}

	return &SSE{
		serverName: cfg.Name,
		baseURL:    cfg.BaseURL,
		headers:    headers,
		client:     &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (s *SSE) call(ctx context.Context, method string, params any) (*jsonrpc.Response, error) {
	id := s.ids.Next()
	req := jsonrpc.NewRequest(id, method, params)
	body, err := json.Marshal(req)
	if err != nil {
		return nil, mcplug.ErrProtocolError(s.serverName, "failed to encode request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, mcplug.ErrTransportError(s.serverName, "failed to build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json, text/event-stream")
	for k, v := range s.headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, mcplug.ErrConnectionFailed(s.serverName, "request failed", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode == http.StatusUnauthorized {
		return nil, mcplug.ErrAuthRequired(s.serverName, fmt.Sprintf("server returned %d", httpResp.StatusCode))
	}

	contentType := httpResp.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(contentType, "text/event-stream"):
		return parseSSEResponse(s.serverName, httpResp.Body, id)
	case strings.HasPrefix(contentType, "application/json"):
		data, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return nil, mcplug.ErrTransportError(s.serverName, "failed to read response body", err)
		}
		if httpResp.StatusCode != http.StatusOK {
			return nil, mcplug.ErrProtocolError(s.serverName,
				fmt.Sprintf("server returned %d: %s", httpResp.StatusCode, string(data)), nil)
		}
		resp, err := jsonrpc.Unmarshal(data)
		if err != nil {
			return nil, mcplug.ErrProtocolError(s.serverName, "failed to decode response", err)
		}
		return resp, nil
	default:
		return nil, mcplug.ErrTransportError(s.serverName,
			fmt.Sprintf("server returned %d with unsupported content type %q", httpResp.StatusCode, contentType), nil)
	}
}

// parseSSEResponse reads a text/event-stream body, stopping at the first
// "data:" event that decodes as a JSON-RPC response carrying the given
// expected id (§4.3.b, §6). Events that fail to parse, or that parse but
// carry a different id (keepalives, progress notifications, responses to a
// different in-flight call multiplexed on the same stream), are ignored
// rather than treated as the answer.
func parseSSEResponse(server string, body io.Reader, expectedID int64) (*jsonrpc.Response, error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	var dataLines []string

	tryMatch := func() (*jsonrpc.Response, bool) {
		if len(dataLines) == 0 {
			return nil, false
		}
		payload := strings.Join(dataLines, "\n")
		dataLines = nil
		resp, err := jsonrpc.Unmarshal([]byte(payload))
		if err != nil {
			return nil, false // skip malformed events; the stream may carry non-JSON-RPC keepalives
		}
		if resp.ID == nil || *resp.ID != expectedID {
			return nil, false // keepalive, progress notification, or another call's response
		}
		return resp, true
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if resp, ok := tryMatch(); ok {
				return resp, nil
			}
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		default:
			// event:, id:, retry: and comment lines are not needed for
			// JSON-RPC framing.
		}
	}
	if resp, ok := tryMatch(); ok {
		return resp, nil
	}

	if err := scanner.Err(); err != nil {
		return nil, mcplug.ErrTransportError(server, "failed to read event stream", err)
	}
	return nil, mcplug.ErrProtocolError(server, "event stream closed with no matching response event", nil)
}

func (s *SSE) Initialize(ctx context.Context) (*mcplug.ServerInfo, error) {
	resp, err := s.call(ctx, "initialize", initializeParams())
	if err != nil {
		return nil, wrapCallErr(s.serverName, "initialize", err)
	}
	if resp.Error != nil {
		return nil, rpcErrToMcplug(s.serverName, resp.Error)
	}

	var info mcplug.ServerInfo
	if err := json.Unmarshal(resp.Result, &info); err != nil {
		return nil, mcplug.ErrProtocolError(s.serverName, "failed to decode initialize result", err)
	}

	// notifications/initialized is fire-and-forget; a non-2xx here is not
	// fatal to the session.
	_, _ = s.call(ctx, "notifications/initialized", nil)

	return &info, nil
}

func (s *SSE) ListTools(ctx context.Context) ([]mcplug.ToolDefinition, error) {
	resp, err := s.call(ctx, "tools/list", nil)
	if err != nil {
		return nil, wrapCallErr(s.serverName, "tools/list", err)
	}
	if resp.Error != nil {
		return nil, rpcErrToMcplug(s.serverName, resp.Error)
	}

	var result struct {
		Tools []mcplug.ToolDefinition `json:"tools"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, mcplug.ErrProtocolError(s.serverName, "failed to decode tools/list result", err)
	}
	return result.Tools, nil
}

func (s *SSE) CallTool(ctx context.Context, name string, args map[string]any) (*mcplug.CallResult, error) {
	params := map[string]any{"name": name, "arguments": args}
	resp, err := s.call(ctx, "tools/call", params)
	if err != nil {
		return nil, wrapCallErr(s.serverName, name, err)
	}
	if resp.Error != nil {
		return nil, rpcErrToMcplugTool(s.serverName, name, resp.Error)
	}
	return decodeCallResult(s.serverName, name, resp.Result)
}

// Close releases the transport's HTTP connection pool.
func (s *SSE) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydai/mcplug/pkg/mcplug"
)

func TestSSE_RejectsCleartextByDefault(t *testing.T) {
	cfg := &mcplug.ServerConfig{Name: "demo", BaseURL: "http://example.com/mcp"}
	_, err := NewSSE(cfg, false)
	require.Error(t, err)
	mcErr, ok := mcplug.AsMcplugError(err)
	require.True(t, ok)
	assert.Equal(t, mcplug.KindConnectionFailed, mcErr.Kind)
}

func TestSSE_AllowsCleartextWhenOptedIn(t *testing.T) {
	cfg := &mcplug.ServerConfig{Name: "demo", BaseURL: "http://example.com/mcp"}
	_, err := NewSSE(cfg, true)
	require.NoError(t, err)
}

func TestSSE_DirectJSONResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"protocolVersion":"2024-11-05","name":"demo","version":"1.0"}}`))
	}))
	defer srv.Close()

	cfg := &mcplug.ServerConfig{Name: "demo", BaseURL: srv.URL}
	tr, err := NewSSE(cfg, true)
	require.NoError(t, err)

	info, err := tr.Initialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "demo", info.Name)
}

func TestSSE_EventStreamResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		w.Write([]byte("event: progress\ndata: {\"jsonrpc\":\"2.0\",\"method\":\"notify\"}\n\n"))
		if flusher != nil {
			flusher.Flush()
		}
		w.Write([]byte("data: {\"jsonrpc\":\"2.0\",\"id\":1,\"result\":{\"tools\":[{\"name\":\"echo\"}]}}\n\n"))
	}))
	defer srv.Close()

	cfg := &mcplug.ServerConfig{Name: "demo", BaseURL: srv.URL}
	tr, err := NewSSE(cfg, true)
	require.NoError(t, err)

	tools, err := tr.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "echo", tools[0].Name)
}

func TestSSE_EventStreamIgnoresKeepaliveAfterMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		w.Write([]byte("data: {\"jsonrpc\":\"2.0\",\"id\":1,\"result\":{\"tools\":[{\"name\":\"echo\"}]}}\n\n"))
		if flusher != nil {
			flusher.Flush()
		}
		// A trailing keepalive that happens to decode cleanly as an empty
		// Response (no id, no result, no error) must not overwrite the
		// already-matched result above.
		w.Write([]byte("data: {}\n\n"))
	}))
	defer srv.Close()

	cfg := &mcplug.ServerConfig{Name: "demo", BaseURL: srv.URL}
	tr, err := NewSSE(cfg, true)
	require.NoError(t, err)

	tools, err := tr.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "echo", tools[0].Name)
}

func TestSSE_EventStreamNoMatchingIDIsProtocolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("data: {\"jsonrpc\":\"2.0\",\"id\":99,\"result\":{\"tools\":[]}}\n\n"))
	}))
	defer srv.Close()

	cfg := &mcplug.ServerConfig{Name: "demo", BaseURL: srv.URL}
	tr, err := NewSSE(cfg, true)
	require.NoError(t, err)

	_, err = tr.ListTools(context.Background())
	require.Error(t, err)
	mcErr, ok := mcplug.AsMcplugError(err)
	require.True(t, ok)
	assert.Equal(t, mcplug.KindProtocolError, mcErr.Kind)
}

func TestSSE_UnauthorizedMapsToAuthRequired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	cfg := &mcplug.ServerConfig{Name: "demo", BaseURL: srv.URL}
	tr, err := NewSSE(cfg, true)
	require.NoError(t, err)

	_, err = tr.Initialize(context.Background())
	require.Error(t, err)
	mcErr, ok := mcplug.AsMcplugError(err)
	require.True(t, ok)
	assert.Equal(t, mcplug.KindAuthRequired, mcErr.Kind)
}

func TestSSE_ToolCallErrorMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"unknown tool"}}`))
	}))
	defer srv.Close()

	cfg := &mcplug.ServerConfig{Name: "demo", BaseURL: srv.URL}
	tr, err := NewSSE(cfg, true)
	require.NoError(t, err)

	_, err = tr.CallTool(context.Background(), "missing", nil)
	require.Error(t, err)
	mcErr, ok := mcplug.AsMcplugError(err)
	require.True(t, ok)
	assert.Equal(t, "missing", mcErr.Tool)
}

func TestSSE_HeadersForwarded(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"tools":[]}}`))
	}))
	defer srv.Close()

	cfg := &mcplug.ServerConfig{
		Name:    "demo",
		BaseURL: srv.URL,
		Headers: map[string]string{"Authorization": "Bearer xyz"},
	}
	tr, err := NewSSE(cfg, true)
	require.NoError(t, err)

	_, err = tr.ListTools(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer xyz", gotAuth)
}

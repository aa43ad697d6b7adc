package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hydai/mcplug/pkg/mcplug"
)

func TestRedactedHeaders_MasksAuthorization(t *testing.T) {
	out := redactedHeaders(map[string]string{
		"Authorization": "Bearer secret-token",
		"X-Request-Id":  "abc-123",
	})
	assert.Equal(t, "REDACTED", out["Authorization"])
	assert.Equal(t, "abc-123", out["X-Request-Id"])
}

func TestRedactedHeaders_Empty(t *testing.T) {
	out := redactedHeaders(nil)
	assert.Empty(t, out)
}

func TestTransportLabel(t *testing.T) {
	assert.Equal(t, "http", transportLabel(&mcplug.ServerConfig{BaseURL: "https://example.com"}))
	assert.Equal(t, "stdio", transportLabel(&mcplug.ServerConfig{Command: "mcp-server"}))
}

func TestLifecycleLabel(t *testing.T) {
	assert.Equal(t, "keep-alive", lifecycleLabel(mcplug.LifecycleKeepAlive))
	assert.Equal(t, "ephemeral", lifecycleLabel(mcplug.LifecycleEphemeral))
	assert.Equal(t, "ephemeral (default)", lifecycleLabel(mcplug.LifecycleUnset))
}

func TestNewConfigCommand_RegistersWatch(t *testing.T) {
	root := newConfigCommand(&globalOptions{})
	watch, _, err := root.Find([]string{"watch"})
	assert.NoError(t, err)
	assert.Equal(t, "watch", watch.Name())
}

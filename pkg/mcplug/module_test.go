package mcplug

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModule_NewResolvesConfigAndBuildsRuntime(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mcplug.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"mcpServers": {"demo": {"command": "true"}}}`), 0o644))

	cfg := (&Config{ConfigPath: path}).Complete()
	m, err := cfg.New(context.Background())
	require.NoError(t, err)
	defer m.Close()

	current := m.CurrentConfig()
	require.Contains(t, current.Servers, "demo")
	assert.NotNil(t, m.CurrentRuntime())
}

func TestModule_CloseWithoutNewIsSafe(t *testing.T) {
	m := &Module{}
	assert.NoError(t, m.Close())
}

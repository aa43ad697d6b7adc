package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestResolve_ExplicitPathWins(t *testing.T) {
	dir := t.TempDir()
	explicit := filepath.Join(dir, "explicit.json")
	writeFile(t, explicit, `{"mcpServers": {"a": {"command": "explicit-cmd"}}}`)

	cfg, err := Resolve(Options{
		ExplicitPath: explicit,
		Cwd:          dir,
		Getenv:       func(string) string { return "" },
		Home:         dir,
	})
	require.NoError(t, err)
	require.Contains(t, cfg.Servers, "a")
	assert.Equal(t, "explicit-cmd", cfg.Servers["a"].Command)
}

func TestResolve_FirstWinsAcrossSources(t *testing.T) {
	dir := t.TempDir()
	home := filepath.Join(dir, "home")
	cwd := filepath.Join(dir, "cwd")

	explicit := filepath.Join(dir, "explicit.json")
	writeFile(t, explicit, `{"mcpServers": {"shared": {"command": "from-explicit"}}}`)
	writeFile(t, filepath.Join(cwd, "config", "mcplug.json"),
		`{"mcpServers": {"shared": {"command": "from-cwd"}, "only-cwd": {"command": "cwd-only"}}}`)

	cfg, err := Resolve(Options{
		ExplicitPath: explicit,
		Cwd:          cwd,
		Home:         home,
		Getenv:       func(string) string { return "" },
	})
	require.NoError(t, err)
	assert.Equal(t, "from-explicit", cfg.Servers["shared"].Command, "explicit path must win over cwd config")
	require.Contains(t, cfg.Servers, "only-cwd")
	assert.Equal(t, "cwd-only", cfg.Servers["only-cwd"].Command)
}

func TestResolve_NoDeepMergeOfFields(t *testing.T) {
	dir := t.TempDir()
	explicit := filepath.Join(dir, "explicit.json")
	cwd := filepath.Join(dir, "cwd")
	writeFile(t, explicit, `{"mcpServers": {"svc": {"command": "only-command-here"}}}`)
	writeFile(t, filepath.Join(cwd, "config", "mcplug.json"),
		`{"mcpServers": {"svc": {"command": "other", "description": "should not appear"}}}`)

	cfg, err := Resolve(Options{
		ExplicitPath: explicit,
		Cwd:          cwd,
		Home:         filepath.Join(dir, "home"),
		Getenv:       func(string) string { return "" },
	})
	require.NoError(t, err)
	assert.Equal(t, "only-command-here", cfg.Servers["svc"].Command)
	assert.Empty(t, cfg.Servers["svc"].Description, "a server is an indivisible unit; fields must not merge across sources")
}

func TestResolve_JSONCSupported(t *testing.T) {
	dir := t.TempDir()
	explicit := filepath.Join(dir, "explicit.jsonc")
	writeFile(t, explicit, "{\n  // a comment\n  \"mcpServers\": {\"a\": {\"command\": \"x\"}}\n}")

	cfg, err := Resolve(Options{
		ExplicitPath: explicit,
		Cwd:          dir,
		Home:         dir,
		Getenv:       func(string) string { return "" },
	})
	require.NoError(t, err)
	require.Contains(t, cfg.Servers, "a")
}

func TestResolve_MissingFilesAreSkipped(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Resolve(Options{
		ExplicitPath: filepath.Join(dir, "does-not-exist.json"),
		Cwd:          dir,
		Home:         dir,
		Getenv:       func(string) string { return "" },
	})
	require.NoError(t, err)
	assert.Empty(t, cfg.Servers)
}

func TestResolve_MalformedJSONIsError(t *testing.T) {
	dir := t.TempDir()
	explicit := filepath.Join(dir, "explicit.json")
	writeFile(t, explicit, `{not valid json`)

	_, err := Resolve(Options{
		ExplicitPath: explicit,
		Cwd:          dir,
		Home:         dir,
		Getenv:       func(string) string { return "" },
	})
	require.Error(t, err)
}

func TestResolve_EnvVarConfigPath(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, "env-config.json")
	writeFile(t, envPath, `{"mcpServers": {"a": {"command": "from-env-path"}}}`)

	cfg, err := Resolve(Options{
		Cwd:  dir,
		Home: dir,
		Getenv: func(name string) string {
			if name == "MCPLUG_CONFIG" {
				return envPath
			}
			return ""
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "from-env-path", cfg.Servers["a"].Command)
}

func TestResolve_EditorImportContributesOnlyMissingNames(t *testing.T) {
	dir := t.TempDir()
	home := filepath.Join(dir, "home")
	cwd := filepath.Join(dir, "cwd")

	writeFile(t, filepath.Join(cwd, "config", "mcplug.json"),
		`{"mcpServers": {"already-here": {"command": "native"}}, "imports": ["cursor"]}`)
	writeFile(t, filepath.Join(home, ".cursor", "mcp.json"),
		`{"mcpServers": {"already-here": {"command": "should-not-override"}, "from-cursor": {"command": "cursor-cmd"}}}`)

	cfg, err := Resolve(Options{
		Cwd:    cwd,
		Home:   home,
		Getenv: func(string) string { return "" },
	})
	require.NoError(t, err)
	assert.Equal(t, "native", cfg.Servers["already-here"].Command)
	require.Contains(t, cfg.Servers, "from-cursor")
	assert.Equal(t, "cursor-cmd", cfg.Servers["from-cursor"].Command)
}

func TestResolve_InvalidServerFailsValidation(t *testing.T) {
	dir := t.TempDir()
	explicit := filepath.Join(dir, "explicit.json")
	writeFile(t, explicit, `{"mcpServers": {"bad": {}}}`)

	_, err := Resolve(Options{
		ExplicitPath: explicit,
		Cwd:          dir,
		Home:         dir,
		Getenv:       func(string) string { return "" },
	})
	require.Error(t, err)
}

func TestResolve_EnvExpansionAppliedAfterMerge(t *testing.T) {
	dir := t.TempDir()
	explicit := filepath.Join(dir, "explicit.json")
	writeFile(t, explicit, `{"mcpServers": {"a": {"command": "run", "env": {"KEY": "${SECRET}"}}}}`)

	cfg, err := Resolve(Options{
		ExplicitPath: explicit,
		Cwd:          dir,
		Home:         dir,
		Getenv:       func(string) string { return "" },
		Lookup: func(name string) (string, bool) {
			if name == "SECRET" {
				return "sh", true
			}
			return "", false
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "sh", cfg.Servers["a"].Env["KEY"])
}

func TestResolve_PreservesDeclaredServerOrderWithinOneFile(t *testing.T) {
	dir := t.TempDir()
	explicit := filepath.Join(dir, "explicit.json")
	writeFile(t, explicit, `{"mcpServers": {
		"zeta": {"command": "z"},
		"alpha": {"command": "a"},
		"mike": {"command": "m"},
		"bravo": {"command": "b"},
		"echo": {"command": "e"}
	}}`)

	cfg, err := Resolve(Options{
		ExplicitPath: explicit,
		Cwd:          dir,
		Home:         dir,
		Getenv:       func(string) string { return "" },
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha", "mike", "bravo", "echo"}, cfg.Order,
		"Order must mirror the file's declared key order, not Go's randomized map order")
}

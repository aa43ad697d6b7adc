// Package config implements the mcplug configuration resolver: discovery
// across layered sources, JSONC-tolerant parsing, recursive environment
// expansion, first-wins merging, and editor-config import (§4.1).
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hydai/mcplug/pkg/mcplug"
)

// rawServerConfig is the on-disk shape of a server entry, before env
// expansion and before conversion to the public mcplug.ServerConfig.
type rawServerConfig struct {
	Description string            `json:"description,omitempty"`
	BaseURL     string            `json:"baseUrl,omitempty"`
	Command     string            `json:"command,omitempty"`
	Args        []string          `json:"args,omitempty"`
	Env         map[string]string `json:"env,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Lifecycle   string            `json:"lifecycle,omitempty"` // "keep-alive" | "ephemeral"
}

// rawFile is the on-disk shape of an mcplug.json(c) / mcporter.json(c) file.
type rawFile struct {
	MCPServers orderedServerMap `json:"mcpServers"`
	Imports    []string         `json:"imports,omitempty"`
}

// orderedServerMap decodes a JSON object of server entries while also
// recording the declaration order of its keys: decoding straight into a Go
// map randomizes iteration order, which would make `list`/`config show`
// output nondeterministic across runs for a file declaring more than one
// server (§3: "insertion order preserved for display").
type orderedServerMap struct {
	byName map[string]rawServerConfig
	order  []string
}

func (m *orderedServerMap) UnmarshalJSON(data []byte) error {
	var byName map[string]rawServerConfig
	if err := json.Unmarshal(data, &byName); err != nil {
		return err
	}
	order, err := objectKeyOrder(data)
	if err != nil {
		return err
	}
	m.byName = byName
	m.order = order
	return nil
}

// objectKeyOrder returns a JSON object's top-level keys in declaration
// order by streaming tokens rather than decoding into a map.
func objectKeyOrder(data []byte) ([]string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return nil, nil
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("config: unexpected non-string object key token %v", tok)
		}
		keys = append(keys, key)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

func (r *rawServerConfig) toServerConfig(name, sourceDir string) *mcplug.ServerConfig {
	lc := mcplug.LifecycleUnset
	switch r.Lifecycle {
	case "keep-alive":
		lc = mcplug.LifecycleKeepAlive
	case "ephemeral":
		lc = mcplug.LifecycleEphemeral
	}
	env := make(map[string]string, len(r.Env))
	for k, v := range r.Env {
		env[k] = v
	}
	headers := make(map[string]string, len(r.Headers))
	for k, v := range r.Headers {
		headers[k] = v
	}
	args := make([]string, len(r.Args))
	copy(args, r.Args)

	return &mcplug.ServerConfig{
		Name:        name,
		Description: r.Description,
		BaseURL:     r.BaseURL,
		Command:     r.Command,
		Args:        args,
		Env:         env,
		Headers:     headers,
		Lifecycle:   lc,
		SourceDir:   sourceDir,
	}
}

// source is one successfully-loaded config file, in discovery-precedence
// order (index 0 is highest precedence).
type source struct {
	path string
	file *rawFile
}

// Options controls resolution beyond the fixed discovery order.
type Options struct {
	// ExplicitPath is the highest-precedence source (§4.1 item 1).
	ExplicitPath string
	// Lookup overrides os.LookupEnv for env-expansion and discovery
	// (tests only; nil means os.LookupEnv).
	Lookup lookupFunc
	// Getenv overrides os.Getenv for simple single-value reads like
	// MCPLUG_CONFIG (tests only; nil means os.Getenv).
	Getenv func(string) string
	// Home overrides the resolved home directory for editor-import
	// candidate paths (tests only; empty means os.UserHomeDir()).
	Home string
	// Cwd overrides the working directory consulted for
	// ./config/mcplug.json (tests only; empty means os.Getwd()).
	Cwd string
}

func (o *Options) lookup() lookupFunc {
	if o.Lookup != nil {
		return o.Lookup
	}
	return defaultLookup
}

func (o *Options) getenv() func(string) string {
	if o.Getenv != nil {
		return o.Getenv
	}
	return os.Getenv
}

// Resolve runs the full §4.1 pipeline: discover candidate files in
// precedence order, parse the ones that exist, merge first-wins by server
// name, resolve editor imports for names not already present, then
// env-expand every string field. Returns a fully resolved McplugConfig, or
// a ConfigError naming the offending path.
func Resolve(opts Options) (*mcplug.McplugConfig, error) {
	var sources []source

	candidates, err := discover(opts)
	if err != nil {
		return nil, err
	}

	for _, path := range candidates {
		rf, ok, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		sources = append(sources, source{path: path, file: rf})
	}

	merged := mcplug.NewMcplugConfig()
	seenImports := make(map[string]bool)

	for _, src := range sources {
		sourceDir := filepath.Dir(src.path)
		for _, name := range src.file.MCPServers.order {
			if _, exists := merged.Servers[name]; exists {
				continue // first-wins
			}
			raw := src.file.MCPServers.byName[name]
			merged.Servers[name] = raw.toServerConfig(name, sourceDir)
			merged.Order = append(merged.Order, name)
		}
		for _, imp := range src.file.Imports {
			if !seenImports[imp] {
				seenImports[imp] = true
				merged.Imports = append(merged.Imports, imp)
			}
		}
	}

	if err := applyImports(merged, opts); err != nil {
		return nil, err
	}

	if err := expandAll(merged, opts); err != nil {
		return nil, err
	}

	for _, name := range merged.Order {
		if err := merged.Servers[name].Validate(); err != nil {
			return nil, err
		}
	}

	return merged, nil
}

// discover returns the ordered list of candidate file paths per §4.1,
// highest precedence first. Files are existence-optional; the caller
// skips missing ones.
func discover(opts Options) ([]string, error) {
	var out []string

	if opts.ExplicitPath != "" {
		out = append(out, opts.ExplicitPath)
	}

	if v := opts.getenv()("MCPLUG_CONFIG"); v != "" {
		out = append(out, v)
	}

	cwd := opts.Cwd
	if cwd == "" {
		var err error
		cwd, err = os.Getwd()
		if err != nil {
			return nil, mcplug.ErrConfigError("failed to resolve current working directory", err)
		}
	}
	out = append(out, filepath.Join(cwd, "config", "mcplug.json"))

	home := opts.Home
	if home == "" {
		var err error
		home, err = os.UserHomeDir()
		if err != nil {
			home = ""
		}
	}
	if home != "" {
		out = append(out,
			filepath.Join(home, ".mcplug", "mcplug.json"),
			filepath.Join(home, ".mcplug", "mcplug.jsonc"),
			filepath.Join(home, ".mcporter", "mcporter.json"),
			filepath.Join(home, ".mcporter", "mcporter.jsonc"),
		)
	}
	out = append(out, filepath.Join(cwd, "config", "mcporter.json"))

	return out, nil
}

// loadFile reads and JSONC-parses one candidate path. A missing file is not
// an error (ok=false); a present-but-unparseable file is.
func loadFile(path string) (*rawFile, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, mcplug.ErrConfigError("failed to read config file "+path, err)
	}

	stripped := StripComments(data)
	var rf rawFile
	if err := json.Unmarshal(stripped, &rf); err != nil {
		return nil, false, mcplug.ErrConfigError("failed to parse config file "+path, err)
	}
	if rf.MCPServers.byName == nil {
		rf.MCPServers.byName = make(map[string]rawServerConfig)
	}
	return &rf, true, nil
}

// applyImports resolves every editor identifier named in merged.Imports,
// adding servers only for names not already present (§4.1: "contribute
// servers only for names not already present").
func applyImports(merged *mcplug.McplugConfig, opts Options) error {
	if len(merged.Imports) == 0 {
		return nil
	}

	home := opts.Home
	if home == "" {
		var err error
		home, err = os.UserHomeDir()
		if err != nil {
			return nil // no home dir resolvable; imports silently contribute nothing
		}
	}

	for _, impName := range merged.Imports {
		id := EditorImport(impName)
		if !ValidImports[id] {
			continue
		}
		path := editorPath(home, id)
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue // editor file absence is not an error
		}
		var ef editorFile
		if err := json.Unmarshal(StripComments(data), &ef); err != nil {
			continue // malformed editor file is skipped, not fatal
		}
		sourceDir := filepath.Dir(path)
		for _, name := range ef.MCPServers.order {
			if _, exists := merged.Servers[name]; exists {
				continue
			}
			raw := ef.MCPServers.byName[name]
			merged.Servers[name] = raw.toServerConfig(name, sourceDir)
			merged.Order = append(merged.Order, name)
		}
	}
	return nil
}

func expandAll(merged *mcplug.McplugConfig, opts Options) error {
	lookup := opts.lookup()
	for _, name := range merged.Order {
		srv := merged.Servers[name]
		if err := ExpandServer(name, srv.SourceDir, srv, lookup); err != nil {
			return err
		}
	}
	return nil
}

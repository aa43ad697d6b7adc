// Package mcplug is the embeddable library surface for the MCP client
// toolkit: configuration resolution, transport dispatch, and tool
// invocation. cmd/mcplug is a thin CLI consumer of this package.
package mcplug

import (
	"encoding/json"
	"fmt"
)

// Lifecycle tags the pooling behavior the Runtime applies to a server's
// transport. Zero value (LifecycleUnset) behaves as LifecycleEphemeral.
type Lifecycle int

const (
	LifecycleUnset Lifecycle = iota
	LifecycleKeepAlive
	LifecycleEphemeral
)

// ServerConfig is the resolved description of one MCP server. All
// string-valued fields are env-expanded before being stored (config.Resolve
// is the only producer of values assigned here).
type ServerConfig struct {
	Name        string
	Description string
	BaseURL     string
	Command     string
	Args        []string
	Env         map[string]string
	Headers     map[string]string
	Lifecycle   Lifecycle

	// SourceDir is the directory containing the config file that defined
	// this server; the stdio transport's default working directory.
	SourceDir string
}

// UsesHTTP reports whether this server's invariant resolves to the HTTP+SSE
// transport. BaseURL wins over Command when both are present (§3 invariant).
func (s *ServerConfig) UsesHTTP() bool {
	return s.BaseURL != ""
}

// Validate enforces the §3 invariant: at least one of {BaseURL, Command}.
func (s *ServerConfig) Validate() error {
	if s.BaseURL == "" && s.Command == "" {
		return ErrConfigError(fmt.Sprintf("server %q has neither baseUrl nor command", s.Name), nil)
	}
	return nil
}

// McplugConfig is a mapping from server name to ServerConfig (insertion
// order preserved via Order), plus the ordered list of editor-import
// identifiers requested by whichever source(s) were loaded.
type McplugConfig struct {
	Servers map[string]*ServerConfig
	Order   []string
	Imports []string
}

// NewMcplugConfig returns an empty, ready-to-populate configuration.
func NewMcplugConfig() *McplugConfig {
	return &McplugConfig{Servers: make(map[string]*ServerConfig)}
}

// Names returns server names in insertion order.
func (c *McplugConfig) Names() []string {
	out := make([]string, len(c.Order))
	copy(out, c.Order)
	return out
}

// ToolDefinition describes one tool exposed by a server. InputSchema is kept
// as raw JSON so a round trip through a server is byte-for-byte exact
// (§8 property 6), rather than lossy through an intermediate map[string]any.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// RequiredParams extracts the top-level JSON Schema "required" array, used
// by the argument parser to assign positional function-call arguments.
func (t *ToolDefinition) RequiredParams() []string {
	var schema struct {
		Required []string `json:"required"`
	}
	if len(t.InputSchema) == 0 {
		return nil
	}
	_ = json.Unmarshal(t.InputSchema, &schema)
	return schema.Required
}

// ServerInfo is returned by the MCP initialize method.
type ServerInfo struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Name            string         `json:"name"`
	Version         string         `json:"version"`
	Capabilities    map[string]any `json:"capabilities,omitempty"`
}

// ContentBlockType discriminates ContentBlock's tagged-union fields.
type ContentBlockType string

const (
	ContentText     ContentBlockType = "text"
	ContentImage    ContentBlockType = "image"
	ContentResource ContentBlockType = "resource"
)

// ContentBlock is one element of a CallResult's ordered content sequence.
type ContentBlock struct {
	Type     ContentBlockType `json:"type"`
	Text     string           `json:"text,omitempty"`
	Data     string           `json:"data,omitempty"`     // base64, Image only
	MimeType string           `json:"mimeType,omitempty"` // Image / Resource
	URI      string           `json:"uri,omitempty"`      // Resource only
}

// CallResult is the ordered content blocks of a tools/call response plus
// the preserved raw JSON-RPC result envelope, for --raw / .Raw() consumers.
// Produced by a transport, owned by the caller; never mutated after return.
type CallResult struct {
	Content []ContentBlock
	RawJSON json.RawMessage
}

// Text concatenates every ContentText block's text, the common case of a
// tool returning a single textual result.
func (r *CallResult) Text() string {
	out := ""
	for _, b := range r.Content {
		if b.Type == ContentText {
			out += b.Text
		}
	}
	return out
}

// Raw returns the full raw JSON-RPC result envelope as received.
func (r *CallResult) Raw() json.RawMessage {
	return r.RawJSON
}

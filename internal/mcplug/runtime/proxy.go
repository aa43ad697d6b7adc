package runtime

import (
	"context"

	"github.com/hydai/mcplug/pkg/mcplug"
)

// Proxy is a thin handle binding a server name to a Runtime for ergonomic
// repeated calls. It borrows the Runtime; there is no back-pointer from the
// Runtime to any Proxy (§9: cyclic references are absent by design).
type Proxy struct {
	name string
	rt   *Runtime
}

// NewProxy returns a Proxy bound to name. The name is not validated against
// the configuration until the first call; an unknown name surfaces
// ServerNotFound at that point, same as calling the Runtime directly.
func NewProxy(rt *Runtime, name string) *Proxy {
	return &Proxy{name: name, rt: rt}
}

// Name returns the bound server name.
func (p *Proxy) Name() string {
	return p.name
}

// ListTools delegates to the Runtime for the bound server.
func (p *Proxy) ListTools(ctx context.Context) ([]mcplug.ToolDefinition, error) {
	return p.rt.ListTools(ctx, p.name)
}

// CallTool delegates to the Runtime for the bound server.
func (p *Proxy) CallTool(ctx context.Context, tool string, args map[string]any) (*mcplug.CallResult, error) {
	return p.rt.CallTool(ctx, p.name, tool, args)
}

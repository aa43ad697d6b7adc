// Package runtime implements the connection-pooling dispatcher (§4.4): it
// owns per-server transport instances, enforces the keep-alive/ephemeral
// lifecycle policy, and is the single place timeouts and cancellation are
// applied. Modeled on the teacher's Manager/MCPServer split — one struct per
// server guarding its own connection state, one top-level struct
// coordinating all of them concurrently.
package runtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hydai/mcplug/internal/mcplug/oauthcache"
	"github.com/hydai/mcplug/internal/mcplug/transport"
	"github.com/hydai/mcplug/pkg/logger"
	"github.com/hydai/mcplug/pkg/mcplug"
)

// Options configures a Runtime beyond the resolved configuration.
type Options struct {
	// Getenv overrides os.Getenv for lifecycle/timeout overrides (tests only).
	Getenv func(string) string
	// AllowInsecureHTTP permits cleartext http:// base URLs.
	AllowInsecureHTTP bool
	// TokenLookup overrides the default ~/.mcplug/<server>/tokens.json reader
	// (tests only).
	TokenLookup func(server string) (string, bool)
}

// serverSlot guards one server's pooled transport so at most one task
// initializes it at a time (§5: "concurrent first callers must coordinate
// so only one initialize runs and the others await its outcome").
type serverSlot struct {
	mu sync.Mutex
	tr transport.Transport // nil if not currently pooled
}

// Runtime is the dispatcher. It is constructed from an immutable
// McplugConfig and is independent of any other Runtime in the process (§9:
// "No global singletons").
type Runtime struct {
	cfg    *mcplug.McplugConfig
	getenv envLookup
	opts   Options

	mu    sync.Mutex
	slots map[string]*serverSlot
}

// New builds a Runtime over cfg. cfg is treated as immutable from this
// point on.
func New(cfg *mcplug.McplugConfig, opts Options) *Runtime {
	getenv := defaultEnvLookup()
	if opts.Getenv != nil {
		getenv = opts.Getenv
	}
	return &Runtime{
		cfg:    cfg,
		getenv: getenv,
		opts:   opts,
		slots:  make(map[string]*serverSlot),
	}
}

// ServerNames returns the configured server names in declaration order.
func (r *Runtime) ServerNames() []string {
	return r.cfg.Names()
}

func (r *Runtime) slotFor(name string) *serverSlot {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[name]
	if !ok {
		s = &serverSlot{}
		r.slots[name] = s
	}
	return s
}

// acquire returns an initialized transport for name, plus whether the
// caller must close it after use (ephemeral) or leave it pooled
// (keep-alive). Implements the §4.4 lookup policy.
func (r *Runtime) acquire(ctx context.Context, name string) (transport.Transport, bool, error) {
	cfg, ok := r.cfg.Servers[name]
	if !ok {
		return nil, false, mcplug.ErrServerNotFound(name, r.cfg.Names())
	}

	slot := r.slotFor(name)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	if slot.tr != nil {
		return slot.tr, false, nil
	}

	tr, err := r.buildTransport(cfg)
	if err != nil {
		return nil, false, err
	}

	if _, err := tr.Initialize(ctx); err != nil {
		_ = tr.Close()
		return nil, false, err
	}

	lc := effectiveLifecycle(name, cfg.Lifecycle, r.getenv)
	if lc == mcplug.LifecycleKeepAlive {
		slot.tr = tr
		return tr, false, nil
	}
	return tr, true, nil
}

func (r *Runtime) buildTransport(cfg *mcplug.ServerConfig) (transport.Transport, error) {
	if cfg.UsesHTTP() {
		effective := *cfg
		effective.Headers = mergeBearerToken(cfg, r.tokenLookup())
		return transport.NewSSE(&effective, r.opts.AllowInsecureHTTP)
	}
	return transport.NewStdio(cfg)
}

func (r *Runtime) tokenLookup() func(string) (string, bool) {
	if r.opts.TokenLookup != nil {
		return r.opts.TokenLookup
	}
	return oauthcache.Lookup
}

// mergeBearerToken attaches a cached OAuth bearer token as the Authorization
// header unless the server config already sets one explicitly.
func mergeBearerToken(cfg *mcplug.ServerConfig, lookup func(string) (string, bool)) map[string]string {
	headers := make(map[string]string, len(cfg.Headers)+1)
	for k, v := range cfg.Headers {
		headers[k] = v
	}
	if _, explicit := headers["Authorization"]; explicit {
		return headers
	}
	if token, ok := lookup(cfg.Name); ok {
		headers["Authorization"] = "Bearer " + token
	}
	return headers
}

// dropIfPooled removes name's transport from the pool and closes it, so a
// transport invalidated by a timeout or protocol error is not reused and
// does not keep its resources.
func (r *Runtime) dropIfPooled(name string) {
	slot := r.slotFor(name)
	slot.mu.Lock()
	tr := slot.tr
	slot.tr = nil
	slot.mu.Unlock()
	if tr != nil {
		_ = tr.Close()
	}
}

// ListTools returns name's tool catalogue, applying the list timeout and
// dropping the transport from the pool on timeout or protocol desync.
func (r *Runtime) ListTools(ctx context.Context, name string) ([]mcplug.ToolDefinition, error) {
	tr, ephemeral, err := r.acquire(ctx, name)
	if err != nil {
		return nil, err
	}
	if ephemeral {
		defer func() { _ = tr.Close() }()
	}

	callCtx, cancel := context.WithTimeout(ctx, listTimeout(r.getenv))
	defer cancel()

	reqID := uuid.NewString()
	logger.WithField("request_id", reqID).Debugf("mcplug runtime: %s list_tools", name)

	start := time.Now()
	tools, err := tr.ListTools(callCtx)
	if err != nil {
		return nil, r.onOperationError(name, "list_tools", err, start, ephemeral)
	}
	return tools, nil
}

// CallTool invokes name/tool, applying the call timeout and dropping the
// transport from the pool on timeout or protocol desync.
func (r *Runtime) CallTool(ctx context.Context, name, tool string, args map[string]any) (*mcplug.CallResult, error) {
	tr, ephemeral, err := r.acquire(ctx, name)
	if err != nil {
		return nil, err
	}
	if ephemeral {
		defer func() { _ = tr.Close() }()
	}

	callCtx, cancel := context.WithTimeout(ctx, callTimeout(r.getenv))
	defer cancel()

	reqID := uuid.NewString()
	logger.WithField("request_id", reqID).Debugf("mcplug runtime: %s tools/call %s", name, tool)

	start := time.Now()
	result, err := tr.CallTool(callCtx, tool, args)
	if err != nil {
		return nil, r.onOperationError(name, "tools/call", err, start, ephemeral)
	}
	return result, nil
}

// onOperationError reclassifies a deadline expiry as Timeout (carrying
// elapsed duration) and, for Timeout or ProtocolError, drops a pooled
// transport so the next call builds a fresh one (§4.4, §7).
func (r *Runtime) onOperationError(name, op string, err error, start time.Time, ephemeral bool) error {
	elapsed := time.Since(start)

	var result error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		result = mcplug.ErrTimeout(name, op, elapsed.Milliseconds())
	case errors.Is(err, context.Canceled):
		result = mcplug.ErrTransportError(name, op+" cancelled by caller", err)
	default:
		result = err
	}

	if shouldDropTransport(result) && !ephemeral {
		r.dropIfPooled(name)
	}
	return result
}

func shouldDropTransport(err error) bool {
	e, ok := mcplug.AsMcplugError(err)
	if !ok {
		return false
	}
	return e.Kind == mcplug.KindTimeout || e.Kind == mcplug.KindProtocolError
}

// Close iterates the pool, closing every kept-alive transport. Individual
// errors are logged; the first is returned.
func (r *Runtime) Close() error {
	r.mu.Lock()
	slots := make([]*serverSlot, 0, len(r.slots))
	for _, s := range r.slots {
		slots = append(slots, s)
	}
	r.mu.Unlock()

	var first error
	for _, s := range slots {
		s.mu.Lock()
		tr := s.tr
		s.tr = nil
		s.mu.Unlock()

		if tr == nil {
			continue
		}
		if err := tr.Close(); err != nil {
			logger.Warn("mcplug runtime: error closing transport: %v", err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}

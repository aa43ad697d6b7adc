package mcplug

import (
	"context"
	"sync"

	"github.com/hydai/mcplug/internal/mcplug/config"
	"github.com/hydai/mcplug/internal/mcplug/runtime"
	"github.com/hydai/mcplug/pkg/logger"
)

// Config is the composition root's input: where to find the mcplug
// configuration and what runtime options to apply. Mirrors the
// Config/CompletedConfig/New split the rest of the embedding program uses
// for its own modules.
type Config struct {
	// ConfigPath is the highest-precedence config source (§4.1 item 1).
	// Empty defers to the remaining discovery order.
	ConfigPath string
	// AllowInsecureHTTP permits cleartext http:// base URLs.
	AllowInsecureHTTP bool
	// Watch, if true, re-resolves the configuration on file change and
	// swaps the live Runtime under a lock (SPEC_FULL.md §4.1 expansion).
	Watch bool
	// OnReload, if set, is called with the newly resolved configuration
	// every time Watch triggers a reload, after the Runtime has already
	// been swapped. Ignored when Watch is false. Used by `mcplug config
	// watch` to report reload events to the terminal.
	OnReload func(*McplugConfig)
}

// CompletedConfig is the Config as handed to New.
type CompletedConfig struct {
	*Config
}

// Complete wraps c as a CompletedConfig; it applies no validation and fills
// no defaults.
func (c *Config) Complete() CompletedConfig {
	return CompletedConfig{c}
}

// Module is the top-level embeddable surface: configuration resolution
// plus a ready-to-use Runtime.
type Module struct {
	mu      sync.RWMutex
	config  *McplugConfig
	runtime *runtime.Runtime

	watcher *config.Watcher
}

// CurrentConfig returns the currently active resolved configuration. Under Watch,
// this may change between calls as files are edited.
func (m *Module) CurrentConfig() *McplugConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// CurrentRuntime returns the currently active Runtime. Under Watch, this
// may be swapped for a fresh one between calls; callers should fetch it
// fresh for each operation rather than caching it.
func (m *Module) CurrentRuntime() *runtime.Runtime {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.runtime
}

func (m *Module) set(cfg *McplugConfig, rt *runtime.Runtime) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = cfg
	m.runtime = rt
}

// New resolves the configuration and constructs the Runtime. If cfg.Watch
// is set, a background Watcher keeps the values returned by CurrentConfig
// and CurrentRuntime current as files change; the Runtime itself is always
// swapped as a whole since servers are indivisible units (§4.1).
func (c CompletedConfig) New(ctx context.Context) (*Module, error) {
	opts := config.Options{ExplicitPath: c.ConfigPath}

	m := &Module{}

	buildRuntime := func(cfg *McplugConfig) *runtime.Runtime {
		return runtime.New(cfg, runtime.Options{AllowInsecureHTTP: c.AllowInsecureHTTP})
	}

	if c.Watch {
		w, err := config.NewWatcher(opts, func(newCfg *McplugConfig) {
			logger.Info("mcplug: configuration changed, rebuilding runtime")
			old := m.CurrentRuntime()
			m.set(newCfg, buildRuntime(newCfg))
			if old != nil {
				_ = old.Close()
			}
			if c.OnReload != nil {
				c.OnReload(newCfg)
			}
		})
		if err != nil {
			return nil, err
		}
		cfg, err := w.Start()
		if err != nil {
			return nil, err
		}
		m.watcher = w
		m.set(cfg, buildRuntime(cfg))
		logger.Info("mcplug: watching configuration (%d servers configured)", len(cfg.Order))
		return m, nil
	}

	cfg, err := config.Resolve(opts)
	if err != nil {
		return nil, err
	}
	m.set(cfg, buildRuntime(cfg))
	logger.Info("mcplug: module initialized (%d servers configured)", len(cfg.Order))
	return m, nil
}

// Close releases the Runtime's pooled transports and stops the watcher, if
// any.
func (m *Module) Close() error {
	if m.watcher != nil {
		_ = m.watcher.Close()
	}
	if rt := m.CurrentRuntime(); rt != nil {
		return rt.Close()
	}
	return nil
}

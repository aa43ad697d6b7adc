package config

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/hydai/mcplug/pkg/logger"
	"github.com/hydai/mcplug/pkg/mcplug"
)

// Watcher re-runs Resolve whenever a file named mcplug.json, mcplug.jsonc,
// mcporter.json or mcporter.jsonc changes inside a directory that held a
// config file contributing at least one server to the last resolution. It
// watches those directories, not the full discovery list. Changes to files
// under any other name (an explicit config path with a different file name,
// an editor-import file) do not trigger a reload (§4.1 expansion: hot-reload).
type Watcher struct {
	mu      sync.Mutex
	opts    Options
	watcher *fsnotify.Watcher
	watched map[string]bool
	onChange func(*mcplug.McplugConfig)
	done    chan struct{}
}

// NewWatcher creates a Watcher that will call onChange with a freshly
// resolved config every time a watched file (see Watcher) is created,
// written, renamed, removed or has its mode changed. Call Start to begin
// watching.
func NewWatcher(opts Options, onChange func(*mcplug.McplugConfig)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, mcplug.ErrIo("failed to create config file watcher", err)
	}
	return &Watcher{
		opts:     opts,
		watcher:  fsw,
		watched:  make(map[string]bool),
		onChange: onChange,
		done:     make(chan struct{}),
	}, nil
}

// Start resolves once, arms watches on every file that contributed, and
// launches the background event loop. Returns the initial resolution.
func (w *Watcher) Start() (*mcplug.McplugConfig, error) {
	cfg, err := Resolve(w.opts)
	if err != nil {
		return nil, err
	}
	w.rearm(cfg)
	go w.loop()
	return cfg, nil
}

// Close stops the background loop and releases the underlying fsnotify
// watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}

func (w *Watcher) rearm(cfg *mcplug.McplugConfig) {
	w.mu.Lock()
	defer w.mu.Unlock()

	dirs := make(map[string]bool)
	for _, name := range cfg.Order {
		dir := cfg.Servers[name].SourceDir
		if dir != "" && !dirs[dir] {
			dirs[dir] = true
		}
	}
	for dir := range dirs {
		if w.watched[dir] {
			continue
		}
		// fsnotify watches directories, not individual files, so renames and
		// atomic-save-via-rename (common in editors) are still observed.
		if err := w.watcher.Add(dir); err != nil {
			logger.Warn("config watcher: failed to watch %s: %v", dir, err)
			continue
		}
		w.watched[dir] = true
	}
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("config watcher: %v", err)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	name := filepath.Base(ev.Name)
	switch name {
	case "mcplug.json", "mcplug.jsonc", "mcporter.json", "mcporter.jsonc":
		return true
	default:
		return false
	}
}

func (w *Watcher) reload() {
	cfg, err := Resolve(w.opts)
	if err != nil {
		logger.Warn("config watcher: reload failed: %v", err)
		return
	}
	w.rearm(cfg)
	if w.onChange != nil {
		w.onChange(cfg)
	}
}

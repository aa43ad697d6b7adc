package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/hydai/mcplug/internal/mcplug/jsonrpc"
	"github.com/hydai/mcplug/pkg/logger"
	"github.com/hydai/mcplug/pkg/mcplug"
)

// stderrTailSize bounds the ring buffer drainStderr keeps so a child that
// exits mid-call can have its last few diagnostic lines surfaced in the
// resulting error (§8: "a stdio child that exits during initialize must
// surface stderr tail in the error message").
const stderrTailSize = 20

// closeGracePeriod bounds how long Close waits for the child to exit on its
// own after its stdin is closed before killing it.
const closeGracePeriod = 2 * time.Second

// stdioWaiter is a pending request awaiting its matched response.
type stdioWaiter struct {
	ch chan *jsonrpc.Response
}

// Stdio is the child-process transport: one line-delimited JSON-RPC message
// per line on stdin/stdout, a single background goroutine reading stdout,
// and stderr drained to the logger so a noisy server can't deadlock on a
// full pipe (§4.2, §6).
type Stdio struct {
	serverName string

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Scanner

	ids  jsonrpc.IDCounter
	mu   sync.Mutex
	in   sync.Mutex // serializes writes to stdin
	wait map[int64]*stdioWaiter

	stderrMu   sync.Mutex
	stderrTail []string
	stderrDone chan struct{}

	closeOnce sync.Once
	closed    chan struct{}
}

// NewStdio spawns the child process described by cfg but does not perform
// the MCP handshake; call Initialize for that.
func NewStdio(cfg *mcplug.ServerConfig) (*Stdio, error) {
	cmd := exec.Command(cfg.Command, cfg.Args...)
	if cfg.SourceDir != "" {
		cmd.Dir = cfg.SourceDir
	}
	cmd.Env = os.Environ()
	for k, v := range cfg.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, mcplug.ErrConnectionFailed(cfg.Name, "failed to open stdin pipe", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, mcplug.ErrConnectionFailed(cfg.Name, "failed to open stdout pipe", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, mcplug.ErrConnectionFailed(cfg.Name, "failed to open stderr pipe", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, mcplug.ErrConnectionFailed(cfg.Name, "failed to start server process: "+cfg.Command, err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	s := &Stdio{
		serverName: cfg.Name,
		cmd:        cmd,
		stdin:      stdin,
		stdout:     scanner,
		wait:       make(map[int64]*stdioWaiter),
		closed:     make(chan struct{}),
		stderrDone: make(chan struct{}),
	}

	go s.drainStderr(stderr)
	go s.readLoop()

	return s, nil
}

// drainStderr forwards the child's stderr to the logger line by line so the
// pipe never backs up and blocks the child, keeping the last stderrTailSize
// lines in a ring buffer for call() to surface if the child dies mid-call.
func (s *Stdio) drainStderr(r io.Reader) {
	defer close(s.stderrDone)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		logger.Debug("mcp server %q stderr: %s", s.serverName, line)

		s.stderrMu.Lock()
		s.stderrTail = append(s.stderrTail, line)
		if len(s.stderrTail) > stderrTailSize {
			s.stderrTail = s.stderrTail[len(s.stderrTail)-stderrTailSize:]
		}
		s.stderrMu.Unlock()
	}
}

// stderrTailText returns the buffered stderr tail joined for inclusion in an
// error message, or "" if the child hasn't written anything to stderr.
func (s *Stdio) stderrTailText() string {
	s.stderrMu.Lock()
	defer s.stderrMu.Unlock()
	if len(s.stderrTail) == 0 {
		return ""
	}
	return strings.Join(s.stderrTail, "\n")
}

// readLoop is the single goroutine reading stdout; it demultiplexes
// responses to their waiter by id. Malformed lines are logged and skipped;
// notifications and responses with no waiting caller are dropped silently.
func (s *Stdio) readLoop() {
	defer func() {
		<-s.stderrDone // ensure the stderr tail is fully populated before callers see closed
		close(s.closed)
	}()
	for s.stdout.Scan() {
		line := s.stdout.Bytes()
		if len(line) == 0 {
			continue
		}
		resp, err := jsonrpc.Unmarshal(line)
		if err != nil {
			logger.Warn("mcp server %q: failed to parse line: %v", s.serverName, err)
			continue
		}
		if resp.IsNotification() {
			continue
		}

		s.mu.Lock()
		w, ok := s.wait[*resp.ID]
		if ok {
			delete(s.wait, *resp.ID)
		}
		s.mu.Unlock()

		if ok {
			w.ch <- resp
		}
	}
}

// call sends a request and waits for its matched response or ctx
// cancellation.
func (s *Stdio) call(ctx context.Context, method string, params any) (*jsonrpc.Response, error) {
	id := s.ids.Next()
	req := jsonrpc.NewRequest(id, method, params)
	line, err := jsonrpc.Marshal(req)
	if err != nil {
		return nil, mcplug.ErrProtocolError(s.serverName, "failed to encode request", err)
	}

	w := &stdioWaiter{ch: make(chan *jsonrpc.Response, 1)}
	s.mu.Lock()
	s.wait[id] = w
	s.mu.Unlock()

	s.in.Lock()
	_, writeErr := s.stdin.Write(append(line, '\n'))
	s.in.Unlock()
	if writeErr != nil {
		s.mu.Lock()
		delete(s.wait, id)
		s.mu.Unlock()
		return nil, mcplug.ErrTransportError(s.serverName, "failed to write request", writeErr)
	}

	select {
	case resp := <-w.ch:
		return resp, nil
	case <-ctx.Done():
		s.mu.Lock()
		delete(s.wait, id)
		s.mu.Unlock()
		return nil, ctx.Err()
	case <-s.closed:
		msg := "server process exited before responding"
		if tail := s.stderrTailText(); tail != "" {
			msg += "; stderr tail:\n" + tail
		}
		return nil, mcplug.ErrConnectionFailed(s.serverName, msg, nil)
	}
}

// notify sends a request with no id; the child is not expected to reply.
func (s *Stdio) notify(method string, params any) error {
	req := jsonrpc.NewNotification(method, params)
	line, err := jsonrpc.Marshal(req)
	if err != nil {
		return mcplug.ErrProtocolError(s.serverName, "failed to encode notification", err)
	}
	s.in.Lock()
	defer s.in.Unlock()
	if _, err := s.stdin.Write(append(line, '\n')); err != nil {
		return mcplug.ErrTransportError(s.serverName, "failed to write notification", err)
	}
	return nil
}

func (s *Stdio) Initialize(ctx context.Context) (*mcplug.ServerInfo, error) {
	resp, err := s.call(ctx, "initialize", initializeParams())
	if err != nil {
		return nil, wrapCallErr(s.serverName, "initialize", err)
	}
	if resp.Error != nil {
		return nil, rpcErrToMcplug(s.serverName, resp.Error)
	}

	var info mcplug.ServerInfo
	if err := json.Unmarshal(resp.Result, &info); err != nil {
		return nil, mcplug.ErrProtocolError(s.serverName, "failed to decode initialize result", err)
	}

	if err := s.notify("notifications/initialized", nil); err != nil {
		return nil, err
	}

	return &info, nil
}

func (s *Stdio) ListTools(ctx context.Context) ([]mcplug.ToolDefinition, error) {
	resp, err := s.call(ctx, "tools/list", nil)
	if err != nil {
		return nil, wrapCallErr(s.serverName, "tools/list", err)
	}
	if resp.Error != nil {
		return nil, rpcErrToMcplug(s.serverName, resp.Error)
	}

	var result struct {
		Tools []mcplug.ToolDefinition `json:"tools"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, mcplug.ErrProtocolError(s.serverName, "failed to decode tools/list result", err)
	}
	return result.Tools, nil
}

func (s *Stdio) CallTool(ctx context.Context, name string, args map[string]any) (*mcplug.CallResult, error) {
	params := map[string]any{"name": name, "arguments": args}
	resp, err := s.call(ctx, "tools/call", params)
	if err != nil {
		return nil, wrapCallErr(s.serverName, name, err)
	}
	if resp.Error != nil {
		return nil, rpcErrToMcplugTool(s.serverName, name, resp.Error)
	}
	return decodeCallResult(s.serverName, name, resp.Result)
}

// Close terminates the child process, giving it a chance to exit cleanly
// before killing it.
func (s *Stdio) Close() error {
	var closeErr error
	s.closeOnce.Do(func() {
		_ = s.stdin.Close()
		if s.cmd.Process != nil {
			done := make(chan error, 1)
			go func() { done <- s.cmd.Wait() }()
			select {
			case <-done:
			case <-time.After(closeGracePeriod):
				_ = s.cmd.Process.Kill()
				<-done
			}
		}
	})
	return closeErr
}

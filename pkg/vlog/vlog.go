// Package vlog implements the control socket described in spec.md section
// 4.G: a process-wide Unix datagram socket that accepts textual commands
// for managing the process's own log level table, authenticated either by
// SCM_CREDENTIALS (Linux) or, where unavailable, a stat()-based check of
// the sender's bound socket path. Grounded on
// original_source/lib/vlog-socket.c function-for-function.
package vlog

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
)

// SetLevelsFunc applies a "set" command's argument string (everything
// after "set ") to the process's logging configuration, returning a
// human-readable error on failure or nil on success.
type SetLevelsFunc func(spec string) error

// ListLevelsFunc returns the current per-module/facility level table,
// formatted as "module:facility:level" lines (recovered verbatim from
// vlog-socket.c's vlog_get_levels, since spec.md's distillation only says
// "returns the current level table" without the exact format).
type ListLevelsFunc func() string

// Server is a listening control socket.
type Server struct {
	path       string
	conn       *net.UnixConn
	setLevels  SetLevelsFunc
	listLevels ListLevelsFunc

	mu     sync.Mutex
	closed bool
}

// defaultDir is the original's "/tmp/vlogs." prefix (spec.md section 6:
// "/tmp/vlogs.<pid>[<suffix>]").
const defaultDir = "/tmp/vlogs."

// Listen opens a control socket at path. If path is empty, the default
// "/tmp/vlogs.<pid>" is used. If path is non-empty and doesn't start with
// "/", it is appended to the pid the way the original appends a caller
// suffix ("/tmp/vlogs.<pid><path>"). An absolute path is used verbatim.
func Listen(path string, setLevels SetLevelsFunc, listLevels ListLevelsFunc) (*Server, error) {
	sockPath := resolveServerPath(path)

	if err := os.Remove(sockPath); err != nil && !os.IsNotExist(err) {
		logrus.Warnf("vlog: unlinking stale %s: %v", sockPath, err)
	}

	conn, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: sockPath, Net: "unixgram"})
	if err != nil {
		return nil, fmt.Errorf("vlog: listen %s: %w", sockPath, err)
	}
	if err := os.Chmod(sockPath, 0700); err != nil {
		conn.Close()
		return nil, fmt.Errorf("vlog: chmod %s: %w", sockPath, err)
	}
	if err := enablePassCred(conn); err != nil {
		conn.Close()
		os.Remove(sockPath)
		return nil, fmt.Errorf("vlog: enabling credential passing: %w", err)
	}

	registerCleanup(sockPath)

	return &Server{path: sockPath, conn: conn, setLevels: setLevels, listLevels: listLevels}, nil
}

func resolveServerPath(path string) string {
	if path == "" {
		return defaultDir + strconv.Itoa(os.Getpid())
	}
	if strings.HasPrefix(path, "/") {
		return path
	}
	return defaultDir + strconv.Itoa(os.Getpid()) + path
}

// Path returns the bound socket path, for logging or for a client in the
// same process to connect back to (mainly useful in tests).
func (s *Server) Path() string { return s.path }

// Close stops listening and unlinks the socket file. Safe to call more
// than once.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	unregisterCleanup(s.path)
	err := s.conn.Close()
	if rmErr := os.Remove(s.path); rmErr != nil && !os.IsNotExist(rmErr) {
		logrus.Warnf("vlog: unlinking %s on close: %v", s.path, rmErr)
	}
	return err
}

// ServeOne processes exactly one pending request, blocking until one
// arrives or the socket is closed. Callers typically run this in a loop
// on its own goroutine, or drive it directly off a poll-readiness signal
// the way the rest of this core's carriers do.
func (s *Server) ServeOne() error {
	reply, err := s.handleOne()
	if err != nil {
		return err
	}
	if reply == nil {
		return nil
	}
	_, err = s.conn.WriteToUnix([]byte(reply.text), reply.to)
	return err
}

type rawReply struct {
	text string
	to   *net.UnixAddr
}

// handleOne reads one request (verifying the sender's credentials) and
// returns the formatted reply, or nil if the request was rejected and no
// reply should be sent (spec.md section 8 scenario S6).
func (s *Server) handleOne() (*rawReply, error) {
	buf := make([]byte, 512)
	n, from, ok, err := recvVerified(s.conn, buf)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Credential check failed; already logged by recvVerified. The
		// original sends no reply in this case.
		return nil, nil
	}
	cmd := string(buf[:n])
	return &rawReply{text: s.dispatch(cmd), to: from}, nil
}

// dispatch implements the three-command protocol from spec.md section
// 4.G/6: "set <module>:<facility>:<level>", "list", anything else "nak".
func (s *Server) dispatch(cmd string) string {
	switch {
	case strings.HasPrefix(cmd, "set "):
		if err := s.setLevels(cmd[len("set "):]); err != nil {
			return err.Error()
		}
		return "ack"
	case cmd == "list":
		return s.listLevels()
	default:
		return "nak"
	}
}

// Client is a connection to a control socket server.
type Client struct {
	conn       *net.UnixConn
	bindPath   string
	targetPath string
}

// Connect opens a client socket bound to a unique path (so the server's
// reply can be routed back, and so a stat()-based credential fallback has
// something to stat) and connected to the server named by path. An
// absolute path is used verbatim; anything else is appended to the
// "/tmp/vlogs." prefix, so it names the "<pid>[<suffix>]" part of a
// server's default path (unlike Listen, no pid is inserted).
func Connect(path string) (*Client, error) {
	target := path
	if !strings.HasPrefix(path, "/") {
		target = defaultDir + path
	}
	// xid suffix: several clients in one process (as in tests) must not
	// collide on the same bind path the way a single bare pid would.
	bindPath := filepath.Join(os.TempDir(), fmt.Sprintf("vlog.%d.%s", os.Getpid(), xid.New().String()))

	conn, err := net.DialUnix("unixgram",
		&net.UnixAddr{Name: bindPath, Net: "unixgram"},
		&net.UnixAddr{Name: target, Net: "unixgram"})
	if err != nil {
		return nil, fmt.Errorf("vlog: connect %s: %w", target, err)
	}
	return &Client{conn: conn, bindPath: bindPath, targetPath: target}, nil
}

// Target returns the server path this client is connected to.
func (c *Client) Target() string { return c.targetPath }

// Close disconnects and removes the client's bind path.
func (c *Client) Close() error {
	err := c.conn.Close()
	if rmErr := os.Remove(c.bindPath); rmErr != nil && !os.IsNotExist(rmErr) {
		logrus.Warnf("vlog: unlinking client bind path %s: %v", c.bindPath, rmErr)
	}
	return err
}

// Transact sends request and waits for a reply, retrying up to 3 times
// total with a 1-second poll timeout per attempt, matching
// vlog_client_transact's retry loop exactly (spec.md section 5).
func (c *Client) Transact(request string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if err := sendRequest(c.conn, request); err != nil {
			return "", err
		}
		reply, err := recvReply(c.conn)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		if err != syscall.ETIMEDOUT && !strings.Contains(err.Error(), "timeout") {
			return "", err
		}
	}
	return "", fmt.Errorf("vlog: transact %q: %w", request, lastErr)
}

// recvReply waits up to one second for the server's reply (vlog_client_
// recv's poll(&pfd, 1, 1000) timeout), returning syscall.ETIMEDOUT if none
// arrives. The reply carries no credentials to check; only requests do.
func recvReply(conn *net.UnixConn) (string, error) {
	if err := conn.SetReadDeadline(time.Now().Add(time.Second)); err != nil {
		return "", err
	}
	buf := make([]byte, 65536)
	n, err := conn.Read(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return "", syscall.ETIMEDOUT
		}
		return "", fmt.Errorf("vlog: recv reply: %w", err)
	}
	return string(buf[:n]), nil
}

// ---- in-process level table, the counterpart to listLevels/setLevels ----

// LevelTable is a minimal in-memory module/facility/level store a caller
// can pass as the SetLevelsFunc/ListLevelsFunc pair to Listen. A real
// process typically wires these into whatever owns its logrus output
// levels instead; this exists so pkg/vlog is independently testable and so
// cmd/ofctl has something concrete to expose.
type LevelTable struct {
	mu     sync.Mutex
	levels map[string]string // "module:facility" -> level
}

// NewLevelTable returns an empty table.
func NewLevelTable() *LevelTable {
	return &LevelTable{levels: make(map[string]string)}
}

// Set parses "module:facility:level" (or "ANY:facility:level" /
// "module:ANY:level" wildcards) and stores it, returning a message on a
// malformed spec rather than erroring the whole request.
func (t *LevelTable) Set(spec string) error {
	parts := strings.Split(spec, ":")
	if len(parts) != 3 {
		return fmt.Errorf("invalid log level specification")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.levels[parts[0]+":"+parts[1]] = parts[2]
	return nil
}

// List formats every entry as "module:facility:level" lines, sorted for
// deterministic output, matching vlog_get_levels's format.
func (t *LevelTable) List() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	keys := make([]string, 0, len(t.levels))
	for k := range t.levels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s:%s\n", k, t.levels[k])
	}
	return b.String()
}

// ---- fatal-signal-style cleanup list (spec.md section 4.G item 3) ----

var (
	cleanupMu    sync.Mutex
	cleanupPaths = map[string]struct{}{}
	cleanupOnce  sync.Once
)

func registerCleanup(path string) {
	cleanupMu.Lock()
	cleanupPaths[path] = struct{}{}
	cleanupMu.Unlock()
	cleanupOnce.Do(installSignalHandler)
}

func unregisterCleanup(path string) {
	cleanupMu.Lock()
	delete(cleanupPaths, path)
	cleanupMu.Unlock()
}

// installSignalHandler unlinks every still-registered socket path on a
// fatal signal before re-raising it, mirroring fatal_signal_add_file_to_
// unlink's effect without requiring callers to wire their own handler.
func installSignalHandler() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
	go func() {
		sig := <-ch
		cleanupMu.Lock()
		for path := range cleanupPaths {
			os.Remove(path)
		}
		cleanupMu.Unlock()
		signal.Stop(ch)
		proc, err := os.FindProcess(os.Getpid())
		if err == nil {
			proc.Signal(sig)
		}
	}()
}

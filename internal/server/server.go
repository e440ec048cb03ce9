// Package server exposes a gate over a Unix socket so that agents running in
// other processes can submit commands. Each connection carries exactly one
// newline-delimited JSON request and receives one newline-delimited JSON
// response.
package server

import (
	"bufio"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/xdg/cmdgate/internal/clog"
	"github.com/xdg/cmdgate/internal/gate"
)

// Operations accepted in Request.Op.
const (
	OpExecute   = "execute"
	OpValidate  = "validate"
	OpWhitelist = "whitelist"
)

const (
	// MaxRequestBytes bounds one request line.
	MaxRequestBytes = 64 * 1024
	// readTimeout bounds how long a client may take to send its request.
	readTimeout = 10 * time.Second
)

// DefaultSocketPath returns $XDG_RUNTIME_DIR/cmdgate/cmdgate.sock, falling
// back to ~/.local/state/cmdgate/cmdgate.sock.
func DefaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "cmdgate", "cmdgate.sock")
	}
	return filepath.Join(clog.StateDir(), "cmdgate.sock")
}

// Request is the JSON request sent over the socket.
type Request struct {
	Secret  string       `json:"secret"`
	Op      string       `json:"op"`
	Request gate.Request `json:"request"`
}

// Response is the JSON response sent over the socket. Success reports
// whether the request was accepted and dispatched; the outcome of the
// command itself is in Result.
type Response struct {
	Success    bool                `json:"success"`
	Error      string              `json:"error,omitempty"`
	Result     *gate.Result        `json:"result,omitempty"`
	Validation *gate.Validation    `json:"validation,omitempty"`
	Whitelist  *gate.WhitelistInfo `json:"whitelist,omitempty"`
}

// Server listens on a Unix socket and dispatches requests to a Gate.
type Server struct {
	socketPath string
	secret     string
	limiter    *rate.Limiter
	gate       atomic.Pointer[gate.Gate]

	listener net.Listener
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	shutdown chan struct{}
	mu       sync.Mutex // protects listener and shutdown state
}

// Option configures a Server.
type Option func(*Server)

// WithSocketPath sets a custom socket path.
func WithSocketPath(path string) Option {
	return func(s *Server) {
		s.socketPath = path
	}
}

// WithSecret requires every request to carry secret. An empty secret
// disables the check; the socket is still only reachable by its owner.
func WithSecret(secret string) Option {
	return func(s *Server) {
		s.secret = secret
	}
}

// WithRateLimit limits accepted requests to perSecond with the given burst.
// A non-positive rate disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *Server) {
		if perSecond <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// New creates a Server dispatching to g.
func New(g *gate.Gate, opts ...Option) *Server {
	s := &Server{
		socketPath: DefaultSocketPath(),
		shutdown:   make(chan struct{}),
	}
	s.gate.Store(g)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetGate replaces the gate used for subsequent requests. Requests already
// in flight finish with the gate they started with.
func (s *Server) SetGate(g *gate.Gate) {
	s.gate.Store(g)
}

// Gate returns the current gate.
func (s *Server) Gate() *gate.Gate {
	return s.gate.Load()
}

// Start begins listening on the Unix socket.
// It creates the parent directory if needed and sets socket permissions to 0600.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return errors.New("server already started")
	}

	// Create parent directory if needed
	dir := filepath.Dir(s.socketPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	// Remove stale socket if present
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return err
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return err
	}

	// Set socket permissions to 0600 (owner read/write only)
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		_ = listener.Close()
		return err
	}

	s.listener = listener
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.wg.Add(1)
	go s.acceptLoop()

	clog.Info("server listening on %s", s.socketPath)
	return nil
}

// Stop shuts the server down. It stops accepting connections, cancels
// commands still running, and waits for their connections to finish.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.listener == nil {
		s.mu.Unlock()
		return nil
	}
	select {
	case <-s.shutdown:
		s.mu.Unlock()
		return nil
	default:
	}

	close(s.shutdown)
	err := s.listener.Close()
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()

	if rmErr := os.Remove(s.socketPath); rmErr != nil && !os.IsNotExist(rmErr) {
		clog.Warn("failed to remove socket %s: %v", s.socketPath, rmErr)
	}
	clog.Info("server stopped")
	return err
}

// SocketPath returns the path to the Unix socket.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// acceptLoop accepts connections until shutdown.
func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return
			default:
				clog.Debug("accept failed: %v", err)
				continue
			}
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

// handleConnection processes a single client connection.
func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer func() { _ = conn.Close() }()

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	reader := bufio.NewReader(io.LimitReader(conn, MaxRequestBytes+1))
	line, err := reader.ReadBytes('\n')
	if err != nil {
		if len(line) > MaxRequestBytes {
			s.writeError(conn, "request too large")
			return
		}
		s.writeError(conn, "failed to read request: "+err.Error())
		return
	}

	if s.limiter != nil && !s.limiter.Allow() {
		clog.Warn("server: rate limit exceeded")
		s.writeError(conn, "rate limit exceeded")
		return
	}

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		s.writeError(conn, "invalid JSON: "+err.Error())
		return
	}

	if s.secret != "" && subtle.ConstantTimeCompare([]byte(req.Secret), []byte(s.secret)) != 1 {
		clog.Warn("server: request with invalid secret rejected")
		s.writeError(conn, "invalid secret")
		return
	}

	select {
	case <-s.shutdown:
		s.writeError(conn, "server shutting down")
		return
	default:
	}

	resp, errMsg := s.dispatch(req)
	if errMsg != "" {
		s.writeError(conn, errMsg)
		return
	}
	s.writeResponse(conn, resp)
}

// dispatch runs one operation against the current gate.
func (s *Server) dispatch(req Request) (Response, string) {
	g := s.gate.Load()
	if g == nil {
		return Response{}, "no gate configured"
	}

	switch req.Op {
	case OpExecute, "":
		res := g.Execute(s.ctx, req.Request)
		return Response{Success: true, Result: &res}, ""
	case OpValidate:
		v := g.Validate(req.Request.Command)
		return Response{Success: true, Validation: &v}, ""
	case OpWhitelist:
		w := g.Whitelist()
		return Response{Success: true, Whitelist: &w}, ""
	default:
		return Response{}, "unknown op: " + req.Op
	}
}

// writeError writes an error response to the connection.
func (s *Server) writeError(conn net.Conn, errMsg string) {
	s.writeResponse(conn, Response{Success: false, Error: errMsg})
}

// writeResponse writes a JSON response to the connection.
func (s *Server) writeResponse(conn net.Conn, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		// Last resort: write a minimal error (ignore write error)
		_, _ = conn.Write([]byte(`{"success":false,"error":"failed to marshal response"}` + "\n"))
		return
	}
	data = append(data, '\n')
	_, _ = conn.Write(data) // Ignore write error; connection may be closed
}

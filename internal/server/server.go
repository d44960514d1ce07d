package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/plantmeet/modelserve/internal/artifact"
	"github.com/plantmeet/modelserve/internal/discovery"
	"github.com/plantmeet/modelserve/internal/logging"
	"github.com/plantmeet/modelserve/internal/version"
)

const (
	// DefaultPort matches the port the mobile app build is configured for
	DefaultPort = 8001

	// DefaultShutdownTimeout bounds how long in-flight transfers may run after
	// a stop signal
	DefaultShutdownTimeout = 10 * time.Second
)

// Config holds the server configuration
type Config struct {
	Host              string
	Port              int
	ArtifactPath      string
	ArtifactName      string        // URL name; defaults to the file's base name
	ExpectedSize      int64         // 0 disables the preflight size check
	ReclaimPort       bool          // Terminate stale listeners on Port before binding
	ChunkSize         int           // Transfer chunk size; 0 = DefaultChunkSize
	ReadHeaderTimeout time.Duration // 0 = no limit
	WriteTimeout      time.Duration // 0 = no limit
	ShutdownTimeout   time.Duration // 0 = DefaultShutdownTimeout
	Advertise         bool          // Publish the server over mDNS
	LogLevel          string
}

// State is a step in the server lifecycle
type State int32

const (
	StateUnbound State = iota
	StatePortClearing
	StateListening
	StateServing
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StatePortClearing:
		return "port-clearing"
	case StateListening:
		return "listening"
	case StateServing:
		return "serving"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Server serves one artifact over HTTP with range support
type Server struct {
	config    *Config
	artifact  *artifact.Artifact
	router    *Router
	reclaimer *PortReclaimer

	state    atomic.Int32
	ready    chan struct{}
	listener net.Listener
	http     *http.Server
	report   *artifact.Report

	mu          sync.Mutex
	activeConns map[net.Conn]http.ConnState
}

// New creates a new Server instance. The artifact is not checked until Run.
func New(config *Config) (*Server, error) {
	if err := logging.Initialize(config.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	if config.Port < 0 || config.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", config.Port)
	}
	if config.ExpectedSize < 0 {
		return nil, fmt.Errorf("invalid expected size %d", config.ExpectedSize)
	}

	a, err := artifact.New(config.ArtifactPath, config.ArtifactName)
	if err != nil {
		return nil, err
	}

	return &Server{
		config:      config,
		artifact:    a,
		router:      NewRouter(a, NewTransmitter(config.ChunkSize)),
		reclaimer:   NewPortReclaimer(),
		ready:       make(chan struct{}),
		activeConns: make(map[net.Conn]http.ConnState),
	}, nil
}

// SetReclaimer replaces the port reclaimer (used by tests).
func (s *Server) SetReclaimer(r *PortReclaimer) {
	s.reclaimer = r
}

// Artifact returns the served artifact
func (s *Server) Artifact() *artifact.Artifact {
	return s.artifact
}

// State returns the current lifecycle state
func (s *Server) State() State {
	return State(s.state.Load())
}

func (s *Server) setState(st State) {
	s.state.Store(int32(st))
	logging.Debug("Server state changed", zap.Stringer("state", st))
}

// Ready is closed once the listener is bound and requests are being served
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound listen address, or nil before binding
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Port returns the bound port, or the configured one before binding
func (s *Server) Port() int {
	if tcp, ok := s.Addr().(*net.TCPAddr); ok {
		return tcp.Port
	}
	return s.config.Port
}

// Report returns the preflight report from the last Run
func (s *Server) Report() *artifact.Report {
	return s.report
}

// Start runs the server until SIGINT or SIGTERM
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Run validates the artifact, optionally reclaims the port, binds, and serves
// until ctx is cancelled. Startup failures are returned as *ServeError.
func (s *Server) Run(ctx context.Context) error {
	if s.State() != StateUnbound {
		return fmt.Errorf("server already started (state %s)", s.State())
	}

	report, err := artifact.Validate(s.artifact.Path, s.config.ExpectedSize)
	s.report = report
	if err != nil {
		return &ServeError{Type: ErrTypePreflight, Message: "artifact failed preflight", Err: err}
	}
	logging.Info("Artifact preflight passed",
		zap.String("path", s.artifact.Path),
		zap.Int64("size", report.ActualSize),
		zap.String("size_human", artifact.FormatSize(report.ActualSize)),
	)

	if s.config.ReclaimPort && s.config.Port != 0 {
		s.setState(StatePortClearing)
		pids, err := s.reclaimer.Reclaim(ctx, s.config.Host, s.config.Port)
		if err != nil {
			logging.Warn("Port reclamation failed", zap.Int("port", s.config.Port), zap.Error(err))
		} else if len(pids) > 0 {
			logging.Info("Port reclaimed", zap.Int("port", s.config.Port), zap.Ints("pids", pids))
		}
	}

	if err := s.bind(); err != nil {
		s.setState(StateStopped)
		return err
	}

	s.http = &http.Server{
		Handler:                      s.router,
		ReadHeaderTimeout:            s.config.ReadHeaderTimeout,
		WriteTimeout:                 s.config.WriteTimeout,
		ConnState:                    s.trackConn,
		DisableGeneralOptionsHandler: true,
		ErrorLog:                     zap.NewStdLog(logging.GetLogger()),
	}

	if s.config.Advertise {
		ad, err := discovery.Advertise(discovery.Service{
			Instance: "modelserve-" + s.artifact.Name,
			Port:     s.Port(),
			Path:     s.artifact.URLPath(),
			Size:     report.ActualSize,
			Version:  version.Version,
		})
		if err != nil {
			logging.Warn("mDNS advertisement failed", zap.Error(err))
		} else {
			defer ad.Shutdown()
		}
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.http.Serve(s.listener)
	}()

	s.setState(StateServing)
	close(s.ready)
	logging.Info("Serving artifact",
		zap.String("addr", s.listener.Addr().String()),
		zap.String("url_path", s.artifact.URLPath()),
	)

	select {
	case <-ctx.Done():
		logging.Info("Shutdown signal received, stopping server...")
		return s.shutdown()
	case err := <-errChan:
		s.setState(StateStopped)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return &ServeError{Type: ErrTypeServing, Message: "accept loop failed", Err: err}
	}
}

// bind opens the listener, distinguishing an occupied port from other
// failures.
func (s *Server) bind() error {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		if isAddrInUse(err) {
			return NewPortInUseError(s.config.Port, err)
		}
		return &ServeError{Type: ErrTypeBind, Message: fmt.Sprintf("failed to listen on %s", addr), Err: err}
	}
	s.listener = ln
	s.setState(StateListening)
	return nil
}

// shutdown stops accepting, lets in-flight transfers finish within the
// timeout, then closes whatever is left.
func (s *Server) shutdown() error {
	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := s.http.Shutdown(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		logging.Warn("Shutdown timeout, forcing close",
			zap.Duration("timeout", timeout),
			zap.Int("active_connections", s.ActiveConnections()),
		)
		err = s.http.Close()
	}
	s.setState(StateStopped)
	logging.Info("Server stopped")
	logging.Sync()
	return err
}

// trackConn keeps the active connection table in step with net/http
func (s *Server) trackConn(conn net.Conn, state http.ConnState) {
	remoteAddr := conn.RemoteAddr().String()

	s.mu.Lock()
	switch state {
	case http.StateClosed, http.StateHijacked:
		delete(s.activeConns, conn)
	default:
		s.activeConns[conn] = state
	}
	s.mu.Unlock()

	logging.LogConnection(remoteAddr, state.String())
}

// ActiveConnections returns the number of open client connections
func (s *Server) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}

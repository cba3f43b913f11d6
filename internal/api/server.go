package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/nerrad567/pas-client-core/internal/clientconfig"
	"github.com/nerrad567/pas-client-core/internal/infrastructure/config"
	"github.com/nerrad567/pas-client-core/internal/infrastructure/logging"
	"github.com/nerrad567/pas-client-core/internal/inventory"
	"github.com/nerrad567/pas-client-core/internal/topology"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Topology is the view of the client configuration served by the API.
// *clientconfig.Configuration implements it.
type Topology interface {
	LoadID() string
	GetServers() int
	GetParents(t topology.DeviceType, id topology.Identity) ([]topology.Parent, error)
	GetDeviceSerial(t topology.DeviceType, panelAddress string, port int) (int, error)
	GetDevicePosition(t topology.DeviceType, serial int) (int, error)
	Reload(ctx context.Context) error
	Connection() clientconfig.Connection
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	Logger   *logging.Logger
	Topology Topology
	Version  string
}

// Server is the topology HTTP API.
//
// Device listings come from the last snapshot handed to Publish; point
// lookups go straight to the Topology.
type Server struct {
	cfg      config.APIConfig
	logger   *logging.Logger
	topology Topology
	version  string

	snapshot atomic.Pointer[inventory.Snapshot]

	server *http.Server
	addr   string
}

// New creates a new API server. It is not listening until Start is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Topology == nil {
		return nil, fmt.Errorf("topology is required")
	}

	return &Server{
		cfg:      deps.Config,
		logger:   deps.Logger.With("component", "api"),
		topology: deps.Topology,
		version:  deps.Version,
	}, nil
}

// Publish replaces the snapshot served by the listing endpoints.
func (s *Server) Publish(snap *inventory.Snapshot) {
	s.snapshot.Store(snap)
}

// Start binds the listener and serves in a background goroutine.
// Binding errors are returned; later serve errors are logged.
func (s *Server) Start(_ context.Context) error {
	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port)))
	if err != nil {
		s.server = nil
		return fmt.Errorf("starting API server: %w", err)
	}
	s.addr = ln.Addr().String()
	s.logger.Info("API server listening", "address", s.addr)

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound listen address, empty before Start.
func (s *Server) Addr() string {
	return s.addr
}

// Close gracefully shuts down the server, waiting up to 10 seconds for
// in-flight requests.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}

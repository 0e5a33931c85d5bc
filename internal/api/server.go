package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/bridge"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/device"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/infrastructure/config"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/infrastructure/influxdb"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/infrastructure/logging"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/rules"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Bridge is the part of *bridge.Bridge the API drives.
type Bridge interface {
	SetProperty(ctx context.Context, dsn, name string, value any) (*device.Datapoint, error)
	Stats() bridge.Stats
}

// Rules is the part of *rules.Service the API exposes.
type Rules interface {
	FetchRules(ctx context.Context) ([]rules.Rule, error)
	FetchRulesForDevice(ctx context.Context, dsn string) ([]rules.Rule, error)
	Enable(ctx context.Context, uuid string) (*rules.Rule, error)
	Disable(ctx context.Context, uuid string) (*rules.Rule, error)
}

// History answers property history queries, as *influxdb.Client does.
type History interface {
	PropertyHistory(ctx context.Context, dsn, property string, since time.Time, limit int) ([]influxdb.HistoryPoint, error)
}

// HealthChecker is implemented by components reported on /health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	Logger   *logging.Logger
	Registry *device.Registry
	Bridge   Bridge
	Rules    Rules   // optional; rule routes answer 503 without it
	History  History // optional; history routes answer 503 without it
	// Checks are named components probed by /health.
	Checks  map[string]HealthChecker
	Version string
	// Hub is created by New when nil. Passing one lets the bridge be
	// built with the hub as its notifier before the server exists.
	Hub *Hub
}

// Server is the HTTP API server.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	logger    *logging.Logger
	registry  *device.Registry
	bridge    Bridge
	rules     Rules
	history   History
	checks    map[string]HealthChecker
	version   string
	startTime time.Time
	server    *http.Server
	hub       *Hub
	tickets   *ttlcache.Cache[string, string]
	cancel    context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, registry, bridge)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("device registry is required")
	}
	if deps.Bridge == nil {
		return nil, fmt.Errorf("bridge is required")
	}

	hub := deps.Hub
	if hub == nil {
		hub = NewHub(deps.Logger)
	}

	return &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		registry:  deps.Registry,
		bridge:    deps.Bridge,
		rules:     deps.Rules,
		history:   deps.History,
		checks:    deps.Checks,
		version:   deps.Version,
		startTime: time.Now(),
		hub:       hub,
		tickets:   ttlcache.New(ttlcache.WithTTL[string, string](ticketTTL)),
	}, nil
}

// Hub returns the WebSocket hub. It implements bridge.Notifier.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the router without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening for HTTP connections.
//
// It starts the ticket cleanup loop and launches the HTTP listener in a
// background goroutine. The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.hub.Run(srvCtx)
	go s.cleanTicketsLoop(srvCtx)

	if s.cfg.JWTSecret == "" {
		s.logger.Warn("API authentication disabled: no jwt_secret configured")
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
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

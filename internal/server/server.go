package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// DefaultRoutePrefix is the prefix of the portal routes. The routes are
// also served without it.
const DefaultRoutePrefix = "/api"

// Peers serves groupcache peer requests under BasePath
type Peers interface {
	http.Handler
	BasePath() string
}

// Config contains server configuration
type Config struct {
	// Addr is the listen address, e.g. ":8080"
	Addr string

	// RoutePrefix defaults to DefaultRoutePrefix. Set it to "/" to serve
	// the routes only without a prefix.
	RoutePrefix string

	// AllowedOrigins enables CORS for the listed origins
	AllowedOrigins []string

	// Handler serves the portal routes
	Handler http.Handler

	// Peers is mounted when the catalog cache is shared between instances
	Peers Peers

	ReadHeaderTimeout time.Duration
	Logger            *slog.Logger
}

// Server manages the HTTP server
type Server struct {
	httpServer *http.Server
	addr       string
	router     http.Handler
	logger     *slog.Logger
	listener   net.Listener
}

// New creates a new server with the given configuration
func New(cfg Config) (*Server, error) {
	if cfg.Handler == nil {
		return nil, fmt.Errorf("portal handler is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:   cfg.Addr,
		router: NewRouter(cfg),
		logger: logger,
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			ReadHeaderTimeout: readHeaderTimeout(cfg.ReadHeaderTimeout),
		},
	}, nil
}

func readHeaderTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 10 * time.Second
	}
	return d
}

// NewRouter builds the chi router serving the portal routes, the health
// check and, when configured, the catalog cache peer endpoint
func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(cors(cfg.AllowedOrigins))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Route not found.")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusMethodNotAllowed,
			fmt.Sprintf("HTTP method '%s' is not supported for route '%s'.", req.Method, req.URL.Path))
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	for _, prefix := range routePrefixes(cfg.RoutePrefix) {
		r.Get(prefix+"/customer/projects", cfg.Handler.ServeHTTP)
		// every method reaches the handler so it can answer 405 per entity
		r.HandleFunc(prefix+"/customer/data", cfg.Handler.ServeHTTP)
	}

	if cfg.Peers != nil {
		r.Handle(strings.TrimSuffix(cfg.Peers.BasePath(), "/")+"/*", cfg.Peers)
	}
	return r
}

func routePrefixes(prefix string) []string {
	if prefix == "" {
		prefix = DefaultRoutePrefix
	}
	prefix = "/" + strings.Trim(prefix, "/")
	if prefix == "/" {
		return []string{""}
	}
	return []string{prefix, ""}
}

// Handler returns the root handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the bound address once started, or the configured one
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	listener, err := (&net.ListenConfig{}).Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = listener
	s.httpServer.Handler = s.router

	go func() {
		s.logger.Info("HTTP server listening", "addr", listener.Addr().String())
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()

	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

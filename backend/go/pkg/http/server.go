package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"PrepBot/backend/go/internal/config"
	"PrepBot/backend/go/pkg/circuitbreaker"
	"PrepBot/backend/go/pkg/httpmiddleware"
	"PrepBot/backend/go/pkg/logger"
)

// Middleware defines a function to wrap an http.Handler.
type Middleware func(http.Handler) http.Handler

// Server wraps the standard http.Server and applies the service middleware
// chain around the application handler.
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

// ServerOption defines a function for configuring a Server.
type ServerOption func(*Server)

// WithAddress sets the address for the server to listen on.
func WithAddress(addr string) ServerOption {
	return func(s *Server) {
		s.httpServer.Addr = addr
	}
}

// NewServer creates a Server for handler. Every request gets a request ID,
// an access log line and a context deadline of server.requestTimeout.
func NewServer(cfg config.ServerConfig, handler http.Handler, log *logger.Logger, opts ...ServerOption) *Server {
	middlewares := []Middleware{
		httpmiddleware.RequestID(),
		httpmiddleware.AccessLog(log),
		httpmiddleware.Timeout(config.Duration(cfg.RequestTimeout, 60*time.Second)),
	}

	// Apply all middlewares in reverse order
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}

	srv := &Server{
		httpServer: &http.Server{
			Addr:              cfg.Address,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}

	for _, opt := range opts {
		opt(srv)
	}

	if srv.httpServer.Addr == "" {
		srv.httpServer.Addr = ":5001"
	}
	return srv
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Listen binds the configured address without serving.
func (s *Server) Listen() (net.Listener, error) {
	lis, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return lis, nil
}

// Serve accepts connections on lis until Shutdown is called.
// http.ErrServerClosed is not reported as an error.
func (s *Server) Serve(lis net.Listener) error {
	s.log.Info(fmt.Sprintf("HTTP server listening at %s", lis.Addr()))
	if err := s.httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// NewCircuitBreaker initializes a circuit breaker based on the configuration.
func NewCircuitBreaker(cfg config.CircuitBreakerConfig, log *logger.Logger) (circuitbreaker.CircuitBreaker, error) {
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid circuit breaker timeout duration: %w", err)
	}
	return circuitbreaker.New(
		circuitbreaker.WithFailureThreshold(cfg.FailureThreshold),
		circuitbreaker.WithSuccessThreshold(cfg.SuccessThreshold),
		circuitbreaker.WithOpenTimeout(timeout),
		circuitbreaker.WithStateChange(func(from, to circuitbreaker.State) {
			log.Warn(fmt.Sprintf("circuit breaker state changed: %s -> %s", from, to))
		}),
	), nil
}

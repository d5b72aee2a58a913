package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/workdigest/internal/logging"
)

// DefaultHTTPAddr keeps the MCP endpoint on loopback unless told otherwise.
const DefaultHTTPAddr = "127.0.0.1:8080"

// HTTPServerConfig configures the streamable HTTP transport.
type HTTPServerConfig struct {
	Addr string

	// DisableStreaming answers every request with a single JSON response,
	// for clients that cannot read server-sent events.
	DisableStreaming bool

	// OAuth, when set, requires a bearer token issued through Google
	// sign-in on /mcp.
	OAuth *OAuthConfig

	Health *HealthChecker
	Logger *slog.Logger
}

// HTTPServer serves an MCP server over streamable HTTP on /mcp, next to
// the health endpoints.
type HTTPServer struct {
	addr    string
	handler http.Handler
	logger  *slog.Logger
	guard   *oauthGuard

	mu         sync.Mutex
	listener   net.Listener
	httpServer *http.Server
}

// NewHTTPServer creates the HTTP transport for mcpSrv.
func NewHTTPServer(mcpSrv *mcpserver.MCPServer, config HTTPServerConfig) (*HTTPServer, error) {
	if config.Addr == "" {
		config.Addr = DefaultHTTPAddr
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	opts := []mcpserver.StreamableHTTPOption{
		mcpserver.WithEndpointPath("/mcp"),
		mcpserver.WithLogger(logging.NewPrintfAdapter(config.Logger.With(logging.Component("mcp_transport")))),
	}
	if config.DisableStreaming {
		opts = append(opts, mcpserver.WithDisableStreaming(true))
	}
	streamable := mcpserver.NewStreamableHTTPServer(mcpSrv, opts...)

	mux := http.NewServeMux()
	var guard *oauthGuard
	if config.OAuth != nil {
		var err error
		guard, err = newOAuthGuard(*config.OAuth, config.Logger.With(logging.Component("oauth")))
		if err != nil {
			return nil, err
		}
		guard.register(mux, streamable)
	} else {
		mux.Handle("/mcp", streamable)
	}
	if config.Health != nil {
		config.Health.RegisterHealthEndpoints(mux)
	}

	return &HTTPServer{
		addr:    config.Addr,
		handler: mux,
		logger:  config.Logger.With(logging.Component("mcp_http")),
		guard:   guard,
	}, nil
}

// Handler returns the request router.
func (s *HTTPServer) Handler() http.Handler {
	return s.handler
}

// Start listens and serves until Shutdown. It returns nil after a graceful
// shutdown.
func (s *HTTPServer) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.logger.Info("MCP HTTP server listening",
		slog.String("addr", ln.Addr().String()),
		slog.String("endpoint", "/mcp"),
		slog.Bool("oauth", s.guard != nil))
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.guard != nil {
		defer s.guard.stop()
	}
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Addr returns the bound address once listening, otherwise the configured one.
func (s *HTTPServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

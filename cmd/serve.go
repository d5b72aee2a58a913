package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/workdigest/internal/config"
	"github.com/teemow/workdigest/internal/logging"
	"github.com/teemow/workdigest/internal/resources"
	"github.com/teemow/workdigest/internal/server"
	"github.com/teemow/workdigest/internal/tools/calendar_tools"
	"github.com/teemow/workdigest/internal/tools/google_tools"
	"github.com/teemow/workdigest/internal/tools/meet_tools"
	"github.com/teemow/workdigest/internal/tools/report_tools"
	"github.com/teemow/workdigest/internal/tools/tasks_tools"
)

const (
	transportStdio = "stdio"
	transportHTTP  = "streamable-http"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	var (
		transport        string
		httpAddr         string
		yolo             bool
		disableStreaming bool
		oauthOpts        oauthOptions
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server to offer the report,
calendar and Meet operations as tools for AI assistants.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport on /mcp

Safety Mode:
  By default, the server operates in read-only mode. Tools that create
  calendar events, Meet spaces or tasks are left out. Use --yolo to enable
  them.

With streamable-http the health endpoints /healthz, /readyz and
/healthz/detailed are served next to /mcp. --metrics-addr adds a separate
Prometheus listener.

OAuth:
  --oauth puts an OAuth 2.1 authorization server in front of /mcp. MCP
  clients sign in with Google and only the accounts named with
  --oauth-allowed-email may call tools. The Google client ID and secret
  come from the configuration (GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET).
  Binding --http-addr to a non-loopback address requires --oauth.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if transport != transportStdio && transport != transportHTTP {
				return fmt.Errorf("unsupported transport type: %s (supported: %s, %s)", transport, transportStdio, transportHTTP)
			}
			if err := checkOAuthTransport(transport, httpAddr, oauthOpts.enabled); err != nil {
				return err
			}
			return runServe(cmd, opts, serveOptions{
				transport:        transport,
				httpAddr:         httpAddr,
				readOnly:         !yolo,
				disableStreaming: disableStreaming,
				oauth:            oauthOpts,
			})
		},
	}

	cmd.Flags().StringVar(&transport, "transport", transportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&httpAddr, "http-addr", server.DefaultHTTPAddr, "HTTP server address (for streamable-http transport)")
	cmd.Flags().BoolVar(&yolo, "yolo", false, "Enable write operations (calendar events, Meet spaces, tasks). Default is read-only mode.")
	cmd.Flags().BoolVar(&disableStreaming, "disable-streaming", false, "Answer with plain JSON instead of server-sent events (for streamable-http transport)")

	cmd.Flags().BoolVar(&oauthOpts.enabled, "oauth", false, "Require Google sign-in through OAuth 2.1 on /mcp (for streamable-http transport)")
	cmd.Flags().StringVar(&oauthOpts.baseURL, "oauth-base-url", os.Getenv("MCP_BASE_URL"), "Public base URL of the server, e.g. https://digest.example.com. Can also use MCP_BASE_URL env var.")
	cmd.Flags().StringSliceVar(&oauthOpts.allowedEmails, "oauth-allowed-email", nil, "Google account allowed to call tools (repeatable)")
	cmd.Flags().BoolVar(&oauthOpts.allowPublicRegistration, "oauth-allow-public-registration", false, "Allow unauthenticated OAuth client registration")
	cmd.Flags().StringVar(&oauthOpts.registrationToken, "oauth-registration-token", os.Getenv("MCP_OAUTH_REGISTRATION_TOKEN"), "Token clients present to register. Can also use MCP_OAUTH_REGISTRATION_TOKEN env var.")

	return cmd
}

type serveOptions struct {
	transport        string
	httpAddr         string
	readOnly         bool
	disableStreaming bool
	oauth            oauthOptions
}

type oauthOptions struct {
	enabled                 bool
	baseURL                 string
	allowedEmails           []string
	allowPublicRegistration bool
	registrationToken       string
}

// checkOAuthTransport keeps an unauthenticated /mcp on loopback.
func checkOAuthTransport(transport, httpAddr string, oauthEnabled bool) error {
	if transport != transportHTTP {
		if oauthEnabled {
			return fmt.Errorf("--oauth requires the %s transport", transportHTTP)
		}
		return nil
	}
	if !oauthEnabled && !server.IsLoopbackAddr(httpAddr) {
		return fmt.Errorf("refusing to serve /mcp on non-loopback address %s without --oauth", httpAddr)
	}
	return nil
}

// oauthConfig builds the HTTP OAuth settings, or nil when OAuth is off.
func oauthConfig(o oauthOptions, cfg *config.Config) *server.OAuthConfig {
	if !o.enabled {
		return nil
	}
	return &server.OAuthConfig{
		BaseURL:                       o.baseURL,
		ClientID:                      cfg.Google.ClientID,
		ClientSecret:                  cfg.Google.ClientSecret,
		AllowedEmails:                 o.allowedEmails,
		AllowPublicClientRegistration: o.allowPublicRegistration,
		RegistrationAccessToken:       o.registrationToken,
	}
}

func runServe(cmd *cobra.Command, opts *globalOptions, so serveOptions) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	// The metrics listener needs the health checker, which needs the app.
	metricsAddr := opts.metricsAddr
	base := *opts
	base.metricsAddr = ""

	rt, err := newRuntime(ctx, cmd, &base, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	sc := server.NewServerContext(ctx, rt.app)
	defer func() {
		if err := sc.Shutdown(); err != nil {
			rt.logger.Warn("server context shutdown failed", logging.Err(err))
		}
	}()

	health := server.NewHealthChecker(sc, version)
	if metricsAddr != "" {
		if err := rt.startMetrics(metricsAddr, health); err != nil {
			return err
		}
	}

	mcpSrv := newMCPServer()
	if err := registerAllTools(mcpSrv, sc, so.readOnly); err != nil {
		return err
	}

	rt.logger.Info("starting MCP server",
		slog.String("transport", so.transport),
		slog.Bool("read_only", so.readOnly),
		slog.Bool("oauth", so.oauth.enabled))

	if so.transport == transportStdio {
		return runStdioServer(ctx, mcpSrv, rt.logger)
	}
	return runStreamableHTTPServer(ctx, mcpSrv, health, server.HTTPServerConfig{
		Addr:             so.httpAddr,
		DisableStreaming: so.disableStreaming,
		OAuth:            oauthConfig(so.oauth, rt.cfg),
		Health:           health,
		Logger:           rt.logger,
	})
}

func newMCPServer() *mcpserver.MCPServer {
	return mcpserver.NewMCPServer("workdigest", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false),
	)
}

// registerAllTools registers every MCP tool and resource. With readOnly the
// tools that create anything are left out.
func registerAllTools(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	registrations := []struct {
		name     string
		register func() error
	}{
		{"Report", func() error { return report_tools.RegisterReportTools(mcpSrv, sc, readOnly) }},
		{"Calendar", func() error { return calendar_tools.RegisterCalendarTools(mcpSrv, sc, readOnly) }},
		{"Meet", func() error { return meet_tools.RegisterMeetTools(mcpSrv, sc, readOnly) }},
		{"Tasks", func() error { return tasks_tools.RegisterTasksTools(mcpSrv, sc) }},
		{"Google Account", func() error { return google_tools.RegisterGoogleTools(mcpSrv, sc) }},
		{"Resources", func() error { return resources.RegisterResources(mcpSrv, sc) }},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.name, err)
		}
	}
	return nil
}

func runStdioServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, logger *slog.Logger) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv, mcpserver.WithErrorLogger(logging.StdLogger(logger, slog.LevelError))); err != nil {
			serverDone <- err
		}
	}()

	select {
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
	case <-ctx.Done():
	}
	return nil
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, health *server.HealthChecker, httpConfig server.HTTPServerConfig) error {
	logger := httpConfig.Logger
	httpServer, err := server.NewHTTPServer(mcpSrv, httpConfig)
	if err != nil {
		return err
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		serverDone <- httpServer.Start()
	}()
	health.SetReady(true)

	select {
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down MCP HTTP server")
	health.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("error during server shutdown: %w", err)
	}
	return <-serverDone
}

package server

import (
	"context"
	"sync"

	"github.com/teemow/workdigest/internal/app"
	"github.com/teemow/workdigest/internal/instrumentation"
)

// ServerContext holds the state shared by the MCP tool handlers
type ServerContext struct {
	ctx      context.Context
	cancel   context.CancelFunc
	app      *app.App
	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a server context around a wired application.
// Tool invocations inherit ctx and are cancelled by Shutdown.
func NewServerContext(ctx context.Context, a *app.App) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)
	return &ServerContext{
		ctx:    shutdownCtx,
		cancel: cancel,
		app:    a,
	}
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// App returns the application the tools operate on
func (sc *ServerContext) App() *app.App {
	return sc.app
}

// Metrics returns the metrics recorder, nil when instrumentation is off
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	if sc.app == nil {
		return nil
	}
	return sc.app.Metrics()
}

// AuditLogger returns the audit logger, nil when auditing is off
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	if sc.app == nil {
		return nil
	}
	return sc.app.AuditLogger()
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels in-flight tool calls and closes the application.
// It is safe to call more than once.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	if sc.app != nil {
		return sc.app.Close()
	}
	return nil
}

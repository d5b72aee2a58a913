package common

import (
	"context"
	"errors"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/workdigest/internal/instrumentation"
	"github.com/teemow/workdigest/internal/server"
)

// ToolHandler is the signature of an MCP tool handler.
type ToolHandler = func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// errToolResult marks invocations that returned an error result rather than
// a Go error.
var errToolResult = errors.New("tool returned an error result")

// InstrumentedToolHandler wraps a tool handler with a trace span, tool
// metrics and an audit record. The handler runs under the server context
// so that shutdown cancels it.
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", sc, handler))
func InstrumentedToolHandler(toolName string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, cancel := mergeCancel(ctx, sc.Context())
		defer cancel()

		ctx, span := instrumentation.StartToolSpan(ctx, toolName)
		defer span.End()

		fallback := ""
		if sc.App() != nil {
			fallback = sc.App().Account("")
		}
		record := instrumentation.NewRunRecord(instrumentation.RunKindTool, toolName).
			WithAccount(GetAccountFromArgs(request.GetArguments(), fallback))

		start := time.Now()
		result, err := handler(ctx, request)
		duration := time.Since(start)

		failure := err
		if failure == nil && result != nil && result.IsError {
			failure = errToolResult
		}

		status := instrumentation.StatusSuccess
		if failure != nil {
			status = instrumentation.StatusError
			instrumentation.SetSpanError(span, failure)
		} else {
			instrumentation.SetSpanSuccess(span)
		}

		sc.Metrics().RecordToolInvocation(ctx, toolName, status, duration)
		sc.AuditLogger().Log(ctx, record.Complete(ctx, failure))

		return result, err
	}
}

// mergeCancel returns a context derived from ctx that is also cancelled
// when parent is done.
func mergeCancel(ctx, parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(parent, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

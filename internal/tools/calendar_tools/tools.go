package calendar_tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/workdigest/internal/schedule"
	"github.com/teemow/workdigest/internal/server"
	"github.com/teemow/workdigest/internal/tools/common"
)

// RegisterCalendarTools registers the calendar tools with the MCP server.
// In read-only mode requests that would create an event are refused.
func RegisterCalendarTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	requestTool := mcp.NewTool("calendar_request",
		mcp.WithDescription("List or create Google Calendar events from a plain language request, e.g. 'what do I have on Tuesday' or 'book a design review tomorrow at 3pm'"),
		mcp.WithString("account",
			mcp.Description("Account name (default: the configured account). Used to manage multiple Google accounts."),
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The calendar request"),
		),
		mcp.WithString("format",
			mcp.Description("Output format: 'text' (default) or 'json'"),
			mcp.Enum("text", "json"),
		),
	)

	s.AddTool(requestTool, common.InstrumentedToolHandler("calendar_request", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleCalendarRequest(ctx, request, sc, readOnly)
	}))

	return nil
}

func handleCalendarRequest(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext, readOnly bool) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	query, err := common.RequiredStringArg(args, "query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var opts []schedule.Option
	if readOnly {
		opts = append(opts, schedule.WithReadOnly())
	}
	result, err := sc.App().CalendarRequest(ctx, common.StringArg(args, "account"), query, opts...)
	switch {
	case errors.Is(err, schedule.ErrActionNotAllowed):
		return mcp.NewToolResultError("Creating events is disabled on this server (read-only mode)"), nil
	case errors.Is(err, schedule.ErrInvalidRequest):
		return mcp.NewToolResultError(fmt.Sprintf("Could not understand the calendar request: %v", err)), nil
	case err != nil:
		return mcp.NewToolResultError(fmt.Sprintf("Calendar request failed: %v", err)), nil
	}

	if common.StringArg(args, "format") == "json" {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
		}
		return mcp.NewToolResultText(string(out)), nil
	}
	return mcp.NewToolResultText(result.Text()), nil
}

package tasks_tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/workdigest/internal/server"
	"github.com/teemow/workdigest/internal/tools/common"
)

// RegisterTasksTools registers the Tasks tools with the MCP server
func RegisterTasksTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	listTaskListsTool := mcp.NewTool("tasks_list_tasklists",
		mcp.WithDescription("List the Google Tasks lists of an account. Use an id or title as tasks_list of transcript_report."),
		mcp.WithString("account",
			mcp.Description("Account name (default: the configured account). Used to manage multiple Google accounts."),
		),
	)

	s.AddTool(listTaskListsTool, common.InstrumentedToolHandler("tasks_list_tasklists", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleListTaskLists(ctx, request, sc)
	}))

	return nil
}

func handleListTaskLists(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	lists, err := sc.App().TaskLists(ctx, common.StringArg(request.GetArguments(), "account"))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list task lists: %v", err)), nil
	}
	if len(lists) == 0 {
		return mcp.NewToolResultText("No task lists found."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d task lists:\n\n", len(lists))
	for _, l := range lists {
		fmt.Fprintf(&b, "- %s (ID: %s)\n", l.Title, l.ID)
	}
	return mcp.NewToolResultText(b.String()), nil
}

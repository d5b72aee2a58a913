package meet_tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/workdigest/internal/meet"
	"github.com/teemow/workdigest/internal/server"
	"github.com/teemow/workdigest/internal/tools/common"
)

// RegisterMeetTools registers the Meet tools. Nothing is registered in
// read-only mode since every Meet tool writes.
func RegisterMeetTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if readOnly {
		return nil
	}

	createSpaceTool := mcp.NewTool("meet_create_space",
		mcp.WithDescription("Create a Google Meet space and return its join link"),
		mcp.WithString("account",
			mcp.Description("Account name (default: the configured account). Used to manage multiple Google accounts."),
		),
		mcp.WithString("access_type",
			mcp.Description("Who can join without knocking: OPEN (default), TRUSTED or RESTRICTED"),
			mcp.Enum(meet.AccessOpen, meet.AccessTrusted, meet.AccessRestricted),
		),
	)

	s.AddTool(createSpaceTool, common.InstrumentedToolHandler("meet_create_space", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleCreateSpace(ctx, request, sc)
	}))

	return nil
}

func handleCreateSpace(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	accessType := strings.ToUpper(common.StringArg(args, "access_type"))
	switch accessType {
	case "", meet.AccessOpen, meet.AccessTrusted, meet.AccessRestricted:
	default:
		return mcp.NewToolResultError(fmt.Sprintf("invalid access_type %q", accessType)), nil
	}

	space, err := sc.App().CreateMeeting(ctx, common.StringArg(args, "account"), accessType)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to create Meet space: %v", err)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Meet space created: %s\n", space.Name)
	fmt.Fprintf(&b, "Join link: %s\n", space.MeetingURI)
	fmt.Fprintf(&b, "Meeting code: %s\n", space.MeetingCode)
	if space.AccessType != "" {
		fmt.Fprintf(&b, "Access: %s\n", space.AccessType)
	}
	return mcp.NewToolResultText(b.String()), nil
}

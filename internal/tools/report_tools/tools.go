package report_tools

import (
	"bytes"
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/workdigest/internal/app"
	"github.com/teemow/workdigest/internal/pipeline"
	"github.com/teemow/workdigest/internal/report"
	"github.com/teemow/workdigest/internal/server"
	"github.com/teemow/workdigest/internal/tools/common"
)

const accountDescription = "Account name (default: the configured account). Used to manage multiple Google accounts."

func formatOption() mcp.ToolOption {
	return mcp.WithString("format",
		mcp.Description("Output format: 'text' (default) or 'json'"),
		mcp.Enum("text", "json"),
	)
}

// RegisterReportTools registers the report tools with the MCP server. In
// read-only mode transcript_report cannot push action items to Google Tasks.
func RegisterReportTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	driveTool := mcp.NewTool("drive_report",
		mcp.WithDescription("Summarize and prioritize the documents of a Google Drive folder"),
		mcp.WithString("account", mcp.Description(accountDescription)),
		mcp.WithString("folder",
			mcp.Required(),
			mcp.Description("Drive folder id or link"),
		),
		mcp.WithString("topic",
			mcp.Description("Only analyze files whose names are relevant to this topic"),
		),
		formatOption(),
	)
	s.AddTool(driveTool, common.InstrumentedToolHandler("drive_report", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleDriveReport(ctx, request, sc)
	}))

	emailTool := mcp.NewTool("email_report",
		mcp.WithDescription("Summarize and prioritize recent Gmail messages"),
		mcp.WithString("account", mcp.Description(accountDescription)),
		mcp.WithNumber("max_messages",
			mcp.Description("Maximum number of messages to analyze (default: configured value)"),
		),
		mcp.WithString("query",
			mcp.Description("Gmail search query, e.g. 'is:unread newer_than:2d'"),
		),
		formatOption(),
	)
	s.AddTool(emailTool, common.InstrumentedToolHandler("email_report", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleEmailReport(ctx, request, sc)
	}))

	transcriptOpts := []mcp.ToolOption{
		mcp.WithDescription("Extract participants, key points, action items and deadlines from meeting transcripts"),
		mcp.WithString("account", mcp.Description(accountDescription)),
		mcp.WithString("path",
			mcp.Description("Local transcript file or directory (.txt, .md, .vtt, .srt, .html)"),
		),
		mcp.WithString("conference_record",
			mcp.Description("Google Meet conference record, e.g. 'conferenceRecords/abc'"),
		),
		mcp.WithString("filter",
			mcp.Description("File name glob for local transcripts"),
		),
		formatOption(),
	}
	if !readOnly {
		transcriptOpts = append(transcriptOpts, mcp.WithString("tasks_list",
			mcp.Description("Add the action items to this Google Tasks list (id or title, '@default' for the default list)"),
		))
	}
	s.AddTool(mcp.NewTool("transcript_report", transcriptOpts...), common.InstrumentedToolHandler("transcript_report", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleTranscriptReport(ctx, request, sc, readOnly)
	}))

	return nil
}

func handleDriveReport(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	folder, err := common.RequiredStringArg(args, "folder")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := sc.App().DriveReport(ctx, common.StringArg(args, "account"), folder, common.StringArg(args, "topic"))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Drive report failed: %v", err)), nil
	}
	return render(args, app.DriveProfile().Layout, result, "")
}

func handleEmailReport(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	maxMessages := common.IntArg(args, "max_messages", 0)
	if maxMessages < 0 {
		return mcp.NewToolResultError("max_messages must not be negative"), nil
	}

	result, err := sc.App().EmailReport(ctx, common.StringArg(args, "account"), maxMessages, common.StringArg(args, "query"))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Email report failed: %v", err)), nil
	}
	return render(args, app.EmailProfile().Layout, result, "")
}

func handleTranscriptReport(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext, readOnly bool) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	list := common.StringArg(args, "tasks_list")
	if list != "" && readOnly {
		return mcp.NewToolResultError("Adding tasks is disabled on this server (read-only mode)"), nil
	}
	in := app.TranscriptInput{
		Path:             common.StringArg(args, "path"),
		ConferenceRecord: common.StringArg(args, "conference_record"),
	}
	account := common.StringArg(args, "account")

	result, err := sc.App().TranscriptReport(ctx, account, in, common.StringArg(args, "filter"))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Transcript report failed: %v", err)), nil
	}

	var note string
	if list != "" {
		n, err := sc.App().PushActionItems(ctx, account, list, result)
		switch {
		case err != nil:
			note = fmt.Sprintf("\nAdded %d action items to Google Tasks; some failed: %v\n", n, err)
		default:
			note = fmt.Sprintf("\nAdded %d action items to Google Tasks.\n", n)
		}
	}
	return render(args, app.TranscriptProfile().Layout, result, note)
}

// render writes result with the requested sink. note is appended to text
// output only, so JSON stays machine readable.
func render(args map[string]any, layout report.Layout, result *pipeline.BatchResult, note string) (*mcp.CallToolResult, error) {
	format := common.StringArg(args, "format")
	sink, err := report.SinkFor(format, layout)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var buf bytes.Buffer
	if err := sink.Write(&buf, result); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to render report: %v", err)), nil
	}
	if _, isJSON := sink.(report.JSONSink); !isJSON {
		buf.WriteString(note)
	}
	return mcp.NewToolResultText(buf.String()), nil
}

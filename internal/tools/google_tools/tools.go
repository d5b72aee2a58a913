package google_tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/workdigest/internal/google"
	"github.com/teemow/workdigest/internal/server"
	"github.com/teemow/workdigest/internal/tools/common"
)

// pendingFlows holds the consent flows started per account. Starting a new
// flow for an account replaces the previous one.
type pendingFlows struct {
	mu    sync.Mutex
	flows map[string]*google.AuthRequest
}

func (p *pendingFlows) put(account string, req *google.AuthRequest) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flows[account] = req
}

func (p *pendingFlows) take(account string) (*google.AuthRequest, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	req, ok := p.flows[account]
	delete(p.flows, account)
	return req, ok
}

// RegisterGoogleTools registers the Google OAuth tools with the MCP server
func RegisterGoogleTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	flows := &pendingFlows{flows: make(map[string]*google.AuthRequest)}

	getAuthURLTool := mcp.NewTool("google_get_auth_url",
		mcp.WithDescription("Get the OAuth URL to authorize Google access (Drive, Gmail, Calendar, Meet, Tasks) for an account"),
		mcp.WithString("account",
			mcp.Description("Account name (default: the configured account). Used to manage multiple Google accounts."),
		),
	)
	s.AddTool(getAuthURLTool, common.InstrumentedToolHandler("google_get_auth_url", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleGetAuthURL(ctx, request, sc, flows)
	}))

	saveAuthCodeTool := mcp.NewTool("google_save_auth_code",
		mcp.WithDescription("Complete Google authorization with the code obtained from google_get_auth_url"),
		mcp.WithString("account",
			mcp.Description("Account name (default: the configured account). Must match the account passed to google_get_auth_url."),
		),
		mcp.WithString("authCode",
			mcp.Required(),
			mcp.Description("The authorization code from Google OAuth"),
		),
	)
	s.AddTool(saveAuthCodeTool, common.InstrumentedToolHandler("google_save_auth_code", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleSaveAuthCode(ctx, request, sc, flows)
	}))

	return nil
}

func handleGetAuthURL(_ context.Context, request mcp.CallToolRequest, sc *server.ServerContext, flows *pendingFlows) (*mcp.CallToolResult, error) {
	account := sc.App().Account(common.StringArg(request.GetArguments(), "account"))
	if err := google.ValidateAccountName(account); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	provider, err := sc.App().Provider()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Google authorization is not configured: %v", err)), nil
	}
	req, err := provider.BeginAuth(google.AllScopes())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to start authorization: %v", err)), nil
	}
	flows.put(account, req)

	result := fmt.Sprintf(`To authorize Google access for account "%s":

1. Visit this URL in your browser:
   %s

2. Sign in with your Google account and grant access
3. Copy the authorization code

4. Call the google_save_auth_code tool with the code and account name to complete authentication`, account, req.URL)

	return mcp.NewToolResultText(result), nil
}

func handleSaveAuthCode(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext, flows *pendingFlows) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	account := sc.App().Account(common.StringArg(args, "account"))

	code, err := common.RequiredStringArg(args, "authCode")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req, ok := flows.take(account)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("No pending authorization for account %q. Call google_get_auth_url first.", account)), nil
	}

	provider, err := sc.App().Provider()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Google authorization is not configured: %v", err)), nil
	}
	if err := provider.CompleteAuth(ctx, account, req, code); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to save authorization code for account %s: %v", account, err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Authorization successful for account '%s'. The token is stored and refreshed automatically.", account)), nil
}

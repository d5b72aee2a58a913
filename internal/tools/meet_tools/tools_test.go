package meet_tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/teemow/workdigest/internal/app"
	"github.com/teemow/workdigest/internal/config"
	"github.com/teemow/workdigest/internal/server"
)

func newServerContext(t *testing.T) (*server.ServerContext, *string) {
	t.Helper()
	var access string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v2/spaces", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Config struct {
				AccessType string `json:"accessType"`
			} `json:"config"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		access = body.Config.AccessType
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"name":        "spaces/abc",
			"meetingUri":  "https://meet.google.com/abc-defg-hij",
			"meetingCode": "abc-defg-hij",
			"config":      map[string]string{"accessType": access},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	a, err := app.New(context.Background(), config.Default(), app.Options{
		GoogleOptions: []option.ClientOption{option.WithEndpoint(srv.URL + "/"), option.WithoutAuthentication()},
	})
	require.NoError(t, err)
	sc := server.NewServerContext(context.Background(), a)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc, &access
}

func call(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func TestRegisterMeetTools(t *testing.T) {
	sc, _ := newServerContext(t)

	s := mcpserver.NewMCPServer("test", "1.0.0", mcpserver.WithToolCapabilities(true))
	require.NoError(t, RegisterMeetTools(s, sc, true))
	assert.Empty(t, s.ListTools())

	require.NoError(t, RegisterMeetTools(s, sc, false))
	assert.Contains(t, s.ListTools(), "meet_create_space")
}

func TestHandleCreateSpace(t *testing.T) {
	sc, access := newServerContext(t)

	res, err := handleCreateSpace(context.Background(), call(map[string]any{"access_type": "trusted"}), sc)
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Equal(t, "TRUSTED", *access)

	text := res.Content[0].(mcp.TextContent).Text
	assert.Contains(t, text, "Join link: https://meet.google.com/abc-defg-hij")
	assert.Contains(t, text, "Access: TRUSTED")
}

func TestHandleCreateSpace_InvalidAccess(t *testing.T) {
	sc, access := newServerContext(t)

	res, err := handleCreateSpace(context.Background(), call(map[string]any{"access_type": "public"}), sc)
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Empty(t, *access)
}

package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMCPServer() *mcpserver.MCPServer {
	return mcpserver.NewMCPServer("test", "1.0.0", mcpserver.WithToolCapabilities(true))
}

func TestHTTPServer_Routes(t *testing.T) {
	srv, err := NewHTTPServer(newMCPServer(), HTTPServerConfig{Health: NewHealthChecker(nil, "v1")})
	require.NoError(t, err)
	assert.Equal(t, DefaultHTTPAddr, srv.Addr())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"t","version":"1"}}}`
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"serverInfo"`)
}

func TestHTTPServer_StartAndShutdown(t *testing.T) {
	srv, err := NewHTTPServer(newMCPServer(), HTTPServerConfig{Addr: "127.0.0.1:0", DisableStreaming: true})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	require.Eventually(t, func() bool { return srv.Addr() != "127.0.0.1:0" }, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("HTTP server did not stop")
	}
}

func TestHTTPServer_ShutdownWithoutStart(t *testing.T) {
	srv, err := NewHTTPServer(newMCPServer(), HTTPServerConfig{})
	require.NoError(t, err)
	assert.NoError(t, srv.Shutdown(context.Background()))
}

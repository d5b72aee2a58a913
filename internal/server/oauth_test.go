package server

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	oauth "github.com/giantswarm/mcp-oauth"
	"github.com/giantswarm/mcp-oauth/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateHTTPSRequirement(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantErr bool
	}{
		{name: "https", baseURL: "https://digest.example.com"},
		{name: "https with path", baseURL: "https://digest.example.com/api"},
		{name: "https with port", baseURL: "https://digest.example.com:8443"},
		{name: "http localhost", baseURL: "http://localhost:8080"},
		{name: "http 127.0.0.1", baseURL: "http://127.0.0.1:8080"},
		{name: "http ipv6 loopback", baseURL: "http://[::1]:8080"},
		{name: "http remote host", baseURL: "http://digest.example.com", wantErr: true},
		{name: "localhost as subdomain", baseURL: "http://localhost.example.com", wantErr: true},
		{name: "loopback ip as subdomain", baseURL: "http://127.0.0.1.example.com", wantErr: true},
		{name: "empty", baseURL: "", wantErr: true},
		{name: "not a url", baseURL: "not a url", wantErr: true},
		{name: "other scheme", baseURL: "ftp://example.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateHTTPSRequirement(tt.baseURL)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIsLoopbackAddr(t *testing.T) {
	assert.True(t, IsLoopbackAddr("127.0.0.1:8080"))
	assert.True(t, IsLoopbackAddr("localhost:8080"))
	assert.True(t, IsLoopbackAddr("[::1]:8080"))
	assert.False(t, IsLoopbackAddr(":8080"))
	assert.False(t, IsLoopbackAddr("0.0.0.0:8080"))
	assert.False(t, IsLoopbackAddr("192.168.1.10:8080"))
}

func validOAuthConfig() OAuthConfig {
	return OAuthConfig{
		BaseURL:                 "https://digest.example.com",
		ClientID:                "client-id",
		ClientSecret:            "client-secret",
		AllowedEmails:           []string{"Jane@Example.com"},
		RegistrationAccessToken: "registration-token",
	}
}

func TestNewOAuthGuard_RejectsIncompleteConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*OAuthConfig)
		errMsg string
	}{
		{name: "insecure base url", modify: func(c *OAuthConfig) { c.BaseURL = "http://digest.example.com" }, errMsg: "https"},
		{name: "missing client secret", modify: func(c *OAuthConfig) { c.ClientSecret = "" }, errMsg: "client secret"},
		{name: "no allowed emails", modify: func(c *OAuthConfig) { c.AllowedEmails = nil }, errMsg: "allowed email"},
		{name: "closed registration without token", modify: func(c *OAuthConfig) { c.RegistrationAccessToken = "" }, errMsg: "registration access token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validOAuthConfig()
			tt.modify(&config)
			_, err := newOAuthGuard(config, slog.Default())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestHTTPServer_OAuthProtectsMCPEndpoint(t *testing.T) {
	config := validOAuthConfig()
	srv, err := NewHTTPServer(newMCPServer(), HTTPServerConfig{
		OAuth:  &config,
		Health: NewHealthChecker(nil, "v1"),
	})
	require.NoError(t, err)
	defer func() { _ = srv.Shutdown(context.Background()) }()

	body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"t","version":"1"}}}`
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"serverInfo"`)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/.well-known/oauth-authorization-server", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://digest.example.com")

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOAuthGuard_RequireAllowedUser(t *testing.T) {
	guard := &oauthGuard{allowed: map[string]bool{"jane@example.com": true}, logger: slog.Default()}
	handler := guard.requireAllowedUser(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name string
		user *providers.UserInfo
		want int
	}{
		{name: "allowed user", user: &providers.UserInfo{Email: "Jane@example.com"}, want: http.StatusOK},
		{name: "other user", user: &providers.UserInfo{Email: "mallory@example.com"}, want: http.StatusForbidden},
		{name: "no user", want: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
			if tt.user != nil {
				req = req.WithContext(oauth.ContextWithUserInfo(req.Context(), tt.user))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

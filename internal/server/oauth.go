package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	oauth "github.com/giantswarm/mcp-oauth"
	oauthgoogle "github.com/giantswarm/mcp-oauth/providers/google"
	"github.com/giantswarm/mcp-oauth/storage/memory"

	"github.com/teemow/workdigest/internal/logging"
)

// identityScopes are requested from Google when an MCP client signs in.
// They only identify the caller; report data is still read with the
// server's own account.
var identityScopes = []string{
	"openid",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
}

// OAuthConfig puts an OAuth 2.1 authorization server in front of /mcp with
// Google as the identity provider.
type OAuthConfig struct {
	// BaseURL is the public URL clients reach the server on. It must use
	// https unless it points at a loopback host.
	BaseURL string

	ClientID     string
	ClientSecret string

	// AllowedEmails lists the Google accounts that may call tools.
	AllowedEmails []string

	AllowPublicClientRegistration bool
	RegistrationAccessToken       string
}

// oauthGuard serves the authorization endpoints and checks bearer tokens
// on the MCP endpoint.
type oauthGuard struct {
	handler *oauth.Handler
	store   *memory.Store
	allowed map[string]bool
	logger  *slog.Logger
}

func newOAuthGuard(config OAuthConfig, logger *slog.Logger) (*oauthGuard, error) {
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if err := validateHTTPSRequirement(baseURL); err != nil {
		return nil, err
	}
	if config.ClientID == "" || config.ClientSecret == "" {
		return nil, errors.New("OAuth mode needs a Google client ID and client secret")
	}
	if len(config.AllowedEmails) == 0 {
		return nil, errors.New("OAuth mode needs at least one allowed email")
	}
	if !config.AllowPublicClientRegistration && config.RegistrationAccessToken == "" {
		return nil, errors.New("OAuth mode needs a registration access token unless public client registration is allowed")
	}

	provider, err := oauthgoogle.NewProvider(&oauthgoogle.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		RedirectURL:  baseURL + "/oauth/callback",
		Scopes:       identityScopes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Google provider: %w", err)
	}

	store := memory.New()
	srv, err := oauth.NewServer(provider, store, store, store, &oauth.ServerConfig{
		Issuer:                        baseURL,
		AllowPublicClientRegistration: config.AllowPublicClientRegistration,
		RegistrationAccessToken:       config.RegistrationAccessToken,
	}, logger)
	if err != nil {
		store.Stop()
		return nil, fmt.Errorf("failed to create OAuth server: %w", err)
	}

	if config.AllowPublicClientRegistration {
		logger.Warn("public OAuth client registration is enabled")
	}

	allowed := make(map[string]bool, len(config.AllowedEmails))
	for _, email := range config.AllowedEmails {
		allowed[strings.ToLower(strings.TrimSpace(email))] = true
	}

	return &oauthGuard{
		handler: oauth.NewHandler(srv, logger),
		store:   store,
		allowed: allowed,
		logger:  logger,
	}, nil
}

// register mounts the OAuth endpoints on mux and mcp behind token
// validation.
func (g *oauthGuard) register(mux *http.ServeMux, mcp http.Handler) {
	mux.HandleFunc("/.well-known/oauth-protected-resource", g.handler.ServeProtectedResourceMetadata)
	mux.HandleFunc("/.well-known/oauth-authorization-server", g.handler.ServeAuthorizationServerMetadata)
	mux.HandleFunc("/oauth/register", g.handler.ServeClientRegistration)
	mux.HandleFunc("/oauth/authorize", g.handler.ServeAuthorization)
	mux.HandleFunc("/oauth/token", g.handler.ServeToken)
	mux.HandleFunc("/oauth/callback", g.handler.ServeCallback)
	mux.HandleFunc("/oauth/revoke", g.handler.ServeTokenRevocation)
	mux.HandleFunc("/oauth/introspect", g.handler.ServeTokenIntrospection)

	mux.Handle("/mcp", g.handler.ValidateToken(g.requireAllowedUser(mcp)))
}

// requireAllowedUser rejects authenticated callers that are not on the
// allow list.
func (g *oauthGuard) requireAllowedUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := oauth.UserInfoFromContext(r.Context())
		if !ok || user == nil || !g.allowed[strings.ToLower(user.Email)] {
			email := ""
			if user != nil {
				email = user.Email
			}
			g.logger.Warn("rejected MCP request from account not on allow list",
				logging.Sender(email))
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *oauthGuard) stop() {
	g.store.Stop()
}

// validateHTTPSRequirement accepts https URLs and plain http on loopback
// hosts only.
func validateHTTPSRequirement(baseURL string) error {
	if baseURL == "" {
		return errors.New("OAuth base URL is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid OAuth base URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		return nil
	case "http":
		switch u.Hostname() {
		case "localhost", "127.0.0.1", "::1":
			return nil
		}
		return fmt.Errorf("OAuth base URL must use https for non-loopback host %q", u.Hostname())
	default:
		return fmt.Errorf("OAuth base URL must use http or https, got %q", baseURL)
	}
}

// IsLoopbackAddr reports whether a listen address only accepts local
// connections.
func IsLoopbackAddr(addr string) bool {
	host := addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/teemow/workdigest/internal/logging"
)

// DefaultRedirectURL is used for installed-app credentials that do not
// declare a redirect URI. The code is copied from the browser address bar.
const DefaultRedirectURL = "http://localhost"

// Credentials identify the OAuth client.
type Credentials struct {
	// File is an installed-app client secret JSON file. It takes precedence
	// over ClientID and ClientSecret.
	File         string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Provider issues authenticated HTTP clients per account and scope set.
type Provider struct {
	creds  Credentials
	store  TokenStore
	logger *slog.Logger

	// endpoint overrides google.Endpoint in tests.
	endpoint oauth2.Endpoint
}

// NewProvider creates a Provider. A nil logger uses slog.Default().
func NewProvider(creds Credentials, store TokenStore, logger *slog.Logger) (*Provider, error) {
	if store == nil {
		return nil, errors.New("token store is required")
	}
	if creds.File == "" && creds.ClientID == "" {
		return nil, errors.New("Google client credentials are missing: set GOOGLE_CREDENTIALS_FILE or GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		creds:    creds,
		store:    store,
		logger:   logger.With(logging.Service("google_auth")),
		endpoint: google.Endpoint,
	}, nil
}

// Config returns the OAuth2 configuration for scopes.
func (p *Provider) Config(scopes []string) (*oauth2.Config, error) {
	if p.creds.File != "" {
		data, err := os.ReadFile(p.creds.File)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		conf, err := google.ConfigFromJSON(data, scopes...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse credentials file: %w", err)
		}
		if p.creds.RedirectURL != "" {
			conf.RedirectURL = p.creds.RedirectURL
		}
		if conf.RedirectURL == "" {
			conf.RedirectURL = DefaultRedirectURL
		}
		return conf, nil
	}

	redirect := p.creds.RedirectURL
	if redirect == "" {
		redirect = DefaultRedirectURL
	}
	return &oauth2.Config{
		ClientID:     p.creds.ClientID,
		ClientSecret: p.creds.ClientSecret,
		Endpoint:     p.endpoint,
		RedirectURL:  redirect,
		Scopes:       scopes,
	}, nil
}

// AuthRequest is a pending consent flow.
type AuthRequest struct {
	URL      string
	Verifier string
	Scopes   []string
}

// BeginAuth builds the consent URL for scopes with a PKCE challenge.
func (p *Provider) BeginAuth(scopes []string) (*AuthRequest, error) {
	conf, err := p.Config(scopes)
	if err != nil {
		return nil, err
	}
	verifier := oauth2.GenerateVerifier()
	url := conf.AuthCodeURL("state",
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.S256ChallengeOption(verifier))
	return &AuthRequest{URL: url, Verifier: verifier, Scopes: scopes}, nil
}

// CompleteAuth exchanges the authorization code and stores the token for
// account.
func (p *Provider) CompleteAuth(ctx context.Context, account string, req *AuthRequest, code string) error {
	if err := ValidateAccountName(account); err != nil {
		return err
	}
	conf, err := p.Config(req.Scopes)
	if err != nil {
		return err
	}

	tok, err := conf.Exchange(ctx, code, oauth2.VerifierOption(req.Verifier))
	if err != nil {
		return fmt.Errorf("failed to exchange auth code: %w", err)
	}

	if err := p.store.Save(account, &TokenRecord{Token: tok, Scopes: req.Scopes}); err != nil {
		return err
	}
	p.logger.Info("stored Google token", logging.Account(account), slog.Int("scopes", len(req.Scopes)))
	return nil
}

// HasToken reports whether a stored token for account covers scopes.
func (p *Provider) HasToken(account string, scopes []string) bool {
	rec, err := p.store.Load(account)
	return err == nil && covers(rec.Scopes, scopes)
}

// TokenSource returns a token source for account. A stored token that lacks
// one of scopes counts as missing. Refreshed tokens are written back.
func (p *Provider) TokenSource(ctx context.Context, account string, scopes []string) (oauth2.TokenSource, error) {
	rec, err := p.store.Load(account)
	if err != nil {
		return nil, err
	}
	if !covers(rec.Scopes, scopes) {
		return nil, fmt.Errorf("%w for account %q with the required scopes", ErrNoToken, account)
	}

	conf, err := p.Config(rec.Scopes)
	if err != nil {
		return nil, err
	}

	return &persistingTokenSource{
		base:    oauth2.ReuseTokenSource(rec.Token, conf.TokenSource(ctx, rec.Token)),
		last:    rec.Token.AccessToken,
		account: account,
		scopes:  rec.Scopes,
		store:   p.store,
		logger:  p.logger,
	}, nil
}

// HTTPClient returns an authenticated client for account. The client uses
// HTTP/1.1 because some Google endpoints reset HTTP/2 streams on long exports.
func (p *Provider) HTTPClient(ctx context.Context, account string, scopes []string) (*http.Client, error) {
	ts, err := p.TokenSource(ctx, account, scopes)
	if err != nil {
		return nil, err
	}
	return &http.Client{
		Transport: &oauth2.Transport{
			Source: ts,
			Base:   &http.Transport{ForceAttemptHTTP2: false, Proxy: http.ProxyFromEnvironment},
		},
	}, nil
}

// AuthErrorMessage explains how to authenticate account.
func AuthErrorMessage(account string) string {
	return fmt.Sprintf("Google OAuth token not found for account %q. Run 'workdigest auth --account %s' to authorize access.", account, account)
}

type persistingTokenSource struct {
	base    oauth2.TokenSource
	account string
	scopes  []string
	store   TokenStore
	logger  *slog.Logger

	mu   sync.Mutex
	last string
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh Google token for account %q: %w", s.account, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := s.store.Save(s.account, &TokenRecord{Token: tok, Scopes: s.scopes}); err != nil {
			s.logger.Warn("failed to persist refreshed token", logging.Account(s.account), logging.Err(err))
		}
	}
	return tok, nil
}

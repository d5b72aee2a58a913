package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"google.golang.org/api/option"

	"github.com/teemow/workdigest/internal/cache"
	"github.com/teemow/workdigest/internal/config"
	"github.com/teemow/workdigest/internal/google"
	"github.com/teemow/workdigest/internal/instrumentation"
	"github.com/teemow/workdigest/internal/llm"
	"github.com/teemow/workdigest/internal/logging"
	"github.com/teemow/workdigest/internal/pipeline"
)

// Options are the process-wide dependencies of an App.
type Options struct {
	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
	Audit   *instrumentation.AuditLogger

	// Observer receives item state transitions of every run.
	Observer pipeline.Observer

	// GoogleOptions, when set, are used for every Google client instead of
	// stored OAuth tokens.
	GoogleOptions []option.ClientOption
}

// App holds the configured clients shared by all operations.
type App struct {
	cfg    *config.Config
	opts   Options
	logger *slog.Logger

	llm   *llm.Client
	cache *cache.RedisCache

	mu       sync.Mutex
	provider *google.Provider

	closeOnce sync.Once
	closeErr  error
}

// New validates cfg and creates the language model client and, when
// configured, the Redis result cache. An unreachable cache is logged and
// skipped. Google credentials are only loaded when an operation needs them.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	a := &App{cfg: cfg, opts: opts, logger: opts.Logger}

	if cfg.RequireLLM() == nil {
		client, err := llm.NewClient(llm.Config{
			BaseURL:           cfg.LLM.BaseURL,
			APIKey:            cfg.LLM.APIKey,
			Model:             cfg.LLM.Model,
			Temperature:       cfg.LLM.Temperature,
			MaxTokens:         cfg.LLM.MaxTokens,
			Timeout:           cfg.LLM.Timeout,
			RequestsPerMinute: cfg.LLM.RequestsPerMinute,
			MaxRetries:        cfg.LLM.MaxRetries,
			Metrics:           opts.Metrics,
			Logger:            opts.Logger,
		})
		if err != nil {
			return nil, err
		}
		a.llm = client
	}

	if cfg.Redis.Addr != "" {
		c, err := cache.Dial(ctx, cfg.Redis.Addr, cfg.Redis.TTL, opts.Logger)
		if err != nil {
			a.logger.Warn("stage result cache disabled", logging.Err(err))
		} else {
			a.cache = c
		}
	}

	return a, nil
}

// Config returns the configuration the App was built with.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Metrics returns the metrics recorder, which may be nil.
func (a *App) Metrics() *instrumentation.Metrics {
	return a.opts.Metrics
}

// AuditLogger returns the audit logger, which may be nil.
func (a *App) AuditLogger() *instrumentation.AuditLogger {
	return a.opts.Audit
}

// LLM returns the language model client.
func (a *App) LLM() (*llm.Client, error) {
	if a.llm == nil {
		return nil, config.ErrMissingAPIKey
	}
	return a.llm, nil
}

// Provider returns the Google credential provider, creating it on first use.
func (a *App) Provider() (*google.Provider, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.provider != nil {
		return a.provider, nil
	}

	store, err := google.NewFileTokenStore(a.cfg.Google.TokenDir)
	if err != nil {
		return nil, err
	}
	p, err := google.NewProvider(google.Credentials{
		File:         a.cfg.Google.CredentialsFile,
		ClientID:     a.cfg.Google.ClientID,
		ClientSecret: a.cfg.Google.ClientSecret,
	}, store, a.logger)
	if err != nil {
		return nil, err
	}
	a.provider = p
	return p, nil
}

// Account returns account, or the configured default when empty.
func (a *App) Account(account string) string {
	if account != "" {
		return account
	}
	if a.cfg.Google.Account != "" {
		return a.cfg.Google.Account
	}
	return google.DefaultAccount
}

// clientOptions returns the options authorizing a Google client for account.
func (a *App) clientOptions(ctx context.Context, account string, scopes []string) ([]option.ClientOption, error) {
	if a.opts.GoogleOptions != nil {
		return a.opts.GoogleOptions, nil
	}
	if err := google.ValidateAccountName(account); err != nil {
		return nil, err
	}

	p, err := a.Provider()
	if err != nil {
		return nil, err
	}
	hc, err := p.HTTPClient(ctx, account, scopes)
	if errors.Is(err, google.ErrNoToken) {
		return nil, fmt.Errorf("%w: %s", err, google.AuthErrorMessage(account))
	}
	if err != nil {
		return nil, err
	}
	return []option.ClientOption{option.WithHTTPClient(hc)}, nil
}

// CheckCache reports the state of the stage result cache: "disabled" when
// none is configured, otherwise the outcome of a ping.
func (a *App) CheckCache(ctx context.Context) (string, error) {
	if a.cache == nil {
		return "disabled", nil
	}
	if err := a.cache.Ping(ctx); err != nil {
		return "unreachable", err
	}
	return "ok", nil
}

// Close releases the cache connection. Later calls return the first result.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		if a.cache != nil {
			a.closeErr = a.cache.Close()
		}
	})
	return a.closeErr
}

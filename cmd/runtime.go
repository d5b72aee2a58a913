package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/workdigest/internal/app"
	"github.com/teemow/workdigest/internal/config"
	"github.com/teemow/workdigest/internal/instrumentation"
	"github.com/teemow/workdigest/internal/logging"
	"github.com/teemow/workdigest/internal/pipeline"
	"github.com/teemow/workdigest/internal/server"
)

// loadConfig layers the persistent flags over the file and environment
// configuration. Flags only apply when set explicitly.
func loadConfig(cmd *cobra.Command, opts *globalOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if flags.Changed("concurrency") {
		cfg.Pipeline.Concurrency = opts.concurrency
	}
	if flags.Changed("account") {
		cfg.Google.Account = opts.account
	}
	return cfg, nil
}

// runtime holds what a command needs to run and shuts it down again.
type runtime struct {
	cfg      *config.Config
	logger   *slog.Logger
	provider *instrumentation.Provider
	app      *app.App
	metrics  *server.MetricsServer
}

// newRuntime loads configuration, sets up logging and instrumentation and
// wires the application. health is served with the metrics when both are
// present.
func newRuntime(ctx context.Context, cmd *cobra.Command, opts *globalOptions, health *server.HealthChecker) (*runtime, error) {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	instrConfig, err := instrumentation.ConfigFromEnv(os.LookupEnv)
	if err != nil {
		return nil, fmt.Errorf("invalid instrumentation environment: %w", err)
	}
	instrConfig.ServiceVersion = version
	if err := instrConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid instrumentation configuration: %w", err)
	}
	provider, err := instrumentation.NewProvider(ctx, instrConfig, instrumentation.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}

	rt := &runtime{cfg: cfg, logger: logger, provider: provider}

	rt.app, err = app.New(ctx, cfg, app.Options{
		Logger:   logger,
		Metrics:  provider.Metrics(),
		Audit:    instrumentation.NewAuditLogger(logger, instrConfig.AuditLogging),
		Observer: progressObserver(logger),
	})
	if err != nil {
		rt.Close()
		return nil, err
	}

	if opts.metricsAddr != "" {
		if err := rt.startMetrics(opts.metricsAddr, health); err != nil {
			rt.Close()
			return nil, err
		}
	}
	return rt, nil
}

func (rt *runtime) startMetrics(addr string, health *server.HealthChecker) error {
	ms, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    addr,
		InstrumentationProvider: rt.provider,
		Health:                  health,
		Logger:                  rt.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create metrics server: %w", err)
	}
	// Bind before returning so an address in use fails the command.
	if err := ms.Listen(); err != nil {
		return err
	}
	go func() {
		if err := ms.Start(); err != nil {
			rt.logger.Error("metrics server stopped", logging.Err(err))
		}
	}()
	rt.metrics = ms
	return nil
}

// Close stops the metrics server, flushes telemetry and releases the
// application.
func (rt *runtime) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancel()

	if rt.metrics != nil {
		if err := rt.metrics.Shutdown(ctx); err != nil {
			rt.logger.Warn("metrics server shutdown failed", logging.Err(err))
		}
	}
	if rt.app != nil {
		if err := rt.app.Close(); err != nil {
			rt.logger.Warn("failed to close application", logging.Err(err))
		}
	}
	if err := rt.provider.Shutdown(ctx); err != nil {
		rt.logger.Warn("instrumentation shutdown failed", logging.Err(err))
	}
}

// progressObserver logs item state transitions at debug level.
func progressObserver(logger *slog.Logger) pipeline.Observer {
	return pipeline.ObserverFunc(func(itemID string, from, to pipeline.ItemState) {
		logger.Debug("item state changed",
			logging.ItemID(itemID),
			slog.String("from", from.String()),
			slog.String("to", to.String()))
	})
}

// commandTimeout bounds interactive commands that make a single request.
const commandTimeout = 2 * time.Minute

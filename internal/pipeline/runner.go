package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/teemow/workdigest/internal/instrumentation"
	"github.com/teemow/workdigest/internal/logging"
)

// maxAttempts is the first call plus exactly one retry.
const maxAttempts = 2

// ResultCache stores validated stage outputs. Implementations must treat
// backend errors as misses.
type ResultCache interface {
	Lookup(ctx context.Context, key string) (string, bool)
	Store(ctx context.Context, key, output string)
}

// Runner executes stages against extracted content.
type Runner struct {
	analyzer   Analyzer
	timeout    time.Duration
	sequential bool
	cache      ResultCache
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithStageTimeout bounds every analyzer call.
func WithStageTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) { r.timeout = d }
}

// WithSequentialStages runs the stages of an item one after another.
func WithSequentialStages(sequential bool) RunnerOption {
	return func(r *Runner) { r.sequential = sequential }
}

// WithResultCache enables caching of validated outputs.
func WithResultCache(c ResultCache) RunnerOption {
	return func(r *Runner) { r.cache = c }
}

// WithRunnerMetrics records stage metrics.
func WithRunnerMetrics(m *instrumentation.Metrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

// WithRunnerLogger sets the logger.
func WithRunnerLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// NewRunner creates a Runner backed by analyzer.
func NewRunner(analyzer Analyzer, opts ...RunnerOption) *Runner {
	r := &Runner{analyzer: analyzer, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunStages runs all stages for one item and waits for all of them. Stages
// run concurrently unless the runner is sequential. The first failure cancels
// the remaining stages and is returned.
func (r *Runner) RunStages(ctx context.Context, stages []Stage, content ExtractedContent) ([]StageResult, error) {
	results := make([]StageResult, len(stages))

	if r.sequential {
		for i, stage := range stages {
			res, err := r.RunStage(ctx, stage, content)
			if err != nil {
				return nil, err
			}
			results[i] = res
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, stage := range stages {
		g.Go(func() error {
			res, err := r.RunStage(gctx, stage, content)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// RunStage runs a single stage. Out of contract output and timeouts are
// retried once; every other failure is final.
func (r *Runner) RunStage(ctx context.Context, stage Stage, content ExtractedContent) (StageResult, error) {
	result := StageResult{ItemID: content.ItemID, StageName: stage.Name}
	logger := r.logger.With(logging.ItemID(content.ItemID), logging.Stage(stage.Name))

	ctx, span := instrumentation.StartStageSpan(ctx, stage.Name, content.ItemID)
	defer span.End()
	start := time.Now()

	if strings.TrimSpace(content.Text) == "" {
		err := newStageError(ReasonEmptyContent, stage.Name, errors.New("no text to analyze"))
		instrumentation.SetSpanError(span, err)
		return result, err
	}

	if stage.Local != nil {
		out, err := stage.Local(content.Text)
		if err != nil {
			err = newStageError(ReasonStageOutOfContract, stage.Name, err)
			r.metrics.RecordStage(ctx, stage.Name, instrumentation.StatusError, time.Since(start))
			instrumentation.SetSpanError(span, err)
			return result, err
		}
		result.Output = out
		r.metrics.RecordStage(ctx, stage.Name, instrumentation.StatusSuccess, time.Since(start))
		return result, nil
	}

	c := stage.constraintsFor(content.Text)

	var key string
	if r.cache != nil {
		key = CacheKey(stage.Name, c, content.Text)
		if out, ok := r.cache.Lookup(ctx, key); ok {
			logger.Debug("stage output served from cache")
			r.metrics.RecordCacheLookup(ctx, true)
			result.Output = out
			return result, nil
		}
		r.metrics.RecordCacheLookup(ctx, false)
	}

	if r.analyzer == nil {
		err := newStageError(ReasonStageUnavailable, stage.Name, ErrCapabilityUnavailable)
		instrumentation.SetSpanError(span, err)
		return result, err
	}

	var (
		lastErr error
		reason  Reason
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		out, err := r.attempt(ctx, stage, c, content.Text)
		if err == nil {
			if r.cache != nil {
				r.cache.Store(ctx, key, out)
			}
			r.metrics.RecordStage(ctx, stage.Name, instrumentation.StatusSuccess, time.Since(start))
			instrumentation.SetSpanSuccess(span)
			result.Output = out
			return result, nil
		}

		var retryable bool
		reason, retryable = classifyStageError(err)
		lastErr = err
		if !retryable || ctx.Err() != nil || attempt == maxAttempts {
			break
		}

		logger.Warn("stage attempt failed, retrying",
			slog.Int("attempt", attempt),
			logging.Reason(string(reason)),
			logging.Err(err))
		r.metrics.RecordStageRetry(ctx, stage.Name)
	}

	err := newStageError(reason, stage.Name, lastErr)
	r.metrics.RecordStage(ctx, stage.Name, instrumentation.StatusError, time.Since(start))
	instrumentation.SetSpanError(span, err)
	return result, err
}

type analysis struct {
	output string
	err    error
}

// attempt performs one bounded analyzer call and validates the output. The
// wait is bounded even if the analyzer ignores its context.
func (r *Runner) attempt(ctx context.Context, stage Stage, c Constraints, text string) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	done := make(chan analysis, 1)
	go func() {
		out, err := r.analyzer.Analyze(ctx, stage.Name, text, c)
		done <- analysis{output: out, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(res.err, ErrTimeout) {
				return "", fmt.Errorf("%w: %w", ErrTimeout, res.err)
			}
			return "", res.err
		}
		return stage.validate(res.output, c)
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s", ErrTimeout, r.timeout)
		}
		return "", ctx.Err()
	}
}

// CacheKey identifies a stage output by stage name, constraints and text.
func CacheKey(stage string, c Constraints, text string) string {
	h := sha256.New()
	h.Write([]byte(stage))
	h.Write([]byte{0})
	if b, err := json.Marshal(c); err == nil {
		h.Write(b)
	}
	h.Write([]byte{0})
	h.Write([]byte(text))
	return "stage:" + stage + ":" + hex.EncodeToString(h.Sum(nil))
}

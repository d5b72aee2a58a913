package pipeline

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/teemow/workdigest/internal/instrumentation"
	"github.com/teemow/workdigest/internal/logging"
)

// Source yields the items of a batch. The whole list is returned before
// processing starts.
type Source interface {
	ListItems(ctx context.Context, filter string) ([]Item, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, filter string) ([]Item, error)

func (f SourceFunc) ListItems(ctx context.Context, filter string) ([]Item, error) {
	return f(ctx, filter)
}

// Options control how a Coordinator schedules items.
type Options struct {
	// Concurrency is the number of items processed at the same time (default 1).
	Concurrency int

	// PreserveOrder sorts the result by source order.
	PreserveOrder bool

	Observer Observer
	Metrics  *instrumentation.Metrics
	Logger   *slog.Logger
}

// DefaultOptions processes one item at a time and preserves source order.
func DefaultOptions() Options {
	return Options{Concurrency: 1, PreserveOrder: true}
}

// Coordinator drives items from a source through extraction, analysis and
// consolidation.
type Coordinator struct {
	source       Source
	extractor    *Extractor
	runner       *Runner
	stages       []Stage
	consolidator *Consolidator
	opts         Options
	logger       *slog.Logger
}

// NewCoordinator wires a pipeline. Every stage is required for a report.
func NewCoordinator(source Source, extractor *Extractor, runner *Runner, stages []Stage, opts Options) (*Coordinator, error) {
	if source == nil {
		return nil, errors.New("source is required")
	}
	if extractor == nil {
		return nil, errors.New("extractor is required")
	}
	if runner == nil {
		return nil, errors.New("runner is required")
	}
	if len(stages) == 0 {
		return nil, errors.New("at least one stage is required")
	}

	seen := make(map[string]bool, len(stages))
	for _, s := range stages {
		if s.Name == "" {
			return nil, errors.New("stage name is required")
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("duplicate stage %q", s.Name)
		}
		seen[s.Name] = true
	}

	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Coordinator{
		source:       source,
		extractor:    extractor,
		runner:       runner,
		stages:       stages,
		consolidator: NewConsolidator(StageNames(stages)),
		opts:         opts,
		logger:       logger,
	}, nil
}

// Run processes every item the source yields for filter.
//
// A source error aborts the run with ErrSourceUnavailable before any item is
// processed. Item failures are recorded in the result and never abort the
// run. When ctx is cancelled no further item is started; items already in
// flight complete, and the partial result is returned with ctx.Err().
func (c *Coordinator) Run(ctx context.Context, filter string) (*BatchResult, error) {
	start := time.Now()
	batchID := uuid.NewString()
	logger := c.logger.With(logging.Batch(batchID))

	ctx, span := instrumentation.StartBatchSpan(ctx, batchID)
	defer span.End()

	items, err := c.source.ListItems(ctx, filter)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
		instrumentation.SetSpanError(span, err)
		return nil, err
	}
	if err := checkUnique(items); err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, err
	}

	logger.Info("batch started",
		slog.Int("items", len(items)),
		slog.Int("concurrency", c.opts.Concurrency),
		slog.Any("stages", StageNames(c.stages)))

	result := &BatchResult{ID: batchID, Entries: make([]Entry, 0, len(items))}

	var (
		mu        sync.Mutex
		g         errgroup.Group
		sem       = semaphore.NewWeighted(int64(c.opts.Concurrency))
		work      = context.WithoutCancel(ctx)
		cancelErr error
	)

	for i, item := range items {
		if err := sem.Acquire(ctx, 1); err != nil {
			cancelErr = err
			break
		}
		if err := ctx.Err(); err != nil {
			sem.Release(1)
			cancelErr = err
			break
		}

		g.Go(func() error {
			defer sem.Release(1)
			entry := c.processItem(work, i, item)

			mu.Lock()
			result.Entries = append(result.Entries, entry)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if c.opts.PreserveOrder {
		slices.SortStableFunc(result.Entries, func(a, b Entry) int {
			return cmp.Compare(a.Index, b.Index)
		})
	}

	summary := result.Summary()
	logger.Info("batch finished",
		slog.Int("total", summary.Total),
		slog.Int("successful", summary.Successful),
		slog.Int("failed", summary.Failed),
		slog.Int("skipped", len(items)-summary.Total),
		slog.Duration(logging.KeyDuration, time.Since(start)))

	if cancelErr != nil {
		logger.Warn("batch cancelled before all items started", logging.Err(cancelErr))
		return result, cancelErr
	}
	instrumentation.SetSpanSuccess(span)
	return result, nil
}

// processItem runs one item through the state machine. It always resolves to
// exactly one entry.
func (c *Coordinator) processItem(ctx context.Context, index int, item Item) Entry {
	start := time.Now()
	logger := c.logger.With(logging.ItemID(item.ID))

	ctx, span := instrumentation.StartItemSpan(ctx, item.ID, string(item.ContentType))
	defer span.End()

	t := &tracker{itemID: item.ID, observer: c.opts.Observer}
	step := func(to ItemState) {
		if err := t.advance(to); err != nil {
			logger.Error("state machine violation", logging.Err(err))
		}
	}

	fail := func(err error) Entry {
		step(StateFailed)
		f := failureFor(item.ID, err)
		logger.Warn("item failed", logging.Reason(string(f.Reason)), logging.Err(err))
		c.opts.Metrics.RecordItem(ctx, instrumentation.StatusError, string(f.Reason), time.Since(start))
		instrumentation.SetSpanError(span, err)
		return Entry{Index: index, Failure: f}
	}

	step(StateExtracting)
	content, err := c.extractor.Extract(ctx, item)
	if err != nil {
		return fail(err)
	}
	step(StateExtracted)

	step(StateAnalyzing)
	results, err := c.runner.RunStages(ctx, c.stages, content)
	if err != nil {
		return fail(err)
	}

	step(StateConsolidating)
	report, err := c.consolidator.Consolidate(item, results)
	if err != nil {
		return fail(err)
	}
	step(StateDone)

	logger.Debug("item done", slog.Duration(logging.KeyDuration, time.Since(start)))
	c.opts.Metrics.RecordItem(ctx, instrumentation.StatusSuccess, "", time.Since(start))
	instrumentation.SetSpanSuccess(span)
	return Entry{Index: index, Report: &report}
}

func checkUnique(items []Item) error {
	seen := make(map[string]int, len(items))
	for i, item := range items {
		if j, ok := seen[item.ID]; ok {
			return fmt.Errorf("%w: %q at positions %d and %d", ErrDuplicateItem, item.ID, j, i)
		}
		seen[item.ID] = i
	}
	return nil
}

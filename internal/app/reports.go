package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/teemow/workdigest/internal/calendar"
	"github.com/teemow/workdigest/internal/drive"
	"github.com/teemow/workdigest/internal/files"
	"github.com/teemow/workdigest/internal/gmail"
	"github.com/teemow/workdigest/internal/google"
	"github.com/teemow/workdigest/internal/instrumentation"
	"github.com/teemow/workdigest/internal/logging"
	"github.com/teemow/workdigest/internal/meet"
	"github.com/teemow/workdigest/internal/pipeline"
	"github.com/teemow/workdigest/internal/report"
	"github.com/teemow/workdigest/internal/schedule"
	"github.com/teemow/workdigest/internal/tasks"
)

// DriveReport analyses the files of a Drive folder. folder is an id or a
// folder link; empty uses the configured folder. A non-empty topic keeps
// only the files the model relates to it.
func (a *App) DriveReport(ctx context.Context, account, folder, topic string) (*pipeline.BatchResult, error) {
	if folder == "" {
		folder = a.cfg.Drive.Folder
	}
	folderID, err := drive.ParseFolderID(folder)
	if err != nil {
		return nil, err
	}
	analyzer, err := a.LLM()
	if err != nil {
		return nil, err
	}

	account = a.Account(account)
	opts, err := a.clientOptions(ctx, account, google.DriveScopes)
	if err != nil {
		return nil, err
	}
	client, err := drive.NewClient(ctx, a.opts.Metrics, opts...)
	if err != nil {
		return nil, err
	}

	src := drive.NewSource(client, folderID, analyzer, a.logger)
	return a.run(ctx, DriveProfile(), account, topic, src, src, analyzer)
}

// EmailReport analyses the latest maxMessages inbox messages matching the
// Gmail search query. maxMessages <= 0 uses the configured count.
func (a *App) EmailReport(ctx context.Context, account string, maxMessages int, query string) (*pipeline.BatchResult, error) {
	if maxMessages <= 0 {
		maxMessages = a.cfg.Email.MaxMessages
	}
	analyzer, err := a.LLM()
	if err != nil {
		return nil, err
	}

	account = a.Account(account)
	opts, err := a.clientOptions(ctx, account, google.GmailScopes)
	if err != nil {
		return nil, err
	}
	client, err := gmail.NewClient(ctx, a.opts.Metrics, opts...)
	if err != nil {
		return nil, err
	}

	src := gmail.NewSource(client, maxMessages, a.logger)
	return a.run(ctx, EmailProfile(), account, query, src, src, analyzer)
}

// TranscriptInput selects where transcripts come from. Path wins over
// ConferenceRecord.
type TranscriptInput struct {
	// Path is a local transcript file or a directory of them.
	Path string

	// ConferenceRecord is a Google Meet conference record id.
	ConferenceRecord string
}

// TranscriptReport analyses meeting transcripts. For local files filter is
// a glob on file names; for Meet it overrides the conference record.
func (a *App) TranscriptReport(ctx context.Context, account string, in TranscriptInput, filter string) (*pipeline.BatchResult, error) {
	analyzer, err := a.LLM()
	if err != nil {
		return nil, err
	}

	if in.Path != "" {
		src := files.NewSource(in.Path, a.logger)
		return a.run(ctx, TranscriptProfile(), "", filter, src, src, analyzer)
	}
	if in.ConferenceRecord == "" && filter == "" {
		return nil, fmt.Errorf("either a transcript path or a conference record is required")
	}

	account = a.Account(account)
	opts, err := a.clientOptions(ctx, account, google.MeetScopes)
	if err != nil {
		return nil, err
	}
	client, err := meet.NewClient(ctx, a.opts.Metrics, opts...)
	if err != nil {
		return nil, err
	}

	src := meet.NewSource(client, in.ConferenceRecord)
	return a.run(ctx, TranscriptProfile(), account, filter, src, src, analyzer)
}

// PushActionItems adds the action items of result to a Google Tasks list,
// given by id or title. It returns the number of tasks created.
func (a *App) PushActionItems(ctx context.Context, account, list string, result *pipeline.BatchResult) (int, error) {
	account = a.Account(account)
	opts, err := a.clientOptions(ctx, account, google.TasksScopes)
	if err != nil {
		return 0, err
	}
	client, err := tasks.NewClient(ctx, a.opts.Metrics, opts...)
	if err != nil {
		return 0, err
	}
	listID, err := client.ResolveList(ctx, list)
	if err != nil {
		return 0, err
	}
	return report.NewTaskSink(client, listID, a.logger).Push(ctx, result)
}

// TaskLists returns the Google Tasks lists of account.
func (a *App) TaskLists(ctx context.Context, account string) ([]tasks.TaskList, error) {
	account = a.Account(account)
	opts, err := a.clientOptions(ctx, account, google.TasksScopes)
	if err != nil {
		return nil, err
	}
	client, err := tasks.NewClient(ctx, a.opts.Metrics, opts...)
	if err != nil {
		return nil, err
	}
	return client.ListTaskLists(ctx)
}

// CalendarRequest interprets and executes a natural language calendar
// request. opts are applied after the configured defaults.
func (a *App) CalendarRequest(ctx context.Context, account, query string, opts ...schedule.Option) (*schedule.Result, error) {
	model, err := a.LLM()
	if err != nil {
		return nil, err
	}

	account = a.Account(account)
	clientOpts, err := a.clientOptions(ctx, account, google.CalendarScopes)
	if err != nil {
		return nil, err
	}
	client, err := calendar.NewClient(ctx, a.opts.Metrics, clientOpts...)
	if err != nil {
		return nil, err
	}

	routerOpts := append([]schedule.Option{
		schedule.WithTimeZone(a.cfg.Calendar.TimeZone),
		schedule.WithCalendarID(a.cfg.Calendar.CalendarID),
		schedule.WithLogger(a.logger),
	}, opts...)
	return schedule.NewRouter(model, client, routerOpts...).Handle(ctx, query)
}

// CreateMeeting creates a Google Meet space.
func (a *App) CreateMeeting(ctx context.Context, account, accessType string) (*meet.Space, error) {
	account = a.Account(account)
	opts, err := a.clientOptions(ctx, account, google.MeetScopes)
	if err != nil {
		return nil, err
	}
	client, err := meet.NewClient(ctx, a.opts.Metrics, opts...)
	if err != nil {
		return nil, err
	}
	return client.CreateSpace(ctx, accessType)
}

// run executes one batch and writes its audit record.
func (a *App) run(ctx context.Context, profile Profile, account, filter string, src pipeline.Source, fetcher pipeline.TextFetcher, analyzer pipeline.Analyzer) (*pipeline.BatchResult, error) {
	record := instrumentation.NewRunRecord(instrumentation.RunKindBatch, profile.Name).
		WithAccount(account).
		WithFilter(filter)

	runnerOpts := []pipeline.RunnerOption{
		pipeline.WithStageTimeout(a.cfg.Pipeline.StageTimeout),
		pipeline.WithSequentialStages(a.cfg.Pipeline.SequentialStages),
		pipeline.WithRunnerMetrics(a.opts.Metrics),
		pipeline.WithRunnerLogger(a.logger),
	}
	if a.cache != nil {
		runnerOpts = append(runnerOpts, pipeline.WithResultCache(a.cache))
	}

	coord, err := pipeline.NewCoordinator(src,
		pipeline.NewExtractor(fetcher, pipeline.WithFetchTimeout(a.cfg.Pipeline.FetchTimeout)),
		pipeline.NewRunner(analyzer, runnerOpts...),
		profile.Stages,
		pipeline.Options{
			Concurrency:   a.cfg.Pipeline.Concurrency,
			PreserveOrder: a.cfg.Pipeline.PreserveOrder,
			Observer:      a.opts.Observer,
			Metrics:       a.opts.Metrics,
			Logger:        a.logger,
		})
	if err != nil {
		return nil, err
	}

	result, err := coord.Run(ctx, filter)
	summary := result.Summary()
	record.WithCounts(summary.Total, summary.Successful, summary.Failed).Complete(ctx, err)
	a.opts.Audit.Log(ctx, record)

	if result != nil {
		a.logger.Info("report finished",
			logging.Operation(profile.Name),
			logging.Batch(result.ID),
			slog.Int("total", summary.Total),
			slog.Int("failed", summary.Failed))
	}
	return result, err
}

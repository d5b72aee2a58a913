package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/workdigest/internal/app"
	"github.com/teemow/workdigest/internal/pipeline"
	"github.com/teemow/workdigest/internal/report"
)

// signalContext is cancelled on interrupt, which stops a batch with the
// items finished so far.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func newDriveReportCmd(opts *globalOptions) *cobra.Command {
	var topic string

	cmd := &cobra.Command{
		Use:   "drive-report FOLDER",
		Short: "Summarize and prioritize the documents of a Drive folder",
		Long: `Summarize and prioritize the documents of a Google Drive folder.

FOLDER is a folder id or a https://drive.google.com/drive/folders/<id> link.
Google Docs, Slides, text and HTML files are analyzed; other files are
listed as failed with reason UnsupportedContentType.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()

			rt, err := newRuntime(ctx, cmd, opts, nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			result, err := rt.app.DriveReport(ctx, opts.account, args[0], topic)
			return writeReport(cmd, opts, rt.logger, app.DriveProfile().Layout, result, err)
		},
	}

	cmd.Flags().StringVar(&topic, "topic", "", "Only analyze files whose names relate to this topic")
	return cmd
}

func newEmailReportCmd(opts *globalOptions) *cobra.Command {
	var (
		maxMessages int
		query       string
	)

	cmd := &cobra.Command{
		Use:   "email-report",
		Short: "Summarize and prioritize recent Gmail messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()

			rt, err := newRuntime(ctx, cmd, opts, nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			result, err := rt.app.EmailReport(ctx, opts.account, maxMessages, query)
			return writeReport(cmd, opts, rt.logger, app.EmailProfile().Layout, result, err)
		},
	}

	cmd.Flags().IntVarP(&maxMessages, "max-messages", "n", 0, "Number of inbox messages to analyze (default: configured value)")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Gmail search query, e.g. 'is:unread'")
	return cmd
}

func newTranscriptReportCmd(opts *globalOptions) *cobra.Command {
	var (
		in        app.TranscriptInput
		filter    string
		tasksList string
	)

	cmd := &cobra.Command{
		Use:   "transcript-report",
		Short: "Extract key points, action items and deadlines from meeting transcripts",
		Long: `Analyze meeting transcripts from local files or a Google Meet conference.

Local transcripts (--path) may be a file or a directory of .txt, .md, .vtt,
.srt and .html files; --filter narrows a directory with a file name glob.
Meet transcripts are read from the conference record given with --record.

With --tasks-list every action item is added to that Google Tasks list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.Path == "" && in.ConferenceRecord == "" {
				return fmt.Errorf("either --path or --record is required")
			}

			ctx, cancel := signalContext(cmd)
			defer cancel()

			rt, err := newRuntime(ctx, cmd, opts, nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			result, err := rt.app.TranscriptReport(ctx, opts.account, in, filter)
			if werr := writeReport(cmd, opts, rt.logger, app.TranscriptProfile().Layout, result, err); werr != nil {
				return werr
			}
			if tasksList == "" {
				return nil
			}

			n, err := rt.app.PushActionItems(ctx, opts.account, tasksList, result)
			fmt.Fprintf(cmd.ErrOrStderr(), "Added %d action items to Google Tasks.\n", n)
			return err
		},
	}

	cmd.Flags().StringVar(&in.Path, "path", "", "Transcript file or directory")
	cmd.Flags().StringVar(&in.ConferenceRecord, "record", "", "Google Meet conference record, e.g. conferenceRecords/abc")
	cmd.Flags().StringVar(&filter, "filter", "", "File name glob for --path directories")
	cmd.Flags().StringVar(&tasksList, "tasks-list", "", "Add action items to this Google Tasks list (id, title or @default)")
	cmd.MarkFlagsMutuallyExclusive("path", "record")
	return cmd
}

// writeReport renders result with the selected sink. A cancelled run still
// writes the items finished so far before returning runErr.
func writeReport(cmd *cobra.Command, opts *globalOptions, logger *slog.Logger, layout report.Layout, result *pipeline.BatchResult, runErr error) error {
	if result == nil {
		return runErr
	}

	sink, err := report.SinkFor(opts.format, layout)
	if err != nil {
		return err
	}

	if opts.output != "" {
		if err := report.WriteFile(opts.output, sink, result); err != nil {
			return err
		}
		s := result.Summary()
		logger.Info("report written",
			slog.String("path", opts.output),
			slog.Int("successful", s.Successful),
			slog.Int("failed", s.Failed))
	} else if err := sink.Write(cmd.OutOrStdout(), result); err != nil {
		return err
	}
	return runErr
}

package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/teemow/workdigest/internal/report"
)

// version will be set by main
var version = "dev"

// SetVersion sets the version reported by the CLI and the MCP server
func SetVersion(v string) {
	version = v
}

// globalOptions are the persistent flags shared by all commands.
type globalOptions struct {
	configPath  string
	account     string
	logLevel    string
	concurrency int
	format      string
	output      string
	metricsAddr string
}

func (o *globalOptions) addFlags(flags *pflag.FlagSet) {
	flags.StringVar(&o.configPath, "config", "", "YAML configuration file")
	flags.StringVar(&o.account, "account", "", "Google account name (default: the configured account)")
	flags.StringVar(&o.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	flags.IntVar(&o.concurrency, "concurrency", 0, "Number of items analyzed in parallel")
	flags.StringVar(&o.format, "format", "text", "Output format: text or json")
	flags.StringVarP(&o.output, "output", "o", "", "Write the report to this file instead of stdout")
	flags.StringVar(&o.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics and health checks on this address, e.g. :9090")
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "workdigest",
		Short: "Summarize Drive files, email and meeting transcripts with a language model",
		Long: `workdigest runs batches of Google Workspace items (Drive files, Gmail messages,
meeting transcripts) through a language model and reports a summary, a
priority or the action items of each one.

It can run as:
  - A command line tool (drive-report, email-report, transcript-report, calendar)
  - An MCP (Model Context Protocol) server for AI assistants (serve)`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := report.SinkFor(opts.format, report.Layout{}); err != nil {
				return err
			}
			return nil
		},
	}
	rootCmd.SetVersionTemplate(`{{printf "workdigest version %s\n" .Version}}`)

	opts.addFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		newDriveReportCmd(opts),
		newEmailReportCmd(opts),
		newTranscriptReportCmd(opts),
		newCalendarCmd(opts),
		newMeetCmd(opts),
		newAuthCmd(opts),
		newServeCmd(opts),
		newGenerateDocsCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute is the main entry point for the CLI application
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

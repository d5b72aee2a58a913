package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teemow/workdigest/internal/schedule"
)

func newCalendarCmd(opts *globalOptions) *cobra.Command {
	var readOnly bool

	cmd := &cobra.Command{
		Use:   "calendar REQUEST...",
		Short: "List or create calendar events from a plain language request",
		Example: `  workdigest calendar "what is on my calendar next Monday"
  workdigest calendar "schedule a design review tomorrow at 3pm in Room 4"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			rt, err := newRuntime(ctx, cmd, opts, nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			var routerOpts []schedule.Option
			if readOnly {
				routerOpts = append(routerOpts, schedule.WithReadOnly())
			}
			result, err := rt.app.CalendarRequest(ctx, opts.account, strings.Join(args, " "), routerOpts...)
			if err != nil {
				return err
			}

			if opts.format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), result.Text())
			return err
		},
	}

	cmd.Flags().BoolVar(&readOnly, "read-only", false, "Refuse requests that would create an event")
	return cmd
}

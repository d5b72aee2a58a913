package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teemow/workdigest/internal/meet"
)

func newMeetCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meet",
		Short: "Google Meet commands",
	}
	cmd.AddCommand(newMeetCreateCmd(opts))
	return cmd
}

func newMeetCreateCmd(opts *globalOptions) *cobra.Command {
	var accessType string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a Google Meet space and print its link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			accessType = strings.ToUpper(accessType)
			switch accessType {
			case "", meet.AccessOpen, meet.AccessTrusted, meet.AccessRestricted:
			default:
				return fmt.Errorf("invalid access type %q", accessType)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			rt, err := newRuntime(ctx, cmd, opts, nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			space, err := rt.app.CreateMeeting(ctx, opts.account, accessType)
			if err != nil {
				return err
			}

			if opts.format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(space)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), space.MeetingURI)
			return err
		},
	}

	cmd.Flags().StringVar(&accessType, "access-type", "", "OPEN (default), TRUSTED or RESTRICTED")
	return cmd
}

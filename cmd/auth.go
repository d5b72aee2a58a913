package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/workdigest/internal/google"
)

const authTimeout = 10 * time.Minute

var serviceScopes = map[string][]string{
	"drive":    google.DriveScopes,
	"gmail":    google.GmailScopes,
	"calendar": google.CalendarScopes,
	"meet":     google.MeetScopes,
	"tasks":    google.TasksScopes,
}

func newAuthCmd(opts *globalOptions) *cobra.Command {
	var services []string

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize a Google account and store its token",
		Long: `Authorize a Google account for workdigest.

Opens the consent flow for the requested services, prints the consent URL
and waits for the authorization code. The code can be pasted on its own or
as the full redirect URL the browser ends up on. The token is stored under
the name given by --account.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scopes, err := scopesFor(services)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), authTimeout)
			defer cancel()

			rt, err := newRuntime(ctx, cmd, opts, nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			provider, err := rt.app.Provider()
			if err != nil {
				return err
			}
			req, err := provider.BeginAuth(scopes)
			if err != nil {
				return err
			}

			errOut := cmd.ErrOrStderr()
			fmt.Fprintf(errOut, "Open this URL in your browser and grant access:\n\n%s\n\n", req.URL)
			fmt.Fprint(errOut, "Paste the authorization code or the redirect URL: ")

			code, err := readCode(cmd.InOrStdin())
			if err != nil {
				return err
			}

			account := rt.app.Account(opts.account)
			if err := provider.CompleteAuth(ctx, account, req, code); err != nil {
				return err
			}
			fmt.Fprintf(errOut, "Stored token for account %q\n", account)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&services, "services", nil,
		"Services to authorize: drive, gmail, calendar, meet, tasks (default all)")
	return cmd
}

func scopesFor(services []string) ([]string, error) {
	if len(services) == 0 {
		return google.AllScopes(), nil
	}
	var sets [][]string
	for _, name := range services {
		set, ok := serviceScopes[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			known := make([]string, 0, len(serviceScopes))
			for k := range serviceScopes {
				known = append(known, k)
			}
			slices.Sort(known)
			return nil, fmt.Errorf("unknown service %q (known: %s)", name, strings.Join(known, ", "))
		}
		sets = append(sets, set)
	}
	return google.MergeScopes(sets...), nil
}

func readCode(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read authorization code: %w", err)
	}
	code := extractCode(line)
	if code == "" {
		return "", errors.New("no authorization code given")
	}
	return code, nil
}

// extractCode accepts a bare code or a redirect URL carrying a code parameter.
func extractCode(input string) string {
	input = strings.TrimSpace(input)
	if !strings.Contains(input, "code=") {
		return input
	}
	if u, err := url.Parse(input); err == nil && u.Query().Get("code") != "" {
		return u.Query().Get("code")
	}
	q, err := url.ParseQuery(strings.TrimPrefix(input[strings.Index(input, "code="):], "?"))
	if err != nil {
		return input
	}
	return q.Get("code")
}

package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/afrinbhuiyan/sales-dashboard/internal/pkg/logger"
)

// formatDuration formats a duration in a human-friendly way (e.g., "2 hours and 45 minutes")
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}

	units := []struct {
		name string
		n    int
	}{
		{"day", int(d.Hours() / 24)},
		{"hour", int(d.Hours()) % 24},
		{"minute", int(d.Minutes()) % 60},
	}

	var parts []string
	for _, u := range units {
		if u.n > 0 {
			parts = append(parts, plural(u.n, u.name))
		}
	}
	if len(parts) == 0 {
		if s := int(d.Seconds()) % 60; s > 0 {
			parts = append(parts, plural(s, "second"))
		}
	}

	switch len(parts) {
	case 0:
		return "0 seconds"
	case 1:
		return parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func newAuthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorization token commands",
		Long:  `Inspect, refresh or clear the cached sales API token for the current context`,
	}

	cmd.AddCommand(newAuthStatusCommand())
	cmd.AddCommand(newAuthTokenCommand())
	cmd.AddCommand(newAuthRefreshCommand())
	cmd.AddCommand(newAuthLogoutCommand())

	return cmd
}

func newAuthStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the cached token and its expiry",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := getCliContext(cmd)
			out := cmd.OutOrStdout()

			tok, err := cliCtx.Client.Tokens().Cached(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Context: %s\n", cliCtx.Config.CurrentContext)
			fmt.Fprintf(out, "API: %s\n", cliCtx.Client.BaseURL())
			if tok == nil {
				fmt.Fprintln(out, "No cached token - one will be requested on the next command")
				return nil
			}

			fmt.Fprintf(out, "Token: %s\n", logger.TokenPreview(tok.Value))
			fmt.Fprintf(out, "Token expires: %s\n", tok.ExpiresAt.Local().Format("2006-01-02 15:04:05 MST"))

			now := time.Now()
			if tok.ValidAt(now) {
				fmt.Fprintf(out, "✓  Valid for %s\n", formatDuration(tok.ExpiresAt.Sub(now)))
			} else {
				fmt.Fprintf(out, "⚠  Token expired %s ago - a new one will be requested on the next command\n",
					formatDuration(now.Sub(tok.ExpiresAt)))
			}
			return nil
		},
	}
}

func newAuthTokenCommand() *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a valid token, requesting one if needed",
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := getCliContext(cmd).Client.Tokens().EnsureValidToken(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to obtain token: %w", err)
			}

			if reveal {
				fmt.Fprintln(cmd.OutOrStdout(), tok)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), logger.TokenPreview(tok))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&reveal, "reveal", false, "Print the full token instead of a preview")
	return cmd
}

func newAuthRefreshCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Discard the cached token and request a new one",
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens := getCliContext(cmd).Client.Tokens()
			if err := tokens.Invalidate(cmd.Context()); err != nil {
				return err
			}
			if _, err := tokens.EnsureValidToken(cmd.Context()); err != nil {
				return fmt.Errorf("failed to obtain token: %w", err)
			}

			tok, err := tokens.Cached(cmd.Context())
			if err != nil {
				return err
			}
			if tok == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "✓ Token refreshed")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Token refreshed, valid for %s\n", formatDuration(time.Until(tok.ExpiresAt)))
			return nil
		},
	}
}

func newAuthLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the cached token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := getCliContext(cmd).Client.Tokens().Invalidate(cmd.Context()); err != nil {
				return fmt.Errorf("failed to clear token: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "✓ Cleared cached token")
			return nil
		},
	}
}

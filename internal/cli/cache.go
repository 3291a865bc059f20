package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/rehabdir/directory"
)

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the response cache",
	}

	clearCmd := &cobra.Command{
		Use:   "clear [PATTERN]",
		Short: "Remove cached responses whose key contains PATTERN, or all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pattern string
			if len(args) == 1 {
				pattern = args[0]
			}
			return a.run(cmd, func(ctx context.Context, c *directory.Client) error {
				n := c.Cache().Invalidate(ctx, pattern)
				fmt.Fprintf(a.stdout, "removed %d cached entries\n", n)
				return nil
			})
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show cache configuration, keys and the credential state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, func(ctx context.Context, c *directory.Client) error {
				cfg := c.Cache().Config()
				out := map[string]any{
					"tier":          cfg.Tier,
					"ttl":           cfg.TTL.String(),
					"max_size":      cfg.MaxSize,
					"keys":          c.Cache().Keys(),
					"authenticated": c.Session().Authenticated(ctx),
				}
				if token, err := c.Session().Token(ctx); err == nil {
					out["token"] = maskToken(token)
				}
				return printJSON(a.stdout, out)
			})
		},
	}

	cmd.AddCommand(clearCmd, status)
	return cmd
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/rehabdir/auth"
	"github.com/jonwraymond/rehabdir/directory"
	"github.com/jonwraymond/rehabdir/secret"
)

func newSignInCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "signin TOKEN",
		Short: "Store a bearer token",
		Long: "Store a bearer token issued by the sign-in provider. TOKEN may be a " +
			"secret reference such as secretref:file:~/.rehabdir/token or secretref:env:REHABDIR_TOKEN.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, c *directory.Client) error {
				token, err := secret.NewDefaultResolver().ResolveValue(ctx, args[0])
				if err != nil {
					return err
				}
				if err := c.SignIn(ctx, token); err != nil {
					return err
				}
				if id, err := c.Session().Identity(ctx); err == nil && id.Principal != "" {
					fmt.Fprintf(a.stdout, "signed in as %s\n", id.Principal)
					return nil
				}
				fmt.Fprintln(a.stdout, "signed in")
				return nil
			})
		},
	}
}

func newSignOutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Remove the stored token and clear the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, func(ctx context.Context, c *directory.Client) error {
				if err := c.SignOut(ctx); err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, "signed out")
				return nil
			})
		},
	}
}

func newMeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, func(ctx context.Context, c *directory.Client) error {
				user, err := c.Me(ctx)
				if errors.Is(err, auth.ErrNotAuthenticated) || errors.Is(err, auth.ErrTokenExpired) {
					return fmt.Errorf("%w (run: rehabdir signin TOKEN)", err)
				}
				if err != nil {
					return err
				}
				return printJSON(a.stdout, user)
			})
		},
	}
}

// maskToken keeps the first and last four characters of a token.
func maskToken(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}

package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/rehabdir/directory"
	"github.com/jonwraymond/rehabdir/health"
)

// errUnhealthy makes the command exit non-zero after printing the report.
var errUnhealthy = errors.New("unhealthy")

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the persistence store, the API and the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, func(ctx context.Context, c *directory.Client) error {
				agg := health.NewAggregator(health.AggregatorConfig{Timeout: a.cfg.API.Timeout})
				agg.Register("port", health.NewPortChecker(a.port))
				agg.Register("api", health.NewAPIChecker(health.APICheckerConfig{URL: a.cfg.API.BaseURL}))
				agg.Register("cache", health.NewCacheChecker(c.Cache(), health.CacheCheckerConfig{}))

				report := agg.Report(ctx)
				if err := report.WriteJSON(a.stdout); err != nil {
					return err
				}
				if !report.Healthy() {
					return errUnhealthy
				}
				return nil
			})
		},
	}
}

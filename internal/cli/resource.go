package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/rehabdir/directory"
	"github.com/jonwraymond/rehabdir/normalize"
)

func newResourceCmd[T normalize.Identified](a *app, name, short string, pick func(*directory.Client) *directory.Resource[T]) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name,
		Short: short,
	}

	var where []string
	list := &cobra.Command{
		Use:   "list",
		Short: "List " + name,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := filters(where)
			if err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, c *directory.Client) error {
				records, err := pick(c).List(ctx, f)
				if err != nil {
					return err
				}
				return printJSON(a.stdout, records)
			})
		},
	}
	list.Flags().StringArrayVarP(&where, "filter", "f", nil, "filter as key=value (repeatable)")

	get := &cobra.Command{
		Use:   "get ID",
		Short: "Show one record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, c *directory.Client) error {
				record, err := pick(c).Get(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(a.stdout, record)
			})
		},
	}

	var (
		data string
		set  []string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			body, err := payload(data, set)
			if err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, c *directory.Client) error {
				record, err := pick(c).Create(ctx, body)
				if err != nil {
					return err
				}
				return printJSON(a.stdout, record)
			})
		},
	}
	update := &cobra.Command{
		Use:   "update ID",
		Short: "Update a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := payload(data, set)
			if err != nil {
				return err
			}
			if len(body) == 0 {
				return fmt.Errorf("nothing to update: pass --data or --set")
			}
			return a.run(cmd, func(ctx context.Context, c *directory.Client) error {
				record, err := pick(c).Update(ctx, args[0], body)
				if err != nil {
					return err
				}
				return printJSON(a.stdout, record)
			})
		},
	}
	for _, c := range []*cobra.Command{create, update} {
		c.Flags().StringVar(&data, "data", "", "JSON object body")
		c.Flags().StringArrayVar(&set, "set", nil, "field as key=value (repeatable)")
	}

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, c *directory.Client) error {
				if err := pick(c).Delete(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "deleted %s %s\n", name, args[0])
				return nil
			})
		},
	}

	cmd.AddCommand(list, get, create, update, del)
	return cmd
}

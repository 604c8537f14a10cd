package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/beanbase/internal/model"
)

func newCountCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "count <type> [field=value]",
		Short: "Count beans, optionally those whose field equals value",
		Args:  rangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				field string
				value any
			)
			if len(args) == 2 {
				var err error
				if field, value, err = parseMatch(args[1]); err != nil {
					return err
				}
			}
			return a.withModel(args[0], func(ctx context.Context, m *model.Model) error {
				var n int
				var err error
				if field == "" {
					n, err = m.Count(ctx)
				} else {
					n, err = m.CountBy(ctx, field, value)
				}
				if err != nil {
					return err
				}
				if a.flags.jsonMode {
					return writeJSON(cmd.OutOrStdout(), map[string]int{"count": n})
				}
				fmt.Fprintln(cmd.OutOrStdout(), n)
				return nil
			})
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	var (
		offset, limit int
		fields        []string
	)
	cmd := &cobra.Command{
		Use:   "list <type>",
		Short: "List beans ordered by id",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withModel(args[0], func(ctx context.Context, m *model.Model) error {
				beans, err := m.BatchGet(ctx, offset, limit)
				if err != nil {
					return err
				}
				return writeBeans(cmd.OutOrStdout(), beans, a.flags.jsonMode, fields...)
			})
		},
	}
	cmd.Flags().StringSliceVar(&fields, "fields", nil, "only show these attributes (comma-separated)")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of beans to skip")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of beans (0 for all)")
	return cmd
}

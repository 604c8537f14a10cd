package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/beanbase/internal/model"
)

func newRelateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "relate <type> <id> <json>",
		Short: "Associate an existing bean with others",
		Long: `Apply a relation request map to an existing bean, using the relations
configured for its type in config.yaml.

Example:
  beanbase relate post 1 '{"tag_id":[3,4],"user_id":2}'`,
		Args: exactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			rels, err := parseRelations(args[2])
			if err != nil {
				return err
			}
			return a.withModel(args[0], func(ctx context.Context, m *model.Model) error {
				bean, err := m.Relate(ctx, id, rels)
				if err != nil {
					return err
				}
				return writeBean(cmd.OutOrStdout(), bean, a.flags.jsonMode)
			})
		},
	}
}

func newRelatedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "related <type> <id> <related-type>",
		Short: "List the beans associated with a bean",
		Args:  exactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			return a.withModel(args[0], func(ctx context.Context, m *model.Model) error {
				beans, err := m.Related(ctx, id, args[2])
				if err != nil {
					return err
				}
				return writeBeans(cmd.OutOrStdout(), beans, a.flags.jsonMode)
			})
		},
	}
}

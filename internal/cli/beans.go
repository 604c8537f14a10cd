package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/beanbase/internal/model"
)

func newPostCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "post <type> <json>",
		Short: "Create a bean",
		Long: `Create a bean of the given type from a JSON object. A "relation"
object maps <type>_id keys to the ids to associate.

Example:
  beanbase post post '{"title":"hello","relation":{"tag_id":[1,2]}}'`,
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := parseObject(args[1])
			if err != nil {
				return err
			}
			return a.withModel(args[0], func(ctx context.Context, m *model.Model) error {
				bean, err := m.Post(ctx, data)
				if err != nil {
					return err
				}
				return writeBean(cmd.OutOrStdout(), bean, a.flags.jsonMode)
			})
		},
	}
}

func newGetCmd(a *app) *cobra.Command {
	var fields []string
	cmd := &cobra.Command{
		Use:   "get <type> <id>",
		Short: "Show a bean",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			return a.withModel(args[0], func(ctx context.Context, m *model.Model) error {
				bean, err := m.Get(ctx, id)
				if err != nil {
					return err
				}
				return writeBean(cmd.OutOrStdout(), bean, a.flags.jsonMode, fields...)
			})
		},
	}
	cmd.Flags().StringSliceVar(&fields, "fields", nil, "only show these attributes (comma-separated)")
	return cmd
}

func newPutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "put <type> <id> <json>",
		Short: "Update a bean",
		Args:  exactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			data, err := parseObject(args[2])
			if err != nil {
				return err
			}
			return a.withModel(args[0], func(ctx context.Context, m *model.Model) error {
				bean, err := m.Put(ctx, id, data)
				if err != nil {
					return err
				}
				return writeBean(cmd.OutOrStdout(), bean, a.flags.jsonMode)
			})
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	var soft bool
	cmd := &cobra.Command{
		Use:   "delete <type> <id>",
		Short: "Delete a bean",
		Long:  "Delete a bean and its links. With --soft the bean is kept and flagged deleted.",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			return a.withModel(args[0], func(ctx context.Context, m *model.Model) error {
				bean, err := m.Delete(ctx, id, soft)
				if err != nil {
					return err
				}
				if bean != nil {
					return writeBean(cmd.OutOrStdout(), bean, a.flags.jsonMode)
				}
				if a.flags.jsonMode {
					return writeJSON(cmd.OutOrStdout(), map[string]any{"type": m.Type(), "id": id, "deleted": true})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s#%d\n", m.Type(), id)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&soft, "soft", false, "flag the bean deleted instead of removing it")
	return cmd
}

func newRecoverCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "recover <type> <id>",
		Short: "Clear the deleted flag of a soft-deleted bean",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			return a.withModel(args[0], func(ctx context.Context, m *model.Model) error {
				bean, err := m.Recover(ctx, id)
				if err != nil {
					return err
				}
				return writeBean(cmd.OutOrStdout(), bean, a.flags.jsonMode)
			})
		},
	}
}

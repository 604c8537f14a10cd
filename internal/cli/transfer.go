package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/beanbase/pkg/types"
)

// openSQLite opens a session and fails unless it runs on the SQLite store.
func (a *app) openSQLite() (*session, error) {
	s, err := a.open()
	if err != nil {
		return nil, err
	}
	if s.sqlite == nil {
		s.close()
		return nil, fmt.Errorf("%w: %q backend cannot export or import", types.ErrInvalidArgument, a.cfg.Backend)
	}
	return s, nil
}

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <dir>",
		Short: "Write beans.jsonl and links.jsonl to a directory",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSQLite()
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.sqlite.Export(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported to %s\n", args[0])
			return nil
		},
	}
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <dir>",
		Short: "Load beans.jsonl and links.jsonl from a directory",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSQLite()
			if err != nil {
				return err
			}
			defer s.close()

			beans, links, err := s.sqlite.Import(context.Background(), args[0])
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), map[string]int{"beans": beans, "links": links})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d beans and %d links\n", beans, links)
			return nil
		},
	}
}

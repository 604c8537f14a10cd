package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the release version; the build sets it with -ldflags.
var Version = "0.1.0"

const modulePath = "github.com/mesh-intelligence/beanbase"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the beanbase version",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "beanbase v%s\nmodule: %s\n", Version, modulePath)
			return nil
		},
	}
}

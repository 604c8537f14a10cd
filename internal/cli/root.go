// Package cli implements the beanbase command-line interface: CRUD and
// relation commands over the model facade, plus init and JSONL transfer.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/beanbase/internal/paths"
	"github.com/mesh-intelligence/beanbase/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	debug     bool
}

// app is the state shared by the commands of one invocation.
type app struct {
	flags rootFlags
	cfg   *Config
	now   func() time.Time
}

// NewRootCmd creates the top-level "beanbase" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{now: time.Now})
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "beanbase",
		Short: "Active-record storage for schemaless beans",
		Long: "BeanBase stores dynamically typed records (beans) and wires\n" +
			"has-one, has-many, have-many and belongs-to relations between them.",
		Version: Version,
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			configDir, err := paths.ResolveConfigDir(a.flags.configDir)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(configDir)
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: $(CWD)/.beanbase-db)")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output as JSON")
	root.PersistentFlags().BoolVar(&a.flags.debug, "debug", false, "enable debug logging")

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newPostCmd(a),
		newGetCmd(a),
		newPutCmd(a),
		newDeleteCmd(a),
		newRecoverCmd(a),
		newCountCmd(a),
		newListCmd(a),
		newRelateCmd(a),
		newRelatedCmd(a),
		newModelsCmd(a),
		newExportCmd(a),
		newImportCmd(a),
	)
	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	os.Exit(run(NewRootCmd(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(root *cobra.Command, args []string, stdout, stderr io.Writer) int {
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitCode(err)
	}
	return exitSuccess
}

// usageError marks errors caused by how the command was invoked.
type usageError struct{ error }

func (e usageError) Unwrap() error { return e.error }

// userErrors are the sentinels that mean the request was wrong rather
// than the system.
var userErrors = []error{
	types.ErrNotFound,
	types.ErrRelationConflict,
	types.ErrTypeMismatch,
	types.ErrUnknownRelationKind,
	types.ErrUnimplemented,
	types.ErrIncompleteData,
	types.ErrUniqueViolation,
	types.ErrInvalidArgument,
	types.ErrInvalidID,
	types.ErrInvalidField,
	types.ErrBackendEmpty,
	types.ErrBackendUnknown,
}

// exitCode maps an error to exitUserError or exitSysError.
func exitCode(err error) int {
	var ue usageError
	if errors.As(err, &ue) || strings.HasPrefix(err.Error(), "unknown command") {
		return exitUserError
	}
	for _, sentinel := range userErrors {
		if errors.Is(err, sentinel) {
			return exitUserError
		}
	}
	return exitSysError
}

// exactArgs is cobra.ExactArgs reporting a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

// rangeArgs is cobra.RangeArgs reporting a usage error.
func rangeArgs(min, max int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.RangeArgs(min, max)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

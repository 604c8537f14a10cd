package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/beanbase/internal/paths"
	"github.com/mesh-intelligence/beanbase/internal/sqlite"
	"github.com/mesh-intelligence/beanbase/pkg/types"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize beanbase storage",
		Long:  "Create the configuration and data directories, write a default config.yaml\nif none exists, then create the database.",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInit(cmd)
		},
	}
}

func (a *app) runInit(cmd *cobra.Command) error {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return err
	}
	dataDir, err := paths.ResolveDataDir(a.flags.dataDir, a.cfg.DataDir)
	if err != nil {
		return err
	}

	configPath := filepath.Join(configDir, configFileExt)
	created, err := writeConfigIfMissing(configPath, dataDir)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	if a.cfg.Backend == types.BackendSQLite {
		backend := sqlite.NewBackend(nil)
		if err := backend.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dataDir}); err != nil {
			return fmt.Errorf("initialize storage: %w", err)
		}
		if err := backend.Detach(); err != nil {
			return fmt.Errorf("finalize storage: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	if created {
		fmt.Fprintf(out, "wrote %s\n", configPath)
	}
	fmt.Fprintf(out, "BeanBase initialized in %s\n", dataDir)
	return nil
}

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/popstack/internal/config"
)

var configOpts struct {
	init  bool
	force bool
	path  bool
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or create the configuration file",
	Long: `Print the effective configuration as TOML.

With --init, write the default configuration to the config file instead.
An existing file is only overwritten with --force.

Examples:
  popstack config
  popstack config --path
  popstack config --init`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.Flags().BoolVar(&configOpts.init, "init", false,
		"Write the default configuration file")
	configCmd.Flags().BoolVar(&configOpts.force, "force", false,
		"Overwrite an existing file with --init")
	configCmd.Flags().BoolVar(&configOpts.path, "path", false,
		"Print the config file path and exit")
}

func runConfig(cmd *cobra.Command, args []string) error {
	path, err := configPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	if configOpts.path {
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	}

	if configOpts.init {
		if _, err := os.Stat(path); err == nil && !configOpts.force {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to check config file: %w", err)
		}

		if err := config.DefaultConfig().Save(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", path)
		return nil
	}

	enc := toml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndentTables(true)
	return enc.Encode(getConfig())
}

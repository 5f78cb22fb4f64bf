package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/npratt/dandiatlas/internal/config"
)

func newConfigCmd(c *cli) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create configuration files",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Print the merged configuration as YAML. A comment header lists the
files that were read, lowest precedence first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, v, err := loadConfigWith(cmd)
			if err != nil {
				return err
			}
			files, err := config.Files(v)
			if err != nil {
				return err
			}
			data, err := config.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(files) == 0 {
				fmt.Fprintln(out, "# no config files; defaults, environment and flags only")
			}
			for _, f := range files {
				fmt.Fprintf(out, "# from %s\n", f)
			}
			_, err = out.Write(data)
			return err
		},
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Long: `Write the default settings to .dandiatlas/config.yaml, or to
~/.config/dandiatlas/config.yaml with --global.

Existing files are left alone unless --force is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			global, _ := cmd.Flags().GetBool(FlagGlobal)
			force, _ := cmd.Flags().GetBool(FlagForce)

			path := config.ProjectConfigLocation()
			if global {
				var err error
				if path, err = config.GlobalConfigLocation(); err != nil {
					return fmt.Errorf("locate global config: %w", err)
				}
			}
			if err := writeDefaultConfig(path, force); err != nil {
				return err
			}
			c.logger.Debug("config written", "path", path)
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().Bool(FlagGlobal, false, "Write to ~/.config/dandiatlas/ instead of ./.dandiatlas/")
	initCmd.Flags().Bool(FlagForce, false, "Overwrite an existing file")

	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(initCmd)
	return configCmd
}

// writeDefaultConfig writes config.Default() to path. An existing file is
// only replaced when force is set.
func writeDefaultConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	data, err := config.Marshal(config.Default())
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

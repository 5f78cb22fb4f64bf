package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/npratt/dandiatlas/internal/config"
)

var version = "dev"

// cli carries the process-wide logger into the commands.
type cli struct {
	logger   *slog.Logger
	logLevel *slog.LevelVar
}

func main() {
	logLevel := &slog.LevelVar{}
	logger := newJSONLogger(os.Stderr, logLevel)

	rootCmd := newRootCmd(&cli{logger: logger, logLevel: logLevel})
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd(c *cli) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dandiatlas",
		Short: "Browse DANDI datasets by brain region",
		Long: `dandiatlas explores which DANDI archive datasets cover which regions
of the Allen mouse brain atlas.

Pick a region to list the dandisets that recorded there, pick a dandiset
to see its regions and subjects, and share any view by its hash.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose, _ := cmd.Flags().GetBool(FlagVerbose); verbose {
				c.logLevel.Set(slog.LevelDebug)
				c.logger.Debug("verbose logging enabled")
			}
		},
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().Bool(FlagVerbose, false, "Enable verbose (debug) logging")
	rootCmd.PersistentFlags().String(FlagConfig, "", "Config file path (default: .dandiatlas/config.yaml)")
	rootCmd.PersistentFlags().String(FlagData, "", "Atlas data directory or http(s) base URL")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dandiatlas %s\n", version)
		},
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(newBrowseCmd(c))
	rootCmd.AddCommand(newSnapshotCmd(c))
	rootCmd.AddCommand(newPlanCmd(c))
	rootCmd.AddCommand(newEventsCmd(c))
	rootCmd.AddCommand(newConfigCmd(c))
	return rootCmd
}

// loadConfig layers defaults, config files, environment and the flags the
// user set on cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, _, err := loadConfigWith(cmd)
	return cfg, err
}

// loadConfigWith is loadConfig that also returns the viper instance, for
// callers that report where settings came from.
func loadConfigWith(cmd *cobra.Command) (*config.Config, *viper.Viper, error) {
	v := viper.New()
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Name == FlagConfig {
			_ = v.BindPFlag("config", f)
			return
		}
		if key, ok := flagKeys[f.Name]; ok {
			_ = v.BindPFlag(key, f)
		}
	})

	cfg, err := config.LoadConfig(v)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if noTitles, _ := cmd.Flags().GetBool(FlagNoTitles); noTitles {
		cfg.Titles.Enabled = false
	}
	return cfg, v, nil
}

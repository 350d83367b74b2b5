package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/intheflow/internal/cli"
	"github.com/aretw0/intheflow/internal/config"
	"github.com/aretw0/intheflow/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "intheflow",
	Short: "intheflow is a node canvas for chaining generative media tools",
	Long: `intheflow hosts editable canvases of generator nodes (image, video, script,
voice, ...) wired into pipelines, with undo history, live streaming of changes
and Gemini-backed content generation.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to the config file (default "+config.DefaultPath+")")
	rootCmd.PersistentFlags().String("log-level", "", "Override the configured log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("store", "", "Override the store driver (memory, file, redis)")
}

// loadConfig reads the config file and applies command line overrides.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	if driver, _ := cmd.Flags().GetString("store"); driver != "" {
		cfg.Store.Driver = driver
	}
	if err := cfg.Validate(); err != nil {
		return cfg, nil, err
	}
	level, _ := cfg.Level()
	logger := logging.New(level, cfg.LogFormat)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// newApp loads the configuration and wires the runtime.
func newApp(cmd *cobra.Command) (*cli.App, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return cli.NewApp(cfg, logger)
}

// Package cmd defines the bid-crawler command line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/narabid/bid-crawler/internal/config"
	"github.com/narabid/bid-crawler/internal/logging"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "bid-crawler",
	Short: "Crawls a government procurement portal for bid announcements",
	Long: `bid-crawler drives a headless browser through a procurement portal,
extracts bid announcements matching a keyword list, filters them against
category and date-window policies, and enriches admitted records from their
detail pages with an AI-assisted fallback extractor.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file")
}

// loadEnvironment builds the config and logger shared by all subcommands.
func loadEnvironment() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

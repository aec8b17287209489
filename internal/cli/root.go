// Package cli implements the compliance command line.
package cli

import (
	"context"
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"compliance/internal/config"
	"compliance/internal/logger"
	"compliance/internal/service"
)

var (
	version = "dev"

	configPath string
	verbose    bool

	appConfig *config.AppConfig

	// openService builds the service from config. Tests replace it.
	openService = service.Open
)

var rootCmd = &cobra.Command{
	Use:   "compliance",
	Short: "Check contracts against a catalog of compliance rules",
	Long: `compliance indexes a corpus of contracts, then asks a language model
whether the contracts satisfy each rule of a catalog.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		logger.SetOutput(cmd.ErrOrStderr())
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("reading .env: %v", err)
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		appConfig = cfg
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./config.yaml or ~/.config/compliance/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print progress and debug output")
}

func loadConfig() (*config.AppConfig, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	cfg, path, err := config.LoadDefault()
	if err != nil {
		return nil, err
	}
	logger.Debug("Using config %s", path)
	return cfg, nil
}

// ExecuteContext runs the root command.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

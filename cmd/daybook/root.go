package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zhouzirui/daybook/internal/config"
	"github.com/zhouzirui/daybook/internal/logging"
)

var (
	configPath string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "daybook",
	Short:         "A conversational daily journal",
	Long:          `daybook talks with you about your day, turns the conversation into a short first-person journal entry, tracks your writing streak and charts how you felt.`,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envErr := godotenv.Load()

		if configPath != "" {
			if err := os.Setenv("DAYBOOK_CONFIG", configPath); err != nil {
				return err
			}
		}

		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded

		logger, err = logging.New(cfg.Log)
		if err != nil {
			return err
		}
		zap.ReplaceGlobals(logger)

		if envErr != nil {
			logger.Debug("no .env file loaded, using process environment", zap.Error(envErr))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (overrides DAYBOOK_CONFIG)")
}

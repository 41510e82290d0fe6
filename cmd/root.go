package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gulfshield/claims-engine/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "claims-engine",
	Short: "Motor-insurance claim decision pipeline",
	Long:  "Normalizes inbound TP and CO claims, builds decision prompts from per-module rule files, runs them against a local inference endpoint, and applies code-level overrides to the parsed decisions.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

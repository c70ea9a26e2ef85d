package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "scoring",
	Short: "Bankruptcy lead scoring pipeline",
	Long:  "Normalizes raw CSV lead lists, enriches them against public registries, scores bankruptcy potential, and exports call-ready target lists.",
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

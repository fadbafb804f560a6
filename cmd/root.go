package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agrodatalab/upa-access/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "upa-access",
	Short: "Nearest-facility distance analysis for agricultural survey points",
	Long:  "Computes the distance from each UPA survey point to the nearest school, hospital, or university layer, aggregates by municipality, and serves the results.",
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

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/thesis-scout/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "thesis-scout",
	Short: "Investment thesis research pipeline",
	Long:  "Expands an investment thesis into a research plan, discovers early-stage companies across structured and web sources, scores them against the thesis, and writes ranked investment briefs.",
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

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/triage-labs/acr-eval/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "acr-eval",
	Short: "Clinical retrieval evaluation for the ACR appropriateness catalog",
	Long:  "Embeds the ACR condition/variant catalog, retrieves the nearest variant for free-text clinical descriptions, and scores retrieval quality with layered partial credit.",
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

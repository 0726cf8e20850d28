package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/triage-labs/acr-eval/internal/catalog"
	"github.com/triage-labs/acr-eval/pkg/anthropic"
	"github.com/triage-labs/acr-eval/pkg/synth"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate synthetic patient cases from the catalog",
	Long: `For each catalog variant, asks Claude for three descriptions of a
matching patient presentation, graded from near-verbatim (desc_1) to
distant paraphrase (desc_3), and writes them as a pipe-delimited case
file suitable for eval --cases.`,
	RunE: runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.String("catalog", "", "path to the catalog file (pipe-delimited CSV or XLSX)")
	f.String("output", "cases.csv", "path for the generated case file")
	f.Int("limit", 0, "generate cases for at most this many variants (0 = all)")
	_ = generateCmd.MarkFlagRequired("catalog")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("generate"); err != nil {
		return err
	}

	catalogPath, _ := cmd.Flags().GetString("catalog")
	outputPath, _ := cmd.Flags().GetString("output")
	limit, _ := cmd.Flags().GetInt("limit")

	cat, err := catalog.Load(catalogPath)
	if err != nil {
		return err
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return eris.Wrapf(err, "generate: create %s", outputPath)
	}
	defer out.Close() //nolint:errcheck

	zap.L().Info("generating cases",
		zap.String("catalog", catalogPath),
		zap.Int("entries", cat.Len()),
		zap.Int("limit", limit),
		zap.String("model", cfg.Anthropic.Model),
	)

	gen := synth.NewGenerator(anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic.Model)
	if err := gen.WriteCases(ctx, cat, out, limit); err != nil {
		return err
	}

	fmt.Printf("Cases written to %s\n", outputPath)
	return nil
}

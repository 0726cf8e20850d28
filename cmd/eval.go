package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/triage-labs/acr-eval/internal/catalog"
	"github.com/triage-labs/acr-eval/internal/encoder"
	"github.com/triage-labs/acr-eval/internal/evaluator"
	"github.com/triage-labs/acr-eval/internal/model"
	"github.com/triage-labs/acr-eval/internal/report"
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate retrieval quality against a case batch",
	Long: `Runs every case description against the embedded catalog and grades
each retrieval: exact variant match, procedure-set overlap, and
parent-condition match. Each desc_* column in the case file is an
independent mode with its own summary.

Examples:
  # Evaluate synthetic cases against a catalog
  eval --catalog data/acr_catalog.csv --cases data/cases.csv

  # Self-retrieval check: query every variant with its own text
  eval --catalog data/acr_catalog.csv --self

  # Write detail and summary CSVs to a custom directory
  eval --catalog data/acr_catalog.csv --cases data/cases.csv --output results/aug27`,
	RunE: runEval,
}

func init() {
	f := evalCmd.Flags()
	f.String("catalog", "", "path to the catalog file (pipe-delimited CSV or XLSX)")
	f.String("cases", "", "path to the case batch file")
	f.Bool("self", false, "evaluate the catalog against itself instead of a case file")
	f.String("output", "", "output directory (default from config)")
	_ = evalCmd.MarkFlagRequired("catalog")
	rootCmd.AddCommand(evalCmd)
}

func runEval(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("eval"); err != nil {
		return err
	}

	catalogPath, _ := cmd.Flags().GetString("catalog")
	casesPath, _ := cmd.Flags().GetString("cases")
	self, _ := cmd.Flags().GetBool("self")
	outputDir, _ := cmd.Flags().GetString("output")
	if outputDir == "" {
		outputDir = cfg.Eval.OutputDir
	}

	if casesPath == "" && !self {
		return eris.New("eval: either --cases or --self is required")
	}

	cat, err := catalog.Load(catalogPath)
	if err != nil {
		return err
	}

	var batch *catalog.CaseBatch
	if self {
		batch = catalog.SelfCases(cat)
	} else {
		batch, err = catalog.LoadCases(casesPath)
		if err != nil {
			return err
		}
	}

	enc, err := newEncoder()
	if err != nil {
		return err
	}

	idx, closeIdx, err := newIndex(ctx, enc.Dimension())
	if err != nil {
		return err
	}
	defer closeIdx()

	// The in-memory driver starts empty each invocation; pgvector may
	// already hold the catalog from an earlier embed run.
	count, err := idx.Count(ctx)
	if err != nil {
		return err
	}
	if count == 0 {
		zap.L().Info("index empty, embedding catalog first", zap.Int("entries", cat.Len()))
		if err := indexCatalog(ctx, enc, idx, cat); err != nil {
			return err
		}
	}

	st, err := initStore()
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	run, err := st.CreateRun(ctx, catalogPath, casesPath, enc.Name())
	if err != nil {
		return err
	}

	log := zap.L().With(zap.String("command", "eval"), zap.String("run_id", run.ID))
	log.Info("starting evaluation",
		zap.Int("cases", len(batch.Cases)),
		zap.Strings("modes", batch.Modes),
		zap.String("encoder", enc.Name()),
	)

	ev := evaluator.New(enc, idx, cat, cfg.Eval.Concurrency)
	reports, err := ev.EvaluateModes(ctx, batch)
	if err != nil {
		if failErr := st.FailRun(ctx, run.ID); failErr != nil {
			log.Warn("could not mark run failed", zap.Error(failErr))
		}
		return err
	}

	summaries := make([]model.BatchSummary, len(reports))
	for i, r := range reports {
		summaries[i] = r.Summary
	}

	if err := writeEvalOutputs(outputDir, run.ID, catalogPath, casesPath, enc.Name(), cat, reports, summaries); err != nil {
		return err
	}

	if err := st.CompleteRun(ctx, run.ID, summaries); err != nil {
		return err
	}

	report.FormatSummaries(os.Stdout, summaries)
	fmt.Printf("\nRun %s written to %s\n", run.ID, filepath.Join(outputDir, run.ID))
	return nil
}

// writeEvalOutputs writes detail.csv, summary.csv, and manifest.yaml
// under outputDir/runID.
func writeEvalOutputs(outputDir, runID, catalogPath, casesPath, encoderName string, cat *catalog.Catalog, reports []evaluator.ModeReport, summaries []model.BatchSummary) error {
	dir := filepath.Join(outputDir, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "eval: create output dir %s", dir)
	}

	detail, err := os.Create(filepath.Join(dir, "detail.csv"))
	if err != nil {
		return eris.Wrap(err, "eval: create detail.csv")
	}
	defer detail.Close() //nolint:errcheck
	if err := report.WriteDetailCSV(detail, reports, cat.ConditionOf); err != nil {
		return err
	}

	summary, err := os.Create(filepath.Join(dir, "summary.csv"))
	if err != nil {
		return eris.Wrap(err, "eval: create summary.csv")
	}
	defer summary.Close() //nolint:errcheck
	if err := report.WriteSummaryCSV(summary, summaries); err != nil {
		return err
	}

	manifest, err := os.Create(filepath.Join(dir, "manifest.yaml"))
	if err != nil {
		return eris.Wrap(err, "eval: create manifest.yaml")
	}
	defer manifest.Close() //nolint:errcheck
	return report.WriteManifest(manifest, report.Manifest{
		RunID:           runID,
		CreatedAt:       timeNow(),
		CatalogPath:     catalogPath,
		CasesPath:       casesPath,
		Encoder:         encoderName,
		TemplateVersion: encoder.TemplateVersion,
		CatalogEntries:  cat.Len(),
		Summaries:       summaries,
	})
}

package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/triage-labs/acr-eval/internal/catalog"
)

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Embed the catalog into the vector index",
	Long: `Loads the condition/variant/procedure catalog, embeds every variant
under the versioned catalog template, and upserts the vectors into the
configured index. With the pgvector driver the index persists across
invocations; re-running refreshes existing vectors in place.`,
	RunE: runEmbed,
}

func init() {
	embedCmd.Flags().String("catalog", "", "path to the catalog file (pipe-delimited CSV or XLSX)")
	_ = embedCmd.MarkFlagRequired("catalog")
	rootCmd.AddCommand(embedCmd)
}

func runEmbed(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("embed"); err != nil {
		return err
	}

	catalogPath, _ := cmd.Flags().GetString("catalog")
	cat, err := catalog.Load(catalogPath)
	if err != nil {
		return err
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

	log := zap.L().With(zap.String("command", "embed"))
	log.Info("embedding catalog",
		zap.String("catalog", catalogPath),
		zap.Int("entries", cat.Len()),
		zap.String("encoder", enc.Name()),
	)

	started := time.Now()
	if err := indexCatalog(ctx, enc, idx, cat); err != nil {
		return err
	}

	count, err := idx.Count(ctx)
	if err != nil {
		return err
	}

	log.Info("catalog embedded",
		zap.Int("indexed", count),
		zap.Duration("elapsed", time.Since(started)),
	)
	fmt.Printf("Indexed %d catalog entries in %s\n", count, time.Since(started).Round(time.Millisecond))
	return nil
}

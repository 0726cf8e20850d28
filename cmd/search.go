package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/triage-labs/acr-eval/internal/catalog"
)

var searchCmd = &cobra.Command{
	Use:   "search <clinical description>",
	Short: "Retrieve the closest catalog variants for a description",
	Long: `Embeds a free-text clinical description and prints the nearest
catalog variants with their distances and rated procedures. The query
text is embedded as-is; only catalog entries use the embedding
template.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.String("catalog", "", "path to the catalog file (pipe-delimited CSV or XLSX)")
	f.IntP("top", "k", 5, "number of neighbors to return")
	_ = searchCmd.MarkFlagRequired("catalog")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("search"); err != nil {
		return err
	}

	catalogPath, _ := cmd.Flags().GetString("catalog")
	k, _ := cmd.Flags().GetInt("top")
	query := strings.Join(args, " ")

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

	count, err := idx.Count(ctx)
	if err != nil {
		return err
	}
	if count == 0 {
		if err := indexCatalog(ctx, enc, idx, cat); err != nil {
			return err
		}
	}

	vector, err := enc.Encode(ctx, query)
	if err != nil {
		return err
	}

	neighbors, err := idx.Nearest(ctx, vector, k)
	if err != nil {
		return err
	}

	for i, n := range neighbors {
		fmt.Printf("%d. %s  (distance %.4f)\n", i+1, n.ID, n.Distance)
		if entry, ok := cat.Entry(n.ID); ok {
			if condition, ok := cat.ConditionOf(entry.Variant); ok {
				fmt.Printf("   Condition: %s\n", condition)
			}
			for proc, appropriateness := range entry.Procedures {
				fmt.Printf("   - %s: %s\n", proc, appropriateness)
			}
		}
	}
	return nil
}

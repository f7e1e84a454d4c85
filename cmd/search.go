package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/screenscorch/screenscorch/internal/config"
	"github.com/screenscorch/screenscorch/internal/extract"
	"github.com/screenscorch/screenscorch/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search indexed screenshots",
	Long: `Search the index with a free-text query.

Tiers are evaluated in strict precedence: a query equal to a known face
name returns face matches only; otherwise exact keyword hits come first,
then fuzzy keyword hits, then semantically similar images.

Examples:
  # Keyword and semantic search
  screenscorch search "invoice 2024"

  # Face search (after tagging with 'screenscorch face tag')
  screenscorch search alice

  # More semantic results, JSON output
  screenscorch search sunset --top-k 10 --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().Int("top-k", 0, "Number of semantic results (default from config)")
	searchCmd.Flags().Bool("json", false, "Output as JSON")
}

func runSearch(cmd *cobra.Command, args []string) error {
	topK := mustGetInt(cmd, "top-k")
	jsonOutput := mustGetBool(cmd, "json")
	query := strings.Join(args, " ")

	ctx := context.Background()
	cfg := config.Load()
	if topK == 0 {
		topK = cfg.Tuning.TopK
	}

	store := loadStore(cfg)
	known := loadKnownFaces(cfg)

	ranker := search.New(extract.NewClient(cfg.Embedding.URL), search.Options{
		FaceTolerance:  cfg.Tuning.FaceTolerance,
		FuzzyThreshold: cfg.Tuning.FuzzyThreshold,
		TopK:           topK,
	})

	results, err := ranker.Search(ctx, query, known, store)
	if errors.Is(err, search.ErrIndexNotReady) {
		return fmt.Errorf("no index found: run 'screenscorch index <folder>' first")
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Printf("No results for %q\n", query)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MATCH\tSCORE\tFILE\tTEXT")
	for _, res := range results {
		path := res.FilePath
		// Stale path check: files can vanish between indexing and now.
		if _, err := os.Stat(path); err != nil {
			path += " (missing)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", res.MatchType, res.Score, path, snippet(res.Text, 60))
	}
	return w.Flush()
}

// snippet collapses whitespace and truncates text for single-line display.
func snippet(text string, maxLen int) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > maxLen {
		return text[:maxLen] + "..."
	}
	return text
}

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/screenscorch/screenscorch/internal/config"
	"github.com/screenscorch/screenscorch/internal/extract"
	"github.com/screenscorch/screenscorch/internal/index"
)

var similarCmd = &cobra.Command{
	Use:   "similar <image>",
	Short: "Find visually similar indexed screenshots",
	Long: `Find indexed images visually similar to the given one using an in-memory
HNSW graph over the stored embeddings. Lower distance means more similar.

If the image is already indexed its stored embedding is reused; otherwise
the embedding server computes one on the fly.

Examples:
  screenscorch similar ~/Desktop/screenshots/receipt.png
  screenscorch similar photo.jpg --limit 20 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runSimilar,
}

func init() {
	rootCmd.AddCommand(similarCmd)

	similarCmd.Flags().Int("limit", 10, "Maximum number of results")
	similarCmd.Flags().Bool("json", false, "Output as JSON")
}

// SimilarResult is one similar-photo hit for JSON output.
type SimilarResult struct {
	FilePath string  `json:"file_path"`
	Distance float64 `json:"distance"`
}

func runSimilar(cmd *cobra.Command, args []string) error {
	limit := mustGetInt(cmd, "limit")
	jsonOutput := mustGetBool(cmd, "json")

	ctx := context.Background()
	cfg := config.Load()

	store := loadStore(cfg)
	if store.Len() == 0 {
		return fmt.Errorf("no index found: run 'screenscorch index <folder>' first")
	}

	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", args[0], err)
	}

	var embedding []float32
	if rec, ok := store.Get(path); ok && len(rec.Embedding) > 0 {
		embedding = rec.Embedding
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		embedding, err = extract.NewClient(cfg.Embedding.URL).EmbedImage(ctx, data)
		if err != nil {
			return fmt.Errorf("failed to embed image: %w", err)
		}
	}

	visual := index.BuildVisualIndex(store)
	neighbors, err := visual.Similar(embedding, limit, path)
	if err != nil {
		return err
	}

	if jsonOutput {
		results := make([]SimilarResult, 0, len(neighbors))
		for _, n := range neighbors {
			results = append(results, SimilarResult{FilePath: n.Record.FilePath, Distance: n.Distance})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(neighbors) == 0 {
		fmt.Println("No similar images found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DISTANCE\tFILE")
	for _, n := range neighbors {
		fmt.Fprintf(w, "%.4f\t%s\n", n.Distance, n.Record.FilePath)
	}
	return w.Flush()
}

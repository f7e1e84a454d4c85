package cmd

import (
	"context"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/screenscorch/screenscorch/internal/config"
	"github.com/screenscorch/screenscorch/internal/indexer"
)

var indexCmd = &cobra.Command{
	Use:   "index [folder]",
	Short: "Build or update the screenshot index",
	Long: `Scan a folder (or an explicit list of files) and update the index.

Files already indexed are skipped unless their modification time or size
changed; records for deleted files are pruned. One corrupt image never
aborts the run.

Examples:
  # Index a screenshots folder recursively
  screenscorch index ~/Desktop/screenshots

  # Index specific files (no extension filtering)
  screenscorch index --file a.png --file b.jpg`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)

	indexCmd.Flags().StringSlice("file", nil, "Index this file instead of walking a folder (repeatable)")
}

func runIndex(cmd *cobra.Command, args []string) error {
	files := mustGetStringSlice(cmd, "file")
	if len(args) == 0 && len(files) == 0 {
		return fmt.Errorf("provide a folder to scan or at least one --file")
	}

	ctx := context.Background()
	cfg := config.Load()
	if err := cfg.EnsureDirs(); err != nil {
		return fmt.Errorf("failed to create app directory: %w", err)
	}

	pipeline, err := newPipeline(ctx, cfg)
	if err != nil {
		return err
	}

	store := loadStore(cfg)
	engine := indexer.New(store, pipeline, cfg.ThumbnailDir(), cfg.Tuning.ThumbnailMaxDim)

	inputs := indexer.Inputs{Files: files}
	if len(args) == 1 {
		inputs.Root = args[0]
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Indexing"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSpinnerType(14),
	)

	stats, err := engine.Build(ctx, inputs, func(msg string) {
		bar.Describe(msg)
		_ = bar.Add(1)
	}, nil)
	_ = bar.Finish()
	fmt.Println()
	if err != nil {
		return err
	}

	fmt.Printf("Indexed %d new or changed files (%d unchanged, %d failed)\n",
		stats.Processed, stats.Skipped, stats.Failed)
	fmt.Printf("Pruned %d deleted files, %d files in index\n", stats.Pruned, stats.Total)
	return nil
}

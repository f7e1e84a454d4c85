package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/screenscorch/screenscorch/internal/config"
	"github.com/screenscorch/screenscorch/internal/extract"
	"github.com/screenscorch/screenscorch/internal/faces"
	"github.com/screenscorch/screenscorch/internal/index"
	"github.com/screenscorch/screenscorch/internal/ocr"
)

// loadStore loads the index, warning (not failing) on a corrupt file since
// the index can always be rebuilt.
func loadStore(cfg *config.Config) *index.Store {
	store, err := index.Load(cfg.IndexFile())
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v (starting with an empty index)\n", err)
	}
	return store
}

// loadKnownFaces loads the known-faces file with the same soft-fail policy.
func loadKnownFaces(cfg *config.Config) faces.Known {
	known, err := faces.Load(cfg.KnownFacesFile())
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v (no known faces available)\n", err)
	}
	return known
}

// newPipeline wires the embedding sidecar and the configured OCR provider
// into the extraction seam used by indexing and search.
func newPipeline(ctx context.Context, cfg *config.Config) (*extract.Pipeline, error) {
	ocrProvider, err := ocr.NewProvider(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create OCR provider: %w", err)
	}
	return extract.NewPipeline(extract.NewClient(cfg.Embedding.URL), ocrProvider), nil
}

// Package extract defines the seam between the core indexing logic and the
// external ML collaborators (OCR, embeddings, face detection). The indexing
// engine only ever talks to the Extractor interface; search and duplicate
// scanning never invoke extraction directly.
package extract

import (
	"context"

	"github.com/screenscorch/screenscorch/internal/ocr"
)

// Face is one detected face: a bounding box in original-image pixel
// coordinates plus its embedding.
type Face struct {
	// BBox is [x1, y1, x2, y2].
	BBox      [4]float64
	Embedding []float32
}

// Extractor bundles the external extraction capabilities consumed during
// indexing. Calls are synchronous and potentially slow; no timeout is
// imposed beyond the supplied context.
type Extractor interface {
	// ExtractText performs OCR on an image.
	ExtractText(ctx context.Context, imageData []byte) (string, error)
	// EmbedImage computes the visual embedding of an image.
	EmbedImage(ctx context.Context, imageData []byte) ([]float32, error)
	// EmbedText computes a text embedding in the same space as EmbedImage.
	EmbedText(ctx context.Context, text string) ([]float32, error)
	// DetectFaces returns every detected face with box and embedding aligned.
	DetectFaces(ctx context.Context, imageData []byte) ([]Face, error)
}

// Pipeline is the production Extractor: embeddings and faces come from the
// embedding sidecar, text from the configured OCR provider.
type Pipeline struct {
	embeddings *Client
	ocr        ocr.Provider
}

// NewPipeline combines an embedding client and an OCR provider.
func NewPipeline(embeddings *Client, ocrProvider ocr.Provider) *Pipeline {
	return &Pipeline{
		embeddings: embeddings,
		ocr:        ocrProvider,
	}
}

func (p *Pipeline) ExtractText(ctx context.Context, imageData []byte) (string, error) {
	return p.ocr.ExtractText(ctx, imageData)
}

func (p *Pipeline) EmbedImage(ctx context.Context, imageData []byte) ([]float32, error) {
	return p.embeddings.EmbedImage(ctx, imageData)
}

func (p *Pipeline) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return p.embeddings.EmbedText(ctx, text)
}

func (p *Pipeline) DetectFaces(ctx context.Context, imageData []byte) ([]Face, error) {
	return p.embeddings.DetectFaces(ctx, imageData)
}

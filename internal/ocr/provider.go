// Package ocr provides pluggable text-extraction backends. The embedding
// sidecar is the default; vision-model providers are available for setups
// without a local OCR endpoint.
package ocr

import (
	"context"
	"fmt"

	"github.com/screenscorch/screenscorch/internal/config"
)

// Provider defines the interface for OCR backends.
type Provider interface {
	Name() string
	// ExtractText returns the machine-readable text found in an image,
	// which may be empty.
	ExtractText(ctx context.Context, imageData []byte) (string, error)
}

// NewProvider builds the provider selected by the configuration. An empty
// provider name selects the sidecar.
func NewProvider(ctx context.Context, cfg *config.Config) (Provider, error) {
	switch cfg.OCR.Provider {
	case "", "sidecar":
		return NewSidecarProvider(cfg.Embedding.URL), nil
	case "openai":
		if cfg.OCR.OpenAIToken == "" {
			return nil, fmt.Errorf("OPENAI_TOKEN not set")
		}
		return NewOpenAIProvider(cfg.OCR.OpenAIToken), nil
	case "gemini":
		if cfg.OCR.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY not set")
		}
		return NewGeminiProvider(ctx, cfg.OCR.GeminiAPIKey)
	case "ollama":
		return NewOllamaProvider(cfg.OCR.OllamaURL, cfg.OCR.OllamaModel), nil
	default:
		return nil, fmt.Errorf("unknown OCR provider: %s", cfg.OCR.Provider)
	}
}

package ocr

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/screenscorch/screenscorch/internal/fingerprint"
)

const geminiModel = "gemini-2.5-flash"

// GeminiProvider extracts text using a Gemini vision model.
type GeminiProvider struct {
	client *genai.Client
}

func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiProvider{client: client}, nil
}

func (p *GeminiProvider) Name() string {
	return geminiModel
}

func (p *GeminiProvider) ExtractText(ctx context.Context, imageData []byte) (string, error) {
	resized, err := fingerprint.Thumbnail(imageData, maxOCRImageDim)
	if err != nil {
		return "", fmt.Errorf("failed to resize image: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: ocrPrompt},
				{InlineData: &genai.Blob{Data: resized, MIMEType: "image/jpeg"}},
			},
		},
	}

	result, err := p.client.Models.GenerateContent(ctx, geminiModel, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}

	return strings.TrimSpace(result.Text()), nil
}

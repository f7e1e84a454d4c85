package ocr

import (
	"context"
	_ "embed"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/screenscorch/screenscorch/internal/fingerprint"
)

//go:embed prompts/ocr.txt
var ocrPrompt string

const openAIModel = openai.ChatModelGPT4_1Mini

// maxOCRImageDim keeps request payloads small; screenshots stay readable
// well below this edge length.
const maxOCRImageDim = 1200

// OpenAIProvider extracts text using an OpenAI vision model.
type OpenAIProvider struct {
	client *openai.Client
}

func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIProvider{client: &client}
}

func (p *OpenAIProvider) Name() string {
	return openAIModel
}

func (p *OpenAIProvider) ExtractText(ctx context.Context, imageData []byte) (string, error) {
	resized, err := fingerprint.Thumbnail(imageData, maxOCRImageDim)
	if err != nil {
		return "", fmt.Errorf("failed to resize image: %w", err)
	}

	imageURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(resized)

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openAIModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{
						OfString: openai.String(ocrPrompt),
					},
				},
			},
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfArrayOfContentParts: []openai.ChatCompletionContentPartUnionParam{
							openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
								URL:    imageURL,
								Detail: "high",
							}),
						},
					},
				},
			},
		},
		MaxTokens: openai.Int(2000),
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response from OpenAI")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

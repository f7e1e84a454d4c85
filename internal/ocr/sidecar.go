package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/screenscorch/screenscorch/internal/fingerprint"
)

const defaultSidecarURL = "http://localhost:8000"

// SidecarProvider extracts text via the embedding sidecar's /ocr endpoint.
type SidecarProvider struct {
	baseURL string
	client  *http.Client
}

// NewSidecarProvider creates a sidecar OCR provider.
func NewSidecarProvider(baseURL string) *SidecarProvider {
	if baseURL == "" {
		baseURL = defaultSidecarURL
	}
	return &SidecarProvider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{},
	}
}

func (p *SidecarProvider) Name() string {
	return "sidecar"
}

type sidecarOCRResponse struct {
	Text string `json:"text"`
}

func (p *SidecarProvider) ExtractText(ctx context.Context, imageData []byte) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", fingerprint.DetectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return "", fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/ocr", &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("OCR server error (status %d): %s", resp.StatusCode, string(body))
	}

	var ocrResp sidecarOCRResponse
	if err := json.Unmarshal(body, &ocrResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	return strings.TrimSpace(ocrResp.Text), nil
}

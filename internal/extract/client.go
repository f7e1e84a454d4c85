package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/screenscorch/screenscorch/internal/fingerprint"
)

const defaultEmbeddingURL = "http://localhost:8000"

// Client talks to the embedding sidecar over HTTP. The sidecar exposes
// /embed/image, /embed/text and /embed/face; image and text embeddings live
// in the same space and are comparable via cosine similarity.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a sidecar client.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultEmbeddingURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{},
	}
}

type embeddingResponse struct {
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	Model     string    `json:"model"`
}

type faceDetection struct {
	FaceIndex int       `json:"face_index"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

type faceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []faceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// postMultipartImage posts the image data as a multipart form to the given
// endpoint. The part carries an explicit Content-Type from magic-byte
// detection so the sidecar does not have to sniff.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", fingerprint.DetectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding server error (status %d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// EmbedImage computes the visual embedding for an image.
func (c *Client) EmbedImage(ctx context.Context, imageData []byte) ([]float32, error) {
	body, err := c.postMultipartImage(ctx, "/embed/image", imageData)
	if err != nil {
		return nil, err
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(embResp.Embedding) == 0 {
		return nil, errors.New("empty embedding returned")
	}
	return embResp.Embedding, nil
}

// EmbedText computes the embedding for a text query.
func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	reqBody, err := json.Marshal(struct {
		Text string `json:"text"`
	}{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embed/text", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding server error (status %d): %s", resp.StatusCode, string(body))
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(embResp.Embedding) == 0 {
		return nil, errors.New("empty embedding returned")
	}
	return embResp.Embedding, nil
}

// DetectFaces detects faces and computes their embeddings. Boxes and
// embeddings come back aligned; a malformed bbox fails the whole call since
// a misaligned face set must never enter the index.
func (c *Client) DetectFaces(ctx context.Context, imageData []byte) ([]Face, error) {
	body, err := c.postMultipartImage(ctx, "/embed/face", imageData)
	if err != nil {
		return nil, err
	}

	var faceResp faceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	faces := make([]Face, 0, len(faceResp.Faces))
	for _, f := range faceResp.Faces {
		if len(f.BBox) != 4 {
			return nil, fmt.Errorf("face %d: malformed bbox with %d coordinates", f.FaceIndex, len(f.BBox))
		}
		if len(f.Embedding) == 0 {
			return nil, fmt.Errorf("face %d: empty embedding", f.FaceIndex)
		}
		faces = append(faces, Face{
			BBox:      [4]float64{f.BBox[0], f.BBox[1], f.BBox[2], f.BBox[3]},
			Embedding: f.Embedding,
		})
	}
	return faces, nil
}

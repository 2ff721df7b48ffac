package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shotflow/api/internal/config"
)

// EmbeddingClient calls the identity extraction sidecar that computes face
// and style vectors from an anchor image.
type EmbeddingClient struct {
	httpClient *http.Client
	baseURL    string
}

type extractIdentityRequest struct {
	ImagePath string `json:"image_path"`
}

// IdentityResult carries the extracted identity signals for one image.
type IdentityResult struct {
	FaceVector     []float64 `json:"face_vector"`
	StyleVector    []float64 `json:"style_vector"`
	DominantColors []string  `json:"dominant_colors"`
}

// NewEmbeddingClient creates a new identity extraction client
func NewEmbeddingClient(cfg *config.EmbeddingConfig) *EmbeddingClient {
	return &EmbeddingClient{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL: cfg.BaseURL,
	}
}

// ExtractIdentity computes embeddings and dominant colors for an image.
func (c *EmbeddingClient) ExtractIdentity(ctx context.Context, imagePath string) (*IdentityResult, error) {
	bodyBytes, err := json.Marshal(extractIdentityRequest{ImagePath: imagePath})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/identity/extract", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result IdentityResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &result, nil
}

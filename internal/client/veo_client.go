package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/shotflow/api/internal/config"
	"github.com/shotflow/api/internal/continuity"
)

// VeoClient talks to the Vertex AI video generation endpoint. It implements
// continuity.VideoGenerator.
type VeoClient struct {
	httpClient   *http.Client
	tokenSource  oauth2.TokenSource
	endpoint     string
	pollInterval time.Duration
	pollTimeout  time.Duration
}

// veoReferenceImage is one conditioning image in a predict request.
type veoReferenceImage struct {
	Image         veoImage `json:"image"`
	ReferenceType string   `json:"referenceType"`
}

type veoImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded,omitempty"`
	MimeType           string `json:"mimeType,omitempty"`
	GcsURI             string `json:"gcsUri,omitempty"`
}

type veoInstance struct {
	Prompt          string              `json:"prompt"`
	ReferenceImages []veoReferenceImage `json:"referenceImages,omitempty"`
}

type veoParameters struct {
	DurationSeconds int    `json:"durationSeconds,omitempty"`
	SampleCount     int    `json:"sampleCount"`
	Seed            *int64 `json:"seed,omitempty"`
}

type veoPredictRequest struct {
	Instances  []veoInstance `json:"instances"`
	Parameters veoParameters `json:"parameters"`
}

type veoOperation struct {
	Name     string              `json:"name"`
	Done     bool                `json:"done"`
	Error    *veoOperationError  `json:"error,omitempty"`
	Response *veoPredictResponse `json:"response,omitempty"`
}

type veoOperationError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type veoPredictResponse struct {
	Videos []veoVideo `json:"videos"`
}

type veoVideo struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded,omitempty"`
	GcsURI             string `json:"gcsUri,omitempty"`
	MimeType           string `json:"mimeType,omitempty"`
}

// UnconfiguredVideoBackend fails every submission with a clear error. It
// stands in when no generation backend is configured so jobs fail cleanly
// instead of panicking.
type UnconfiguredVideoBackend struct{}

func (UnconfiguredVideoBackend) Submit(context.Context, string, []continuity.Reference, int, *int64) ([]byte, error) {
	return nil, fmt.Errorf("video generation backend not configured")
}

// NewVeoClient creates a Vertex AI client authenticated from a service
// account key file.
func NewVeoClient(cfg *config.VeoConfig) (*VeoClient, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("veo configuration incomplete: project_id required")
	}

	keyBytes, err := os.ReadFile(cfg.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account key: %w", err)
	}

	creds, err := google.CredentialsFromJSON(context.Background(), keyBytes,
		"https://www.googleapis.com/auth/cloud-platform")
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account key: %w", err)
	}

	endpoint := fmt.Sprintf(
		"https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s/publishers/google/models/%s",
		cfg.Location, cfg.ProjectID, cfg.Location, cfg.ModelID,
	)

	return &VeoClient{
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		tokenSource:  creds.TokenSource,
		endpoint:     endpoint,
		pollInterval: cfg.PollInterval,
		pollTimeout:  cfg.PollTimeout,
	}, nil
}

// Submit runs one generation end to end: submit the long-running predict,
// poll until it settles, decode the first returned video.
func (c *VeoClient) Submit(ctx context.Context, prompt string, refs []continuity.Reference, durationSeconds int, seed *int64) ([]byte, error) {
	refImages, err := c.buildReferenceImages(refs)
	if err != nil {
		return nil, err
	}

	reqBody := veoPredictRequest{
		Instances: []veoInstance{{
			Prompt:          prompt,
			ReferenceImages: refImages,
		}},
		Parameters: veoParameters{
			DurationSeconds: durationSeconds,
			SampleCount:     1,
			Seed:            seed,
		},
	}

	var op veoOperation
	if err := c.post(ctx, ":predictLongRunning", reqBody, &op); err != nil {
		return nil, fmt.Errorf("failed to submit generation: %w", err)
	}
	if op.Name == "" {
		return nil, fmt.Errorf("predict returned no operation name")
	}

	return c.pollOperation(ctx, op.Name)
}

// buildReferenceImages inlines each reference image as base64, preserving
// order. Weights ride along in the prompt semantics; the API carries role
// via referenceType.
func (c *VeoClient) buildReferenceImages(refs []continuity.Reference) ([]veoReferenceImage, error) {
	images := make([]veoReferenceImage, 0, len(refs))
	for _, ref := range refs {
		data, err := os.ReadFile(ref.ImagePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read reference image %s: %w", ref.ImagePath, err)
		}
		images = append(images, veoReferenceImage{
			Image: veoImage{
				BytesBase64Encoded: base64.StdEncoding.EncodeToString(data),
				MimeType:           "image/jpeg",
			},
			ReferenceType: "asset",
		})
	}
	return images, nil
}

// pollOperation polls fetchPredictOperation until the operation settles or
// the configured timeout elapses.
func (c *VeoClient) pollOperation(ctx context.Context, operationName string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.pollTimeout)
	defer cancel()

	attempt := 0
	for {
		attempt++

		var op veoOperation
		reqBody := map[string]string{"operationName": operationName}
		if err := c.post(ctx, ":fetchPredictOperation", reqBody, &op); err != nil {
			return nil, fmt.Errorf("failed to poll operation: %w", err)
		}

		log.Printf("[Veo API] Poll #%d (op=%s) — done: %t", attempt, operationName, op.Done)

		if op.Done {
			if op.Error != nil {
				return nil, fmt.Errorf("video generation failed: %s", op.Error.Message)
			}
			return c.decodeVideo(ctx, op.Response)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("video generation timed out after %v: %w", c.pollTimeout, ctx.Err())
		case <-time.After(c.pollInterval):
		}
	}
}

func (c *VeoClient) decodeVideo(ctx context.Context, resp *veoPredictResponse) ([]byte, error) {
	if resp == nil || len(resp.Videos) == 0 {
		return nil, fmt.Errorf("operation completed with no videos")
	}

	video := resp.Videos[0]
	if video.BytesBase64Encoded != "" {
		data, err := base64.StdEncoding.DecodeString(video.BytesBase64Encoded)
		if err != nil {
			return nil, fmt.Errorf("failed to decode video bytes: %w", err)
		}
		return data, nil
	}
	if video.GcsURI != "" {
		return c.downloadGCS(ctx, video.GcsURI)
	}
	return nil, fmt.Errorf("video has neither inline bytes nor a GCS URI")
}

// downloadGCS fetches a gs:// artifact via the storage JSON media endpoint
// using the same credentials as the predict calls.
func (c *VeoClient) downloadGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	bucket, object, err := splitGCSURI(gcsURI)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("https://storage.googleapis.com/storage/v1/b/%s/o/%s?alt=media", bucket, object)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if err := c.authorize(req); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("GCS download error (status %d): %s", resp.StatusCode, string(body))
	}
	return io.ReadAll(resp.Body)
}

func splitGCSURI(uri string) (bucket, object string, err error) {
	const prefix = "gs://"
	if len(uri) <= len(prefix) || uri[:len(prefix)] != prefix {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	rest := uri[len(prefix):]
	for i := 0; i < len(rest); i++ {
		if rest[i] == '/' {
			return rest[:i], rest[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
}

// post sends an authorized POST with JSON body against the model endpoint.
func (c *VeoClient) post(ctx context.Context, verb string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+verb, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.authorize(req); err != nil {
		return err
	}

	log.Printf("[Veo API] → POST %s", req.URL.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("vertex API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

func (c *VeoClient) authorize(req *http.Request) error {
	token, err := c.tokenSource.Token()
	if err != nil {
		return fmt.Errorf("failed to obtain access token: %w", err)
	}
	token.SetAuthHeader(req)
	return nil
}

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shotflow/api/internal/config"
	"github.com/shotflow/api/internal/model"
)

const breakdownSystemPrompt = `You are a film director's assistant. Decompose the given script into scenes and shots for video generation.
Respond with JSON only, shaped as:
{"scenes":[{"index":0,"title":"...","description":"...","shots":[{"index":0,"description":"...","camera_type":"wide|medium|close-up|extreme-close-up|over-the-shoulder|pov|aerial","motion":"static|pan|tilt|dolly|tracking|handheld|crane","duration_seconds":8,"continuity_notes":"..."}]}]}
Shot descriptions must be self-contained visual prompts. Keep character names exactly as written in the script.`

// BreakdownClient handles communication with an OpenAI-compatible chat
// completion endpoint for script decomposition.
type BreakdownClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model          string              `json:"model"`
	Messages       []chatMessage       `json:"messages"`
	Temperature    float64             `json:"temperature,omitempty"`
	MaxTokens      int                 `json:"max_tokens,omitempty"`
	ResponseFormat *chatResponseFormat `json:"response_format,omitempty"`
}

type chatResponseFormat struct {
	Type string `json:"type"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// NewBreakdownClient creates a new breakdown API client
func NewBreakdownClient(cfg *config.BreakdownConfig) *BreakdownClient {
	return &BreakdownClient{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}
}

// AnalyzeScript decomposes a raw script into the scene/shot structure.
func (c *BreakdownClient) AnalyzeScript(ctx context.Context, req *model.ScriptAnalyzeRequest) (*model.ScriptStructure, error) {
	content, err := c.chatCompletion(ctx, breakdownSystemPrompt, c.buildUserPrompt(req))
	if err != nil {
		return nil, err
	}

	var structure model.ScriptStructure
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &structure); err != nil {
		return nil, fmt.Errorf("failed to parse breakdown output: %w", err)
	}
	return &structure, nil
}

func (c *BreakdownClient) buildUserPrompt(req *model.ScriptAnalyzeRequest) string {
	var b strings.Builder
	if req.MaxScenes > 0 {
		fmt.Fprintf(&b, "At most %d scenes. ", req.MaxScenes)
	}
	if req.MaxShotsPerScene > 0 {
		fmt.Fprintf(&b, "At most %d shots per scene. ", req.MaxShotsPerScene)
	}
	if req.TargetShotDurationSeconds > 0 {
		fmt.Fprintf(&b, "Target %d seconds per shot. ", req.TargetShotDurationSeconds)
	}
	if req.Language != "" {
		fmt.Fprintf(&b, "The script is in %q; write shot descriptions in English. ", req.Language)
	}
	b.WriteString("Script:\n\n")
	b.WriteString(req.ScriptText)
	return b.String()
}

// chatCompletion sends a JSON-mode chat completion request
func (c *BreakdownClient) chatCompletion(ctx context.Context, system, user string) (string, error) {
	reqBody := chatCompletionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature:    0.3,
		MaxTokens:      4096,
		ResponseFormat: &chatResponseFormat{Type: "json_object"},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("breakdown API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return chatResp.Choices[0].Message.Content, nil
}

// IsConfigured returns true if the client has valid configuration
func (c *BreakdownClient) IsConfigured() bool {
	return c.apiKey != ""
}

// stripCodeFence removes a markdown code fence some models wrap around
// JSON output even in JSON mode.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

// ClipScorer talks to a local CLIP scoring sidecar over HTTP.
// Endpoint: POST {base}/score
// Request: {"image": "<base64 png>", "prompts": ["...", ...]}
// Response: {"scores": [0.81, ...]} with one softmax probability per prompt.
type ClipScorer struct {
	BaseURL string
	client  *http.Client
}

// NewClipScorer creates a scorer against the given sidecar base URL.
func NewClipScorer(baseURL string) *ClipScorer {
	return &ClipScorer{
		BaseURL: baseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// Load verifies the sidecar is reachable.
func (c *ClipScorer) Load(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("clip sidecar unreachable at %s: %w", c.BaseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("clip sidecar unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// ScorePrompts sends the image and prompt set for scoring.
func (c *ClipScorer) ScorePrompts(ctx context.Context, imagePath string, prompts []string) ([]float64, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	payload := map[string]any{
		"image":   base64.StdEncoding.EncodeToString(data),
		"prompts": prompts,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/score", bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return nil, fmt.Errorf("clip scoring error: status %d: %v", resp.StatusCode, errBody)
	}

	var parsed struct {
		Scores []float64 `json:"scores"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if len(parsed.Scores) != len(prompts) {
		return nil, fmt.Errorf("score count mismatch: got %d for %d prompts", len(parsed.Scores), len(prompts))
	}
	return parsed.Scores, nil
}

package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const inferenceBaseURL = "https://api-inference.huggingface.co/models/"

// Client generates images through the Hugging Face inference API.
type Client struct {
	token      string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an image generation client for the given model.
func NewClient(token, model string, timeout time.Duration) *Client {
	return &Client{
		token:      token,
		model:      model,
		baseURL:    inferenceBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Model returns the configured model id, recorded on every image asset.
func (c *Client) Model() string { return c.model }

// TextToImage renders the prompt and returns the raw PNG bytes.
func (c *Client) TextToImage(ctx context.Context, prompt string) ([]byte, error) {
	body, err := json.Marshal(map[string]string{"inputs": prompt})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+c.model, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("image API returned status %d: %s", resp.StatusCode, string(b))
	}

	img, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(img) == 0 {
		return nil, fmt.Errorf("image API returned empty body")
	}
	return img, nil
}

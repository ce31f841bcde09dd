package linkedin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ConfigurationError indicates required publish credentials were missing at
// construction time, before any network activity.
type ConfigurationError struct {
	Field string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("linkedin %s not configured", e.Field)
}

// Client posts content to a personal LinkedIn profile through the UGC post
// endpoint using a static access token.
type Client struct {
	accessToken string
	userID      string
	ugcURL      string
	httpClient  *http.Client
}

// NewClient validates the static credentials and builds the publish client.
func NewClient(accessToken, userID, ugcURL string, timeout time.Duration) (*Client, error) {
	if accessToken == "" {
		return nil, &ConfigurationError{Field: "access token"}
	}
	if userID == "" {
		return nil, &ConfigurationError{Field: "user id"}
	}
	if ugcURL == "" {
		ugcURL = "https://api.linkedin.com/v2/ugcPosts"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		accessToken: accessToken,
		userID:      userID,
		ugcURL:      ugcURL,
		httpClient:  &http.Client{Timeout: timeout},
	}, nil
}

// Post publishes the text publicly. Any status other than 200/201 is a hard
// failure carrying the response body.
func (c *Client) Post(ctx context.Context, text string) error {
	payload := map[string]any{
		"author":         fmt.Sprintf("urn:li:person:%s", c.userID),
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]any{
			"com.linkedin.ugc.ShareContent": map[string]any{
				"shareCommentary":    map[string]string{"text": text},
				"shareMediaCategory": "NONE",
			},
		},
		"visibility": map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.ugcURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("publish request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("LinkedIn API error %d: %s", resp.StatusCode, string(b))
	}
	return nil
}

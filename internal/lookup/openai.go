package lookup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultModelBaseURL = "https://api.openai.com/v1"

// CompletionClient requests chat completions from an OpenAI-compatible API.
type CompletionClient struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewCompletionClient creates a completion client.
// baseURL may point at any OpenAI-compatible gateway; empty uses the default.
func NewCompletionClient(apiKey, baseURL, model string, timeout time.Duration) *CompletionClient {
	if baseURL == "" {
		baseURL = defaultModelBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CompletionClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends a single-message chat completion request and returns the
// raw model output. Callers are responsible for parsing.
func (c *CompletionClient) Complete(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("completion service not configured")
	}

	reqBody := chatCompletionRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.3,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion service returned status %d", resp.StatusCode)
	}

	var body chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}

	if len(body.Choices) == 0 {
		return "", fmt.Errorf("completion response contained no choices")
	}

	return body.Choices[0].Message.Content, nil
}

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client calls an OpenAI-compatible chat completion endpoint.
type Client struct {
	BaseURL string
	APIKey  string
	Model   string

	HTTPClient *http.Client
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float32      `json:"temperature,omitempty"`
	TopP        *float32      `json:"top_p,omitempty"`
	MaxTokens   int32         `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends req as a single user message.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	return c.Chat(ctx, "", req)
}

// Chat sends an optional system message followed by the prompt.
func (c *Client) Chat(ctx context.Context, system string, req Request) (string, error) {
	if c.BaseURL == "" || c.Model == "" {
		return "", unavailable("base URL and model required")
	}
	var messages []chatMessage
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	payload, err := c.send(ctx, chatRequest{
		Model:       c.Model,
		Messages:    messages,
		Temperature: nonZero(req.Params.Temperature),
		TopP:        nonZero(req.Params.TopP),
		MaxTokens:   req.Params.MaxOutputTokens,
	})
	if err != nil {
		return "", err
	}
	if len(payload.Choices) == 0 || strings.TrimSpace(payload.Choices[0].Message.Content) == "" {
		return "", unavailable("empty response")
	}
	return payload.Choices[0].Message.Content, nil
}

func (c *Client) send(ctx context.Context, body chatRequest) (*chatResponse, error) {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, unavailable("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, unavailable("%v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, unavailable("read body: %v", err)
	}
	var payload chatResponse
	if err := json.Unmarshal(data, &payload); err != nil {
		if resp.StatusCode >= 300 {
			return nil, unavailable("status %d", resp.StatusCode)
		}
		return nil, unavailable("decode response: %v", err)
	}
	if payload.Error != nil {
		return nil, unavailable("llm error: %s", payload.Error.Message)
	}
	if resp.StatusCode >= 300 {
		return nil, unavailable("status %d", resp.StatusCode)
	}
	return &payload, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func nonZero(v float32) *float32 {
	if v == 0 {
		return nil
	}
	return &v
}

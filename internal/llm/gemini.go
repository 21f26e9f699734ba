package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// GeminiConfig configures NewGeminiClient.
type GeminiConfig struct {
	APIKey string
	Model  string

	// BaseURL and HTTPClient are for tests and proxies.
	BaseURL    string
	HTTPClient *http.Client
}

// GeminiClient generates text through the Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a client for cfg.Model.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: api key required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("gemini: model required")
	}
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiClient{client: client, model: cfg.Model}, nil
}

// Generate implements Generator.
func (g *GeminiClient) Generate(ctx context.Context, req Request) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(req.Prompt, genai.RoleUser),
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, generationConfig(req.Params))
	if err != nil {
		return "", unavailable("gemini: %v", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", unavailable("gemini: empty response")
	}
	return text, nil
}

func generationConfig(p Params) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{MaxOutputTokens: p.MaxOutputTokens}
	if p.Temperature != 0 {
		cfg.Temperature = genai.Ptr(p.Temperature)
	}
	if p.TopK != 0 {
		cfg.TopK = genai.Ptr(p.TopK)
	}
	if p.TopP != 0 {
		cfg.TopP = genai.Ptr(p.TopP)
	}
	return cfg
}

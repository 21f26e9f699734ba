package llm

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/diary/pkg/diary/config"
	"github.com/cognicore/diary/pkg/diary/internalerr"
)

func newFakeGemini(t *testing.T, status int, body string, seen *string) *GeminiClient {
	t.Helper()
	g, err := NewGeminiClient(context.Background(), GeminiConfig{
		APIKey:  "test-key",
		Model:   "gemini-test",
		BaseURL: "https://gemini.test/",
		HTTPClient: &http.Client{
			Transport: roundTrip(func(req *http.Request) *http.Response {
				if seen != nil {
					data, _ := io.ReadAll(req.Body)
					*seen = string(data)
				}
				h := make(http.Header)
				h.Set("Content-Type", "application/json")
				return &http.Response{
					StatusCode: status,
					Body:       io.NopCloser(strings.NewReader(body)),
					Header:     h,
					Request:    req,
				}
			}),
		},
	})
	require.NoError(t, err)
	return g
}

func TestGeminiGenerate(t *testing.T) {
	var sent string
	g := newFakeGemini(t, 200, `{
		"candidates": [{"content": {"role": "model", "parts": [{"text": "{\"subCategory\":\"꿈\"}"}]}}]
	}`, &sent)

	out, err := g.Generate(context.Background(), Request{
		Prompt: "어젯밤 꿈",
		Params: Params{Temperature: 0.4, TopK: 40, TopP: 0.95, MaxOutputTokens: 2048},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"subCategory":"꿈"}`, out)
	assert.Contains(t, sent, "어젯밤 꿈")
	assert.Contains(t, sent, "maxOutputTokens")
}

func TestGeminiErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", 500, `{"error": {"code": 500, "message": "internal", "status": "INTERNAL"}}`},
		{"empty text", 200, `{"candidates": [{"content": {"role": "model", "parts": [{"text": ""}]}}]}`},
		{"no candidates", 200, `{"candidates": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newFakeGemini(t, tt.status, tt.body, nil)
			_, err := g.Generate(context.Background(), Request{Prompt: "q"})
			assert.ErrorIs(t, err, internalerr.ErrRemoteUnavailable)
		})
	}
}

func TestNewGeminiClientRequiresKeyAndModel(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), GeminiConfig{Model: "m"})
	assert.Error(t, err)
	_, err = NewGeminiClient(context.Background(), GeminiConfig{APIKey: "k"})
	assert.Error(t, err)
}

func TestGenerationConfig(t *testing.T) {
	cfg := generationConfig(Params{Temperature: 0.4, TopK: 40, TopP: 0.95, MaxOutputTokens: 2048})
	require.NotNil(t, cfg.Temperature)
	require.NotNil(t, cfg.TopK)
	require.NotNil(t, cfg.TopP)
	assert.Equal(t, float32(0.4), *cfg.Temperature)
	assert.Equal(t, float32(40), *cfg.TopK)
	assert.Equal(t, float32(0.95), *cfg.TopP)
	assert.Equal(t, int32(2048), cfg.MaxOutputTokens)

	zero := generationConfig(Params{})
	assert.Nil(t, zero.Temperature)
	assert.Nil(t, zero.TopK)
	assert.Nil(t, zero.TopP)
}

func TestFromConfig(t *testing.T) {
	ctx := context.Background()

	_, err := FromConfig(ctx, config.Default())
	assert.True(t, errors.Is(err, internalerr.ErrNotConfigured), "err = %v", err)

	cfg := config.Default()
	cfg.LLM.Provider = config.ProviderOpenAI
	cfg.LLM.BaseURL = "http://localhost:8080/v1/chat/completions"
	cfg.LLM.Model = "local"
	g, err := FromConfig(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &Client{}, g)

	cfg.LLM.RequestsPerMinute = 60
	g, err = FromConfig(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &Limited{}, g)

	cfg = config.Default()
	cfg.LLM.APIKey = "key"
	g, err = FromConfig(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &GeminiClient{}, g)
}

func TestParamsFromConfig(t *testing.T) {
	p := ParamsFromConfig(config.Default().LLM)
	assert.Equal(t, Params{Temperature: 0.4, TopK: 40, TopP: 0.95, MaxOutputTokens: 2048}, p)
}

// Package llm talks to the remote language model that analyzes entries.
package llm

import (
	"context"
	"fmt"

	"github.com/cognicore/diary/pkg/diary/internalerr"
)

// Params are the sampling settings sent with every request.
type Params struct {
	Temperature     float32
	TopK            float32
	TopP            float32
	MaxOutputTokens int32
}

// Request is one single-turn generation.
type Request struct {
	Prompt string
	Params Params
}

// Generator produces free text for a prompt. Implementations wrap every
// failure with internalerr.ErrRemoteUnavailable.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

func unavailable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", internalerr.ErrRemoteUnavailable, fmt.Sprintf(format, args...))
}

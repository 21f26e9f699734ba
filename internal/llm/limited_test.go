package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/diary/pkg/diary/internalerr"
)

func TestNewLimitedUnlimited(t *testing.T) {
	g := GeneratorFunc(func(context.Context, Request) (string, error) { return "ok", nil })
	_, isLimited := NewLimited(g, 0).(*Limited)
	assert.False(t, isLimited)
}

func TestLimitedPassesThrough(t *testing.T) {
	calls := 0
	g := NewLimited(GeneratorFunc(func(_ context.Context, req Request) (string, error) {
		calls++
		return req.Prompt, nil
	}), 60)

	out, err := g.Generate(context.Background(), Request{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", out)
	assert.Equal(t, 1, calls)
}

func TestLimitedWaitHonoursDeadline(t *testing.T) {
	calls := 0
	g := NewLimited(GeneratorFunc(func(context.Context, Request) (string, error) {
		calls++
		return "ok", nil
	}), 1)

	_, err := g.Generate(context.Background(), Request{})
	require.NoError(t, err)

	// The next token is a minute away; a short deadline must give up.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = g.Generate(ctx, Request{})
	assert.ErrorIs(t, err, internalerr.ErrRemoteUnavailable)
	assert.Equal(t, 1, calls)
}

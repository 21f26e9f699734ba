package llm

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limited throttles a Generator. Waiting honours the request context, so a
// caller's timeout also bounds time spent queued.
type Limited struct {
	Generator Generator
	Limiter   *rate.Limiter
}

// NewLimited allows perMinute requests per minute with a burst of one.
// perMinute <= 0 returns g unchanged.
func NewLimited(g Generator, perMinute int) Generator {
	if perMinute <= 0 {
		return g
	}
	return &Limited{
		Generator: g,
		Limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

// Generate implements Generator.
func (l *Limited) Generate(ctx context.Context, req Request) (string, error) {
	if err := l.Limiter.Wait(ctx); err != nil {
		return "", unavailable("rate limit: %v", err)
	}
	return l.Generator.Generate(ctx, req)
}

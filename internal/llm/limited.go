package llm

import (
	"context"
	"fmt"
)

// Waiter blocks until a call under key may proceed
type Waiter interface {
	Wait(ctx context.Context, key string) error
}

// LimitedProvider rate limits calls per provider name
type LimitedProvider struct {
	next   Provider
	waiter Waiter
}

// NewLimitedProvider wraps next so each Complete waits on waiter first
func NewLimitedProvider(next Provider, waiter Waiter) *LimitedProvider {
	return &LimitedProvider{next: next, waiter: waiter}
}

func (p *LimitedProvider) Name() string { return p.next.Name() }

func (p *LimitedProvider) IsAvailable(ctx context.Context) bool { return p.next.IsAvailable(ctx) }

func (p *LimitedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := p.waiter.Wait(ctx, p.next.Name()); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return p.next.Complete(ctx, req)
}

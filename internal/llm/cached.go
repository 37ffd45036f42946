package llm

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/ppiankov/medeval/internal/cache"
	"github.com/ppiankov/medeval/internal/log"
)

// CachedProvider memoizes completions keyed by provider, model, prompts and seed
type CachedProvider struct {
	next         Provider
	cache        cache.Cache
	ttl          time.Duration
	defaultModel string // Keys requests that leave Model empty
}

// NewCachedProvider wraps next with c; ttl 0 uses the cache's default.
// defaultModel is the model next uses when a request names none.
func NewCachedProvider(next Provider, c cache.Cache, ttl time.Duration, defaultModel string) *CachedProvider {
	return &CachedProvider{next: next, cache: c, ttl: ttl, defaultModel: defaultModel}
}

func (p *CachedProvider) Name() string { return p.next.Name() }

func (p *CachedProvider) IsAvailable(ctx context.Context) bool { return p.next.IsAvailable(ctx) }

func (p *CachedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	keyed := req
	if keyed.Model == "" {
		keyed.Model = p.defaultModel
	}
	key := completionKey(p.next.Name(), keyed)

	if data, ok := p.cache.Get(key); ok {
		var resp CompletionResponse
		if err := json.Unmarshal(data, &resp); err == nil {
			log.Debugf("llm cache hit for %s", p.next.Name())
			return &resp, nil
		}
	}

	resp, err := p.next.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(resp); err == nil {
		if err := p.cache.Set(key, data, p.ttl); err != nil {
			log.Warnf("llm cache write failed: %v", err)
		}
	}
	return resp, nil
}

func completionKey(provider string, req CompletionRequest) string {
	seed := "none"
	if req.Seed != nil {
		seed = strconv.Itoa(*req.Seed)
	}
	return cache.Key(
		"completion",
		provider,
		req.Model,
		req.System,
		req.Prompt,
		strconv.FormatFloat(req.Temperature, 'g', -1, 64),
		seed,
	)
}

package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/medeval/internal/log"
)

const defaultMaxRetries = 3

// retrySleepFunc is the sleep function used between retries (injectable for tests)
var retrySleepFunc = time.Sleep

// StatusError is a non-2xx reply from a provider endpoint
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Message)
}

// RetryProvider retries transient provider failures with exponential backoff
type RetryProvider struct {
	next       Provider
	maxRetries int
}

// NewRetryProvider wraps next; maxRetries <= 0 uses the default of 3 attempts
func NewRetryProvider(next Provider, maxRetries int) *RetryProvider {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &RetryProvider{next: next, maxRetries: maxRetries}
}

// Name returns the wrapped provider name
func (p *RetryProvider) Name() string { return p.next.Name() }

// IsAvailable delegates to the wrapped provider
func (p *RetryProvider) IsAvailable(ctx context.Context) bool { return p.next.IsAvailable(ctx) }

// Complete calls the wrapped provider until it succeeds, fails permanently, or attempts run out
func (p *RetryProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	var lastErr error
	for attempt := 0; attempt < p.maxRetries; attempt++ {
		resp, err := p.next.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !IsRetryable(err) || ctx.Err() != nil {
			return nil, err
		}
		if attempt < p.maxRetries-1 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			log.Debugf("%s call failed (attempt %d/%d), retrying in %s: %v", p.next.Name(), attempt+1, p.maxRetries, backoff, err)
			retrySleepFunc(backoff)
		}
	}
	return nil, fmt.Errorf("after %d attempts: %w", p.maxRetries, lastErr)
}

// IsRetryable reports whether err looks like a transient failure
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return retryableStatus(statusErr.Code)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	s := strings.ToLower(err.Error())
	return strings.Contains(s, "timeout") ||
		strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset")
}

func retryableStatus(code int) bool {
	return code == 429 || (code >= 500 && code < 600)
}

package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func stubSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var slept []time.Duration
	orig := retrySleepFunc
	retrySleepFunc = func(d time.Duration) { slept = append(slept, d) }
	t.Cleanup(func() { retrySleepFunc = orig })
	return &slept
}

func TestRetryProvider_RecoversFromTransientErrors(t *testing.T) {
	slept := stubSleep(t)
	mock := &MockProvider{
		errs: []error{
			&StatusError{Code: 503, Message: "unavailable"},
			&StatusError{Code: 429, Message: "slow down"},
		},
		responses: []*CompletionResponse{nil, nil, {Content: "ok"}},
	}

	resp, err := NewRetryProvider(mock, 3).Complete(context.Background(), CompletionRequest{Prompt: "x"})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("Expected ok, got %q", resp.Content)
	}
	if mock.callCount() != 3 {
		t.Errorf("Expected 3 calls, got %d", mock.callCount())
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(*slept) != len(want) || (*slept)[0] != want[0] || (*slept)[1] != want[1] {
		t.Errorf("Expected backoff %v, got %v", want, *slept)
	}
}

func TestRetryProvider_StopsOnPermanentError(t *testing.T) {
	stubSleep(t)
	mock := &MockProvider{errs: []error{&StatusError{Code: 401, Message: "bad key"}}}

	_, err := NewRetryProvider(mock, 3).Complete(context.Background(), CompletionRequest{})
	if err == nil {
		t.Fatal("Expected error")
	}
	if mock.callCount() != 1 {
		t.Errorf("Expected 1 call, got %d", mock.callCount())
	}
}

func TestRetryProvider_ExhaustsAttempts(t *testing.T) {
	slept := stubSleep(t)
	timeout := fmt.Errorf("execute request: %w", errors.New("i/o timeout"))
	mock := &MockProvider{errs: []error{timeout, timeout, timeout}}

	_, err := NewRetryProvider(mock, 0).Complete(context.Background(), CompletionRequest{})
	if err == nil || !strings.Contains(err.Error(), "after 3 attempts") {
		t.Fatalf("Expected exhausted error, got %v", err)
	}
	if len(*slept) != 2 {
		t.Errorf("Expected 2 sleeps, got %d", len(*slept))
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"429", &StatusError{Code: 429}, true},
		{"500", &StatusError{Code: 500}, true},
		{"404", &StatusError{Code: 404}, false},
		{"wrapped 502", fmt.Errorf("ollama: %w", &StatusError{Code: 502}), true},
		{"deadline", context.DeadlineExceeded, true},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"connection reset", errors.New("read: Connection Reset by peer"), true},
		{"parse", errors.New("unmarshal response: invalid character"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

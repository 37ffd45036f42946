package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/medeval/internal/util"
)

// jsonClient posts JSON to a provider endpoint that has no Go SDK in use here
type jsonClient struct {
	baseURL string
	headers map[string]string
	http    *http.Client

	// errorMessage pulls a readable message out of a non-2xx body, or returns ""
	errorMessage func(body []byte) string
}

func newJSONClient(cfg Config, defaultBaseURL string, defaultTimeout time.Duration) *jsonClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &jsonClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		headers: map[string]string{"Content-Type": "application/json"},
		http: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy)},
		},
	}
}

// post sends in as JSON to path and decodes a 200 reply into out.
// Other statuses become *StatusError so RetryProvider can classify them.
func (c *jsonClient) post(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := string(data)
		if c.errorMessage != nil {
			if m := c.errorMessage(data); m != "" {
				msg = m
			}
		}
		return &StatusError{Code: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// get returns the status code of a GET to path
func (c *jsonClient) get(ctx context.Context, path string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}

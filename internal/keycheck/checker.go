// Package keycheck checks that an answer key's canonical-fact sources still
// resolve: reachability, robots.txt permission, freshness and authority tier.
package keycheck

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/medeval/internal/log"
	"github.com/ppiankov/medeval/internal/model"
	"github.com/ppiankov/medeval/internal/util"
	"github.com/ppiankov/medeval/internal/worker"
)

const (
	checkMaxRetries = 3
	dateLayout      = "2006-01-02"
	maxRedirects    = 3
)

// checkSleepFunc is the sleep function used between retries (injectable for tests)
var checkSleepFunc = time.Sleep

// Checker checks answer-key source URLs concurrently
type Checker struct {
	httpClient *http.Client
	userAgent  string
	maxWorkers int
	authority  *AuthorityClassifier
	robots     *util.RobotsChecker
	limiter    *worker.Limiter
	now        func() time.Time

	mu      sync.Mutex
	delayed map[string]bool // Hosts already slowed to their crawl delay
}

// NewChecker creates a checker from the HTTP, concurrency, rate limit and authority config
func NewChecker(cfg *model.Config) *Checker {
	timeout := cfg.HTTP.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	workers := cfg.Concurrency.CheckWorkers
	if workers <= 0 {
		workers = 10
	}

	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy),
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	return &Checker{
		httpClient: client,
		userAgent:  cfg.HTTP.UserAgent,
		maxWorkers: workers,
		authority:  NewAuthorityClassifier(&cfg.Authority),
		robots:     util.NewRobotsChecker(cfg.HTTP.UserAgent, timeout, client),
		limiter:    worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize),
		now:        time.Now,
		delayed:    make(map[string]bool),
	}
}

// Check checks every canonical fact's source. Facts whose source holds no URL
// get one entry with an error; facts citing several URLs get one entry each.
// Each distinct URL is fetched once.
func (c *Checker) Check(ctx context.Context, sc *model.Scenario) ([]model.SourceCheck, error) {
	if sc == nil || sc.AnswerKey == nil {
		return nil, fmt.Errorf("scenario has no answer key")
	}

	factURLs := make(map[string][]string)
	var unique []string
	seen := make(map[string]bool)
	for _, f := range sc.AnswerKey.CanonicalFacts {
		urls := SourceURLs(f.Source)
		factURLs[f.FactID] = urls
		for _, u := range urls {
			if !seen[u] {
				seen[u] = true
				unique = append(unique, u)
			}
		}
	}

	byURL, err := c.checkAll(ctx, unique)
	if err != nil {
		return nil, err
	}

	reference := referenceDate(sc)
	var checks []model.SourceCheck
	for _, f := range sc.AnswerKey.CanonicalFacts {
		urls := factURLs[f.FactID]
		if len(urls) == 0 {
			checks = append(checks, model.SourceCheck{
				FactID: f.FactID,
				Source: f.Source,
				Error:  "source has no URL",
			})
			continue
		}
		for _, u := range urls {
			check := byURL[u]
			check.FactID = f.FactID
			check.Source = f.Source
			if check.LastModified != nil && !reference.IsZero() && check.LastModified.Before(reference) {
				check.IsStale = true
			}
			checks = append(checks, check)
		}
	}
	return checks, nil
}

type urlJob struct {
	checker *Checker
	url     string
}

type urlResult struct {
	check model.SourceCheck
}

func (r urlResult) GetError() error { return nil }

func (j urlJob) Execute(ctx context.Context) worker.Result {
	return urlResult{check: j.checker.checkWithRetry(ctx, j.url)}
}

func (c *Checker) checkAll(ctx context.Context, urls []string) (map[string]model.SourceCheck, error) {
	byURL := make(map[string]model.SourceCheck, len(urls))
	if len(urls) == 0 {
		return byURL, nil
	}

	pool := worker.NewPool(ctx, c.maxWorkers)
	pool.Start()
	for _, u := range urls {
		if !pool.Submit(urlJob{checker: c, url: u}) {
			break
		}
	}
	for _, r := range pool.Wait() {
		res := r.(urlResult)
		byURL[res.check.URL] = res.check
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("source check interrupted: %w", err)
	}
	return byURL, nil
}

// checkWithRetry retries transient failures with exponential backoff
func (c *Checker) checkWithRetry(ctx context.Context, rawURL string) model.SourceCheck {
	var check model.SourceCheck
	for attempt := 0; attempt < checkMaxRetries; attempt++ {
		check = c.checkURL(ctx, rawURL)
		if !isRetryable(check) || ctx.Err() != nil {
			return check
		}
		if attempt < checkMaxRetries-1 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			log.Debugf("source check %s failed (attempt %d/%d), retrying in %s", rawURL, attempt+1, checkMaxRetries, backoff)
			checkSleepFunc(backoff)
		}
	}
	return check
}

func (c *Checker) checkURL(ctx context.Context, rawURL string) model.SourceCheck {
	check := model.SourceCheck{
		URL:       rawURL,
		Authority: c.authority.Classify(rawURL),
	}

	allowed, crawlDelay, err := c.robots.CanFetch(ctx, rawURL)
	if err != nil {
		check.Error = fmt.Sprintf("robots check: %v", err)
		return check
	}
	check.RobotsAllowed = allowed
	if !allowed {
		check.Error = "disallowed by robots.txt"
		return check
	}
	c.applyCrawlDelay(rawURL, crawlDelay)

	if err := c.limiter.WaitURL(ctx, rawURL); err != nil {
		check.Error = fmt.Sprintf("rate limit wait: %v", err)
		return check
	}

	resp, err := c.do(ctx, http.MethodHead, rawURL)
	if err == nil && (resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented) {
		_ = resp.Body.Close()
		resp, err = c.do(ctx, http.MethodGet, rawURL)
	}
	if err != nil {
		check.Error = fmt.Sprintf("request failed: %v", err)
		check.IsDead = true
		return check
	}
	defer func() { _ = resp.Body.Close() }()

	check.StatusCode = resp.StatusCode
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 400:
		check.IsAccessible = true
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		check.IsDead = true
	}

	if final := resp.Request.URL.String(); final != rawURL {
		check.RedirectURL = final
	}

	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			check.LastModified = &t
			age := int(c.now().Sub(t).Hours() / 24)
			check.Age = &age
		}
	}

	return check
}

func (c *Checker) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return c.httpClient.Do(req)
}

// applyCrawlDelay slows a host's limiter to one request per crawl delay, once
func (c *Checker) applyCrawlDelay(rawURL string, delay time.Duration) {
	if delay <= 0 {
		return
	}
	host := hostOf(rawURL)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.delayed[host] {
		return
	}
	c.delayed[host] = true
	c.limiter.SetRate(host, 1/delay.Seconds(), 1)
	log.Debugf("%s asks for a %s crawl delay", host, delay)
}

// isRetryable reports whether a check failed transiently
func isRetryable(check model.SourceCheck) bool {
	if check.StatusCode == http.StatusTooManyRequests || (check.StatusCode >= 500 && check.StatusCode < 600) {
		return true
	}
	s := strings.ToLower(check.Error)
	return strings.Contains(s, "timeout") ||
		strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset")
}

// referenceDate is the start of the answer key's validity window
func referenceDate(sc *model.Scenario) time.Time {
	date := sc.EffectiveDate
	if sc.TemporalValidity != nil && sc.TemporalValidity.ValidFrom != "" {
		date = sc.TemporalValidity.ValidFrom
	}
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return time.Time{}
	}
	return t
}

func hostOf(rawURL string) string {
	rest := rawURL
	if i := strings.Index(rest, "://"); i >= 0 {
		rest = rest[i+3:]
	}
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[:i]
	}
	return strings.ToLower(rest)
}

package util

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestNormalizeUserAgent(t *testing.T) {
	tests := map[string]string{
		"medeval/0.1 (+https://github.com/ppiankov/medeval)": "medeval",
		"curl/8.0":  "curl",
		"plain":     "plain",
		"":          "",
	}
	for in, want := range tests {
		if got := NormalizeUserAgent(in); got != want {
			t.Errorf("NormalizeUserAgent(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRobotsChecker(t *testing.T) {
	var fetches atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fetches.Add(1)
		_, _ = w.Write([]byte("User-agent: medeval\nDisallow: /private\nCrawl-delay: 2\n\nUser-agent: *\nDisallow: /\n"))
	}))
	defer server.Close()

	rc := NewRobotsChecker("medeval/0.1", time.Second, nil)
	ctx := context.Background()

	allowed, delay, err := rc.CanFetch(ctx, server.URL+"/coverage/part-b")
	if err != nil {
		t.Fatalf("CanFetch: %v", err)
	}
	if !allowed {
		t.Error("Expected public path to be allowed for our agent")
	}
	if delay != 2*time.Second {
		t.Errorf("Expected 2s crawl delay, got %s", delay)
	}

	if allowed, _, _ := rc.CanFetch(ctx, server.URL+"/private/x"); allowed {
		t.Error("Expected /private to be disallowed")
	}
	if fetches.Load() != 1 {
		t.Errorf("Expected robots.txt fetched once, got %d", fetches.Load())
	}
}

func TestRobotsChecker_MissingRobotsAllows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	rc := NewRobotsChecker("medeval/0.1", time.Second, nil)
	if allowed, _, err := rc.CanFetch(context.Background(), server.URL+"/anything"); err != nil || !allowed {
		t.Errorf("Expected allow on 404 robots.txt, got %v, %v", allowed, err)
	}
}

func TestRobotsChecker_BadScheme(t *testing.T) {
	rc := NewRobotsChecker("medeval", time.Second, nil)
	if _, _, err := rc.CanFetch(context.Background(), "ftp://example.com/file"); err == nil {
		t.Error("Expected error for ftp scheme")
	}
}

func TestNewProxyFunc(t *testing.T) {
	proxy := NewProxyFunc("http://proxy.local:3128", "http://secure.local:3128", "internal.example")

	req, _ := http.NewRequest(http.MethodGet, "https://www.medicare.gov/", nil)
	u, err := proxy(req)
	if err != nil || u == nil || u.Host != "secure.local:3128" {
		t.Errorf("Expected https proxy, got %v, %v", u, err)
	}

	req, _ = http.NewRequest(http.MethodGet, "http://www.cms.gov/", nil)
	u, _ = proxy(req)
	if u == nil || u.Host != "proxy.local:3128" {
		t.Errorf("Expected http proxy, got %v", u)
	}

	req, _ = http.NewRequest(http.MethodGet, "https://internal.example/x", nil)
	if u, _ := proxy(req); u != nil {
		t.Errorf("Expected no proxy for NO_PROXY host, got %v", u)
	}
}

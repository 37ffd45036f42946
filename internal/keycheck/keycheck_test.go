package keycheck

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/medeval/internal/model"
)

func TestSourceURLs(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   []string
	}{
		{"bare url", "https://www.medicare.gov/basics", []string{"https://www.medicare.gov/basics"}},
		{"prose", "See https://cms.gov/x, and https://cms.gov/x.", []string{"https://cms.gov/x"}},
		{"anchor", `<a href="https://kff.org/report#s2">KFF</a>`, []string{"https://kff.org/report"}},
		{"citation only", "42 CFR 422.101", nil},
		{"relative anchor", `<a href="/relative">x</a>`, nil},
		{"empty", "  ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SourceURLs(tt.source)
			if strings.Join(got, " ") != strings.Join(tt.want, " ") {
				t.Errorf("SourceURLs(%q) = %v, want %v", tt.source, got, tt.want)
			}
		})
	}
}

func TestAuthorityClassifier(t *testing.T) {
	cfg := model.DefaultConfig().Authority
	cfg.DomainMap = map[string]string{"example.org": "secondary"}
	a := NewAuthorityClassifier(&cfg)

	tests := []struct {
		url  string
		want model.AuthorityTier
	}{
		{"https://www.medicare.gov/plan", model.TierPrimary},
		{"https://data.cms.gov/x", model.TierPrimary},
		{"https://www.shiphelp.org/", model.TierSecondary},
		{"https://example.org/a", model.TierSecondary},
		{"https://www.ohio.gov/aging", model.TierPrimary},
		{"https://medicare-broker.example.com/", model.TierTertiary},
		{"not a url", model.TierUnknown},
	}
	for _, tt := range tests {
		if got := a.Classify(tt.url); got != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.url, got, tt.want)
		}
	}
}

func newTestChecker(t *testing.T, authority map[string]string) *Checker {
	t.Helper()
	orig := checkSleepFunc
	checkSleepFunc = func(time.Duration) {}
	t.Cleanup(func() { checkSleepFunc = orig })

	cfg := model.DefaultConfig()
	cfg.RateLimiting.RequestsPerSecond = 0
	cfg.HTTP.Timeout = 5 * time.Second
	cfg.Authority.DomainMap = authority

	c := NewChecker(cfg)
	c.now = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }
	return c
}

func TestChecker_Check(t *testing.T) {
	var flaky atomic.Int32
	var okHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /private\n"))
	})
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		okHits.Add(1)
		w.Header().Set("Last-Modified", "Wed, 01 May 2024 00:00:00 GMT")
	})
	mux.HandleFunc("/fresh", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Last-Modified", "Mon, 03 Feb 2025 00:00:00 GMT")
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	})
	mux.HandleFunc("/flaky", func(w http.ResponseWriter, r *http.Request) {
		if flaky.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
	})
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/fresh", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/nohead", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestChecker(t, map[string]string{"127.0.0.1": "primary"})

	sc := &model.Scenario{
		EffectiveDate: "2025-01-01",
		AnswerKey: &model.AnswerKey{
			CanonicalFacts: []model.CanonicalFact{
				{FactID: "F1", Source: server.URL + "/ok"},
				{FactID: "F2", Source: "See " + server.URL + "/ok and " + server.URL + "/gone."},
				{FactID: "F3", Source: server.URL + "/flaky"},
				{FactID: "F4", Source: server.URL + "/moved"},
				{FactID: "F5", Source: server.URL + "/private/page"},
				{FactID: "F6", Source: "Medicare & You 2025 handbook"},
				{FactID: "F7", Source: server.URL + "/nohead"},
			},
		},
	}

	checks, err := c.Check(context.Background(), sc)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(checks) != 8 {
		t.Fatalf("expected 8 checks, got %d", len(checks))
	}

	f1 := checks[0]
	if !f1.IsAccessible || f1.StatusCode != 200 || f1.Authority != model.TierPrimary || !f1.RobotsAllowed {
		t.Errorf("F1 = %+v", f1)
	}
	if !f1.IsStale || f1.Age == nil || *f1.Age != 396 {
		t.Errorf("F1 should be stale with age 396, got stale=%v age=%v", f1.IsStale, f1.Age)
	}
	if okHits.Load() != 1 {
		t.Errorf("shared URL fetched %d times, want 1", okHits.Load())
	}

	if checks[1].FactID != "F2" || !checks[1].IsAccessible {
		t.Errorf("F2 first url = %+v", checks[1])
	}
	if gone := checks[2]; gone.FactID != "F2" || !gone.IsDead || gone.StatusCode != 410 {
		t.Errorf("F2 second url = %+v", gone)
	}
	if f3 := checks[3]; !f3.IsAccessible || flaky.Load() != 2 {
		t.Errorf("F3 should succeed on retry: %+v (hits %d)", f3, flaky.Load())
	}
	if f4 := checks[4]; !strings.HasSuffix(f4.RedirectURL, "/fresh") || f4.IsStale {
		t.Errorf("F4 = %+v", f4)
	}
	if f5 := checks[5]; f5.RobotsAllowed || f5.IsAccessible || f5.Error == "" {
		t.Errorf("F5 should be blocked by robots.txt: %+v", f5)
	}
	if f6 := checks[6]; f6.URL != "" || f6.Error != "source has no URL" {
		t.Errorf("F6 = %+v", f6)
	}
	if f7 := checks[7]; !f7.IsAccessible || f7.StatusCode != 200 {
		t.Errorf("F7 should fall back to GET: %+v", f7)
	}
}

func TestChecker_RequiresAnswerKey(t *testing.T) {
	c := newTestChecker(t, nil)
	if _, err := c.Check(context.Background(), &model.Scenario{}); err == nil {
		t.Error("expected error without answer key")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		check model.SourceCheck
		want  bool
	}{
		{model.SourceCheck{StatusCode: 503}, true},
		{model.SourceCheck{StatusCode: 429}, true},
		{model.SourceCheck{StatusCode: 404}, false},
		{model.SourceCheck{Error: "request failed: dial tcp: connection refused"}, true},
		{model.SourceCheck{Error: "disallowed by robots.txt"}, false},
	}
	for _, tt := range tests {
		if got := isRetryable(tt.check); got != tt.want {
			t.Errorf("isRetryable(%+v) = %v, want %v", tt.check, got, tt.want)
		}
	}
}

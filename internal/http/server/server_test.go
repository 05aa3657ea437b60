package server

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"pdfstudio/internal/config"
	"pdfstudio/internal/infra/cache"
	"pdfstudio/internal/infra/kvstore"
	"pdfstudio/internal/tokens"
)

func minimalConfig() config.Config {
	cfg := config.Default()
	cfg.PDF.Engine = config.EngineFPDF
	cfg.PDF.TimeoutSecs = 5
	cfg.Limits.MaxRequestBytes = 64 * 1024
	return cfg
}

func TestNew_RoutesAndJSON404(t *testing.T) {
	app := New(Deps{Config: minimalConfig()})

	for _, path := range []string{"/api/chrome/stats", "/ops/health", "/ops/monitor", "/"} {
		req, _ := http.NewRequest(http.MethodGet, path, nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("%s request failed: %v", path, err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected %s 200, got %d", path, resp.StatusCode)
		}
	}

	req404, _ := http.NewRequest(http.MethodGet, "/does-not-exist", nil)
	resp404, err := app.Test(req404)
	if err != nil {
		t.Fatalf("404 request failed: %v", err)
	}
	if resp404.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp404.StatusCode)
	}
	body, _ := io.ReadAll(resp404.Body)
	if string(body) != `{"error":"Not Found"}` {
		t.Fatalf("unexpected 404 body %q", body)
	}
}

func TestNew_GeneratePDF(t *testing.T) {
	app := New(Deps{Config: minimalConfig()})

	req, _ := http.NewRequest(http.MethodPost, "/api/generate-pdf", strings.NewReader(`{"title":"Invoice","content":"<p>Total: $10</p>","logo":null,"images":[]}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, 10000)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.HasPrefix(string(body), "%PDF-") {
		t.Fatalf("expected PDF body")
	}
}

func TestNew_MalformedJSONAndBodyLimit(t *testing.T) {
	app := New(Deps{Config: minimalConfig()})

	req, _ := http.NewRequest(http.MethodPost, "/api/generate-pdf", strings.NewReader(`{"title":`))
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusBadRequest || string(body) != `{"error":"Invalid JSON body"}` {
		t.Fatalf("expected 400 JSON error, got %d %q", resp.StatusCode, body)
	}

	big := `{"content":"` + strings.Repeat("x", 128*1024) + `"}`
	req, _ = http.NewRequest(http.MethodPost, "/api/generate-pdf", strings.NewReader(big))
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 over body limit, got %d", resp.StatusCode)
	}
}

func TestNew_APIKeyAuthWhenTokensGiven(t *testing.T) {
	cache := tokens.NewCache()
	cache.Replace(map[string]tokens.Entry{"good": {RateLimit: 1}})
	app := New(Deps{Config: minimalConfig(), Tokens: cache})

	send := func(key string) int {
		req, _ := http.NewRequest(http.MethodGet, "/api/chrome/stats", nil)
		if key != "" {
			req.Header.Set("X-API-Key", key)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		return resp.StatusCode
	}

	if got := send("bad"); got != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown key, got %d", got)
	}
	if got := send("good"); got != http.StatusOK {
		t.Fatalf("expected 200 for known key, got %d", got)
	}
	if got := send("good"); got != http.StatusTooManyRequests {
		t.Fatalf("expected token limit to apply, got %d", got)
	}
	if got := send(""); got != http.StatusOK {
		t.Fatalf("expected public request to pass, got %d", got)
	}
}

func TestNew_RedisBackedStoreAndCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := minimalConfig()
	cfg.Cache.PDFCacheEnabled = true

	app := New(Deps{
		Config:   cfg,
		Redis:    cache.NewRedisClient(mr.Addr(), 1),
		Store:    kvstore.New(kvstore.RedisConfig{Addr: mr.Addr(), DB: 0}),
		Sessions: kvstore.New(kvstore.RedisConfig{Addr: mr.Addr(), DB: 2}),
	})

	for i := 0; i < 2; i++ {
		req, _ := http.NewRequest(http.MethodPost, "/api/generate-pdf", strings.NewReader(`{"title":"cached"}`))
		resp, err := app.Test(req, 10000)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
	}
	mr.Select(1)
	if keys := mr.Keys(); len(keys) != 1 || !strings.HasPrefix(keys[0], "pdfcache:") {
		t.Fatalf("expected one cached PDF in redis db 1, got %v", keys)
	}
}

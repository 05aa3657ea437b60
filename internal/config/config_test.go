package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"CHROME_BIN", "PDF_ENGINE", "DEPLOY_ENV", "AWS_LAMBDA_FUNCTION_NAME", "VERCEL"} {
		t.Setenv(k, "")
	}
}

func TestLoadFrom_Valid(t *testing.T) {
	clearEnv(t)
	p := writeConfig(t, `server:
  host: "127.0.0.1"
  port: ":9000"
limits:
  max_images: 5
cache:
  pdf_cache_enabled: true
  pdf_cache_ttl: 2m
pdf:
  engine: fpdf
  timeout_secs: 12
viewer:
  document_ttl: 1h
`)
	cfg := LoadFrom(p)
	assert.Equal(t, ":9000", cfg.Server.Port)
	assert.Equal(t, 5, cfg.Limits.MaxImages)
	assert.Equal(t, EngineFPDF, cfg.PDF.Engine)
	assert.Equal(t, 12*time.Second, cfg.Timeout())
	assert.Equal(t, 2*time.Minute, cfg.Cache.PDFCacheTTL)
	assert.Equal(t, time.Hour, cfg.Viewer.DocumentTTL)

	paper, ok := cfg.Paper()
	require.True(t, ok)
	assert.InDelta(t, 8.27, paper.Width, 0.001)
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, EngineChrome, cfg.PDF.Engine)
	assert.Equal(t, 20, cfg.Limits.MaxImages)
	assert.Equal(t, 0.4, cfg.PDF.Margin)
}

func TestLoadFrom_PanicsOnInvalidValues(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name string
		yml  string
	}{
		{name: "unknown engine", yml: "pdf:\n  engine: wkhtml\n"},
		{name: "missing default paper", yml: "pdf:\n  default_paper: B0\n"},
		{name: "margin out of range", yml: "pdf:\n  margin: 3\n"},
		{name: "negative pool", yml: "pdf:\n  chrome_pool_size: -1\n"},
		{name: "negative user limit", yml: "rate_limiter:\n  user_limit: -1\n"},
		{name: "auth without dsn", yml: "auth:\n  enabled: true\n"},
		{name: "broken yaml", yml: "server: [\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := writeConfig(t, tc.yml)
			defer func() {
				if recover() == nil {
					t.Fatalf("expected panic")
				}
			}()
			_ = LoadFrom(p)
		})
	}
}

func TestLoadFrom_PanicsOnMissingFile(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	_ = LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
}

func TestLoad_UsesConfigPathEnv(t *testing.T) {
	clearEnv(t)
	p := writeConfig(t, "server:\n  port: \":7070\"\n")
	t.Setenv("CONFIG_PATH", p)
	cfg := Load()
	assert.Equal(t, ":7070", cfg.Server.Port)
}

func TestParse_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHROME_BIN", "/usr/bin/chromium")
	t.Setenv("PDF_ENGINE", "FPDF")
	t.Setenv("VERCEL", "1")

	cfg, err := Parse([]byte("pdf:\n  timeout_secs: 5\n"))
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/chromium", cfg.PDF.ChromePath)
	assert.Equal(t, EngineFPDF, cfg.PDF.Engine)
	assert.True(t, cfg.PDF.Serverless)
}

func TestParse_ExplicitChromePathWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHROME_BIN", "/usr/bin/chromium")

	cfg, err := Parse([]byte("pdf:\n  chrome_path: /opt/chrome\n"))
	require.NoError(t, err)
	assert.Equal(t, "/opt/chrome", cfg.PDF.ChromePath)
}

func TestIsServerless(t *testing.T) {
	clearEnv(t)
	assert.False(t, IsServerless())

	t.Setenv("DEPLOY_ENV", "Serverless")
	assert.True(t, IsServerless())

	t.Setenv("DEPLOY_ENV", "")
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "render")
	assert.True(t, IsServerless())
}

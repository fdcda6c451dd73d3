package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
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
	for _, k := range []string{"PORT", "HOST", "DROPBOX_TOKEN", "DROPBOX_FOLDER", "PDFSHIFT_API_KEY", "LOG_LEVEL", "REDIS_HOST", "CHROME_BIN", "CONFIG_PATH"} {
		t.Setenv(k, "")
	}
}

func TestLoadFrom_DefaultsWithoutFile(t *testing.T) {
	clearEnv(t)
	cfg := LoadFrom("")

	assert.Equal(t, ":3000", cfg.Server.Port)
	assert.Equal(t, 50*1024*1024, cfg.Server.BodyLimitBytes)
	assert.Equal(t, BackendPDFShift, cfg.Converter.Backend)
	assert.Equal(t, DefaultPDFShiftEndpoint, cfg.Converter.Endpoint)
	assert.False(t, cfg.Converter.Landscape)
	assert.True(t, cfg.Converter.UsePrint)
	assert.Equal(t, Margin{Top: "20", Right: "20", Bottom: "20", Left: "20"}, cfg.Converter.Margin)
	assert.Equal(t, DefaultDropboxUploadURL, cfg.Storage.UploadURL)
	assert.False(t, cfg.ConverterReady())
	assert.False(t, cfg.StorageReady())
}

func TestLoadFrom_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	p := writeConfig(t, `server:
  port: ":9000"
storage:
  folder: "/from-file"
converter:
  api_key: "file-key"
cache:
  redis_host: "127.0.0.1:6379"
  pdf_cache_enabled: true
  pdf_cache_ttl: 5m
`)
	t.Setenv("PORT", "8081")
	t.Setenv("DROPBOX_FOLDER", "/Necropsias")
	t.Setenv("DROPBOX_TOKEN", "sl.token")

	cfg := LoadFrom(p)
	assert.Equal(t, ":8081", cfg.Server.Port)
	assert.Equal(t, "/Necropsias", cfg.Storage.Folder)
	assert.Equal(t, "sl.token", cfg.Storage.AccessToken)
	assert.Equal(t, "file-key", cfg.Converter.APIKey)
	assert.Equal(t, 5*time.Minute, cfg.Cache.PDFCacheTTL)
	assert.True(t, cfg.ConverterReady())
	assert.True(t, cfg.StorageReady())
}

func TestLoadFrom_PanicsOnInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yml  string
	}{
		{name: "unknown backend", yml: "converter:\n  backend: wkhtmltopdf\n"},
		{name: "non-numeric port", yml: "server:\n  port: \":http\"\n"},
		{name: "zero body limit", yml: "server:\n  body_limit_bytes: 0\n"},
		{name: "negative timeout", yml: "converter:\n  timeout: -1s\n"},
		{name: "cache without redis", yml: "cache:\n  pdf_cache_enabled: true\n"},
		{name: "malformed yaml", yml: "server: [\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
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

func TestLoad_UsesConfigPathEnv(t *testing.T) {
	clearEnv(t)
	p := writeConfig(t, "storage:\n  folder: \"/env-path\"\n")
	t.Setenv("CONFIG_PATH", p)

	cfg := Load()
	assert.Equal(t, "/env-path", cfg.Storage.Folder)
}

func TestChromeBackendIsAlwaysReady(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHROME_BIN", "/usr/bin/chromium")
	p := writeConfig(t, "converter:\n  backend: chrome\n")

	cfg := LoadFrom(p)
	assert.True(t, cfg.ConverterReady())
	assert.Equal(t, "/usr/bin/chromium", cfg.Converter.ChromePath)
}

func TestUploadPathAndAddr(t *testing.T) {
	cfg := Default()
	cfg.Storage.Folder = "/Relatorios"
	cfg.Server.Host = "127.0.0.1"

	assert.Equal(t, "/Relatorios/x.pdf", cfg.UploadPath("x.pdf"))
	assert.Equal(t, "127.0.0.1:3000", cfg.Addr())
}

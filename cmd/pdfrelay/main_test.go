package main

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"pdfrelay/internal/config"
	"pdfrelay/internal/infra/cache"
	"pdfrelay/internal/infra/chrome"
	"pdfrelay/internal/infra/pdfshift"
)

func TestStartServer_GracefulShutdownOnSignal(t *testing.T) {
	app := fiber.New()
	var cfg config.Config
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = ":0"

	idleConnsClosed := make(chan struct{})
	go startServer(app, cfg, idleConnsClosed)

	time.Sleep(100 * time.Millisecond)
	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("failed to send SIGTERM: %v", err)
	}

	select {
	case <-idleConnsClosed:
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for graceful shutdown")
	}
}

func TestMain_UsesConfigAndShutsDown(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "cfg.yaml")
	err := os.WriteFile(cfgPath, []byte(`
server:
  host: "127.0.0.1"
  port: ":0"
  prefork: false
logger:
  file: "`+filepath.Join(t.TempDir(), `relay.log`)+`"
  level: "info"
  max_size_mb: 1
  max_backups: 1
  max_age_days: 1
  compress: false
converter:
  backend: "pdfshift"
  timeout: 1s
storage:
  folder: "/Relatorios"
  timeout: 1s
`), 0o644)
	if err != nil {
		t.Fatalf("write cfg: %v", err)
	}

	t.Setenv("CONFIG_PATH", cfgPath)
	t.Setenv("PORT", "")

	done := make(chan struct{})
	go func() {
		main()
		close(done)
	}()

	time.Sleep(200 * time.Millisecond)
	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("signal main: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for main to exit")
	}
}

func TestParseFlags_SetsConfigPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")

	parseFlags([]string{"--config", "/etc/pdfrelay.yaml", "-test.v=true"})

	assert.Equal(t, "/etc/pdfrelay.yaml", os.Getenv("CONFIG_PATH"))
}

func TestNewConverter_SelectsBackend(t *testing.T) {
	cfg := config.Default()
	_, ok := newConverter(cfg).(*pdfshift.Client)
	assert.True(t, ok)

	cfg.Converter.Backend = config.BackendChrome
	_, ok = newConverter(cfg).(*chrome.Converter)
	assert.True(t, ok)

	cfg.Converter.Backend = config.BackendPDFShift
	cfg.Cache.PDFCacheEnabled = true
	cfg.Cache.RedisHost = "127.0.0.1:1"
	_, ok = newConverter(cfg).(*cache.Converter)
	assert.True(t, ok)
}

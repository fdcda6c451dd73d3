package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"

	"pdfrelay/internal/app"
	"pdfrelay/internal/config"
	"pdfrelay/internal/domain"
	"pdfrelay/internal/infra/cache"
	"pdfrelay/internal/infra/chrome"
	"pdfrelay/internal/infra/dropbox"
	"pdfrelay/internal/infra/logging"
	"pdfrelay/internal/infra/metrics"
	"pdfrelay/internal/infra/pdfshift"
)

func main() {
	parseFlags(os.Args[1:])

	// A missing .env is normal in containers; the environment wins anyway.
	envErr := godotenv.Load()

	cfg := config.Load()
	logging.InitLogger(
		cfg.Logger.File,
		cfg.Logger.MaxSizeMB,
		cfg.Logger.MaxBackups,
		cfg.Logger.MaxAgeDays,
		cfg.Logger.Compress,
		cfg.Logger.Level,
	)
	logging.SetLogLevel(cfg.Logger.Level)
	if envErr != nil && !os.IsNotExist(envErr) {
		logging.Warn("Failed to load .env", "error", envErr)
	}

	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		logging.Info(fmt.Sprintf(format, args...))
	})); err != nil {
		logging.Warn("Failed to set GOMAXPROCS", "error", err)
	}

	application := app.SetupApp(app.Deps{
		Config:    cfg,
		Converter: newConverter(cfg),
		Store:     dropbox.New(cfg),
		Metrics:   metrics.NewRecorder(),
	})

	logging.Info("PDF relay starting",
		"addr", cfg.Addr(),
		"converter", cfg.Converter.Backend,
		"folder", cfg.Storage.Folder,
		"dropbox_token", logging.Mask(cfg.Storage.AccessToken, 4),
		"pdfshift_key", logging.Mask(cfg.Converter.APIKey, 4),
	)
	if !cfg.StorageReady() || !cfg.ConverterReady() {
		logging.Warn("Upstream credentials missing, relay calls will fail until configured")
	}

	idleConnsClosed := make(chan struct{})
	startServer(application, cfg, idleConnsClosed)
	<-idleConnsClosed
}

// parseFlags handles --config. Unknown flags are ignored so test binaries can run main.
func parseFlags(args []string) {
	fs := pflag.NewFlagSet("pdfrelay", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	configPath := fs.StringP("config", "c", "", "path to a YAML config file (overrides CONFIG_PATH)")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	if *configPath != "" {
		_ = os.Setenv("CONFIG_PATH", *configPath)
	}
}

// newConverter picks the configured backend and wraps it with the Redis cache when enabled.
func newConverter(cfg config.Config) domain.Converter {
	var conv domain.Converter
	switch cfg.Converter.Backend {
	case config.BackendChrome:
		conv = chrome.New(cfg)
	default:
		conv = pdfshift.New(cfg)
	}

	if !cfg.Cache.PDFCacheEnabled {
		return conv
	}
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Cache.RedisHost,
		DB:   cfg.Cache.PDFCacheDB,
	})
	logging.Info("PDF cache enabled", "addr", cfg.Cache.RedisHost, "db", cfg.Cache.PDFCacheDB, "ttl", cfg.Cache.PDFCacheTTL.String())
	return cache.NewConverter(conv, rdb, cfg)
}

// startServer starts the Fiber app and listens for shutdown signals
func startServer(app *fiber.App, cfg config.Config, idleConnsClosed chan struct{}) {
	go func() {
		if err := app.Listen(cfg.Addr()); err != nil {
			logging.Error("Server error", "error", err)
		}
	}()

	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
	<-sigint

	logging.Warn("Shutdown signal received, closing server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
	}

	close(idleConnsClosed)
	logging.Info("Server stopped cleanly")
}

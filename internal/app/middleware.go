package app

import (
	"fmt"
	"time"

	"pdfrelay/internal/config"
	"pdfrelay/internal/infra/logging"
	"pdfrelay/internal/infra/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/idempotency"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	memoryStorage "github.com/gofiber/storage/memory/v2"
	redisStorage "github.com/gofiber/storage/redis/v2"
	"github.com/rs/xid"
)

const idempotencyKeyMaxLen = 128

// newIdempotencyStorage prefers Redis when configured and falls back to memory.
func newIdempotencyStorage(cfg config.Config) (store fiber.Storage) {
	store = memoryStorage.New() // safe default
	if cfg.Cache.RedisHost == "" {
		return store
	}

	defer func() {
		if r := recover(); r != nil {
			logging.Error("Redis idempotency store init panicked, falling back to memory", "panic", r)
		}
	}()
	store = redisStorage.New(redisStorage.Config{
		Addrs:    []string{cfg.Cache.RedisHost},
		Database: cfg.Cache.IdempotencyDB,
	})
	logging.Info("Using Redis for idempotency keys", "addr", cfg.Cache.RedisHost, "db", cfg.Cache.IdempotencyDB)
	return store
}

// idempotencyMiddleware replays the stored response for a repeated
// X-Idempotency-Key. Requests without the header pass through untouched.
func idempotencyMiddleware(cfg config.Config, storage fiber.Storage) fiber.Handler {
	return idempotency.New(idempotency.Config{
		Lifetime:  cfg.Idempotency.Lifetime,
		KeyHeader: "X-Idempotency-Key",
		KeyHeaderValidate: func(k string) error {
			if len(k) == 0 || len(k) > idempotencyKeyMaxLen {
				return fmt.Errorf("%w: idempotency key must be 1-%d characters", fiber.ErrBadRequest, idempotencyKeyMaxLen)
			}
			return nil
		},
		KeepResponseHeaders: []string{fiber.HeaderContentType},
		Storage:             storage,
	})
}

// metricsMiddleware records request counts, latency and in-flight requests.
// Errors are resolved here so the recorded status matches what the client sees.
func metricsMiddleware(m *metrics.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		m.IncreaseActiveRequests()
		defer m.DecreaseActiveRequests()

		if err := c.Next(); err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		// Label by route pattern; unmatched paths share one label.
		path := "unmatched"
		if r := c.Route(); r != nil && r.Path != "/" {
			path = r.Path
		}
		status := c.Response().StatusCode()
		m.ObserveRequest(path, status, time.Since(start))

		logging.Info("Request completed",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
		)
		return nil
	}
}

// RegisterMiddleware attaches global middleware to the app
func RegisterMiddleware(app *fiber.App, cfg config.Config, m *metrics.Recorder) {
	app.Use(cors.New())

	app.Use(requestid.New(requestid.Config{
		Generator: func() string {
			return xid.New().String()
		},
	}))

	app.Use(healthcheck.New(healthcheck.Config{
		ReadinessProbe: func(c *fiber.Ctx) bool {
			return cfg.ConverterReady() && cfg.StorageReady()
		},
	}))

	app.Use(func(c *fiber.Ctx) error {
		requestID := c.Get(fiber.HeaderXRequestID)
		if requestID == "" {
			requestID = c.GetRespHeader(fiber.HeaderXRequestID)
		}
		logging.Info("Incoming request", "method", c.Method(), "path", c.Path(), "request_id", requestID)
		return c.Next()
	})

	app.Use(metricsMiddleware(m))
}

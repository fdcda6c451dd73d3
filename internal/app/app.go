package app

import (
	"pdfrelay/internal/config"
	"pdfrelay/internal/domain"
	"pdfrelay/internal/handlers"
	"pdfrelay/internal/infra/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/monitor"
)

// Deps are the collaborators the app is wired with.
type Deps struct {
	Config    config.Config
	Converter domain.Converter
	Store     domain.Store
	Metrics   *metrics.Recorder
	// IdempotencyStorage overrides the storage chosen from Config when set.
	IdempotencyStorage fiber.Storage
}

// SetupApp creates and configures a new Fiber app instance
func SetupApp(deps Deps) *fiber.App {
	cfg := deps.Config
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewRecorder()
	}

	app := fiber.New(fiber.Config{
		Prefork:               cfg.Server.Prefork,
		DisableStartupMessage: true,
		BodyLimit:             cfg.Server.BodyLimitBytes,
		ErrorHandler:          handlers.ErrorHandler,
	})

	RegisterMiddleware(app, cfg, deps.Metrics)
	RegisterRoutes(app, deps)

	// Ensure all responses, including 404s, return JSON
	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not Found")
	})

	return app
}

// RegisterRoutes mounts all route handlers to the app
func RegisterRoutes(app *fiber.App, deps Deps) {
	svc := handlers.NewRelayService(deps.Config, deps.Converter, deps.Store, deps.Metrics)

	app.Get("/health", handlers.HandleHealth)
	app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))
	app.Get("/monitor", monitor.New())

	api := app.Group("/api")
	if deps.Config.Idempotency.Enabled {
		storage := deps.IdempotencyStorage
		if storage == nil {
			storage = newIdempotencyStorage(deps.Config)
		}
		api.Use(idempotencyMiddleware(deps.Config, storage))
	}

	api.Post("/save-pdf", svc.HandleSave)
	api.Post("/generate-pdf", svc.HandleGenerate)
	api.Post("/generate-and-save-pdf", svc.HandleGenerateAndSave)
}

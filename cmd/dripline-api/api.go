package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/driplinehq/dripline/pkg/log"
	"github.com/driplinehq/dripline/pkg/persistence"
	"github.com/driplinehq/dripline/pkg/queue"
	"github.com/driplinehq/dripline/pkg/registry"
	"github.com/driplinehq/dripline/pkg/trigger"
	"github.com/driplinehq/dripline/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	queue       queue.Queue
	registry    *registry.Registry
	validate    *validator.Validate
}

func NewAPI(l *slog.Logger, p persistence.Persistence, q queue.Queue) *API {
	return &API{
		logger:      l,
		persistence: p,
		queue:       q,
		registry:    registry.NewRegistry(log.WithModule("registry")),
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	triggerService := trigger.NewService(a.persistence, a.queue, a.registry, a.logger)
	handlers := web.NewAPIHandlers(a.persistence, triggerService, a.validate, a.registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Dripline API")
	})

	v1 := app.Group("/v1")

	w := v1.Group("/workflows")
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Post("/:id/trigger", handlers.TriggerWorkflow)

	l := v1.Group("/leads")
	l.Post("/", handlers.CreateLead)
	l.Get("/:id", handlers.GetLead)

	v1.Get("/executions/:id", handlers.GetExecution)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}

package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/robfig/cron/v3"

	"github.com/hybriq/hybriq/pkg/cmd"
	"github.com/hybriq/hybriq/pkg/config"
	"github.com/hybriq/hybriq/pkg/retrieval"
	"github.com/hybriq/hybriq/pkg/web"
	"github.com/hybriq/hybriq/pkg/workflow"
)

type API struct {
	logger       *slog.Logger
	orchestrator *workflow.Orchestrator
	ranker       *retrieval.Ranker
	validate     *validator.Validate
}

// NewAPI assembles the pipeline and, when a schedule is given, starts a
// cron job that reindexes the document corpus in place so new documents
// are picked up without a restart.
func NewAPI(ctx context.Context, cfg config.Config, reindexSchedule string, logger *slog.Logger) (*API, func(), error) {
	orchestrator, ranker, cleanupPipeline, err := cmd.NewOrchestrator(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	api := &API{
		logger:       logger,
		orchestrator: orchestrator,
		ranker:       ranker,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
	}

	cleanup := cleanupPipeline

	if reindexSchedule != "" {
		scheduler := cron.New()

		_, err := scheduler.AddFunc(reindexSchedule, func() {
			if err := ranker.Reload(); err != nil {
				logger.Error("Corpus reindex failed", "error", err)
			}
		})
		if err != nil {
			cleanupPipeline()
			return nil, nil, err
		}

		scheduler.Start()

		cleanup = func() {
			scheduler.Stop()
			cleanupPipeline()
		}
	}

	return api, cleanup, nil
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.orchestrator, a.ranker, a.validate, a.logger)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("hybriq API")
	})

	app.Post("/questions", handlers.AskQuestion)
	app.Get("/healthz", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}

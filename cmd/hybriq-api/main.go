// Package main provides the hybriq API server: one question per request
// over HTTP, with periodic corpus reindexing.
package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/hybriq/hybriq/pkg/config"
	"github.com/hybriq/hybriq/pkg/log"
	"github.com/hybriq/hybriq/pkg/otelhelper"
)

const defaultPort = 9091

func main() {
	command := &cli.Command{
		Name:                  "hybriq-api",
		Usage:                 "Serve question answering over HTTP",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "docs-path",
				Usage:   "Directory of markdown documents for retrieval",
				Value:   "docs",
				Sources: cli.EnvVars("HYBRIQ_DOCS_PATH"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Relational store connection URL",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "ollama-url",
				Usage:   "Base URL of the Ollama completion backend",
				Value:   config.Default().OllamaBaseURL,
				Sources: cli.EnvVars("OLLAMA_URL"),
			},
			&cli.StringFlag{
				Name:    "model",
				Usage:   "Completion model name",
				Value:   config.Default().OllamaModel,
				Sources: cli.EnvVars("HYBRIQ_MODEL"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the completion cache (empty disables caching)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "reindex-schedule",
				Usage:   "Cron expression for corpus reindexing (empty disables)",
				Value:   "@every 10m",
				Sources: cli.EnvVars("HYBRIQ_REINDEX_SCHEDULE"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export OTLP traces for each question",
				Sources: cli.EnvVars("HYBRIQ_TRACING"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("hybriq-api")

			cfg := config.Default()
			cfg.OllamaBaseURL = command.String("ollama-url")
			cfg.OllamaModel = command.String("model")
			cfg.DocsPath = command.String("docs-path")
			cfg.DatabaseURL = command.String("database-url")
			cfg.RedisURL = command.String("redis-url")
			cfg.LogLevel = command.String("log-level")

			if err := cfg.Validate(); err != nil {
				return err
			}

			if command.Bool("tracing") {
				if _, err := otelhelper.NewTracer(ctx, "hybriq-api"); err != nil {
					logger.WarnContext(ctx, "Failed to initialize tracing", "error", err)
				}
			}

			api, cleanup, err := NewAPI(ctx, cfg, command.String("reindex-schedule"), logger)
			if err != nil {
				return err
			}
			defer cleanup()

			return api.Start(command.Int("port"))
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		os.Exit(1)
	}
}

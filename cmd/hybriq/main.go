// Package main provides the hybriq batch runner: it answers a JSONL file
// of questions and appends results incrementally.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/hybriq/hybriq/pkg/batch"
	"github.com/hybriq/hybriq/pkg/cmd"
	"github.com/hybriq/hybriq/pkg/config"
	"github.com/hybriq/hybriq/pkg/log"
	"github.com/hybriq/hybriq/pkg/otelhelper"
)

func main() {
	command := &cli.Command{
		Name:                  "hybriq",
		EnableShellCompletion: true,
		Usage:                 "Answer a batch of questions over documents and a relational store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "input",
				Aliases:  []string{"i"},
				Usage:    "Path to the JSONL question file",
				Required: true,
				Sources:  cli.EnvVars("HYBRIQ_INPUT"),
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Path to the JSONL results file (appended to)",
				Value:   "results.jsonl",
				Sources: cli.EnvVars("HYBRIQ_OUTPUT"),
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
			&cli.IntFlag{
				Name:    "max-tokens",
				Usage:   "Completion token cap per call",
				Value:   config.Default().MaxTokens,
				Sources: cli.EnvVars("HYBRIQ_MAX_TOKENS"),
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Usage:   "Per-completion request timeout",
				Value:   config.Default().Timeout,
				Sources: cli.EnvVars("HYBRIQ_TIMEOUT"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the completion cache (empty disables caching)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider for run lifecycle events (gochannel, kafka; empty disables)",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma-separated Kafka broker list (kafka event bus only)",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
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
		Action: run,
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	logger := log.WithModule("hybriq")

	cfg := config.Default()
	cfg.OllamaBaseURL = command.String("ollama-url")
	cfg.OllamaModel = command.String("model")
	cfg.MaxTokens = int(command.Int("max-tokens"))
	cfg.Timeout = command.Duration("timeout")
	cfg.DocsPath = command.String("docs-path")
	cfg.DatabaseURL = command.String("database-url")
	cfg.RedisURL = command.String("redis-url")
	cfg.EventBusProvider = command.String("event-bus")
	cfg.KafkaBrokers = command.String("kafka-brokers")
	cfg.LogLevel = command.String("log-level")

	if err := cfg.Validate(); err != nil {
		return err
	}

	if command.Bool("tracing") {
		if _, err := otelhelper.NewTracer(ctx, "hybriq"); err != nil {
			logger.WarnContext(ctx, "Failed to initialize tracing", "error", err)
		}
	}

	// SIGINT finishes the in-flight question, flushes its result, and
	// stops; a second signal kills the process.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		stop()
	}()

	records, err := batch.ReadQuestions(command.String("input"))
	if err != nil {
		return err
	}

	orchestrator, _, cleanup, err := cmd.NewOrchestrator(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	bus, err := cmd.NewEventBus(cfg.EventBusProvider, cfg.KafkaBrokers, logger)
	if err != nil {
		return err
	}

	if bus != nil {
		defer func() {
			if err := bus.Close(); err != nil {
				logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
			}
		}()
	}

	writer, err := batch.NewResultWriter(command.String("output"))
	if err != nil {
		return err
	}

	defer func() {
		if err := writer.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close results file", "error", err)
		}
	}()

	runner := batch.NewRunner(orchestrator, writer, bus, logger)

	summary, err := runner.Run(ctx, records)
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "Run complete",
		"run_id", summary.RunID,
		"answered", summary.Answered,
		"failed", summary.Failed,
		"duration", summary.Duration.Round(time.Millisecond),
		"interrupted", summary.Interrupted)

	return nil
}

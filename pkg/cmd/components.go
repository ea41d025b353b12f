// Package cmd wires configuration into the components the binaries share.
package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/hybriq/hybriq/pkg/completion"
	"github.com/hybriq/hybriq/pkg/config"
	"github.com/hybriq/hybriq/pkg/relational"
	"github.com/hybriq/hybriq/pkg/retrieval"
	"github.com/hybriq/hybriq/pkg/workflow"
)

// NewCompleter builds the Ollama-backed completer, wrapped in the Redis
// read-through cache when a Redis URL is configured.
func NewCompleter(cfg config.Config, logger *slog.Logger) (completion.Completer, error) {
	client := completion.NewOllamaClient(cfg.Ollama(), logger)

	if cfg.RedisURL == "" {
		return client, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	return completion.NewCache(client, redis.NewClient(opts), cfg.CacheTTL, logger), nil
}

// NewOrchestrator assembles the full pipeline: completer, document
// ranker, and relational adapter. The returned ranker is also handed to
// callers that surface corpus health.
func NewOrchestrator(ctx context.Context, cfg config.Config, logger *slog.Logger) (*workflow.Orchestrator, *retrieval.Ranker, func(), error) {
	completer, err := NewCompleter(cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	ranker, err := retrieval.NewRanker(cfg.DocsPath, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load document corpus: %w", err)
	}

	adapter, err := relational.NewPostgres(ctx, logger, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	orchestrator, err := workflow.NewOrchestrator(ctx, logger, completer, ranker, adapter)
	if err != nil {
		_ = adapter.Close()
		return nil, nil, nil, err
	}

	cleanup := func() {
		if err := adapter.Close(); err != nil {
			logger.Warn("Failed to close database connection", "error", err)
		}
	}

	return orchestrator, ranker, cleanup, nil
}

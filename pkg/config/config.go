// Package config defines the explicit configuration object threaded into
// constructors. Binaries populate it from CLI flags and environment
// variables; nothing reads ambient process state after startup.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hybriq/hybriq/pkg/completion"
)

// Config carries everything the orchestrator and its surfaces need.
type Config struct {
	// Completion backend.
	OllamaBaseURL string        `validate:"required,url"`
	OllamaModel   string        `validate:"required"`
	MaxTokens     int           `validate:"gt=0"`
	Temperature   float64       `validate:"gte=0"`
	Timeout       time.Duration `validate:"gt=0"`

	// Document corpus for retrieval.
	DocsPath string `validate:"required"`

	// Relational store. Schema introspection happens once at startup, so
	// the database must be reachable then.
	DatabaseURL string `validate:"required"`

	// Completion cache. Empty disables caching.
	RedisURL string        `validate:"omitempty,url"`
	CacheTTL time.Duration `validate:"gte=0"`

	// Event bus. Empty disables lifecycle events; "kafka" requires
	// KafkaBrokers.
	EventBusProvider string `validate:"omitempty,oneof=gochannel kafka"`
	KafkaBrokers     string `validate:"required_if=EventBusProvider kafka"`

	LogLevel string `validate:"omitempty,oneof=debug info warn error"`
}

// Default returns a Config with the completion backend defaults filled
// in. Flags and environment variables override from here.
func Default() Config {
	return Config{
		OllamaBaseURL: completion.DefaultBaseURL,
		OllamaModel:   completion.DefaultModel,
		MaxTokens:     completion.DefaultMaxTokens,
		Temperature:   0,
		Timeout:       completion.DefaultTimeout,
		CacheTTL:      completion.DefaultCacheTTL,
		LogLevel:      "info",
	}
}

// Validate checks the assembled configuration before any component is
// constructed from it.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	return nil
}

// Ollama converts the completion fields into a client configuration.
func (c Config) Ollama() completion.OllamaConfig {
	return completion.OllamaConfig{
		BaseURL:     c.OllamaBaseURL,
		Model:       c.OllamaModel,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
		Timeout:     c.Timeout,
	}
}

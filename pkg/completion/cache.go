package completion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/hybriq/hybriq/pkg/models"
)

// DefaultCacheTTL bounds how long cached completions are kept.
const DefaultCacheTTL = 24 * time.Hour

// Cache is a transparent read-through cache over another Completer.
// Completions run at temperature zero, so identical prompts are safely
// cacheable. Cache failures never fail a completion; they fall through to
// the inner client.
type Cache struct {
	inner  Completer
	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

// NewCache wraps inner with a Redis-backed response cache.
func NewCache(inner Completer, client redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}

	return &Cache{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger.With("module", "completion_cache"),
	}
}

// cacheKey derives a stable key from the port name and its inputs.
func cacheKey(port string, inputs ...string) string {
	h := sha256.New()
	h.Write([]byte(port))

	for _, input := range inputs {
		h.Write([]byte{0})
		h.Write([]byte(input))
	}

	return "hybriq:completion:" + hex.EncodeToString(h.Sum(nil))
}

func (c *Cache) getString(ctx context.Context, key string) (string, bool) {
	value, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}

	return value, true
}

func (c *Cache) setString(ctx context.Context, key, value string) {
	err := c.client.Set(ctx, key, value, c.ttl).Err()
	if err != nil {
		c.logger.WarnContext(ctx, "Failed to cache completion", "error", err)
	}
}

func (c *Cache) Route(ctx context.Context, question string) (string, error) {
	key := cacheKey("route", question)
	if value, ok := c.getString(ctx, key); ok {
		return value, nil
	}

	value, err := c.inner.Route(ctx, question)
	if err != nil {
		return "", err
	}

	c.setString(ctx, key, value)

	return value, nil
}

func (c *Cache) GenerateSQL(ctx context.Context, question, schema, docContext string) (string, error) {
	key := cacheKey("generate_sql", question, schema, docContext)
	if value, ok := c.getString(ctx, key); ok {
		return value, nil
	}

	value, err := c.inner.GenerateSQL(ctx, question, schema, docContext)
	if err != nil {
		return "", err
	}

	c.setString(ctx, key, value)

	return value, nil
}

func (c *Cache) RepairSQL(ctx context.Context, failingSQL, errorText, schema string) (string, error) {
	key := cacheKey("repair_sql", failingSQL, errorText, schema)
	if value, ok := c.getString(ctx, key); ok {
		return value, nil
	}

	value, err := c.inner.RepairSQL(ctx, failingSQL, errorText, schema)
	if err != nil {
		return "", err
	}

	c.setString(ctx, key, value)

	return value, nil
}

func (c *Cache) Synthesize(ctx context.Context, question string, hint models.FormatHint, docContext, sqlResults string) (Synthesis, error) {
	key := cacheKey("synthesize", question, string(hint), docContext, sqlResults)

	if raw, ok := c.getString(ctx, key); ok {
		var cached Synthesis
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			return cached, nil
		}
	}

	synthesis, err := c.inner.Synthesize(ctx, question, hint, docContext, sqlResults)
	if err != nil {
		return Synthesis{}, err
	}

	if encoded, err := json.Marshal(synthesis); err == nil {
		c.setString(ctx, key, string(encoded))
	}

	return synthesis, nil
}

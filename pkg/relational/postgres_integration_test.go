package relational_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/hybriq/hybriq/pkg/relational"
)

var postgresContainer *postgres.PostgresContainer

func setupTestDB(t *testing.T) (*relational.Postgres, context.Context) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping relational integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("hybriq_test"),
			postgres.WithUsername("hybriq"),
			postgres.WithPassword("hybriq"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	adapter, err := relational.NewPostgres(ctx, logger, databaseURL)
	require.NoError(t, err)

	_ = adapter.Execute(ctx, `DROP TABLE IF EXISTS orders`)
	result := adapter.Execute(ctx, `CREATE TABLE orders (order_id integer PRIMARY KEY, customer text, freight numeric)`)
	require.True(t, result.Success, result.Error)

	result = adapter.Execute(ctx, `INSERT INTO orders VALUES (1, 'VINET', 32.38), (2, 'TOMSP', 11.61)`)
	require.True(t, result.Success, result.Error)

	t.Cleanup(func() {
		_ = adapter.Execute(ctx, `DROP TABLE IF EXISTS orders`)

		err := adapter.Close()
		require.NoError(t, err)

		cancel()
	})

	return adapter, ctx
}

func TestPostgres_Schema(t *testing.T) {
	adapter, ctx := setupTestDB(t)

	schema, err := adapter.Schema(ctx)
	require.NoError(t, err)

	assert.Contains(t, schema, "orders(")
	assert.Contains(t, schema, "  order_id integer")
	assert.Contains(t, schema, "  customer text")
}

func TestPostgres_ExecuteReturnsRows(t *testing.T) {
	adapter, ctx := setupTestDB(t)

	result := adapter.Execute(ctx, `SELECT order_id, customer FROM orders ORDER BY order_id`)

	require.True(t, result.Success)
	assert.Equal(t, []string{"order_id", "customer"}, result.Columns)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, "VINET", result.Rows[0]["customer"])
}

func TestPostgres_ExecuteFailureIsData(t *testing.T) {
	adapter, ctx := setupTestDB(t)

	result := adapter.Execute(ctx, `SELECT nope FROM missing_table`)

	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
	assert.Empty(t, result.Rows)
}

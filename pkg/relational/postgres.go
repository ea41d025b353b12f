package relational

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	// PostgreSQL driver registration.
	_ "github.com/lib/pq"

	"github.com/hybriq/hybriq/pkg/models"
)

// Postgres implements Adapter on top of database/sql with the pq driver.
type Postgres struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgres connects to the database and verifies the connection.
func NewPostgres(ctx context.Context, logger *slog.Logger, databaseURL string) (*Postgres, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Postgres{
		db:     database,
		logger: logger.With("module", "relational"),
	}, nil
}

// Close closes the database connection.
func (p *Postgres) Close() error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// Schema renders every public table with its columns and types, one block
// per table.
func (p *Postgres) Schema(ctx context.Context) (string, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT table_name, column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = 'public'
		ORDER BY table_name, ordinal_position`)
	if err != nil {
		return "", fmt.Errorf("failed to introspect schema: %w", err)
	}
	defer rows.Close()

	tables := []string{}
	columns := map[string][]string{}

	for rows.Next() {
		var table, column, dataType string
		if err := rows.Scan(&table, &column, &dataType); err != nil {
			return "", fmt.Errorf("failed to scan schema row: %w", err)
		}

		if _, ok := columns[table]; !ok {
			tables = append(tables, table)
		}

		columns[table] = append(columns[table], fmt.Sprintf("  %s %s", column, dataType))
	}

	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("failed to read schema rows: %w", err)
	}

	blocks := make([]string, 0, len(tables))
	for _, table := range tables {
		blocks = append(blocks, fmt.Sprintf("%s(\n%s\n)", table, strings.Join(columns[table], ",\n")))
	}

	return strings.Join(blocks, "\n\n"), nil
}

// Execute runs the query and shapes the outcome as a QueryResult. Query
// errors become data, never a returned error.
func (p *Postgres) Execute(ctx context.Context, query string) models.QueryResult {
	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return models.QueryResult{Success: false, Columns: []string{}, Rows: []map[string]any{}, Error: err.Error()}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return models.QueryResult{Success: false, Columns: []string{}, Rows: []map[string]any{}, Error: err.Error()}
	}

	result := models.QueryResult{Success: true, Columns: columns, Rows: []map[string]any{}}

	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))

		for i := range values {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			return models.QueryResult{Success: false, Columns: []string{}, Rows: []map[string]any{}, Error: err.Error()}
		}

		row := make(map[string]any, len(columns))
		for i, column := range columns {
			row[column] = normalizeValue(values[i])
		}

		result.Rows = append(result.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return models.QueryResult{Success: false, Columns: []string{}, Rows: []map[string]any{}, Error: err.Error()}
	}

	return result
}

// normalizeValue makes driver values JSON-friendly; pq returns text and
// numeric columns as byte slices.
func normalizeValue(value any) any {
	if b, ok := value.([]byte); ok {
		return string(b)
	}

	return value
}

// Package relational provides schema introspection and query execution
// against the relational data engine.
package relational

import (
	"context"

	"github.com/hybriq/hybriq/pkg/models"
)

// Adapter is the workflow's view of the relational engine. Execute never
// returns a Go error for a failing query: execution failure is data that
// drives the repair cycle, so it surfaces inside the QueryResult.
type Adapter interface {
	// Schema returns a text description of every table and column.
	Schema(ctx context.Context) (string, error)

	// Execute runs one query. All query failures surface as
	// QueryResult{Success: false, Error: message}.
	Execute(ctx context.Context, sql string) models.QueryResult

	Close() error
}

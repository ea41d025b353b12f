package models

// QueryResult is the outcome of one relational execution. Failure is data,
// not an error: exactly one of rows-present / error-present holds.
type QueryResult struct {
	Success bool             `json:"success"`
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
	Error   string           `json:"error,omitempty"`
}

// EmptySuccess is the synthetic result used when there is no SQL to run:
// the rag-only path and degenerate generations flow uniformly through the
// rest of the workflow.
func EmptySuccess() QueryResult {
	return QueryResult{Success: true, Columns: []string{}, Rows: []map[string]any{}}
}

// HasRows reports whether the execution succeeded and returned at least
// one row.
func (q QueryResult) HasRows() bool {
	return q.Success && len(q.Rows) > 0
}

// Package completion defines the narrow request/response boundaries to a
// language-model text-completion service, and implementations of them.
package completion

import (
	"context"

	"github.com/hybriq/hybriq/pkg/models"
)

// Synthesis is the response of the Synthesize port.
type Synthesis struct {
	Answer      string `json:"answer"`
	Explanation string `json:"explanation"`
}

// Completer is the set of completion ports the orchestrator depends on.
// Each call is a single blocking request with no streaming. Implementations
// return model text as-is apart from code-fence cleanup; semantic
// normalization (route labels, answer parsing) stays with the caller.
type Completer interface {
	// Route classifies which data sources a question needs. The returned
	// label is free text.
	Route(ctx context.Context, question string) (string, error)

	// GenerateSQL produces a SQL query for the question given the
	// relational schema and optional document context.
	GenerateSQL(ctx context.Context, question, schema, docContext string) (string, error)

	// RepairSQL corrects a failing query given its execution error.
	RepairSQL(ctx context.Context, failingSQL, errorText, schema string) (string, error)

	// Synthesize produces the final answer text and a brief explanation
	// from the question, its format hint and the gathered evidence.
	Synthesize(ctx context.Context, question string, hint models.FormatHint, docContext, sqlResults string) (Synthesis, error)
}

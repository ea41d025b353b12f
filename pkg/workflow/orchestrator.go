// Package workflow implements the hybrid query orchestration state
// machine: route, retrieve, plan, generate SQL, execute with a bounded
// repair cycle, synthesize.
package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hybriq/hybriq/pkg/answer"
	"github.com/hybriq/hybriq/pkg/completion"
	"github.com/hybriq/hybriq/pkg/models"
	"github.com/hybriq/hybriq/pkg/otelhelper"
	"github.com/hybriq/hybriq/pkg/relational"
)

// Step identifies one state of the orchestration state machine.
type Step string

const (
	StepRoute       Step = "route"
	StepRetrieve    Step = "retrieve"
	StepPlan        Step = "plan"
	StepGenerateSQL Step = "generate_sql"
	StepExecute     Step = "execute"
	StepRepair      Step = "repair"
	StepSynthesize  Step = "synthesize"
	StepDone        Step = "done"
)

const (
	// RetrieveTopK is the fixed number of chunks retrieved per question.
	RetrieveTopK = 3

	// MaxRepairAttempts caps the repair cycle. Once reached, the workflow
	// proceeds to synthesis with whatever evidence it has; a permanently
	// failing query degrades to document-only evidence instead of looping.
	MaxRepairAttempts = 2
)

var datePattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// Ranker is the orchestrator's view of the document ranker: top-k lexical
// search over an immutable corpus index.
type Ranker interface {
	Search(query string, k int) []models.ScoredChunk
}

// Orchestrator drives one question through the workflow. It is safe for
// concurrent use: every Run owns its WorkflowState exclusively, the ranker
// index is read-only, and the schema text is loaded once at construction.
type Orchestrator struct {
	completer completion.Completer
	ranker    Ranker
	adapter   relational.Adapter
	schema    string
	tracer    trace.Tracer
	logger    *slog.Logger
}

// NewOrchestrator wires the external collaborators together and
// introspects the relational schema once.
func NewOrchestrator(ctx context.Context, logger *slog.Logger, completer completion.Completer, ranker Ranker, adapter relational.Adapter) (*Orchestrator, error) {
	schema, err := adapter.Schema(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to introspect relational schema: %w", err)
	}

	return &Orchestrator{
		completer: completer,
		ranker:    ranker,
		adapter:   adapter,
		schema:    schema,
		tracer:    otel.Tracer("github.com/hybriq/hybriq/pkg/workflow"),
		logger:    logger.With("module", "workflow"),
	}, nil
}

// Run executes the state machine for one question and returns its
// structured result. Port and adapter infrastructure failures propagate as
// a *workflow.Error; SQL execution failures do not — they are handled by
// the repair cycle.
func (o *Orchestrator) Run(ctx context.Context, question models.Question) (*models.Result, error) {
	ctx, span := o.tracer.Start(ctx, "workflow.run",
		trace.WithAttributes(attribute.String(otelhelper.QuestionIDKey, question.ID)))
	defer span.End()

	started := time.Now()

	state := models.NewWorkflowState(question)
	step := StepRoute

	for step != StepDone {
		next, err := o.runStep(ctx, step, state)
		if err != nil {
			otelhelper.SetError(span, err)

			return nil, newError(step, question.ID, err)
		}

		step = next
	}

	state.AddTrace("Answered in %s", time.Since(started).Round(time.Millisecond))

	span.SetAttributes(
		attribute.String(otelhelper.RouteKey, string(state.Route)),
		attribute.Int(otelhelper.RepairCountKey, state.RepairCount),
		attribute.Float64(otelhelper.ConfidenceKey, state.Confidence),
	)

	return &models.Result{
		ID:          question.ID,
		FinalAnswer: state.FinalAnswer,
		SQL:         state.SQL,
		Confidence:  state.Confidence,
		Explanation: state.Explanation,
		Citations:   state.Citations,
		Trace:       state.Trace,
	}, nil
}

// runStep dispatches one state transition under its own span.
func (o *Orchestrator) runStep(ctx context.Context, step Step, state *models.WorkflowState) (Step, error) {
	ctx, span := o.tracer.Start(ctx, "workflow."+string(step),
		trace.WithAttributes(attribute.String(otelhelper.StepKey, string(step))))
	defer span.End()

	var (
		next Step
		err  error
	)

	switch step {
	case StepRoute:
		next, err = o.route(ctx, state)
	case StepRetrieve:
		next, err = o.retrieve(ctx, state)
	case StepPlan:
		next, err = o.plan(ctx, state)
	case StepGenerateSQL:
		next, err = o.generateSQL(ctx, state)
	case StepExecute:
		next, err = o.execute(ctx, state)
	case StepRepair:
		next, err = o.repair(ctx, state)
	case StepSynthesize:
		next, err = o.synthesize(ctx, state)
	default:
		return StepDone, fmt.Errorf("unknown workflow step: %s", step)
	}

	if err != nil {
		otelhelper.SetError(span, err)
	}

	return next, err
}

// route asks the completion port which data sources the question needs and
// normalizes the free-text label, failing open to hybrid.
func (o *Orchestrator) route(ctx context.Context, state *models.WorkflowState) (Step, error) {
	label, err := o.completer.Route(ctx, state.Question.Text)
	if err != nil {
		return StepDone, err
	}

	state.Route = models.NormalizeRoute(label)
	state.AddTrace("Routed to: %s", state.Route)

	return StepRetrieve, nil
}

// retrieve always runs regardless of route, so document context is
// available both for SQL generation and for synthesis.
func (o *Orchestrator) retrieve(_ context.Context, state *models.WorkflowState) (Step, error) {
	state.Retrieved = o.ranker.Search(state.Question.Text, RetrieveTopK)
	state.AddTrace("Retrieved %d docs", len(state.Retrieved))

	return StepPlan, nil
}

// plan is an audit-only observability hook: it scans retrieved content for
// calendar dates and records the count in the trace. It never mutates
// routing or query generation.
func (o *Orchestrator) plan(_ context.Context, state *models.WorkflowState) (Step, error) {
	dates := datePattern.FindAllString(state.DocContext(), -1)
	state.AddTrace("Planner: Found %d dates, route=%s", len(dates), state.Route)

	if state.Route.NeedsSQL() {
		return StepGenerateSQL, nil
	}

	// no SQL to generate; execute turns the empty query into a trivial
	// empty success so synthesis always sees a result
	return StepExecute, nil
}

// generateSQL asks the completion port for a query. An empty generation is
// not an error; execute treats empty SQL as a no-op.
func (o *Orchestrator) generateSQL(ctx context.Context, state *models.WorkflowState) (Step, error) {
	sql, err := o.completer.GenerateSQL(ctx, state.Question.Text, o.schema, state.DocContext())
	if err != nil {
		return StepDone, err
	}

	state.SQL = sql
	state.AddTrace("Generated SQL: %s", truncate(sql, 100))

	return StepExecute, nil
}

// execute runs the current SQL, or synthesizes a trivial empty success
// when there is none, so the rag-only path and degenerate generations flow
// uniformly through the rest of the machine.
func (o *Orchestrator) execute(ctx context.Context, state *models.WorkflowState) (Step, error) {
	if state.SQL == "" {
		state.SQLResults = models.EmptySuccess()

		return StepSynthesize, nil
	}

	state.SQLResults = o.adapter.Execute(ctx, state.SQL)

	if state.SQLResults.Success {
		state.AddTrace("SQL success: %d rows", len(state.SQLResults.Rows))

		return StepSynthesize, nil
	}

	state.AddTrace("SQL error: %s", state.SQLResults.Error)

	if state.RepairCount < MaxRepairAttempts {
		return StepRepair, nil
	}

	return StepSynthesize, nil
}

// repair asks the completion port to fix the failing query, then
// re-enters execute.
func (o *Orchestrator) repair(ctx context.Context, state *models.WorkflowState) (Step, error) {
	state.RepairCount++

	fixed, err := o.completer.RepairSQL(ctx, state.SQL, state.SQLResults.Error, o.schema)
	if err != nil {
		return StepDone, err
	}

	state.SQL = fixed
	state.AddTrace("Repair attempt %d: %s", state.RepairCount, truncate(fixed, 100))

	return StepExecute, nil
}

// synthesize produces the final answer and derives its parsed value,
// citations and confidence, then terminates the workflow.
func (o *Orchestrator) synthesize(ctx context.Context, state *models.WorkflowState) (Step, error) {
	sqlResults := ""

	if state.SQLResults.Success {
		encoded, err := json.MarshalIndent(state.SQLResults.Rows, "", "  ")
		if err != nil {
			return StepDone, fmt.Errorf("failed to encode SQL results: %w", err)
		}

		sqlResults = string(encoded)
	}

	synthesis, err := o.completer.Synthesize(ctx, state.Question.Text, state.Question.FormatHint, state.CitedDocContext(), sqlResults)
	if err != nil {
		return StepDone, err
	}

	parsed := answer.Parse(synthesis.Answer, state.Question.FormatHint)
	if parsed.Outcome == answer.OutcomeFallback {
		o.logger.DebugContext(ctx, "Answer parsing fell back to generic interpretation",
			"question_id", state.Question.ID, "format_hint", state.Question.FormatHint)
	}

	state.FinalAnswer = parsed.Value
	state.Explanation = synthesis.Explanation
	state.Citations = answer.Citations(state)
	state.Confidence = answer.Confidence(state)
	state.AddTrace("Synthesized answer: %v", state.FinalAnswer)

	return StepDone, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n] + "..."
}

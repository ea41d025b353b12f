// Package batch runs question files end to end: it reads JSONL question
// records, answers each through the orchestrator, and appends results
// incrementally so an interrupted run keeps every answer produced so far.
package batch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hybriq/hybriq/pkg/eventbus"
	"github.com/hybriq/hybriq/pkg/events"
	"github.com/hybriq/hybriq/pkg/models"
)

// Answerer answers a single question. *workflow.Orchestrator satisfies it.
type Answerer interface {
	Run(ctx context.Context, question models.Question) (*models.Result, error)
}

// Summary reports what a run produced.
type Summary struct {
	RunID       string
	Total       int
	Answered    int
	Failed      int
	Duration    time.Duration
	Interrupted bool
}

// Runner drives one batch run. Every question gets exactly one output
// line: an answer when orchestration succeeds, an error result when it
// fails. A failing question never stops the run; only context
// cancellation does, and even then the current question's result is
// flushed first.
type Runner struct {
	answerer Answerer
	writer   *ResultWriter
	bus      eventbus.EventPublisher
	logger   *slog.Logger
}

// NewRunner assembles a batch runner. bus may be nil to disable event
// publishing.
func NewRunner(answerer Answerer, writer *ResultWriter, bus eventbus.EventPublisher, logger *slog.Logger) *Runner {
	return &Runner{
		answerer: answerer,
		writer:   writer,
		bus:      bus,
		logger:   logger.With("module", "batch"),
	}
}

// Run answers every record in order. Records that failed input validation
// are written straight through as error results without touching the
// orchestrator.
func (r *Runner) Run(ctx context.Context, records []Record) (*Summary, error) {
	runID := uuid.New().String()
	started := time.Now()

	summary := &Summary{RunID: runID, Total: len(records)}

	logger := r.logger.With("run_id", runID)
	logger.Info("Starting batch run", "questions", len(records))

	r.publish(ctx, runID, events.RunStarted{
		BaseEvent:     r.baseEvent(events.RunStartedEvent, runID),
		QuestionCount: len(records),
	})

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			summary.Interrupted = true

			logger.Warn("Batch run interrupted", "answered", summary.Answered, "failed", summary.Failed)

			break
		}

		if err := r.process(ctx, runID, record, summary); err != nil {
			summary.Duration = time.Since(started)
			return summary, err
		}
	}

	summary.Duration = time.Since(started)

	r.publish(ctx, runID, events.RunFinished{
		BaseEvent:   r.baseEvent(events.RunFinishedEvent, runID),
		Answered:    summary.Answered,
		Failed:      summary.Failed,
		Duration:    summary.Duration,
		Interrupted: summary.Interrupted,
	})

	logger.Info("Batch run finished",
		"answered", summary.Answered,
		"failed", summary.Failed,
		"interrupted", summary.Interrupted,
		"duration", summary.Duration)

	return summary, nil
}

// process answers a single record and writes its result line. Only a
// write failure is returned; orchestration failures become error results.
func (r *Runner) process(ctx context.Context, runID string, record Record, summary *Summary) error {
	questionStart := time.Now()

	var (
		result *models.Result
		failed bool
	)

	switch {
	case record.Err != nil:
		result = errorResult(record.Question.ID, record.Err)
		failed = true
	default:
		// cancellation stops the loop between questions; the in-flight
		// question runs to completion so its result is flushed
		answered, err := r.answerQuestion(context.WithoutCancel(ctx), record.Question)
		if err != nil {
			r.logger.Error("Question failed", "question_id", record.Question.ID, "error", err)

			result = errorResult(record.Question.ID, err)
			failed = true
		} else {
			result = answered
		}
	}

	if err := r.writer.Write(result); err != nil {
		return err
	}

	elapsed := time.Since(questionStart)

	if failed {
		summary.Failed++

		r.publish(ctx, runID, events.QuestionFailed{
			BaseEvent:  r.baseEvent(events.QuestionFailedEvent, runID),
			QuestionID: result.ID,
			Error:      result.Explanation,
			Duration:   elapsed,
		})

		return nil
	}

	summary.Answered++

	r.logger.Info("Question answered",
		"question_id", result.ID,
		"confidence", result.Confidence,
		"duration", elapsed.Round(time.Millisecond))

	r.publish(ctx, runID, events.QuestionAnswered{
		BaseEvent:  r.baseEvent(events.QuestionAnsweredEvent, runID),
		QuestionID: result.ID,
		Confidence: result.Confidence,
		Citations:  result.Citations,
		Duration:   elapsed,
	})

	return nil
}

// answerQuestion shields the run from panics inside a single question so
// one bad record cannot take down the whole batch.
func (r *Runner) answerQuestion(ctx context.Context, question models.Question) (result *models.Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = errors.New("panic while answering question")

			r.logger.Error("Recovered from panic", "question_id", question.ID, "panic", rec)
		}
	}()

	return r.answerer.Run(ctx, question)
}

func (r *Runner) publish(ctx context.Context, runID string, event eventbus.Event) {
	if r.bus == nil {
		return
	}

	if err := r.bus.Publish(ctx, runID, event); err != nil {
		r.logger.Warn("Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}

func (r *Runner) baseEvent(eventType events.EventType, runID string) events.BaseEvent {
	return events.BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		RunID:     runID,
	}
}

// errorResult is the output line for a question that could not be
// answered: null final answer, zero confidence, no citations, and the
// failure message in the explanation.
func errorResult(id string, err error) *models.Result {
	return &models.Result{
		ID:          id,
		FinalAnswer: nil,
		SQL:         "",
		Confidence:  0.0,
		Explanation: "Error: " + err.Error(),
		Citations:   []string{},
	}
}

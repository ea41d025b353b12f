// Package events defines event types for question and batch-run lifecycle
// notifications.
package events

import (
	"time"
)

type EventType string

// Topic is the single stream all hybriq lifecycle events are published on.
const Topic = "hybriq.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Batch run lifecycle events.
	RunStartedEvent  EventType = "run.started"
	RunFinishedEvent EventType = "run.finished"

	// Per-question events.
	QuestionAnsweredEvent EventType = "question.answered"
	QuestionFailedEvent   EventType = "question.failed"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	RunID     string         `json:"run_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// RunStarted marks the beginning of a batch run.
type RunStarted struct {
	BaseEvent

	QuestionCount int `json:"question_count"`
}

func (r RunStarted) GetType() EventType {
	return RunStartedEvent
}

// RunFinished marks the end of a batch run, including interrupted runs
// that flushed partial results.
type RunFinished struct {
	BaseEvent

	Answered    int           `json:"answered"`
	Failed      int           `json:"failed"`
	Duration    time.Duration `json:"duration"`
	Interrupted bool          `json:"interrupted"`
}

func (r RunFinished) GetType() EventType {
	return RunFinishedEvent
}

// QuestionAnswered carries the outcome of one successfully orchestrated
// question.
type QuestionAnswered struct {
	BaseEvent

	QuestionID string        `json:"question_id"`
	Confidence float64       `json:"confidence"`
	Citations  []string      `json:"citations"`
	Duration   time.Duration `json:"duration"`
}

func (q QuestionAnswered) GetType() EventType {
	return QuestionAnsweredEvent
}

// QuestionFailed carries a per-question fatal error. The batch run
// continues past it.
type QuestionFailed struct {
	BaseEvent

	QuestionID string        `json:"question_id"`
	Error      string        `json:"error"`
	Duration   time.Duration `json:"duration"`
}

func (q QuestionFailed) GetType() EventType {
	return QuestionFailedEvent
}

package models

import "fmt"

// WorkflowState is the single-owner record threaded through the
// orchestration state machine for one question. Exactly one exists per
// question; it is owned by the run that created it and discarded after the
// result is emitted. Never shared across questions.
type WorkflowState struct {
	Question   Question
	Route      Route
	Retrieved  []ScoredChunk
	SQL        string
	SQLResults QueryResult
	// RepairCount starts at zero, increases monotonically and is capped by
	// the workflow's repair limit.
	RepairCount int

	FinalAnswer any
	Explanation string
	Citations   []string
	Confidence  float64

	Trace []string
}

// NewWorkflowState initializes the state for one question.
func NewWorkflowState(q Question) *WorkflowState {
	return &WorkflowState{
		Question:  q,
		Retrieved: []ScoredChunk{},
		Citations: []string{},
		Trace:     []string{},
	}
}

// AddTrace appends a human-readable step description to the audit trail.
func (s *WorkflowState) AddTrace(format string, args ...any) {
	s.Trace = append(s.Trace, fmt.Sprintf(format, args...))
}

// DocContext joins retrieved chunk content for prompt context.
func (s *WorkflowState) DocContext() string {
	out := ""
	for i, doc := range s.Retrieved {
		if i > 0 {
			out += "\n"
		}

		out += doc.Content
	}

	return out
}

// CitedDocContext joins retrieved chunks as "id: content" lines for answer
// synthesis, so the model can ground its answer in citable units.
func (s *WorkflowState) CitedDocContext() string {
	out := ""
	for i, doc := range s.Retrieved {
		if i > 0 {
			out += "\n"
		}

		out += doc.ID + ": " + doc.Content
	}

	return out
}

// Result is the structured outcome emitted for one question. This is the
// exact shape appended to the batch output stream.
type Result struct {
	ID          string   `json:"id"`
	FinalAnswer any      `json:"final_answer"`
	SQL         string   `json:"sql"`
	Confidence  float64  `json:"confidence"`
	Explanation string   `json:"explanation"`
	Citations   []string `json:"citations"`

	// Trace is carried for logging and the HTTP API; the batch stream does
	// not persist it.
	Trace []string `json:"-"`
}

// Package web provides HTTP request and response types for the question API.
package web

import "github.com/hybriq/hybriq/pkg/models"

// AskQuestionRequest represents the request body for answering a question.
type AskQuestionRequest struct {
	ID         string `json:"id,omitempty"`
	Question   string `json:"question"              validate:"required,min=3"`
	FormatHint string `json:"format_hint,omitempty" validate:"omitempty"`
}

// AnswerResponse is the answer payload plus the per-step trace, which the
// batch output format omits.
type AnswerResponse struct {
	models.Result

	Trace []string `json:"trace"`
}

// Package web provides the HTTP surface for answering questions.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/hybriq/hybriq/pkg/models"
)

// Answerer answers one question. *workflow.Orchestrator satisfies it.
type Answerer interface {
	Run(ctx context.Context, question models.Question) (*models.Result, error)
}

// CorpusInfo reports retrieval corpus health for the health endpoint.
type CorpusInfo interface {
	Size() int
	VocabularySize() int
}

type APIHandlers struct {
	answerer  Answerer
	corpus    CorpusInfo
	validator *validator.Validate
	logger    *slog.Logger
}

func NewAPIHandlers(answerer Answerer, corpus CorpusInfo, validator *validator.Validate, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		answerer:  answerer,
		corpus:    corpus,
		validator: validator,
		logger:    logger.With("module", "web"),
	}
}

// AskQuestion runs one question through the full pipeline and returns the
// answer with its trace.
func (h *APIHandlers) AskQuestion(c fiber.Ctx) error {
	var req AskQuestionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	question := models.Question{
		ID:         req.ID,
		Text:       req.Question,
		FormatHint: models.FormatHint(req.FormatHint),
	}
	if question.ID == "" {
		question.ID = uuid.New().String()
	}

	if question.FormatHint == "" {
		question.FormatHint = models.FormatStr
	}

	result, err := h.answerer.Run(c.Context(), question)
	if err != nil {
		h.logger.Error("Failed to answer question", "question_id", question.ID, "error", err)

		return handleWorkflowError(c, err)
	}

	return c.JSON(AnswerResponse{Result: *result, Trace: result.Trace})
}

// HealthCheck reports whether the retrieval corpus is loaded. An empty
// corpus still answers sql questions, so it degrades rather than fails.
func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	size := h.corpus.Size()

	status := "healthy"
	httpStatus := http.StatusOK

	if size == 0 {
		status = "degraded"
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checkers": fiber.Map{
			"corpus": fiber.Map{
				"documents":  size,
				"vocabulary": h.corpus.VocabularySize(),
			},
		},
		"timestamp": time.Now().UTC(),
	})
}

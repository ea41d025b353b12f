package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hybriq/hybriq/pkg/models"
	"github.com/hybriq/hybriq/pkg/web"
	"github.com/hybriq/hybriq/pkg/workflow"
)

type stubAnswerer struct {
	result   *models.Result
	err      error
	lastSeen models.Question
}

func (s *stubAnswerer) Run(_ context.Context, question models.Question) (*models.Result, error) {
	s.lastSeen = question

	if s.err != nil {
		return nil, s.err
	}

	return s.result, nil
}

type stubCorpus struct {
	size  int
	vocab int
}

func (s *stubCorpus) Size() int           { return s.size }
func (s *stubCorpus) VocabularySize() int { return s.vocab }

func setupTestApp(t *testing.T, answerer *stubAnswerer, corpus *stubCorpus) *fiber.App {
	t.Helper()

	handlers := web.NewAPIHandlers(answerer, corpus, validator.New(validator.WithRequiredStructEnabled()), slog.Default())
	app := fiber.New()

	app.Post("/questions", handlers.AskQuestion)
	app.Get("/healthz", handlers.HealthCheck)

	return app
}

func TestAskQuestion(t *testing.T) {
	t.Parallel()

	answerer := &stubAnswerer{
		result: &models.Result{
			ID:          "q1",
			FinalAnswer: int64(91),
			SQL:         "SELECT COUNT(*) FROM Customers",
			Confidence:  0.98,
			Explanation: "Counted all customers.",
			Citations:   []string{"Customers"},
			Trace:       []string{"Routing question: how many customers?"},
		},
	}
	app := setupTestApp(t, answerer, &stubCorpus{size: 3, vocab: 120})

	body, err := json.Marshal(map[string]string{
		"id":          "q1",
		"question":    "How many customers are there?",
		"format_hint": "int",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/questions", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var answer map[string]any

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &answer))

	assert.Equal(t, "q1", answer["id"])
	assert.InDelta(t, 91, answer["final_answer"].(float64), 0.001)
	assert.InDelta(t, 0.98, answer["confidence"].(float64), 0.001)
	assert.Equal(t, []any{"Customers"}, answer["citations"])
	assert.Len(t, answer["trace"], 1, "API responses expose the trace")

	assert.Equal(t, models.FormatInt, answerer.lastSeen.FormatHint)
}

func TestAskQuestionDefaults(t *testing.T) {
	t.Parallel()

	answerer := &stubAnswerer{result: &models.Result{ID: "generated"}}
	app := setupTestApp(t, answerer, &stubCorpus{})

	body, err := json.Marshal(map[string]string{"question": "Describe shipping policy."})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/questions", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.NotEmpty(t, answerer.lastSeen.ID, "missing id gets generated")
	assert.Equal(t, models.FormatStr, answerer.lastSeen.FormatHint)
}

func TestAskQuestionValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "empty body", body: `{}`},
		{name: "question too short", body: `{"question": "a"}`},
		{name: "malformed json", body: `{"question": `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app := setupTestApp(t, &stubAnswerer{result: &models.Result{}}, &stubCorpus{})

			req := httptest.NewRequest(http.MethodPost, "/questions", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestAskQuestionCompletionUnavailable(t *testing.T) {
	t.Parallel()

	answerer := &stubAnswerer{
		err: &workflow.Error{
			Step:       workflow.StepRoute,
			QuestionID: "q1",
			Err:        workflow.ErrCompletionUnavailable,
		},
	}
	app := setupTestApp(t, answerer, &stubCorpus{})

	body := `{"id": "q1", "question": "How many orders shipped?"}`
	req := httptest.NewRequest(http.MethodPost, "/questions", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "completion_unavailable")
}

func TestAskQuestionInternalError(t *testing.T) {
	t.Parallel()

	answerer := &stubAnswerer{err: errors.New("unexpected")}
	app := setupTestApp(t, answerer, &stubCorpus{})

	body := `{"id": "q1", "question": "How many orders shipped?"}`
	req := httptest.NewRequest(http.MethodPost, "/questions", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t, &stubAnswerer{result: &models.Result{}}, &stubCorpus{size: 3, vocab: 250})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]any

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &health))

	assert.Equal(t, "healthy", health["status"])
}

func TestHealthCheckEmptyCorpus(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t, &stubAnswerer{result: &models.Result{}}, &stubCorpus{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "degraded")
}

package batch

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hybriq/hybriq/pkg/eventbus"
	"github.com/hybriq/hybriq/pkg/events"
	"github.com/hybriq/hybriq/pkg/models"
)

func writeInput(t *testing.T, lines string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "questions.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(lines), 0o644))

	return path
}

func TestReadQuestions(t *testing.T) {
	path := writeInput(t, `{"id": "q1", "question": "How many orders?", "format_hint": "int"}

{"id": "q2", "question": "Describe shipping."}
`)

	records, err := ReadQuestions(path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.NoError(t, records[0].Err)
	assert.Equal(t, "q1", records[0].Question.ID)
	assert.Equal(t, models.FormatInt, records[0].Question.FormatHint)

	require.NoError(t, records[1].Err)
	assert.Equal(t, models.FormatStr, records[1].Question.FormatHint, "missing hint defaults to free text")
}

func TestReadQuestionsInvalidLines(t *testing.T) {
	path := writeInput(t, `{"id": "q1", "question": "ok"}
{"id": "q2"}
not json at all
{"question": "no id"}
`)

	records, err := ReadQuestions(path)
	require.NoError(t, err)
	require.Len(t, records, 4)

	require.NoError(t, records[0].Err)

	require.Error(t, records[1].Err)
	assert.Equal(t, "q2", records[1].Question.ID, "id survives validation failure")

	require.Error(t, records[2].Err)
	assert.Equal(t, "line-3", records[2].Question.ID, "unsalvageable id falls back to line number")

	require.Error(t, records[3].Err)
	assert.Equal(t, "line-4", records[3].Question.ID)
}

func TestReadQuestionsMissingFile(t *testing.T) {
	_, err := ReadQuestions(filepath.Join(t.TempDir(), "absent.jsonl"))
	require.Error(t, err)
}

func TestResultWriterAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.jsonl")

	writer, err := NewResultWriter(path)
	require.NoError(t, err)
	require.NoError(t, writer.Write(&models.Result{ID: "q1", FinalAnswer: int64(42)}))
	require.NoError(t, writer.Close())

	// Reopening appends, it never truncates earlier results.
	writer, err = NewResultWriter(path)
	require.NoError(t, err)
	require.NoError(t, writer.Write(&models.Result{ID: "q2", FinalAnswer: "ok"}))
	require.NoError(t, writer.Close())

	results := readResults(t, path)
	require.Len(t, results, 2)
	assert.Equal(t, "q1", results[0].ID)
	assert.Equal(t, "q2", results[1].ID)
}

type stubAnswerer struct {
	results map[string]*models.Result
	errs    map[string]error
	calls   []string
}

func (s *stubAnswerer) Run(_ context.Context, question models.Question) (*models.Result, error) {
	s.calls = append(s.calls, question.ID)

	if err, ok := s.errs[question.ID]; ok {
		return nil, err
	}

	return s.results[question.ID], nil
}

type capturePublisher struct {
	published []eventbus.Event
}

func (c *capturePublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	c.published = append(c.published, event)
	return nil
}

func readResults(t *testing.T, path string) []models.Result {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	results := []models.Result{}

	for _, line := range splitLines(data) {
		var result models.Result
		require.NoError(t, json.Unmarshal(line, &result))

		results = append(results, result)
	}

	return results
}

func splitLines(data []byte) [][]byte {
	lines := [][]byte{}
	start := 0

	for i, b := range data {
		if b == '\n' {
			if i > start {
				lines = append(lines, data[start:i])
			}

			start = i + 1
		}
	}

	return lines
}

func TestRunnerIsolatesFailures(t *testing.T) {
	answerer := &stubAnswerer{
		results: map[string]*models.Result{
			"q1": {ID: "q1", FinalAnswer: int64(91), Confidence: 0.98, Citations: []string{"Orders"}},
			"q3": {ID: "q3", FinalAnswer: "fine", Confidence: 0.8, Citations: []string{}},
		},
		errs: map[string]error{"q2": errors.New("completion backend unreachable")},
	}

	path := filepath.Join(t.TempDir(), "results.jsonl")
	writer, err := NewResultWriter(path)
	require.NoError(t, err)

	defer writer.Close()

	bus := &capturePublisher{}
	runner := NewRunner(answerer, writer, bus, slog.New(slog.NewTextHandler(os.Stderr, nil)))

	records := []Record{
		{Question: models.Question{ID: "q1", Text: "a"}},
		{Question: models.Question{ID: "q2", Text: "b"}},
		{Question: models.Question{ID: "q3", Text: "c"}},
	}

	summary, err := runner.Run(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Answered)
	assert.Equal(t, 1, summary.Failed)
	assert.False(t, summary.Interrupted)
	assert.Equal(t, []string{"q1", "q2", "q3"}, answerer.calls, "failure never stops the run")

	results := readResults(t, path)
	require.Len(t, results, 3)

	assert.Equal(t, "q2", results[1].ID)
	assert.Nil(t, results[1].FinalAnswer)
	assert.Equal(t, 0.0, results[1].Confidence)
	assert.Equal(t, "Error: completion backend unreachable", results[1].Explanation)
	assert.Empty(t, results[1].Citations)

	// run.started, 2x question.answered, question.failed, run.finished.
	require.Len(t, bus.published, 5)
	assert.Equal(t, events.RunStartedEvent, bus.published[0].GetType())
	assert.Equal(t, events.QuestionAnsweredEvent, bus.published[1].GetType())
	assert.Equal(t, events.QuestionFailedEvent, bus.published[2].GetType())
	assert.Equal(t, events.RunFinishedEvent, bus.published[4].GetType())
}

func TestRunnerWritesInvalidRecordsAsErrors(t *testing.T) {
	answerer := &stubAnswerer{results: map[string]*models.Result{}}

	path := filepath.Join(t.TempDir(), "results.jsonl")
	writer, err := NewResultWriter(path)
	require.NoError(t, err)

	defer writer.Close()

	runner := NewRunner(answerer, writer, nil, slog.New(slog.NewTextHandler(os.Stderr, nil)))

	records := []Record{
		{Question: models.Question{ID: "q9"}, Err: errors.New("line 1 failed validation: question is required")},
	}

	summary, err := runner.Run(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Empty(t, answerer.calls, "invalid records never reach the orchestrator")

	results := readResults(t, path)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Explanation, "failed validation")
}

func TestRunnerStopsOnCancelledContext(t *testing.T) {
	answerer := &stubAnswerer{
		results: map[string]*models.Result{
			"q1": {ID: "q1", FinalAnswer: "a", Confidence: 0.5},
		},
	}

	path := filepath.Join(t.TempDir(), "results.jsonl")
	writer, err := NewResultWriter(path)
	require.NoError(t, err)

	defer writer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := NewRunner(answerer, writer, nil, slog.New(slog.NewTextHandler(os.Stderr, nil)))

	summary, err := runner.Run(ctx, []Record{{Question: models.Question{ID: "q1"}}})
	require.NoError(t, err)

	assert.True(t, summary.Interrupted)
	assert.Equal(t, 0, summary.Answered)
	assert.Empty(t, answerer.calls)
	assert.Empty(t, readResults(t, path))
}

// cancelDuringAnswer cancels the run context while a question is in
// flight, the way a signal would, and records whether the question's own
// context was cancelled along with it.
type cancelDuringAnswer struct {
	cancel    context.CancelFunc
	sawCancel bool
	calls     []string
}

func (c *cancelDuringAnswer) Run(ctx context.Context, question models.Question) (*models.Result, error) {
	c.calls = append(c.calls, question.ID)
	c.cancel()
	c.sawCancel = ctx.Err() != nil

	return &models.Result{ID: question.ID, FinalAnswer: "done", Confidence: 0.5, Citations: []string{}}, nil
}

func TestRunnerFinishesInFlightQuestionOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	answerer := &cancelDuringAnswer{cancel: cancel}

	path := filepath.Join(t.TempDir(), "results.jsonl")
	writer, err := NewResultWriter(path)
	require.NoError(t, err)

	defer writer.Close()

	runner := NewRunner(answerer, writer, nil, slog.New(slog.NewTextHandler(os.Stderr, nil)))

	summary, err := runner.Run(ctx, []Record{
		{Question: models.Question{ID: "q1"}},
		{Question: models.Question{ID: "q2"}},
	})
	require.NoError(t, err)

	assert.True(t, summary.Interrupted)
	assert.Equal(t, 1, summary.Answered)
	assert.Equal(t, []string{"q1"}, answerer.calls, "run stops before the next question")
	assert.False(t, answerer.sawCancel, "in-flight question keeps running after interruption")

	results := readResults(t, path)
	require.Len(t, results, 1)
	assert.Equal(t, "q1", results[0].ID)
}

func TestRunnerRecoversFromPanic(t *testing.T) {
	answerer := &panicAnswerer{}

	path := filepath.Join(t.TempDir(), "results.jsonl")
	writer, err := NewResultWriter(path)
	require.NoError(t, err)

	defer writer.Close()

	runner := NewRunner(answerer, writer, nil, slog.New(slog.NewTextHandler(os.Stderr, nil)))

	summary, err := runner.Run(context.Background(), []Record{{Question: models.Question{ID: "q1"}}})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)

	results := readResults(t, path)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Explanation, "panic")
}

type panicAnswerer struct{}

func (p *panicAnswerer) Run(context.Context, models.Question) (*models.Result, error) {
	panic("boom")
}

package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hybriq/hybriq/pkg/models"
)

// ErrUnavailable indicates the completion backend could not be reached at
// all, as opposed to reachable but failing a request.
var ErrUnavailable = errors.New("completion service unavailable")

// Defaults for the Ollama-backed client.
const (
	DefaultBaseURL     = "http://localhost:11434"
	DefaultModel       = "phi3.5:3.8b-mini-instruct-q4_K_M"
	DefaultMaxTokens   = 300
	DefaultTemperature = 0.0
	DefaultTimeout     = 120 * time.Second
)

// OllamaConfig configures an OllamaClient. Passed explicitly so multiple
// orchestrator instances cannot interfere through ambient process state.
type OllamaConfig struct {
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// withDefaults fills unset fields.
func (c OllamaConfig) withDefaults() OllamaConfig {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}

	if c.Model == "" {
		c.Model = DefaultModel
	}

	if c.MaxTokens == 0 {
		c.MaxTokens = DefaultMaxTokens
	}

	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}

	return c
}

// OllamaClient implements the completion ports against a local Ollama
// server's /api/generate endpoint.
type OllamaClient struct {
	config OllamaConfig
	client *http.Client
	logger *slog.Logger
}

// NewOllamaClient creates a completion client for the given configuration.
func NewOllamaClient(config OllamaConfig, logger *slog.Logger) *OllamaClient {
	config = config.withDefaults()

	return &OllamaClient{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger.With("module", "completion", "model", config.Model),
	}
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// generate performs one blocking completion call.
func (c *OllamaClient) generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Model:  c.config.Model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: c.config.Temperature,
			NumPredict:  c.config.MaxTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build completion request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)

		return "", fmt.Errorf("completion service returned status %d: %s", resp.StatusCode, string(body))
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}

	return strings.TrimSpace(decoded.Response), nil
}

// Route classifies the question into rag, sql or hybrid. The raw label is
// returned untouched; the workflow normalizes it.
func (c *OllamaClient) Route(ctx context.Context, question string) (string, error) {
	prompt := fmt.Sprintf(`Classify the question into rag, sql, or hybrid based on what information is needed to answer it.
Use "sql" for questions answered from database tables alone, "rag" for questions answered from policy and reference documents alone, and "hybrid" when both are needed.

Question: %s

Route (one of: rag, sql, hybrid):`, question)

	return c.generate(ctx, prompt)
}

// GenerateSQL produces a SQL query from the question, schema and optional
// document context. Code fences and a leading sql tag are stripped.
func (c *OllamaClient) GenerateSQL(ctx context.Context, question, schema, docContext string) (string, error) {
	prompt := fmt.Sprintf(`Generate a valid SQL query that answers the question using the schema below. Return only the SQL.

Question: %s

Schema:
%s

Context from documents:
%s

SQL:`, question, schema, docContext)

	sql, err := c.generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	return StripSQLFence(sql), nil
}

// RepairSQL asks the model to fix a failing query given its error message.
func (c *OllamaClient) RepairSQL(ctx context.Context, failingSQL, errorText, schema string) (string, error) {
	prompt := fmt.Sprintf(`The SQL query below failed. Fix it so it runs against the schema. Return only the corrected SQL.

Failing SQL:
%s

Error:
%s

Schema:
%s

Corrected SQL:`, failingSQL, errorText, schema)

	sql, err := c.generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	return StripSQLFence(sql), nil
}

// Synthesize produces the final answer and explanation. The model is asked
// for labelled sections; a response without labels becomes the answer with
// an empty explanation.
func (c *OllamaClient) Synthesize(ctx context.Context, question string, hint models.FormatHint, docContext, sqlResults string) (Synthesis, error) {
	prompt := fmt.Sprintf(`Answer the question using the document context and SQL results below.
The answer must match the expected format: %s

Question: %s

Document context:
%s

SQL results:
%s

Respond exactly as:
Answer: <answer>
Explanation: <one or two sentences>`, hint, question, docContext, sqlResults)

	raw, err := c.generate(ctx, prompt)
	if err != nil {
		return Synthesis{}, err
	}

	return parseSynthesis(raw), nil
}

// parseSynthesis splits labelled Answer/Explanation sections out of the
// model response.
func parseSynthesis(raw string) Synthesis {
	answer := raw
	explanation := ""

	if idx := strings.Index(raw, "Explanation:"); idx >= 0 {
		answer = raw[:idx]
		explanation = strings.TrimSpace(raw[idx+len("Explanation:"):])
	}

	answer = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(answer), "Answer:"))

	return Synthesis{
		Answer:      strings.TrimSpace(answer),
		Explanation: explanation,
	}
}

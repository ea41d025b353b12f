package completion

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/hybriq/hybriq/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeOllama returns a server that answers every /api/generate call with
// the given response text and records the last prompt.
func fakeOllama(t *testing.T, response string, lastPrompt *string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.False(t, req.Stream)

		if lastPrompt != nil {
			*lastPrompt = req.Prompt
		}

		_ = json.NewEncoder(w).Encode(generateResponse{Response: response})
	}))
}

func TestOllamaClient_Route(t *testing.T) {
	var prompt string

	server := fakeOllama(t, "hybrid", &prompt)
	defer server.Close()

	client := NewOllamaClient(OllamaConfig{BaseURL: server.URL}, testLogger())

	label, err := client.Route(context.Background(), "Which category had the highest revenue?")
	require.NoError(t, err)

	assert.Equal(t, "hybrid", label)
	assert.Contains(t, prompt, "Which category had the highest revenue?")
}

func TestOllamaClient_GenerateSQLStripsFence(t *testing.T) {
	server := fakeOllama(t, "```sql\nSELECT COUNT(*) FROM Orders\n```", nil)
	defer server.Close()

	client := NewOllamaClient(OllamaConfig{BaseURL: server.URL}, testLogger())

	sql, err := client.GenerateSQL(context.Background(), "How many orders?", "Orders(OrderID)", "")
	require.NoError(t, err)

	assert.Equal(t, "SELECT COUNT(*) FROM Orders", sql)
}

func TestOllamaClient_SynthesizeParsesSections(t *testing.T) {
	server := fakeOllama(t, "Answer: 42\nExplanation: Counted the orders table.", nil)
	defer server.Close()

	client := NewOllamaClient(OllamaConfig{BaseURL: server.URL}, testLogger())

	synthesis, err := client.Synthesize(context.Background(), "How many orders?", models.FormatInt, "", "[]")
	require.NoError(t, err)

	assert.Equal(t, "42", synthesis.Answer)
	assert.Equal(t, "Counted the orders table.", synthesis.Explanation)
}

func TestOllamaClient_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewOllamaClient(OllamaConfig{BaseURL: server.URL}, testLogger())

	_, err := client.Route(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestOllamaClient_UnreachableServer(t *testing.T) {
	// grab a URL nothing listens on anymore
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	client := NewOllamaClient(OllamaConfig{BaseURL: server.URL}, testLogger())

	_, err := client.Route(context.Background(), "anything")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestParseSynthesis_WithoutLabels(t *testing.T) {
	synthesis := parseSynthesis("Beverages had the highest revenue.")

	assert.Equal(t, "Beverages had the highest revenue.", synthesis.Answer)
	assert.Equal(t, "", synthesis.Explanation)
}

func TestStripSQLFence(t *testing.T) {
	assert.Equal(t, "SELECT 1", StripSQLFence("SELECT 1"))
	assert.Equal(t, "SELECT 1", StripSQLFence("```sql\nSELECT 1\n```"))
	assert.Equal(t, "SELECT 1", StripSQLFence("```\nSELECT 1\n```"))
	assert.Equal(t, "SELECT 1", StripSQLFence("Here you go:\n```sql\nSELECT 1\n```"))
	assert.Equal(t, "", StripSQLFence(""))
}

func TestCacheKey_StableAndDistinct(t *testing.T) {
	a := cacheKey("route", "question one")
	b := cacheKey("route", "question one")
	c := cacheKey("route", "question two")
	d := cacheKey("generate_sql", "question one")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)

	// input boundaries must matter: ("ab","c") != ("a","bc")
	assert.NotEqual(t, cacheKey("p", "ab", "c"), cacheKey("p", "a", "bc"))
}

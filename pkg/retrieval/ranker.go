// Package retrieval provides corpus loading and lexical top-k search for
// document chunks.
package retrieval

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/hybriq/hybriq/pkg/models"
)

// DefaultTopK is the fixed number of chunks retrieved per question.
const DefaultTopK = 3

// Ranker indexes a markdown corpus and answers top-k lexical similarity
// queries against it. The index is rebuilt only by Reload; searches share
// it under a read lock.
type Ranker struct {
	mu       sync.RWMutex
	docsPath string
	chunks   []models.Chunk
	vectors  [][]float64
	space    *vectorSpace
	logger   *slog.Logger
}

// NewRanker loads every *.md document under docsPath, splits each into
// paragraph chunks and fits a TF-IDF vector space over the full corpus.
// An empty or missing corpus is not an error; searches simply return
// nothing.
func NewRanker(docsPath string, logger *slog.Logger) (*Ranker, error) {
	r := &Ranker{
		docsPath: docsPath,
		logger:   logger.With("module", "retrieval"),
	}

	if err := r.Reload(); err != nil {
		return nil, err
	}

	return r, nil
}

// Reload re-reads the corpus and swaps in a freshly fitted index. Searches
// in flight keep the old index until the swap.
func (r *Ranker) Reload() error {
	chunks, err := loadCorpus(r.docsPath)
	if err != nil {
		return fmt.Errorf("failed to load corpus from %s: %w", r.docsPath, err)
	}

	var (
		space   *vectorSpace
		vectors [][]float64
	)

	if len(chunks) > 0 {
		contents := make([]string, len(chunks))
		for i, c := range chunks {
			contents[i] = c.Content
		}

		space = fitVectorSpace(contents)
		vectors = make([][]float64, len(contents))

		for i, content := range contents {
			vectors[i] = space.vectorize(content)
		}
	}

	r.mu.Lock()
	r.chunks = chunks
	r.space = space
	r.vectors = vectors
	r.mu.Unlock()

	r.logger.Info("Corpus indexed", "path", r.docsPath, "chunks", len(chunks), "terms", r.VocabularySize())

	return nil
}

// Search returns the k chunks most similar to the query, most relevant
// first, each annotated with its cosine similarity score. Ties are broken
// by the chunk's original load order. An empty corpus yields an empty
// slice.
func (r *Ranker) Search(query string, k int) []models.ScoredChunk {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.chunks) == 0 || k <= 0 {
		return []models.ScoredChunk{}
	}

	queryVec := r.space.vectorize(query)

	scored := make([]models.ScoredChunk, len(r.chunks))
	for i, chunk := range r.chunks {
		scored[i] = models.ScoredChunk{
			Chunk: chunk,
			Score: dot(queryVec, r.vectors[i]),
		}
	}

	// Stable sort keeps load order for equal scores.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k > len(scored) {
		k = len(scored)
	}

	return scored[:k]
}

// ChunkByID returns the content of the chunk with the given stable
// identifier, or the empty string when no such chunk exists.
func (r *Ranker) ChunkByID(id string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, chunk := range r.chunks {
		if chunk.ID == id {
			return chunk.Content
		}
	}

	return ""
}

// Size returns the number of indexed chunks.
func (r *Ranker) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.chunks)
}

// VocabularySize returns the number of terms in the fitted vector space.
func (r *Ranker) VocabularySize() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.space == nil {
		return 0
	}

	return len(r.space.terms)
}

// loadCorpus reads every markdown document under docsPath in sorted
// filename order and splits each on blank-line boundaries into non-empty
// paragraph chunks with stable identifiers.
func loadCorpus(docsPath string) ([]models.Chunk, error) {
	entries, err := os.ReadDir(docsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.Chunk{}, nil
		}

		return nil, err
	}

	names := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}

		names = append(names, entry.Name())
	}

	sort.Strings(names)

	chunks := []models.Chunk{}

	for _, name := range names {
		content, err := os.ReadFile(filepath.Join(docsPath, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read document %s: %w", name, err)
		}

		source := strings.TrimSuffix(name, ".md")

		for i, para := range splitParagraphs(string(content)) {
			chunks = append(chunks, models.Chunk{
				ID:      models.ChunkID(source, i),
				Content: para,
				Source:  source,
			})
		}
	}

	return chunks, nil
}

// splitParagraphs breaks document text on blank-line boundaries, dropping
// empty units.
func splitParagraphs(content string) []string {
	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	paragraphs := []string{}

	for _, block := range strings.Split(normalized, "\n\n") {
		block = strings.TrimSpace(block)
		if block != "" {
			paragraphs = append(paragraphs, block)
		}
	}

	return paragraphs
}

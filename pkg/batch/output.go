package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/hybriq/hybriq/pkg/models"
)

// ResultWriter appends results to a JSONL file, one line per question,
// syncing after every write so an interrupted run keeps everything
// answered so far.
type ResultWriter struct {
	mu   sync.Mutex
	file *os.File
}

// NewResultWriter opens the output file for appending, creating it when
// missing. Appending (rather than truncating) lets a rerun continue after
// a crash without losing earlier results.
func NewResultWriter(path string) (*ResultWriter, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open batch output %s: %w", path, err)
	}

	return &ResultWriter{file: file}, nil
}

// Write appends one result line and flushes it to disk.
func (w *ResultWriter) Write(result *models.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result for %s: %w", result.ID, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write result for %s: %w", result.ID, err)
	}

	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync batch output: %w", err)
	}

	return nil
}

// Close closes the underlying file.
func (w *ResultWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.file.Close()
}

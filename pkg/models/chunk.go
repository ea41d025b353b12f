package models

import "fmt"

// Chunk is a paragraph-sized unit of indexed document text. Chunks are
// created once at corpus load and are read-only thereafter.
type Chunk struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Source  string `json:"source"`
}

// ChunkID builds the stable identifier for a chunk: the source document
// name plus the chunk's ordinal within that document. Deterministic for a
// given corpus snapshot.
func ChunkID(source string, ordinal int) string {
	return fmt.Sprintf("%s::chunk%d", source, ordinal)
}

// ScoredChunk annotates a chunk with its similarity score against a query.
type ScoredChunk struct {
	Chunk

	Score float64 `json:"score"`
}

// Package models defines core data structures for chunks, charts, and dashboard layouts.
package models

import "time"

// Metadata keys stamped on every ingested chunk.
const (
	MetaFileName    = "file_name"
	MetaFileType    = "file_type"
	MetaIsQuotation = "is_quotation"
	MetaSourcePath  = "source_path"
	MetaChunkIndex  = "chunk_index"
	MetaTotalChunks = "total_chunks"
)

// Chunk is a bounded, self-describing unit of ingested text with its embedding.
// Chunks are never mutated in place: re-ingesting a source deletes its old
// chunks and inserts fresh ones, so a chunk's identity is fixed at creation to
// (project, source path, ordinal position).
type Chunk struct {
	ID        string                 `json:"id"`
	ProjectID int64                  `json:"project_id"`
	Content   string                 `json:"content"`
	Embedding []float32              `json:"-"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// ScoredChunk is a chunk returned by hybrid search with its combined score.
type ScoredChunk struct {
	Chunk      *Chunk  `json:"chunk"`
	Score      float64 `json:"score"`
	Similarity float64 `json:"similarity"`
	Lexical    float64 `json:"lexical"`
}

// SourcePath returns the metadata source_path, or "" when absent.
func (c *Chunk) SourcePath() string {
	if c.Metadata == nil {
		return ""
	}
	if p, ok := c.Metadata[MetaSourcePath].(string); ok {
		return p
	}
	return ""
}

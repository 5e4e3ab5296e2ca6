// Package docstore persists chunks with their embeddings and metadata and
// exposes hybrid (semantic + lexical) search over them.
package docstore

import (
	"context"

	"github.com/ajadindian/greenfinanceplatform/internal/models"
)

// Store is the document store contract the ingestion and retrieval layers
// depend on.
type Store interface {
	// Upsert persists one chunk. The embedding dimension must match the
	// store's configured dimension.
	Upsert(ctx context.Context, chunk *models.Chunk) error
	// DeleteBySource removes every chunk of the project whose metadata
	// source_path equals sourcePath. Returns true when anything was removed.
	// Callers re-ingesting a file must delete before inserting so stale
	// chunks never coexist with fresh ones.
	DeleteBySource(ctx context.Context, projectID int64, sourcePath string) (bool, error)
	// DeleteProject removes all chunks of a project.
	DeleteProject(ctx context.Context, projectID int64) error
	// HybridSearch ranks the project's chunks by combined cosine similarity
	// and lexical relevance, deduplicated by content, bounded by k.
	HybridSearch(ctx context.Context, projectID int64, queryText string, queryEmbedding []float32, k int) ([]*models.ScoredChunk, error)
	// CountChunks returns the number of stored chunks for a project.
	CountChunks(ctx context.Context, projectID int64) (int64, error)
	Close() error
}

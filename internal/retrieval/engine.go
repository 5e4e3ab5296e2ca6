// Package retrieval orchestrates query embedding, hybrid search, and context
// assembly for downstream generation.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ajadindian/greenfinanceplatform/internal/docstore"
	"github.com/ajadindian/greenfinanceplatform/internal/embedding"
	"github.com/ajadindian/greenfinanceplatform/internal/models"
)

// Engine retrieves grounding context for a project query.
type Engine struct {
	store         docstore.Store
	embedder      embedding.Embedder
	maxResults    int
	contextWindow int
	logger        *zap.Logger
}

// Result is the assembled retrieval output: the flattened context block and
// the chunks it was built from.
type Result struct {
	Context             string                `json:"context"`
	Chunks              []*models.ScoredChunk `json:"chunks"`
	EnhancedWithHistory bool                  `json:"enhanced_with_history"`
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a retrieval engine. maxResults bounds hybrid search hits;
// contextWindow bounds how many trailing conversation turns are blended in.
func NewEngine(store docstore.Store, embedder embedding.Embedder, maxResults, contextWindow int, opts ...EngineOption) *Engine {
	e := &Engine{
		store:         store,
		embedder:      embedder,
		maxResults:    maxResults,
		contextWindow: contextWindow,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Retrieve embeds the query, runs hybrid search with the configured result
// bound, and blends in the trailing conversation turns.
func (e *Engine) Retrieve(ctx context.Context, projectID int64, query string, history []models.Message) (*Result, error) {
	return e.retrieve(ctx, projectID, query, history, e.maxResults)
}

// RetrieveBroad is Retrieve with a caller-chosen result bound and no
// conversation blending; chart synchronization uses it to pull a wide slice
// of project context.
func (e *Engine) RetrieveBroad(ctx context.Context, projectID int64, query string, k int) (*Result, error) {
	return e.retrieve(ctx, projectID, query, nil, k)
}

func (e *Engine) retrieve(ctx context.Context, projectID int64, query string, history []models.Message, k int) (*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	queryEmbedding, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	chunks, err := e.store.HybridSearch(ctx, projectID, query, queryEmbedding, k)
	if err != nil {
		return nil, fmt.Errorf("hybrid search failed: %w", err)
	}

	window := history
	if len(window) > e.contextWindow {
		window = window[len(window)-e.contextWindow:]
	}
	if e.logger != nil {
		e.logger.Debug("retrieval complete",
			zap.Int64("project_id", projectID),
			zap.Int("chunks", len(chunks)),
			zap.Int("history_turns", len(window)),
		)
	}
	return &Result{
		Context:             formatContext(chunks, window),
		Chunks:              chunks,
		EnhancedWithHistory: len(window) > 0,
	}, nil
}

// formatContext flattens chunks and recent conversation into a single block.
// Grounding data comes first, dialogue after; chunks are never truncated here.
func formatContext(chunks []*models.ScoredChunk, history []models.Message) string {
	var parts []string
	parts = append(parts, "Relevant Information:")
	for _, sc := range chunks {
		parts = append(parts, "- "+sc.Chunk.Content)
	}
	if len(history) > 0 {
		parts = append(parts, "\nRecent Conversation Context:")
		for _, m := range history {
			role := m.Role
			if role == "" {
				role = "user"
			}
			parts = append(parts, role+": "+m.Content)
		}
	}
	return strings.Join(parts, "\n")
}

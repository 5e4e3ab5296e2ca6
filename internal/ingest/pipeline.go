// Package ingest turns project files into embedded, searchable chunks.
// Ingesting a file replaces its prior chunks before the new ones are written,
// so a file is never represented twice.
package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ajadindian/greenfinanceplatform/internal/chunker"
	"github.com/ajadindian/greenfinanceplatform/internal/docstore"
	"github.com/ajadindian/greenfinanceplatform/internal/embedding"
	"github.com/ajadindian/greenfinanceplatform/internal/extract"
	"github.com/ajadindian/greenfinanceplatform/internal/models"
	"github.com/ajadindian/greenfinanceplatform/internal/sourceid"
)

// SyncTrigger is invoked after a project's searchable content changes.
// Implementations regenerate derived artifacts such as saved charts.
type SyncTrigger func(ctx context.Context, projectID int64)

// Report summarizes one ingestion.
type Report struct {
	SourcePath    string   `json:"source_path"`
	ChunkCount    int      `json:"chunk_count"`
	Replaced      bool     `json:"replaced"`
	SkippedSheets []string `json:"skipped_sheets,omitempty"`
}

// Pipeline coordinates extraction, chunking, embedding, and storage.
type Pipeline struct {
	extractor *extract.Extractor
	chunker   *chunker.Chunker
	embedder  embedding.Embedder
	store     docstore.Store
	onCommit  SyncTrigger
	logger    *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithSyncTrigger registers a callback that fires after every committed
// content change.
func WithSyncTrigger(trigger SyncTrigger) Option {
	return func(p *Pipeline) { p.onCommit = trigger }
}

// NewPipeline creates a pipeline over the given components.
func NewPipeline(extractor *extract.Extractor, ch *chunker.Chunker, embedder embedding.Embedder, store docstore.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor: extractor,
		chunker:   ch,
		embedder:  embedder,
		store:     store,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// IngestFile reads the file at path and indexes it for the project. Tabular
// files are rendered sheet by sheet; everything else is chunked as text.
func (p *Pipeline) IngestFile(ctx context.Context, projectID int64, projectName, path string) (*Report, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if extract.IsTabular(ext) {
		wb, err := p.extractor.ExtractWorkbook(path)
		if err != nil {
			return nil, fmt.Errorf("failed to extract workbook %s: %w", path, err)
		}
		return p.ingestWorkbook(ctx, projectID, projectName, path, ext, wb)
	}
	text, err := p.extractor.ExtractText(path)
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", path, err)
	}
	return p.ingestText(ctx, projectID, path, ext, text)
}

// IngestBytes indexes uploaded file content without touching the filesystem.
// The sourcePath identifies the upload for later replacement and deletion.
func (p *Pipeline) IngestBytes(ctx context.Context, projectID int64, projectName, sourcePath string, content []byte) (*Report, error) {
	ext := strings.ToLower(filepath.Ext(sourcePath))
	if extract.IsTabular(ext) {
		wb, err := p.extractor.ExtractWorkbookBytes(content)
		if err != nil {
			return nil, fmt.Errorf("failed to extract workbook %s: %w", sourcePath, err)
		}
		return p.ingestWorkbook(ctx, projectID, projectName, sourcePath, ext, wb)
	}
	text, err := p.extractor.ExtractTextBytes(content, ext)
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", sourcePath, err)
	}
	return p.ingestText(ctx, projectID, sourcePath, ext, text)
}

// IngestText indexes already-extracted text, for buffered accumulations that
// have no single backing file.
func (p *Pipeline) IngestText(ctx context.Context, projectID int64, sourcePath, text string) (*Report, error) {
	return p.ingestText(ctx, projectID, sourcePath, strings.ToLower(filepath.Ext(sourcePath)), text)
}

// DeleteFile removes every chunk of the given source and fires the sync
// trigger if anything was removed.
func (p *Pipeline) DeleteFile(ctx context.Context, projectID int64, sourcePath string) (bool, error) {
	removed, err := p.store.DeleteBySource(ctx, projectID, filepath.Clean(sourcePath))
	if err != nil {
		return false, fmt.Errorf("failed to delete chunks for %s: %w", sourcePath, err)
	}
	if removed {
		p.logger.Info("removed source from index",
			zap.Int64("project_id", projectID),
			zap.String("source_path", sourcePath))
		p.fireSync(ctx, projectID)
	}
	return removed, nil
}

func (p *Pipeline) ingestWorkbook(ctx context.Context, projectID int64, projectName, sourcePath, ext string, wb *models.Workbook) (*Report, error) {
	kind := sourceKindFor(sourcePath)
	contents := p.chunker.ChunkWorkbook(projectName, kind, wb.Sheets)
	report, err := p.commit(ctx, projectID, sourcePath, ext, kind, contents)
	if err != nil {
		return nil, err
	}
	report.SkippedSheets = wb.SkippedSheets
	return report, nil
}

func (p *Pipeline) ingestText(ctx context.Context, projectID int64, sourcePath, ext, text string) (*Report, error) {
	contents := p.chunker.ChunkText(text)
	return p.commit(ctx, projectID, sourcePath, ext, sourceKindFor(sourcePath), contents)
}

// commit replaces the source's chunks with the given contents. Deletion of
// the prior generation happens before any insert.
func (p *Pipeline) commit(ctx context.Context, projectID int64, sourcePath, ext string, kind models.SourceKind, contents []string) (*Report, error) {
	sourcePath = filepath.Clean(sourcePath)
	replaced, err := p.store.DeleteBySource(ctx, projectID, sourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to replace prior chunks for %s: %w", sourcePath, err)
	}
	report := &Report{SourcePath: sourcePath, Replaced: replaced}
	if len(contents) == 0 {
		p.logger.Warn("no indexable content",
			zap.Int64("project_id", projectID),
			zap.String("source_path", sourcePath))
		if replaced {
			p.fireSync(ctx, projectID)
		}
		return report, nil
	}

	embeddings, err := p.embedder.EmbedBatch(ctx, contents)
	if err != nil {
		return nil, fmt.Errorf("failed to embed %s: %w", sourcePath, err)
	}
	now := time.Now()
	for i, content := range contents {
		chunk := &models.Chunk{
			ID:        sourceid.ChunkID(projectID, sourcePath, i),
			ProjectID: projectID,
			Content:   content,
			Embedding: embeddings[i],
			CreatedAt: now,
			Metadata: map[string]interface{}{
				models.MetaFileName:    filepath.Base(sourcePath),
				models.MetaFileType:    strings.TrimPrefix(ext, "."),
				models.MetaIsQuotation: kind == models.SourceQuotation,
				models.MetaSourcePath:  sourcePath,
				models.MetaChunkIndex:  i,
				models.MetaTotalChunks: len(contents),
			},
		}
		if err := p.store.Upsert(ctx, chunk); err != nil {
			return nil, fmt.Errorf("failed to store chunk %d of %s: %w", i, sourcePath, err)
		}
	}
	report.ChunkCount = len(contents)
	p.logger.Info("ingested source",
		zap.Int64("project_id", projectID),
		zap.String("source_path", sourcePath),
		zap.Int("chunks", len(contents)))
	p.fireSync(ctx, projectID)
	return report, nil
}

func (p *Pipeline) fireSync(ctx context.Context, projectID int64) {
	if p.onCommit != nil {
		p.onCommit(ctx, projectID)
	}
}

// sourceKindFor classifies a file as quotation or actual data by its name.
func sourceKindFor(sourcePath string) models.SourceKind {
	name := strings.ToLower(filepath.Base(sourcePath))
	if strings.Contains(name, "quotation") || strings.Contains(name, "quote") {
		return models.SourceQuotation
	}
	return models.SourceActual
}

package docstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ajadindian/greenfinanceplatform/internal/models"
	"github.com/ajadindian/greenfinanceplatform/internal/vector"
)

// SQLiteStore implements Store over SQLite for chunk rows and Bleve for the
// lexical leg of hybrid search.
type SQLiteStore struct {
	db             *sql.DB
	lexical        *lexicalIndex
	dimensions     int
	semanticWeight float64
	keywordWeight  float64
}

// lexicalCandidates bounds how many Bleve hits feed score fusion per query.
const lexicalCandidates = 1000

// NewSQLiteStore opens or creates the chunk database at dbPath and the Bleve
// index at blevePath. dimensions fixes the embedding dimension for the life
// of the store; upserts with a different dimension fail.
func NewSQLiteStore(dbPath, blevePath string, dimensions int, semanticWeight, keywordWeight float64) (*SQLiteStore, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := initChunkSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	lexical, err := newLexicalIndex(blevePath)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{
		db:             db,
		lexical:        lexical,
		dimensions:     dimensions,
		semanticWeight: semanticWeight,
		keywordWeight:  keywordWeight,
	}, nil
}

func initChunkSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		project_id INTEGER NOT NULL,
		content TEXT NOT NULL,
		embedding BLOB NOT NULL,
		metadata TEXT,
		source_path TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_project ON chunks(project_id);
	CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(project_id, source_path);
	`
	_, err := db.Exec(schema)
	return err
}

// Upsert persists a chunk and indexes its content for lexical search.
func (s *SQLiteStore) Upsert(ctx context.Context, chunk *models.Chunk) error {
	if len(chunk.Embedding) != s.dimensions {
		return fmt.Errorf("embedding dimension mismatch: got %d, expected %d", len(chunk.Embedding), s.dimensions)
	}
	metadataJSON, err := json.Marshal(chunk.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	chunk.CreatedAt = time.Now()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO chunks (id, project_id, content, embedding, metadata, source_path, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			embedding = excluded.embedding,
			metadata = excluded.metadata,
			source_path = excluded.source_path`,
		chunk.ID, chunk.ProjectID, chunk.Content,
		encodeVector(chunk.Embedding), string(metadataJSON), chunk.SourcePath(), chunk.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store chunk: %w", err)
	}
	if err := s.lexical.indexChunk(chunk.ID, chunk.ProjectID, chunk.Content); err != nil {
		return fmt.Errorf("failed to index chunk: %w", err)
	}
	return nil
}

// DeleteBySource removes the project's chunks for one source file.
func (s *SQLiteStore) DeleteBySource(ctx context.Context, projectID int64, sourcePath string) (bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM chunks WHERE project_id = ? AND source_path = ?`,
		projectID, sourcePath,
	)
	if err != nil {
		return false, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return false, err
		}
		ids = append(ids, id)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return false, err
	}
	if len(ids) == 0 {
		return false, nil
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM chunks WHERE project_id = ? AND source_path = ?`,
		projectID, sourcePath,
	); err != nil {
		return false, err
	}
	for _, id := range ids {
		if err := s.lexical.deleteChunk(id); err != nil {
			return true, fmt.Errorf("failed to remove chunk %s from lexical index: %w", id, err)
		}
	}
	return true, nil
}

// DeleteProject removes all chunks of a project.
func (s *SQLiteStore) DeleteProject(ctx context.Context, projectID int64) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM chunks WHERE project_id = ?`, projectID)
	if err != nil {
		return err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE project_id = ?`, projectID); err != nil {
		return err
	}
	for _, id := range ids {
		if err := s.lexical.deleteChunk(id); err != nil {
			return fmt.Errorf("failed to remove chunk %s from lexical index: %w", id, err)
		}
	}
	return nil
}

// HybridSearch scores every chunk of the project as
// semanticWeight*cosine + keywordWeight*lexical, descending, with ties broken
// by insertion order. Rows with byte-identical content are deduplicated,
// keeping the highest-scoring one.
func (s *SQLiteStore) HybridSearch(ctx context.Context, projectID int64, queryText string, queryEmbedding []float32, k int) ([]*models.ScoredChunk, error) {
	if len(queryEmbedding) != s.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(queryEmbedding), s.dimensions)
	}
	if k <= 0 {
		return nil, nil
	}

	lexScores, err := s.lexical.search(projectID, queryText, lexicalCandidates)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, content, embedding, metadata, created_at
		 FROM chunks WHERE project_id = ? ORDER BY seq`,
		projectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scored []*models.ScoredChunk
	for rows.Next() {
		var chunk models.Chunk
		var blob []byte
		var metadataJSON string
		if err := rows.Scan(&chunk.ID, &chunk.ProjectID, &chunk.Content, &blob, &metadataJSON, &chunk.CreatedAt); err != nil {
			return nil, err
		}
		if metadataJSON != "" {
			_ = json.Unmarshal([]byte(metadataJSON), &chunk.Metadata)
		}
		chunk.Embedding = decodeVector(blob)

		sim := vector.CosineSimilarity(queryEmbedding, chunk.Embedding)
		lex := lexScores[chunk.ID]
		scored = append(scored, &models.ScoredChunk{
			Chunk:      &chunk,
			Score:      s.semanticWeight*sim + s.keywordWeight*lex,
			Similarity: sim,
			Lexical:    lex,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Stable sort over insertion order gives the deterministic tie-break.
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	seen := make(map[string]bool, len(scored))
	out := make([]*models.ScoredChunk, 0, k)
	for _, sc := range scored {
		if seen[sc.Chunk.Content] {
			continue
		}
		seen[sc.Chunk.Content] = true
		out = append(out, sc)
		if len(out) == k {
			break
		}
	}
	return out, nil
}

// CountChunks returns the number of stored chunks for a project.
func (s *SQLiteStore) CountChunks(ctx context.Context, projectID int64) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE project_id = ?`, projectID).Scan(&count)
	return count, err
}

// Close closes the database and the lexical index.
func (s *SQLiteStore) Close() error {
	if err := s.lexical.close(); err != nil {
		_ = s.db.Close()
		return err
	}
	return s.db.Close()
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}

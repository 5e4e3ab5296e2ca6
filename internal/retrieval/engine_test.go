package retrieval

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ajadindian/greenfinanceplatform/internal/docstore"
	"github.com/ajadindian/greenfinanceplatform/internal/embedding"
	"github.com/ajadindian/greenfinanceplatform/internal/models"
)

const testDims = 8

func newTestEngine(t *testing.T) (*Engine, docstore.Store) {
	t.Helper()
	dir := t.TempDir()
	store, err := docstore.NewSQLiteStore(filepath.Join(dir, "chunks.db"), filepath.Join(dir, "bleve"), testDims, 0.7, 0.3)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	embedder := embedding.NewMockEmbedder(testDims)
	return NewEngine(store, embedder, 5, 2), store
}

func seedChunk(t *testing.T, store docstore.Store, projectID int64, id, content string) {
	t.Helper()
	emb, err := embedding.NewMockEmbedder(testDims).Embed(context.Background(), content)
	if err != nil {
		t.Fatal(err)
	}
	err = store.Upsert(context.Background(), &models.Chunk{
		ID:        id,
		ProjectID: projectID,
		Content:   content,
		Embedding: emb,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestRetrieve(t *testing.T) {
	engine, store := newTestEngine(t)
	seedChunk(t, store, 1, "c1", "solar installation cost was 500")
	seedChunk(t, store, 2, "c2", "other project data")

	result, err := engine.Retrieve(context.Background(), 1, "installation cost", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Chunks) != 1 {
		t.Fatalf("chunks: got %d, want 1", len(result.Chunks))
	}
	if !strings.HasPrefix(result.Context, "Relevant Information:") {
		t.Errorf("context header missing: %q", result.Context)
	}
	if !strings.Contains(result.Context, "- solar installation cost was 500") {
		t.Errorf("chunk missing from context: %q", result.Context)
	}
	if result.EnhancedWithHistory {
		t.Error("no history was supplied")
	}
	if strings.Contains(result.Context, "Recent Conversation Context:") {
		t.Errorf("conversation block rendered without history: %q", result.Context)
	}
}

func TestRetrieve_EmptyQuery(t *testing.T) {
	engine, _ := newTestEngine(t)
	if _, err := engine.Retrieve(context.Background(), 1, "  ", nil); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestRetrieve_HistoryWindow(t *testing.T) {
	engine, store := newTestEngine(t)
	seedChunk(t, store, 1, "c1", "project cost data")

	history := []models.Message{
		{Role: "user", Content: "first turn"},
		{Role: "assistant", Content: "second turn"},
		{Role: "", Content: "third turn"},
	}
	result, err := engine.Retrieve(context.Background(), 1, "cost", history)
	if err != nil {
		t.Fatal(err)
	}
	if !result.EnhancedWithHistory {
		t.Error("expected history enhancement")
	}
	// The window keeps the trailing two turns only.
	if strings.Contains(result.Context, "first turn") {
		t.Errorf("turn outside window rendered: %q", result.Context)
	}
	if !strings.Contains(result.Context, "assistant: second turn") {
		t.Errorf("windowed turn missing: %q", result.Context)
	}
	// A blank role defaults to user.
	if !strings.Contains(result.Context, "user: third turn") {
		t.Errorf("default role missing: %q", result.Context)
	}
}

func TestRetrieveBroad_IgnoresBound(t *testing.T) {
	engine, store := newTestEngine(t)
	for i := 0; i < 8; i++ {
		seedChunk(t, store, 1, string(rune('a'+i)), "project data row "+string(rune('0'+i)))
	}

	// The engine's own bound is 5; broad retrieval takes the caller's k.
	result, err := engine.RetrieveBroad(context.Background(), 1, "project data", 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Chunks) != 8 {
		t.Errorf("chunks: got %d, want 8", len(result.Chunks))
	}
}

func TestFormatContext(t *testing.T) {
	chunks := []*models.ScoredChunk{
		{Chunk: &models.Chunk{Content: "alpha"}},
		{Chunk: &models.Chunk{Content: "beta"}},
	}
	got := formatContext(chunks, []models.Message{{Role: "user", Content: "hello"}})
	want := "Relevant Information:\n- alpha\n- beta\n\nRecent Conversation Context:\nuser: hello"
	if got != want {
		t.Errorf("formatContext:\ngot  %q\nwant %q", got, want)
	}
}

package embedding

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/ajadindian/greenfinanceplatform/internal/vector"
)

// OpenAIEmbedder implements Embedder with the OpenAI embeddings API.
// Vectors are L2-normalized so inner product equals cosine similarity.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	cache      *EmbeddingCache
}

const defaultCacheSize = 10000

// NewOpenAIEmbedder creates an embedder for the given model name. baseURL
// overrides the API endpoint when non-empty (e.g. Azure or a local proxy).
func NewOpenAIEmbedder(apiKey, baseURL, model string, dimensions int) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key not configured")
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be positive")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(cfg),
		model:      embeddingModel(model),
		dimensions: dimensions,
		cache:      NewEmbeddingCache(defaultCacheSize),
	}, nil
}

func embeddingModel(name string) openai.EmbeddingModel {
	switch name {
	case "", "text-embedding-ada-002":
		return openai.AdaEmbeddingV2
	case "text-search-ada-doc-001":
		return openai.AdaSearchDocument
	default:
		return openai.AdaEmbeddingV2
	}
}

// Embed returns the embedding for text, from cache when available.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if emb, ok := e.cache.Get(text); ok {
		return emb, nil
	}
	embs, err := e.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	e.cache.Set(text, embs[0])
	return embs[0], nil
}

// EmbedBatch embeds texts in a single API call, consulting the cache first.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, t := range texts {
		if emb, ok := e.cache.Get(t); ok {
			out[i] = emb
			continue
		}
		missing = append(missing, t)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}
	embs, err := e.embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	for j, emb := range embs {
		out[missingIdx[j]] = emb
		e.cache.Set(missing[j], emb)
	}
	return out, nil
}

func (e *OpenAIEmbedder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response has %d vectors for %d inputs", len(resp.Data), len(texts))
	}
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if len(d.Embedding) != e.dimensions {
			return nil, fmt.Errorf("embedding dimension mismatch: got %d, expected %d", len(d.Embedding), e.dimensions)
		}
		vec := make([]float32, e.dimensions)
		copy(vec, d.Embedding)
		vector.Normalize(vec)
		out[d.Index] = vec
	}
	return out, nil
}

// Dimensions returns the embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op; the underlying HTTP client needs no teardown.
func (e *OpenAIEmbedder) Close() error {
	return nil
}

package embedding

import (
	"container/list"
	"sync"
)

// EmbeddingCache memoizes embeddings by chunk text with LRU eviction.
// Embedding is deterministic per model, so re-ingesting unchanged rows can
// reuse cached vectors instead of paying for another API round trip.
type EmbeddingCache struct {
	mu       sync.Mutex
	capacity int
	byText   map[string]*list.Element
	recency  *list.List // front = most recently used
}

type cachedVec struct {
	text string
	vec  []float32
}

// NewEmbeddingCache creates a cache holding up to capacity embeddings.
// A non-positive capacity falls back to 1.
func NewEmbeddingCache(capacity int) *EmbeddingCache {
	if capacity < 1 {
		capacity = 1
	}
	return &EmbeddingCache{
		capacity: capacity,
		byText:   make(map[string]*list.Element),
		recency:  list.New(),
	}
}

// Get returns the cached embedding for text and refreshes its recency.
func (c *EmbeddingCache) Get(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.byText[text]
	if !ok {
		return nil, false
	}
	c.recency.MoveToFront(elem)
	return elem.Value.(*cachedVec).vec, true
}

// Set stores the embedding for text, evicting the least recently used
// entry when the cache is full.
func (c *EmbeddingCache) Set(text string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.byText[text]; ok {
		elem.Value.(*cachedVec).vec = vec
		c.recency.MoveToFront(elem)
		return
	}
	for c.recency.Len() >= c.capacity {
		oldest := c.recency.Back()
		c.recency.Remove(oldest)
		delete(c.byText, oldest.Value.(*cachedVec).text)
	}
	c.byText[text] = c.recency.PushFront(&cachedVec{text: text, vec: vec})
}

// Len reports the number of cached embeddings.
func (c *EmbeddingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recency.Len()
}

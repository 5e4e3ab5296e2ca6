package embedding

import "testing"

func TestEmbeddingCacheEviction(t *testing.T) {
	c := NewEmbeddingCache(2)
	if v, ok := c.Get("alpha"); ok || v != nil {
		t.Fatal("empty cache should miss")
	}
	c.Set("alpha", []float32{1, 2, 3})
	c.Set("beta", []float32{4, 5})
	if c.Len() != 2 {
		t.Fatalf("len: got %d, want 2", c.Len())
	}

	// Reading alpha makes beta the eviction candidate.
	if _, ok := c.Get("alpha"); !ok {
		t.Fatal("alpha should be cached")
	}
	c.Set("gamma", []float32{6})

	if _, ok := c.Get("beta"); ok {
		t.Error("beta should have been evicted")
	}
	if v, ok := c.Get("alpha"); !ok || len(v) != 3 || v[0] != 1 {
		t.Errorf("alpha: got %v, %v", v, ok)
	}
	if _, ok := c.Get("gamma"); !ok {
		t.Error("gamma should be cached")
	}
	if c.Len() != 2 {
		t.Errorf("len after eviction: got %d, want 2", c.Len())
	}
}

func TestEmbeddingCacheOverwrite(t *testing.T) {
	c := NewEmbeddingCache(2)
	c.Set("alpha", []float32{1})
	c.Set("alpha", []float32{9, 9})
	v, ok := c.Get("alpha")
	if !ok || len(v) != 2 || v[0] != 9 {
		t.Errorf("overwrite: got %v, %v", v, ok)
	}
	if c.Len() != 1 {
		t.Errorf("len: got %d, want 1", c.Len())
	}
}

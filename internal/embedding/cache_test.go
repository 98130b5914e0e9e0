package embedding

import (
	"testing"
)

func TestEmbeddingCache_GetSet(t *testing.T) {
	c := NewEmbeddingCache(2)
	if v, ok := c.Get("a"); ok || v != nil {
		t.Fatal("expected miss")
	}
	c.Set("a", []float64{1, 2, 3})
	v, ok := c.Get("a")
	if !ok || len(v) != 3 || v[0] != 1 {
		t.Errorf("Get: got %v, %v", v, ok)
	}
	c.Set("b", []float64{4, 5})
	c.Set("c", []float64{6}) // evicts a
	if _, ok := c.Get("a"); ok {
		t.Error("expected a to be evicted")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("expected b to remain")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected c to be present")
	}
	if c.Len() != 2 {
		t.Errorf("Len=%d, want 2", c.Len())
	}
}

func TestEmbeddingCache_GetRefreshesRecency(t *testing.T) {
	c := NewEmbeddingCache(2)
	c.Set("a", []float64{1})
	c.Set("b", []float64{2})
	c.Get("a")
	c.Set("c", []float64{3}) // evicts b, not a
	if _, ok := c.Get("a"); !ok {
		t.Error("recently read a should survive eviction")
	}
	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
}

func TestEmbeddingCache_ZeroCapacityDisables(t *testing.T) {
	c := NewEmbeddingCache(0)
	c.Set("a", []float64{1})
	if _, ok := c.Get("a"); ok {
		t.Error("zero-capacity cache should never hit")
	}
}

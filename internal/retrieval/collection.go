package retrieval

import (
	"sort"
	"sync"

	"github.com/hyperjump/coachmem/internal/models"
	"github.com/hyperjump/coachmem/internal/vector"
)

// collection is the item list plus the parallel list of normalized
// embeddings. Both slices always have the same length and order; every
// mutation updates them under one lock. IDs are unique.
type collection struct {
	mu         sync.RWMutex
	items      []*models.VectorItem
	normalized [][]float64
	index      map[string]int
}

func (c *collection) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// upsert appends item and its normalized embedding. An item with the same ID
// is replaced in place and upsert reports true.
func (c *collection) upsert(item *models.VectorItem) bool {
	norm := vector.L2Normalize(item.Embedding)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index == nil {
		c.index = make(map[string]int)
	}
	if i, ok := c.index[item.ID]; ok {
		c.items[i] = item
		c.normalized[i] = norm
		return true
	}
	c.index[item.ID] = len(c.items)
	c.items = append(c.items, item)
	c.normalized = append(c.normalized, norm)
	return false
}

func (c *collection) reindex() {
	c.index = make(map[string]int, len(c.items))
	for i, it := range c.items {
		c.index[it.ID] = i
	}
}

// reset replaces the contents with items, in the given order.
func (c *collection) reset(items []*models.VectorItem) {
	norms := make([][]float64, len(items))
	for i, it := range items {
		norms[i] = vector.L2Normalize(it.Embedding)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = items
	c.normalized = norms
	c.reindex()
}

func (c *collection) snapshot() []*models.VectorItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*models.VectorItem, len(c.items))
	copy(out, c.items)
	return out
}

// score ranks items by dot product between the normalized query and the
// cached normalized embeddings. Ties keep insertion order. It also reports how
// many items had a different dimension than the query.
func (c *collection) score(query []float64, k int, minScore float64) ([]*models.SimilarityResult, int) {
	q := vector.L2Normalize(query)
	c.mu.RLock()
	results := make([]*models.SimilarityResult, 0, len(c.items))
	mismatched := 0
	for i, norm := range c.normalized {
		if len(norm) != len(q) {
			mismatched++
		}
		s := vector.Dot(q, norm)
		if s < minScore {
			continue
		}
		results = append(results, &models.SimilarityResult{VectorItem: *c.items[i], Score: s})
	}
	c.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k < len(results) {
		results = results[:k]
	}
	return results, mismatched
}

// pruneTo evicts the oldest items by timestamp until at most maxItems remain.
// Items with equal timestamps are evicted in insertion order. The removed
// items are returned oldest first.
func (c *collection) pruneTo(maxItems int) []*models.VectorItem {
	if maxItems < 0 {
		maxItems = 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	excess := len(c.items) - maxItems
	if excess <= 0 {
		return nil
	}

	order := make([]int, len(c.items))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return c.items[order[a]].Timestamp < c.items[order[b]].Timestamp
	})

	evict := make(map[int]bool, excess)
	removed := make([]*models.VectorItem, 0, excess)
	for _, idx := range order[:excess] {
		evict[idx] = true
		removed = append(removed, c.items[idx])
	}

	keptItems := make([]*models.VectorItem, 0, len(c.items)-excess)
	keptNorms := make([][]float64, 0, len(c.items)-excess)
	for i, it := range c.items {
		if evict[i] {
			continue
		}
		keptItems = append(keptItems, it)
		keptNorms = append(keptNorms, c.normalized[i])
	}
	c.items = keptItems
	c.normalized = keptNorms
	c.reindex()
	return removed
}

// normalizedAt returns the cached normalized vector at index i. Used by tests
// to verify alignment.
func (c *collection) normalizedAt(i int) []float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.normalized[i]
}

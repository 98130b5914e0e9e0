package retrieval

import (
	"context"

	"github.com/hyperjump/coachmem/internal/models"
)

// MemoryStore keeps items only in process memory. Nothing survives a restart.
type MemoryStore struct {
	core
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(provider EmbeddingProvider, opts ...Option) *MemoryStore {
	return &MemoryStore{core: core{provider: provider, opts: buildOptions(opts)}}
}

// Size returns the number of items.
func (m *MemoryStore) Size() int {
	return m.coll.len()
}

// AddItem builds the item and appends it together with its normalized embedding.
// An existing item with the same ID is replaced in place.
func (m *MemoryStore) AddItem(ctx context.Context, params models.AddParams) (*models.VectorItem, error) {
	item := m.buildItem(ctx, params)
	m.keep(item)
	return item, nil
}

// BulkAdd adds params in order.
func (m *MemoryStore) BulkAdd(ctx context.Context, params []models.AddParams) ([]*models.VectorItem, error) {
	return bulkAdd(ctx, m, params)
}

// QuerySimilar scores every item against query and returns the best k at or above minScore.
func (m *MemoryStore) QuerySimilar(ctx context.Context, query string, k int, minScore float64) ([]*models.SimilarityResult, error) {
	return m.querySimilar(ctx, query, k, minScore), nil
}

// Prune evicts the oldest items so that at most maxItems remain.
func (m *MemoryStore) Prune(_ context.Context, maxItems int) (int, error) {
	return len(m.coll.pruneTo(maxItems)), nil
}

// ListAll returns the items in insertion order.
func (m *MemoryStore) ListAll(_ context.Context) ([]*models.VectorItem, error) {
	return m.coll.snapshot(), nil
}

// Backend returns "memory".
func (m *MemoryStore) Backend() string {
	return string(BackendMemory)
}

// Close is a no-op for MemoryStore.
func (m *MemoryStore) Close() error {
	return nil
}

package retrieval

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/coachmem/internal/models"
	"github.com/hyperjump/coachmem/internal/storage"
)

const hydrateTimeout = 30 * time.Second

// DurableStore serves every read from memory and mirrors inserts and prunes to
// a durable table. At construction it hydrates from the table in the
// background; operations other than Size wait until hydration has finished.
// Durable failures are logged and never block the in-memory path.
type DurableStore struct {
	core
	table storage.Table
	ready chan struct{}
}

// NewDurableStore creates a store over table and starts hydration.
func NewDurableStore(table storage.Table, provider EmbeddingProvider, opts ...Option) *DurableStore {
	s := &DurableStore{
		core:  core{provider: provider, opts: buildOptions(opts)},
		table: table,
		ready: make(chan struct{}),
	}
	go s.hydrate()
	return s
}

// hydrate loads the most recent rows and stores them oldest first. A failure
// leaves the store empty but ready.
func (s *DurableStore) hydrate() {
	defer close(s.ready)
	ctx, cancel := context.WithTimeout(context.Background(), hydrateTimeout)
	defer cancel()

	start := time.Now()
	rows, err := s.table.LoadRecent(ctx, s.opts.maxLoad)
	if err != nil {
		s.persistFailed("hydrate", err)
		return
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	empty := 0
	for _, it := range rows {
		if len(it.Embedding) == 0 {
			empty++
		}
	}
	if empty > 0 {
		s.opts.logger.Warn("hydrated items without a usable embedding", zap.Int("count", empty))
	}
	s.coll.reset(rows)
	s.opts.logger.Info("retrieval store hydrated",
		zap.String("backend", s.table.Kind()),
		zap.Int("items", len(rows)),
		zap.Duration("took", time.Since(start)),
	)
}

// Ready is closed once hydration has finished, successfully or not.
func (s *DurableStore) Ready() <-chan struct{} {
	return s.ready
}

func (s *DurableStore) awaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	default:
	}
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *DurableStore) persistFailed(op string, err error) {
	s.opts.logger.Error("durable table operation failed",
		zap.String("op", op),
		zap.String("backend", s.table.Kind()),
		zap.Error(err),
	)
	if s.opts.onPersistError != nil {
		s.opts.onPersistError(op, err)
	}
}

// Size returns the number of items held in memory.
func (s *DurableStore) Size() int {
	return s.coll.len()
}

// AddItem builds the item, writes its row, then appends it in memory. A failed
// write is logged; the item is still kept in memory. A row and item with the
// same ID are replaced.
func (s *DurableStore) AddItem(ctx context.Context, params models.AddParams) (*models.VectorItem, error) {
	if err := s.awaitReady(ctx); err != nil {
		return nil, err
	}
	item := s.buildItem(ctx, params)
	if err := s.table.Insert(context.WithoutCancel(ctx), item); err != nil {
		s.persistFailed("insert", err)
	}
	s.keep(item)
	return item, nil
}

// BulkAdd adds params in order.
func (s *DurableStore) BulkAdd(ctx context.Context, params []models.AddParams) ([]*models.VectorItem, error) {
	return bulkAdd(ctx, s, params)
}

// QuerySimilar scores the in-memory cache; it never reads the table.
func (s *DurableStore) QuerySimilar(ctx context.Context, query string, k int, minScore float64) ([]*models.SimilarityResult, error) {
	if err := s.awaitReady(ctx); err != nil {
		return nil, err
	}
	return s.querySimilar(ctx, query, k, minScore), nil
}

// Prune evicts the oldest items in memory and deletes their rows.
func (s *DurableStore) Prune(ctx context.Context, maxItems int) (int, error) {
	if err := s.awaitReady(ctx); err != nil {
		return 0, err
	}
	removed := s.coll.pruneTo(maxItems)
	if len(removed) == 0 {
		return 0, nil
	}
	ids := make([]string, len(removed))
	for i, it := range removed {
		ids[i] = it.ID
	}
	if err := s.table.Delete(context.WithoutCancel(ctx), ids); err != nil {
		s.persistFailed("delete", err)
	}
	return len(removed), nil
}

// ListAll returns the items in memory order: hydration order, then insertion order.
func (s *DurableStore) ListAll(ctx context.Context) ([]*models.VectorItem, error) {
	if err := s.awaitReady(ctx); err != nil {
		return nil, err
	}
	return s.coll.snapshot(), nil
}

// StoredRows counts the rows in the table.
func (s *DurableStore) StoredRows(ctx context.Context) (int64, error) {
	return s.table.Count(ctx)
}

// Backend returns the table kind.
func (s *DurableStore) Backend() string {
	return s.table.Kind()
}

// Close waits for hydration and closes the table.
func (s *DurableStore) Close() error {
	<-s.ready
	return s.table.Close()
}

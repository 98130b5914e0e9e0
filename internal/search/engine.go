// Package search provides the retrieval facade used by the server and the CLI.
package search

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/coachmem/internal/config"
	"github.com/hyperjump/coachmem/internal/models"
	"github.com/hyperjump/coachmem/internal/retrieval"
)

// Engine coordinates adds and searches over a retrieval.Store. Besides the
// store it only tracks whether a search is in flight and the last results.
type Engine struct {
	store  retrieval.Store
	config *config.SearchConfig
	logger *zap.Logger

	inFlight atomic.Int32

	mu   sync.RWMutex
	last []*models.SimilarityResult
}

// NewEngine creates an engine over store. cfg may be nil; logger may be nil.
func NewEngine(store retrieval.Store, cfg *config.SearchConfig, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: store, config: cfg, logger: logger}
}

// Add stores one item.
func (e *Engine) Add(ctx context.Context, params models.AddParams) (*models.VectorItem, error) {
	item, err := e.store.AddItem(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("add item: %w", err)
	}
	return item, nil
}

// BulkAdd stores items in order. On error the items added so far are returned.
func (e *Engine) BulkAdd(ctx context.Context, params []models.AddParams) ([]*models.VectorItem, error) {
	items, err := e.store.BulkAdd(ctx, params)
	if err != nil {
		return items, fmt.Errorf("bulk add: %w", err)
	}
	return items, nil
}

// Search runs a similarity query and remembers its results. A blank query
// yields an empty result list rather than an error.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	startTime := time.Now()
	ProcessQuery(query, e.config)

	e.inFlight.Add(1)
	defer e.inFlight.Add(-1)

	results := []*models.SimilarityResult{}
	if !query.IsBlank() {
		var err error
		results, err = e.store.QuerySimilar(ctx, query.Query, query.K, query.MinScoreOrDefault())
		if err != nil {
			return nil, fmt.Errorf("query similar: %w", err)
		}
	}

	e.mu.Lock()
	e.last = results
	e.mu.Unlock()

	e.logger.Debug("search completed",
		zap.String("query", query.Query),
		zap.Int("k", query.K),
		zap.Int("results", len(results)),
	)

	return &models.SearchResponse{
		Results:   results,
		Total:     len(results),
		QueryTime: time.Since(startTime).Milliseconds(),
		Query:     query.Query,
	}, nil
}

// IsSearching reports whether any Search call is in flight.
func (e *Engine) IsSearching() bool {
	return e.inFlight.Load() > 0
}

// LastResults returns a copy of the most recent successful result list.
func (e *Engine) LastResults() []*models.SimilarityResult {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*models.SimilarityResult, len(e.last))
	copy(out, e.last)
	return out
}

// Size returns the number of stored items.
func (e *Engine) Size() int {
	return e.store.Size()
}

// Prune keeps at most maxItems items and returns how many were removed.
func (e *Engine) Prune(ctx context.Context, maxItems int) (int, error) {
	removed, err := e.store.Prune(ctx, maxItems)
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	if removed > 0 {
		e.logger.Info("pruned items", zap.Int("removed", removed), zap.Int("max_items", maxItems))
	}
	return removed, nil
}

// ListAll returns all items in store order.
func (e *Engine) ListAll(ctx context.Context) ([]*models.VectorItem, error) {
	items, err := e.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

// StoredRows returns the durable row count. The bool is false for stores without a
// table or when counting fails.
func (e *Engine) StoredRows(ctx context.Context) (int64, bool) {
	counter, isCounter := e.store.(retrieval.RowCounter)
	if !isCounter {
		return 0, false
	}
	n, err := counter.StoredRows(ctx)
	if err != nil {
		e.logger.Warn("count stored rows failed", zap.Error(err))
		return 0, false
	}
	return n, true
}

// Backend names the store variant.
func (e *Engine) Backend() string {
	return e.store.Backend()
}

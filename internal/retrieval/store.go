// Package retrieval provides the embedded vector store: an item list with an
// index-aligned cache of L2-normalized embeddings, brute-force similarity
// queries, and oldest-first pruning. MemoryStore keeps everything in process
// memory; DurableStore mirrors mutations to a storage.Table and hydrates from
// it at startup.
package retrieval

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/coachmem/internal/models"
)

const (
	// DefaultMaxLoad bounds how many rows a DurableStore hydrates.
	DefaultMaxLoad = 1500

	idPrefix = "vec_"
	idLength = 8
)

// Store is the contract shared by every backing variant.
type Store interface {
	// Size returns the number of held items. It never blocks on hydration.
	Size() int
	// AddItem embeds (unless an embedding is supplied), stores, and returns a new item.
	AddItem(ctx context.Context, params models.AddParams) (*models.VectorItem, error)
	// BulkAdd applies AddItem sequentially. It is not atomic.
	BulkAdd(ctx context.Context, params []models.AddParams) ([]*models.VectorItem, error)
	// QuerySimilar returns up to k items scoring at least minScore against query.
	QuerySimilar(ctx context.Context, query string, k int, minScore float64) ([]*models.SimilarityResult, error)
	// Prune evicts the oldest items until at most maxItems remain and returns the number removed.
	Prune(ctx context.Context, maxItems int) (int, error)
	// ListAll returns a shallow copy of all items in in-memory order.
	ListAll(ctx context.Context) ([]*models.VectorItem, error)
	// Backend names the variant ("memory", "sqlite", "bolt").
	Backend() string
	Close() error
}

// RowCounter is implemented by stores mirrored to a durable table. The row
// count can exceed Size when the table holds more rows than were hydrated.
type RowCounter interface {
	StoredRows(ctx context.Context) (int64, error)
}

// EmbeddingProvider resolves text to a vector without failing.
type EmbeddingProvider interface {
	GetEmbedding(ctx context.Context, text string) []float64
}

// PersistErrorHook observes durable-table failures. op is "insert", "delete" or "hydrate".
type PersistErrorHook func(op string, err error)

type options struct {
	logger         *zap.Logger
	now            func() time.Time
	newID          func() string
	maxLoad        int
	onPersistError PersistErrorHook
}

// Option configures a store.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock overrides the time source used for default timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator overrides generated item IDs.
func WithIDGenerator(gen func() string) Option {
	return func(o *options) { o.newID = gen }
}

// WithMaxLoad sets how many rows a DurableStore hydrates at startup.
func WithMaxLoad(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxLoad = n
		}
	}
}

// WithPersistErrorHook registers a callback for swallowed durable-table errors.
func WithPersistErrorHook(h PersistErrorHook) Option {
	return func(o *options) { o.onPersistError = h }
}

func buildOptions(opts []Option) options {
	o := options{
		logger:  zap.NewNop(),
		now:     time.Now,
		newID:   NewID,
		maxLoad: DefaultMaxLoad,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewID returns a short random identifier of the form "vec_xxxxxxxx".
func NewID() string {
	return idPrefix + strings.ReplaceAll(uuid.New().String(), "-", "")[:idLength]
}

// core holds what both variants share: the collection, the embedding
// provider, and item construction.
type core struct {
	coll     collection
	provider EmbeddingProvider
	opts     options
}

func (c *core) buildItem(ctx context.Context, p models.AddParams) *models.VectorItem {
	id := p.ID
	if id == "" {
		id = c.opts.newID()
	}
	ts := p.Timestamp
	if ts == 0 {
		ts = c.opts.now().UnixMilli()
	}
	text := strings.TrimSpace(p.Text)
	emb := p.Embedding
	if len(emb) == 0 {
		emb = c.provider.GetEmbedding(ctx, text)
	}
	return &models.VectorItem{
		ID:        id,
		Type:      p.Type,
		Timestamp: ts,
		Text:      text,
		Embedding: emb,
		Meta:      p.Meta,
	}
}

func (c *core) keep(item *models.VectorItem) {
	if c.coll.upsert(item) {
		c.opts.logger.Debug("replaced item with duplicate id", zap.String("id", item.ID))
	}
}

func (c *core) querySimilar(ctx context.Context, query string, k int, minScore float64) []*models.SimilarityResult {
	if c.coll.len() == 0 || k <= 0 {
		return []*models.SimilarityResult{}
	}
	q := c.provider.GetEmbedding(ctx, query)
	results, mismatched := c.coll.score(q, k, minScore)
	if mismatched > 0 {
		c.opts.logger.Debug("query and stored embeddings differ in dimension",
			zap.Int("query_dim", len(q)),
			zap.Int("mismatched_items", mismatched),
		)
	}
	return results
}

func bulkAdd(ctx context.Context, s Store, params []models.AddParams) ([]*models.VectorItem, error) {
	out := make([]*models.VectorItem, 0, len(params))
	for _, p := range params {
		item, err := s.AddItem(ctx, p)
		if err != nil {
			return out, err
		}
		out = append(out, item)
	}
	return out, nil
}

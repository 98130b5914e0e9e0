package retrieval

import (
	"errors"
	"fmt"

	"github.com/hyperjump/coachmem/internal/config"
	"github.com/hyperjump/coachmem/internal/storage"
)

// Backend selects the store variant.
type Backend string

const (
	// BackendMemory keeps items only in memory.
	BackendMemory Backend = "memory"
	// BackendSQLite mirrors items to a SQLite table.
	BackendSQLite Backend = "sqlite"
	// BackendBolt mirrors items to a bbolt bucket.
	BackendBolt Backend = "bolt"
)

// ErrUnknownBackend is returned by New for unsupported backends.
var ErrUnknownBackend = errors.New("unknown storage backend")

// New creates the store selected by cfg.Backend.
// Supported backends: "memory", "sqlite" (default), "bolt".
func New(cfg config.StorageConfig, provider EmbeddingProvider, opts ...Option) (Store, error) {
	opts = append([]Option{WithMaxLoad(cfg.MaxLoad)}, opts...)
	switch Backend(cfg.Backend) {
	case BackendMemory:
		return NewMemoryStore(provider, opts...), nil
	case BackendSQLite, "":
		table, err := storage.NewSQLiteTable(cfg.DatabasePath, cfg.Table)
		if err != nil {
			return nil, fmt.Errorf("open sqlite table: %w", err)
		}
		return NewDurableStore(table, provider, opts...), nil
	case BackendBolt:
		table, err := storage.NewBoltTable(cfg.DatabasePath, cfg.Table)
		if err != nil {
			return nil, fmt.Errorf("open bolt table: %w", err)
		}
		return NewDurableStore(table, provider, opts...), nil
	default:
		return nil, fmt.Errorf("%w: %s (supported: memory, sqlite, bolt)", ErrUnknownBackend, cfg.Backend)
	}
}

package server

import (
	"context"

	"github.com/hyperjump/coachmem/internal/config"
	"github.com/hyperjump/coachmem/internal/models"
	"github.com/hyperjump/coachmem/internal/search"
	"github.com/hyperjump/coachmem/internal/storage"
)

// Status reports store size, backend, table rows, disk usage and embedding
// settings. cfg may be nil, in which case only the engine fields are filled.
func Status(ctx context.Context, engine *search.Engine, cfg *config.Config) models.StatusResponse {
	resp := models.StatusResponse{
		Items:     engine.Size(),
		Backend:   engine.Backend(),
		Searching: engine.IsSearching(),
	}
	if n, ok := engine.StoredRows(ctx); ok {
		resp.StoredRows = &n
	}
	if cfg == nil {
		return resp
	}
	resp.Embedding = models.EmbeddingStatus{
		Remote:             cfg.Embedding.Endpoint != "",
		Endpoint:           cfg.Embedding.Endpoint,
		Timeout:            cfg.Embedding.Timeout.String(),
		FallbackDimensions: cfg.Embedding.FallbackDimensions,
		CacheSize:          cfg.Embedding.CacheSize,
	}
	if resp.Backend != "memory" && cfg.Storage.DatabasePath != "" {
		resp.DatabasePath = cfg.Storage.DatabasePath
		if n, err := storage.DiskUsageBytes(cfg.Storage.DatabasePath); err == nil {
			resp.DiskUsageBytes = n
		}
	}
	return resp
}

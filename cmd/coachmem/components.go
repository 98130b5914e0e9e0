package main

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/hyperjump/coachmem/internal/config"
	"github.com/hyperjump/coachmem/internal/embedding"
	"github.com/hyperjump/coachmem/internal/retrieval"
	"github.com/hyperjump/coachmem/internal/search"
)

// Components holds the wired store, embedding provider and engine.
type Components struct {
	Provider *embedding.Provider
	Store    retrieval.Store
	Engine   *search.Engine
}

// Close releases the store.
func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

func newProvider(cfg *config.EmbeddingConfig, logger *zap.Logger) *embedding.Provider {
	opts := []embedding.ProviderOption{
		embedding.WithFallbackDimensions(cfg.FallbackDimensions),
		embedding.WithCacheSize(cfg.CacheSize),
		embedding.WithTimeout(cfg.Timeout),
		embedding.WithLogger(logger),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, embedding.WithRemote(embedding.NewHTTPEmbedder(cfg.Endpoint, &http.Client{})))
	}
	if cfg.RateLimit > 0 {
		opts = append(opts, embedding.WithRateLimit(cfg.RateLimit, cfg.RateBurst))
	}
	return embedding.NewProvider(opts...)
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	provider := newProvider(&cfg.Embedding, logger)
	store, err := retrieval.New(cfg.Storage, provider, retrieval.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	logger.Debug("store initialized",
		zap.String("backend", store.Backend()),
		zap.String("database_path", cfg.Storage.DatabasePath),
		zap.Bool("remote_embedding", provider.HasRemote()),
	)
	return &Components{
		Provider: provider,
		Store:    store,
		Engine:   search.NewEngine(store, &cfg.Search, logger),
	}, nil
}

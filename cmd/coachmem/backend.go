package main

import (
	"context"

	"github.com/hyperjump/coachmem/internal/client"
	"github.com/hyperjump/coachmem/internal/config"
	"github.com/hyperjump/coachmem/internal/models"
	"github.com/hyperjump/coachmem/internal/server"
)

// backend is what the item commands need, served either by a running server
// or by the configured store opened in-process.
type backend interface {
	Add(ctx context.Context, params models.AddParams) (*models.VectorItem, error)
	BulkAdd(ctx context.Context, params []models.AddParams) ([]*models.VectorItem, error)
	Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error)
	Prune(ctx context.Context, maxItems int) (*models.PruneResponse, error)
	List(ctx context.Context) ([]*models.VectorItem, error)
	Status(ctx context.Context) (*models.StatusResponse, error)
	Close()
}

type remoteBackend struct {
	*client.Client
}

func (remoteBackend) Close() {}

type localBackend struct {
	components *Components
	cfg        *config.Config
}

func (b *localBackend) Add(ctx context.Context, params models.AddParams) (*models.VectorItem, error) {
	return b.components.Engine.Add(ctx, params)
}

func (b *localBackend) BulkAdd(ctx context.Context, params []models.AddParams) ([]*models.VectorItem, error) {
	return b.components.Engine.BulkAdd(ctx, params)
}

func (b *localBackend) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	return b.components.Engine.Search(ctx, query)
}

func (b *localBackend) Prune(ctx context.Context, maxItems int) (*models.PruneResponse, error) {
	removed, err := b.components.Engine.Prune(ctx, maxItems)
	if err != nil {
		return nil, err
	}
	return &models.PruneResponse{Removed: removed, Size: b.components.Engine.Size()}, nil
}

func (b *localBackend) List(ctx context.Context) ([]*models.VectorItem, error) {
	return b.components.Engine.ListAll(ctx)
}

func (b *localBackend) Status(ctx context.Context) (*models.StatusResponse, error) {
	// Size does not wait for hydration; listing does.
	if _, err := b.components.Engine.ListAll(ctx); err != nil {
		return nil, err
	}
	st := server.Status(ctx, b.components.Engine, b.cfg)
	return &st, nil
}

func (b *localBackend) Close() {
	b.components.Close()
}

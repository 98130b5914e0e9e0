package e2e

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/coachmem/internal/client"
	"github.com/hyperjump/coachmem/internal/config"
	"github.com/hyperjump/coachmem/internal/embedding"
	"github.com/hyperjump/coachmem/internal/models"
	"github.com/hyperjump/coachmem/internal/retention"
	"github.com/hyperjump/coachmem/internal/retrieval"
	"github.com/hyperjump/coachmem/internal/search"
	"github.com/hyperjump/coachmem/internal/server"
)

const (
	anxiousMessage = "I feel anxious before competition"
	breathingTip   = "Try slow breathing exercises"

	// Scores of "anxious feelings" against the two texts under the 64-dim
	// pseudo-embedding. The tactic shares more hash buckets with the query.
	fallbackTacticScore  = 0.5931505817131084
	fallbackMessageScore = 0.22397651182137612
)

func newEngine(t *testing.T, storage config.StorageConfig, provider retrieval.EmbeddingProvider) (*search.Engine, retrieval.Store) {
	t.Helper()
	cfg := &config.Config{Storage: storage}
	config.ApplyDefaults(cfg)
	store, err := retrieval.New(cfg.Storage, provider)
	require.NoError(t, err)
	return search.NewEngine(store, &cfg.Search, nil), store
}

func addScenarioItems(t *testing.T, e *search.Engine) {
	t.Helper()
	ctx := context.Background()
	_, err := e.Add(ctx, models.AddParams{Type: models.TypeMessage, Text: anxiousMessage, Timestamp: 1})
	require.NoError(t, err)
	_, err = e.Add(ctx, models.AddParams{Type: models.TypeTactic, Text: breathingTip, Timestamp: 2})
	require.NoError(t, err)
}

func TestE2E_FallbackScenario(t *testing.T) {
	ctx := context.Background()
	e, store := newEngine(t, config.StorageConfig{Backend: "memory"}, embedding.NewProvider())
	defer store.Close()
	addScenarioItems(t, e)

	resp, err := e.Search(ctx, &models.SearchQuery{Query: "anxious feelings", K: 1})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, models.TypeTactic, resp.Results[0].Type)
	assert.InDelta(t, fallbackTacticScore, resp.Results[0].Score, 1e-9)

	resp, err = e.Search(ctx, &models.SearchQuery{Query: "anxious feelings", K: 2})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, breathingTip, resp.Results[0].Text)
	assert.Equal(t, anxiousMessage, resp.Results[1].Text)
	assert.InDelta(t, fallbackMessageScore, resp.Results[1].Score, 1e-9)

	minScore := 0.3
	resp, err = e.Search(ctx, &models.SearchQuery{Query: "anxious feelings", K: 2, MinScore: &minScore})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 1)
}

func TestE2E_CorpusRecallAcrossRestart(t *testing.T) {
	for _, backend := range []string{"sqlite", "bolt"} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			storage := config.StorageConfig{Backend: backend, DatabasePath: filepath.Join(t.TempDir(), "vectors.db")}
			corpus := BuildCorpus()

			e, store := newEngine(t, storage, embedding.NewProvider())
			_, err := e.BulkAdd(ctx, corpus.AddParams(1_700_000_000_000))
			require.NoError(t, err)
			require.NoError(t, store.Close())

			e, store = newEngine(t, storage, embedding.NewProvider())
			defer store.Close()

			all, err := e.ListAll(ctx)
			require.NoError(t, err)
			require.Len(t, all, len(corpus.Items))
			for i, it := range corpus.Items {
				assert.Equal(t, it.ID, all[i].ID, "hydration order at %d", i)
				assert.Equal(t, "corpus", all[i].Meta["source"])
			}

			for _, it := range corpus.Items {
				resp, err := e.Search(ctx, &models.SearchQuery{Query: it.Text, K: 1})
				require.NoError(t, err)
				require.Len(t, resp.Results, 1, "query %q", it.Text)
				assert.Equal(t, it.ID, resp.Results[0].ID, "query %q", it.Text)
				assert.InDelta(t, 1.0, resp.Results[0].Score, 1e-9)
			}
		})
	}
}

func newKeywordEndpoint(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req embedding.EmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(embedding.EmbedResponse{Embedding: KeywordVector(req.Text)})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestE2E_RemoteEmbeddingRanksByMeaning(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	ts := newKeywordEndpoint(t, &calls)
	provider := embedding.NewProvider(
		embedding.WithRemote(embedding.NewHTTPEmbedder(ts.URL, ts.Client())),
		embedding.WithCacheSize(100),
	)
	e, store := newEngine(t, config.StorageConfig{Backend: "memory"}, provider)
	defer store.Close()
	addScenarioItems(t, e)

	resp, err := e.Search(ctx, &models.SearchQuery{Query: "anxious feelings", K: 1})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, models.TypeMessage, resp.Results[0].Type)
	assert.InDelta(t, 1/math.Sqrt2, resp.Results[0].Score, 1e-12)

	before := calls.Load()
	_, err = e.Search(ctx, &models.SearchQuery{Query: "anxious feelings", K: 1})
	require.NoError(t, err)
	assert.Equal(t, before, calls.Load(), "repeated query should be served from the cache")
}

func TestE2E_RemoteDownFallsBack(t *testing.T) {
	ctx := context.Background()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	var fallbacks atomic.Int32
	provider := embedding.NewProvider(
		embedding.WithRemote(embedding.NewHTTPEmbedder(ts.URL, ts.Client())),
		embedding.WithTimeout(time.Second),
		embedding.WithFallbackHook(func(string, error) { fallbacks.Add(1) }),
	)
	e, store := newEngine(t, config.StorageConfig{Backend: "memory"}, provider)
	defer store.Close()
	addScenarioItems(t, e)

	resp, err := e.Search(ctx, &models.SearchQuery{Query: "anxious feelings", K: 1})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, breathingTip, resp.Results[0].Text)
	assert.InDelta(t, fallbackTacticScore, resp.Results[0].Score, 1e-9)
	assert.Equal(t, int32(3), fallbacks.Load())
}

func TestE2E_InstanceAsRemoteEmbedder(t *testing.T) {
	ctx := context.Background()

	// Instance A only embeds.
	cfgA := &config.Config{Storage: config.StorageConfig{Backend: "memory"}}
	config.ApplyDefaults(cfgA)
	providerA := embedding.NewProvider()
	engineA, storeA := newEngine(t, cfgA.Storage, providerA)
	defer storeA.Close()
	tsA := httptest.NewServer(server.NewServer(engineA, providerA, cfgA, nil).Handler())
	defer tsA.Close()

	// Instance B stores, embedding through A.
	cfgB := &config.Config{
		Storage:   config.StorageConfig{Backend: "sqlite", DatabasePath: filepath.Join(t.TempDir(), "b.db")},
		Embedding: config.EmbeddingConfig{Endpoint: tsA.URL + "/api/v1/embed"},
	}
	config.ApplyDefaults(cfgB)
	var fallbacks atomic.Int32
	providerB := embedding.NewProvider(
		embedding.WithRemote(embedding.NewHTTPEmbedder(cfgB.Embedding.Endpoint, tsA.Client())),
		embedding.WithFallbackHook(func(string, error) { fallbacks.Add(1) }),
	)
	engineB, storeB := newEngine(t, cfgB.Storage, providerB)
	defer storeB.Close()
	tsB := httptest.NewServer(server.NewServer(engineB, providerB, cfgB, nil).Handler())
	defer tsB.Close()

	c := client.New(tsB.URL, tsB.Client())
	_, err := c.BulkAdd(ctx, []models.AddParams{
		{Type: models.TypeMessage, Text: anxiousMessage, Timestamp: 1},
		{Type: models.TypeTactic, Text: breathingTip, Timestamp: 2},
	})
	require.NoError(t, err)

	resp, err := c.Search(ctx, &models.SearchQuery{Query: "anxious feelings", K: 2})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.InDelta(t, fallbackTacticScore, resp.Results[0].Score, 1e-9)
	assert.InDelta(t, fallbackMessageScore, resp.Results[1].Score, 1e-9)
	assert.Equal(t, int32(0), fallbacks.Load(), "B should embed through A without falling back")

	st, err := c.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.Embedding.Remote)
	assert.Equal(t, 2, st.Items)
	assert.Equal(t, 0, storeA.Size())
}

func TestE2E_RetentionKeepsNewest(t *testing.T) {
	ctx := context.Background()
	storage := config.StorageConfig{Backend: "sqlite", DatabasePath: filepath.Join(t.TempDir(), "vectors.db")}
	e, store := newEngine(t, storage, embedding.NewProvider())
	corpus := BuildCorpus()
	_, err := e.BulkAdd(ctx, corpus.AddParams(1))
	require.NoError(t, err)

	policy := retention.NewPolicy(e, 5, 10*time.Millisecond)
	require.NoError(t, policy.Start(ctx))
	assert.Eventually(t, func() bool { return e.Size() == 5 }, 2*time.Second, 5*time.Millisecond)
	policy.Stop()
	require.NoError(t, store.Close())

	e, store = newEngine(t, storage, embedding.NewProvider())
	defer store.Close()
	all, err := e.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i, it := range all {
		assert.Equal(t, corpus.Items[len(corpus.Items)-5+i].ID, it.ID)
	}
}

package retrieval

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/coachmem/internal/config"
	"github.com/hyperjump/coachmem/internal/models"
	"github.com/hyperjump/coachmem/internal/storage"
)

// faultyTable fails the operations it is told to fail and records the rest.
type faultyTable struct {
	mu         sync.Mutex
	insertErr  error
	loadErr    error
	deleteErr  error
	rows       []*models.VectorItem
	deleted    []string
	loadCalled chan struct{}
	block      chan struct{}
}

func (f *faultyTable) Insert(_ context.Context, item *models.VectorItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.rows = append(f.rows, item)
	return nil
}

func (f *faultyTable) LoadRecent(_ context.Context, limit int) ([]*models.VectorItem, error) {
	if f.loadCalled != nil {
		close(f.loadCalled)
	}
	if f.block != nil {
		<-f.block
	}
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.VectorItem, 0, len(f.rows))
	for i := len(f.rows) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.rows[i])
	}
	return out, nil
}

func (f *faultyTable) Delete(_ context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, ids...)
	return nil
}

func (f *faultyTable) Count(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.rows)), nil
}

func (f *faultyTable) Kind() string { return "faulty" }
func (f *faultyTable) Close() error { return nil }

type hookRecorder struct {
	mu  sync.Mutex
	ops []string
}

func (h *hookRecorder) hook(op string, _ error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ops = append(h.ops, op)
}

func (h *hookRecorder) recorded() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.ops...)
}

func waitReady(t *testing.T, s *DurableStore) {
	t.Helper()
	select {
	case <-s.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("store did not become ready")
	}
}

func openSQLite(t *testing.T, path string) *storage.SQLiteTable {
	t.Helper()
	table, err := storage.NewSQLiteTable(path, "")
	require.NoError(t, err)
	return table
}

func TestDurableStore_PersistsAndHydratesOldestFirst(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vectors.db")

	s := NewDurableStore(openSQLite(t, path), newPseudoProvider())
	for i, text := range []string{"first", "second", "third"} {
		_, err := s.AddItem(ctx, models.AddParams{ID: fmt.Sprintf("id%d", i), Type: "message", Text: text, Timestamp: int64(100 + i)})
		require.NoError(t, err)
	}
	require.NoError(t, s.Close())

	reopened := NewDurableStore(openSQLite(t, path), newPseudoProvider())
	defer reopened.Close()
	waitReady(t, reopened)

	assert.Equal(t, 3, reopened.Size())
	all, err := reopened.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, itemTexts(all))
	assertAligned(t, &reopened.coll)

	res, err := reopened.QuerySimilar(ctx, "second", 1, 0.15)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "id1", res[0].ID)
	assert.InDelta(t, 1.0, res[0].Score, 1e-9)
	assert.Equal(t, "sqlite", reopened.Backend())
}

func TestDurableStore_DuplicateIDMatchesTable(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vectors.db")
	table := openSQLite(t, path)

	s := NewDurableStore(table, newPseudoProvider())
	for i, text := range []string{"one", "two"} {
		_, err := s.AddItem(ctx, models.AddParams{ID: "dup", Type: "message", Text: text, Timestamp: int64(i + 1)})
		require.NoError(t, err)
	}
	_, err := s.AddItem(ctx, models.AddParams{ID: "other", Type: "message", Text: "three", Timestamp: 3})
	require.NoError(t, err)

	assert.Equal(t, 2, s.Size())
	rows, err := table.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rows)
	require.NoError(t, s.Close())

	reopened := NewDurableStore(openSQLite(t, path), newPseudoProvider())
	defer reopened.Close()
	waitReady(t, reopened)
	all, err := reopened.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"dup", "other"}, itemIDs(all))
	assert.Equal(t, []string{"two", "three"}, itemTexts(all))
}

func TestDurableStore_HydrationRespectsMaxLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vectors.db")
	table := openSQLite(t, path)
	for i := 1; i <= 5; i++ {
		require.NoError(t, table.Insert(ctx, &models.VectorItem{
			ID: fmt.Sprintf("r%d", i), Type: "message", Timestamp: int64(i), Text: "row", Embedding: []float64{float64(i), 1},
		}))
	}

	s := NewDurableStore(table, newPseudoProvider(), WithMaxLoad(2))
	defer s.Close()
	waitReady(t, s)

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"r4", "r5"}, itemIDs(all))

	rows, err := s.StoredRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), rows)
	assert.Equal(t, 2, s.Size())
}

func TestDurableStore_InsertFailureKeepsItemInMemory(t *testing.T) {
	ctx := context.Background()
	rec := &hookRecorder{}
	table := &faultyTable{insertErr: errors.New("disk full")}
	s := NewDurableStore(table, newPseudoProvider(), WithPersistErrorHook(rec.hook))
	defer s.Close()

	item, err := s.AddItem(ctx, models.AddParams{Type: "tactic", Text: "breathe slowly"})
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, 1, s.Size())
	assert.Equal(t, []string{"insert"}, rec.recorded())

	res, err := s.QuerySimilar(ctx, "breathe slowly", 3, 0.15)
	require.NoError(t, err)
	assert.Len(t, res, 1)
}

func TestDurableStore_HydrationFailureLeavesEmptyReadyStore(t *testing.T) {
	ctx := context.Background()
	rec := &hookRecorder{}
	table := &faultyTable{loadErr: errors.New("corrupt")}
	s := NewDurableStore(table, newPseudoProvider(), WithPersistErrorHook(rec.hook))
	defer s.Close()
	waitReady(t, s)

	assert.Equal(t, 0, s.Size())
	assert.Equal(t, []string{"hydrate"}, rec.recorded())

	_, err := s.AddItem(ctx, models.AddParams{Type: "message", Text: "still works"})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Size())
}

func TestDurableStore_OperationsWaitForHydration(t *testing.T) {
	table := &faultyTable{
		rows:       []*models.VectorItem{{ID: "old", Type: "message", Timestamp: 1, Text: "old", Embedding: []float64{1, 0}}},
		loadCalled: make(chan struct{}),
		block:      make(chan struct{}),
	}
	s := NewDurableStore(table, newPseudoProvider())
	defer s.Close()
	<-table.loadCalled

	assert.Equal(t, 0, s.Size(), "Size does not wait for hydration")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.ListAll(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	done := make(chan []*models.VectorItem)
	go func() {
		all, _ := s.ListAll(context.Background())
		done <- all
	}()
	close(table.block)
	select {
	case all := <-done:
		assert.Equal(t, []string{"old"}, itemIDs(all))
	case <-time.After(5 * time.Second):
		t.Fatal("ListAll did not return after hydration")
	}
}

func TestDurableStore_ReadyStoreIgnoresCanceledContextForReadiness(t *testing.T) {
	s := NewDurableStore(&faultyTable{}, newPseudoProvider())
	defer s.Close()
	waitReady(t, s)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	item, err := s.AddItem(ctx, models.AddParams{Type: "message", Text: "late"})
	require.NoError(t, err)
	assert.Equal(t, "late", item.Text)
}

func TestDurableStore_PruneDeletesRows(t *testing.T) {
	ctx := context.Background()
	table := openSQLite(t, filepath.Join(t.TempDir(), "vectors.db"))
	s := NewDurableStore(table, newPseudoProvider())
	defer s.Close()

	for i := 0; i < 120; i++ {
		_, err := s.AddItem(ctx, models.AddParams{ID: fmt.Sprintf("p%03d", i), Type: "message", Text: fmt.Sprintf("note %d", i), Timestamp: int64(i + 1)})
		require.NoError(t, err)
	}
	removed, err := s.Prune(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 113, removed)

	n, err := table.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	rows, err := table.LoadRecent(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "p119", rows[0].ID)
	assert.Equal(t, "p113", rows[len(rows)-1].ID)

	removed, err = s.Prune(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestDurableStore_DeleteFailureStillPrunesMemory(t *testing.T) {
	ctx := context.Background()
	rec := &hookRecorder{}
	table := &faultyTable{deleteErr: errors.New("locked")}
	s := NewDurableStore(table, newPseudoProvider(), WithPersistErrorHook(rec.hook))
	defer s.Close()
	for i := 0; i < 3; i++ {
		_, err := s.AddItem(ctx, models.AddParams{Type: "message", Text: "x", Timestamp: int64(i + 1)})
		require.NoError(t, err)
	}
	removed, err := s.Prune(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, s.Size())
	assert.Equal(t, []string{"delete"}, rec.recorded())
}

func TestDurableStore_PruneSendsOldestIDs(t *testing.T) {
	ctx := context.Background()
	table := &faultyTable{}
	s := NewDurableStore(table, newPseudoProvider())
	defer s.Close()
	for _, ts := range []int64{5, 1, 3} {
		_, err := s.AddItem(ctx, models.AddParams{ID: fmt.Sprintf("t%d", ts), Type: "message", Text: "x", Timestamp: ts})
		require.NoError(t, err)
	}
	_, err := s.Prune(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t3"}, table.deleted)
}

func TestNew_Backends(t *testing.T) {
	dir := t.TempDir()
	provider := newPseudoProvider()

	s, err := New(config.StorageConfig{Backend: "memory"}, provider)
	require.NoError(t, err)
	assert.Equal(t, "memory", s.Backend())
	require.NoError(t, s.Close())

	s, err = New(config.StorageConfig{Backend: "sqlite", DatabasePath: filepath.Join(dir, "a.db")}, provider)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", s.Backend())
	require.NoError(t, s.Close())

	s, err = New(config.StorageConfig{Backend: "bolt", DatabasePath: filepath.Join(dir, "b.bolt"), Table: "coach"}, provider)
	require.NoError(t, err)
	assert.Equal(t, "bolt", s.Backend())
	_, err = s.AddItem(context.Background(), models.AddParams{Type: "message", Text: "bolt item"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = New(config.StorageConfig{Backend: "bolt", DatabasePath: filepath.Join(dir, "b.bolt"), Table: "coach"}, provider)
	require.NoError(t, err)
	defer s.Close()
	all, err := s.ListAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"bolt item"}, itemTexts(all))
}

func TestNew_Errors(t *testing.T) {
	_, err := New(config.StorageConfig{Backend: "redis"}, newPseudoProvider())
	assert.ErrorIs(t, err, ErrUnknownBackend)

	_, err = New(config.StorageConfig{
		Backend:      "sqlite",
		DatabasePath: filepath.Join(t.TempDir(), "x.db"),
		Table:        "items; DROP TABLE x",
	}, newPseudoProvider())
	assert.ErrorIs(t, err, storage.ErrInvalidTableName)
}

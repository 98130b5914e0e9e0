package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/hyperjump/coachmem/internal/models"
)

// BoltTable implements Table on a bbolt bucket. Keys are item IDs; values are
// JSON rows carrying a bucket sequence number that records insertion order.
type BoltTable struct {
	db     *bbolt.DB
	bucket []byte
}

type boltRow struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Timestamp int64                  `json:"ts"`
	Text      string                 `json:"text"`
	Embedding []float64              `json:"embedding"`
	Meta      map[string]interface{} `json:"meta,omitempty"`
	Seq       uint64                 `json:"seq"`
}

// NewBoltTable opens or creates a bbolt database at path with the given bucket.
func NewBoltTable(path, bucket string) (*BoltTable, error) {
	if bucket == "" {
		bucket = DefaultTableName
	}
	if err := ValidateTableName(bucket); err != nil {
		return nil, err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}
	name := []byte(bucket)
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(name); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", name, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltTable{db: db, bucket: name}, nil
}

// Insert writes item, replacing any existing row with the same ID.
func (b *BoltTable) Insert(_ context.Context, item *models.VectorItem) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket(b.bucket)
		seq, err := bkt.NextSequence()
		if err != nil {
			return err
		}
		data, err := json.Marshal(boltRow{
			ID:        item.ID,
			Type:      item.Type,
			Timestamp: item.Timestamp,
			Text:      item.Text,
			Embedding: item.Embedding,
			Meta:      item.Meta,
			Seq:       seq,
		})
		if err != nil {
			return err
		}
		return bkt.Put([]byte(item.ID), data)
	})
}

// LoadRecent returns up to limit items ordered by ts descending, newest insert first on ties.
// Rows that cannot be decoded are skipped.
func (b *BoltTable) LoadRecent(_ context.Context, limit int) ([]*models.VectorItem, error) {
	var rows []boltRow
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(b.bucket).ForEach(func(k, v []byte) error {
			var row boltRow
			if err := json.Unmarshal(v, &row); err != nil {
				return nil
			}
			if row.ID == "" {
				row.ID = string(k)
			}
			rows = append(rows, row)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Timestamp != rows[j].Timestamp {
			return rows[i].Timestamp > rows[j].Timestamp
		}
		return rows[i].Seq > rows[j].Seq
	})
	if limit >= 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	items := make([]*models.VectorItem, len(rows))
	for i, r := range rows {
		items[i] = &models.VectorItem{
			ID:        r.ID,
			Type:      r.Type,
			Timestamp: r.Timestamp,
			Text:      r.Text,
			Embedding: r.Embedding,
			Meta:      r.Meta,
		}
	}
	return items, nil
}

// Delete removes rows by ID in a single transaction.
func (b *BoltTable) Delete(_ context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket(b.bucket)
		for _, id := range ids {
			if err := bkt.Delete([]byte(id)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Count returns the number of rows.
func (b *BoltTable) Count(_ context.Context) (int64, error) {
	var n int64
	err := b.db.View(func(tx *bbolt.Tx) error {
		n = int64(tx.Bucket(b.bucket).Stats().KeyN)
		return nil
	})
	return n, err
}

// Kind returns "bolt".
func (b *BoltTable) Kind() string {
	return "bolt"
}

// Close closes the database.
func (b *BoltTable) Close() error {
	return b.db.Close()
}

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/coachmem/internal/models"
)

// DeleteChunkSize bounds the number of IDs bound in one DELETE statement.
const DeleteChunkSize = 50

// SQLiteTable implements Table using SQLite. Embedding and meta are stored as JSON text.
type SQLiteTable struct {
	db    *sql.DB
	table string
}

// NewSQLiteTable opens or creates a SQLite database at dbPath and ensures the table exists.
// Parent directories are created if they do not exist.
func NewSQLiteTable(dbPath, table string) (*SQLiteTable, error) {
	if table == "" {
		table = DefaultTableName
	}
	if err := ValidateTableName(table); err != nil {
		return nil, err
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time; the busy timeout covers other processes.
	db.SetMaxOpenConns(1)

	if err := initSchema(db, table); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteTable{db: db, table: table}, nil
}

func initSchema(db *sql.DB, table string) error {
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %[1]s (
		id TEXT PRIMARY KEY NOT NULL,
		type TEXT,
		ts INTEGER,
		text TEXT,
		embedding TEXT,
		meta TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_%[1]s_ts ON %[1]s(ts);
	`, table)
	_, err := db.Exec(schema)
	return err
}

// Insert writes item, replacing any existing row with the same ID.
func (s *SQLiteTable) Insert(ctx context.Context, item *models.VectorItem) error {
	embeddingJSON, err := json.Marshal(item.Embedding)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}
	var meta sql.NullString
	if item.Meta != nil {
		metaJSON, err := json.Marshal(item.Meta)
		if err != nil {
			return fmt.Errorf("failed to marshal meta: %w", err)
		}
		meta = sql.NullString{String: string(metaJSON), Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT OR REPLACE INTO %s (id, type, ts, text, embedding, meta)
		 VALUES (?, ?, ?, ?, ?, ?)`, s.table),
		item.ID, item.Type, item.Timestamp, item.Text, string(embeddingJSON), meta,
	)
	return err
}

// LoadRecent returns up to limit items ordered by ts descending.
// Rows whose embedding or meta cannot be decoded are returned with that field empty.
func (s *SQLiteTable) LoadRecent(ctx context.Context, limit int) ([]*models.VectorItem, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, type, ts, text, embedding, meta
		 FROM %s ORDER BY ts DESC, rowid DESC LIMIT ?`, s.table),
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.VectorItem
	for rows.Next() {
		var (
			item          models.VectorItem
			itemType      sql.NullString
			ts            sql.NullInt64
			text          sql.NullString
			embeddingJSON sql.NullString
			metaJSON      sql.NullString
		)
		if err := rows.Scan(&item.ID, &itemType, &ts, &text, &embeddingJSON, &metaJSON); err != nil {
			return nil, err
		}
		item.Type = itemType.String
		item.Timestamp = ts.Int64
		item.Text = text.String
		if embeddingJSON.Valid && embeddingJSON.String != "" {
			if err := json.Unmarshal([]byte(embeddingJSON.String), &item.Embedding); err != nil {
				item.Embedding = nil
			}
		}
		if metaJSON.Valid && metaJSON.String != "" {
			_ = json.Unmarshal([]byte(metaJSON.String), &item.Meta)
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}

// Delete removes rows by ID in chunks of DeleteChunkSize inside one transaction.
func (s *SQLiteTable) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, chunk := range chunkIDs(ids, DeleteChunkSize) {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		args := make([]interface{}, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		query := fmt.Sprintf(`DELETE FROM %s WHERE id IN (%s)`, s.table, placeholders)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Count returns the number of rows.
func (s *SQLiteTable) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table)).Scan(&count)
	return count, err
}

// Kind returns "sqlite".
func (s *SQLiteTable) Kind() string {
	return "sqlite"
}

// Close closes the database connection.
func (s *SQLiteTable) Close() error {
	return s.db.Close()
}

// chunkIDs splits ids into consecutive slices of at most size elements.
func chunkIDs(ids []string, size int) [][]string {
	var chunks [][]string
	for len(ids) > 0 {
		n := size
		if n > len(ids) {
			n = len(ids)
		}
		chunks = append(chunks, ids[:n])
		ids = ids[n:]
	}
	return chunks
}

// Package storage defines the durable table that backs a persistent retrieval store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/hyperjump/coachmem/internal/models"
)

// DefaultTableName is the table (or bucket) holding vector items.
const DefaultTableName = "vector_items"

// ErrInvalidTableName is returned for table names that are not plain identifiers.
var ErrInvalidTableName = errors.New("invalid table name")

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Table is a durable key/value table of vector items keyed by item ID.
type Table interface {
	// Insert writes item, replacing any row with the same ID.
	Insert(ctx context.Context, item *models.VectorItem) error
	// LoadRecent returns up to limit items, most recent timestamp first.
	LoadRecent(ctx context.Context, limit int) ([]*models.VectorItem, error)
	// Delete removes the rows with the given IDs. Unknown IDs are ignored.
	Delete(ctx context.Context, ids []string) error
	// Count returns the number of rows.
	Count(ctx context.Context) (int64, error)
	// Kind names the backend ("sqlite", "bolt").
	Kind() string
	Close() error
}

// ValidateTableName rejects names that cannot be used verbatim as an identifier.
func ValidateTableName(name string) error {
	if !tableNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidTableName, name)
	}
	return nil
}

package models

import (
	"fmt"
	"strings"
)

const (
	// DefaultK is the number of results returned when K is unset.
	DefaultK = 3
	// DefaultMinScore is the similarity floor applied when MinScore is unset.
	DefaultMinScore = 0.15
)

// SearchQuery represents a similarity search request.
// MinScore is a pointer so that an explicit 0 can be told apart from "unset".
type SearchQuery struct {
	Query    string   `json:"query"`
	K        int      `json:"k,omitempty"`
	MinScore *float64 `json:"min_score,omitempty"`
}

// IsBlank reports whether the query has no text besides whitespace.
func (q *SearchQuery) IsBlank() bool {
	return strings.TrimSpace(q.Query) == ""
}

// ApplyDefaults fills K and MinScore when unset.
func (q *SearchQuery) ApplyDefaults() {
	if q.K <= 0 {
		q.K = DefaultK
	}
	if q.MinScore == nil {
		m := DefaultMinScore
		q.MinScore = &m
	}
}

// Validate rejects a blank query. Defaults are left to the caller.
func (q *SearchQuery) Validate() error {
	if q.IsBlank() {
		return fmt.Errorf("query cannot be empty")
	}
	return nil
}

// MinScoreOrDefault returns MinScore, or DefaultMinScore when unset.
func (q *SearchQuery) MinScoreOrDefault() float64 {
	if q.MinScore == nil {
		return DefaultMinScore
	}
	return *q.MinScore
}

// PruneRequest asks the store to keep at most MaxItems items.
type PruneRequest struct {
	MaxItems int `json:"max_items"`
}

// Validate rejects negative limits.
func (r *PruneRequest) Validate() error {
	if r.MaxItems < 0 {
		return fmt.Errorf("max_items cannot be negative")
	}
	return nil
}

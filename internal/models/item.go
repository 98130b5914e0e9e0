// Package models defines core data structures for stored items, queries, and results.
package models

import (
	"fmt"
	"strings"
)

// Known item types. Type is open-ended; any other string is accepted.
const (
	TypeMessage  = "message"
	TypeMood     = "mood"
	TypeTactic   = "tactic"
	TypeExercise = "exercise"
	TypeSummary  = "summary"
)

// VectorItem is a stored retrievable unit. Items are immutable once stored.
type VectorItem struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Timestamp int64                  `json:"ts"` // epoch milliseconds
	Text      string                 `json:"text"`
	Embedding []float64              `json:"embedding"`
	Meta      map[string]interface{} `json:"meta,omitempty"`
}

// AddParams is the input for adding an item.
// A non-empty Embedding is trusted as-is and skips the embedding provider.
type AddParams struct {
	ID        string                 `json:"id,omitempty"`
	Type      string                 `json:"type"`
	Text      string                 `json:"text"`
	Timestamp int64                  `json:"ts,omitempty"`
	Meta      map[string]interface{} `json:"meta,omitempty"`
	Embedding []float64              `json:"embedding,omitempty"`
}

// Validate checks the fields a caller must supply. The store itself does not
// call it; boundaries (HTTP, CLI) do.
func (p *AddParams) Validate() error {
	if strings.TrimSpace(p.Type) == "" {
		return fmt.Errorf("type cannot be empty")
	}
	if strings.TrimSpace(p.Text) == "" {
		return fmt.Errorf("text cannot be empty")
	}
	return nil
}

package search

import (
	"github.com/hyperjump/coachmem/internal/config"
	"github.com/hyperjump/coachmem/internal/models"
)

// ProcessQuery fills K and MinScore from cfg when unset, then from the model
// defaults. The query text is left as given.
func ProcessQuery(query *models.SearchQuery, cfg *config.SearchConfig) {
	if cfg != nil {
		if query.K <= 0 && cfg.DefaultK > 0 {
			query.K = cfg.DefaultK
		}
		if query.MinScore == nil {
			m := cfg.DefaultMinScore
			query.MinScore = &m
		}
	}
	query.ApplyDefaults()
}

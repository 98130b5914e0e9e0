package config

import "time"

// Default values applied by ApplyDefaults.
const (
	DefaultHost               = "localhost"
	DefaultPort               = 8080
	DefaultBackend            = "sqlite"
	DefaultDatabasePath       = "/usr/local/var/coachmem/data/vectors.db"
	DefaultTable              = "vector_items"
	DefaultMaxLoad            = 1500
	DefaultEmbeddingTimeout   = 4 * time.Second
	DefaultFallbackDimensions = 64
	DefaultCacheSize          = 1000
	DefaultK                  = 3
	DefaultMinScore           = 0.15
	DefaultRetentionMaxItems  = 1000
	DefaultRetentionInterval  = 5 * time.Minute
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = DefaultBackend
	}
	if cfg.Storage.DatabasePath == "" && cfg.Storage.Backend != "memory" {
		cfg.Storage.DatabasePath = DefaultDatabasePath
	}
	if cfg.Storage.Table == "" {
		cfg.Storage.Table = DefaultTable
	}
	if cfg.Storage.MaxLoad == 0 {
		cfg.Storage.MaxLoad = DefaultMaxLoad
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = DefaultEmbeddingTimeout
	}
	if cfg.Embedding.FallbackDimensions == 0 {
		cfg.Embedding.FallbackDimensions = DefaultFallbackDimensions
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = DefaultCacheSize
	}
	if cfg.Embedding.RateLimit > 0 && cfg.Embedding.RateBurst == 0 {
		cfg.Embedding.RateBurst = 1
	}
	if cfg.Search.DefaultK == 0 {
		cfg.Search.DefaultK = DefaultK
	}
	if cfg.Search.DefaultMinScore == 0 {
		cfg.Search.DefaultMinScore = DefaultMinScore
	}
	// An absent retention section gets the default loop; a section that sets
	// max_items without an interval keeps the loop disabled.
	if cfg.Retention.MaxItems == 0 && cfg.Retention.Interval == 0 {
		cfg.Retention.MaxItems = DefaultRetentionMaxItems
		cfg.Retention.Interval = DefaultRetentionInterval
	} else if cfg.Retention.MaxItems == 0 {
		cfg.Retention.MaxItems = DefaultRetentionMaxItems
	}
}

package models

// BulkAddRequest is the body of a bulk add.
type BulkAddRequest struct {
	Items []AddParams `json:"items"`
}

// ItemsResponse lists stored items.
type ItemsResponse struct {
	Items []*VectorItem `json:"items"`
	Total int           `json:"total"`
}

// PruneResponse reports how many items a prune removed.
type PruneResponse struct {
	Removed int `json:"removed"`
	Size    int `json:"size"`
}

// EmbeddingStatus describes how embeddings are produced.
type EmbeddingStatus struct {
	Remote             bool   `json:"remote"`
	Endpoint           string `json:"endpoint,omitempty"`
	Timeout            string `json:"timeout"`
	FallbackDimensions int    `json:"fallback_dimensions"`
	CacheSize          int    `json:"cache_size"`
}

// StatusResponse is the body of the status endpoint.
type StatusResponse struct {
	Items          int             `json:"items"`
	Backend        string          `json:"backend"`
	Searching      bool            `json:"searching"`
	DatabasePath   string          `json:"database_path,omitempty"`
	DiskUsageBytes int64           `json:"disk_usage_bytes,omitempty"`
	StoredRows     *int64          `json:"stored_rows,omitempty"`
	Embedding      EmbeddingStatus `json:"embedding"`
}

package models

// SimilarityResult is a stored item scored against a query vector.
type SimilarityResult struct {
	VectorItem
	Score float64 `json:"score"` // cosine similarity
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Results   []*SimilarityResult `json:"results"`
	Total     int                 `json:"total"`
	QueryTime int64               `json:"query_time_ms"`
	Query     string              `json:"query"`
}

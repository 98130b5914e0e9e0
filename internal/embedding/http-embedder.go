package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const maxResponseBytes = 8 << 20

// ErrEmptyEmbedding is returned when the endpoint answers without a usable vector.
var ErrEmptyEmbedding = errors.New("embedding endpoint returned no embedding")

// EmbedRequest is the JSON body sent to an embedding endpoint.
type EmbedRequest struct {
	Text string `json:"text"`
}

// EmbedResponse is the JSON body expected from an embedding endpoint.
type EmbedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// HTTPEmbedder calls a remote endpoint that accepts {"text": ...} and answers
// {"embedding": [...]}. The dimension is whatever the endpoint returns.
type HTTPEmbedder struct {
	endpoint string
	client   *http.Client
}

// NewHTTPEmbedder creates an embedder for endpoint. A nil client uses http.DefaultClient.
func NewHTTPEmbedder(endpoint string, client *http.Client) *HTTPEmbedder {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPEmbedder{endpoint: endpoint, client: client}
}

// Endpoint returns the configured URL.
func (e *HTTPEmbedder) Endpoint() string {
	return e.endpoint
}

// Embed posts text to the endpoint and decodes the returned vector.
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	body, err := json.Marshal(EmbedRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}

	var out EmbedResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, ErrEmptyEmbedding
	}
	return out.Embedding, nil
}

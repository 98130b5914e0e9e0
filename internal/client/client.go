// Package client is a typed HTTP client for the coachmem API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hyperjump/coachmem/internal/models"
)

// DefaultTimeout bounds a single request when no http.Client is supplied.
const DefaultTimeout = 30 * time.Second

// Client talks to a running coachmem server.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for baseURL (e.g. "http://localhost:8080"). A nil
// httpClient uses one with DefaultTimeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Add stores one item.
func (c *Client) Add(ctx context.Context, params models.AddParams) (*models.VectorItem, error) {
	var item models.VectorItem
	if err := c.do(ctx, http.MethodPost, "/api/v1/items", params, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// BulkAdd stores items in order.
func (c *Client) BulkAdd(ctx context.Context, params []models.AddParams) ([]*models.VectorItem, error) {
	var resp models.ItemsResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/items/bulk", models.BulkAddRequest{Items: params}, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// List returns all stored items.
func (c *Client) List(ctx context.Context) ([]*models.VectorItem, error) {
	var resp models.ItemsResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/items", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// Search runs a similarity query.
func (c *Client) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	var resp models.SearchResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/search", query, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Prune keeps at most maxItems items.
func (c *Client) Prune(ctx context.Context, maxItems int) (*models.PruneResponse, error) {
	var resp models.PruneResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/prune", models.PruneRequest{MaxItems: maxItems}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status returns store and embedding status.
func (c *Client) Status(ctx context.Context) (*models.StatusResponse, error) {
	var resp models.StatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health checks that the server answers.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(b))
		if json.Unmarshal(b, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

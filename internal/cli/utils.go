// Package cli renders results and status for the coachmem command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/hyperjump/coachmem/internal/models"
	"github.com/hyperjump/coachmem/pkg/utils"
)

// OutputFormat selects how results are written.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputCompact is one line per result.
	OutputCompact OutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const textPreviewLen = 200

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, OutputCompact, OutputJSON:
		return OutputFormat(s), nil
	case "":
		return OutputText, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text, compact or json", s)
	}
}

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, response)
	case OutputCompact:
		for _, r := range response.Results {
			fmt.Fprintf(w, "%.4f\t%s\t%s\t%s\n", r.Score, r.ID, r.Type, utils.Truncate(utils.SingleLine(r.Text), 80))
		}
		return nil
	default:
		fmt.Fprintf(w, "\nFound %d results for %q in %dms\n\n", response.Total, response.Query, response.QueryTime)
		for i, r := range response.Results {
			fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
			fmt.Fprintf(w, "Rank: %d | Score: %.4f | Type: %s\n", i+1, r.Score, r.Type)
			writeItemBody(w, &r.VectorItem)
		}
		return nil
	}
}

// WriteItems writes a list of items to w in the given format.
func WriteItems(w io.Writer, items []*models.VectorItem, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, models.ItemsResponse{Items: items, Total: len(items)})
	case OutputCompact:
		for _, it := range items {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", it.ID, formatTimestamp(it.Timestamp), it.Type, utils.Truncate(utils.SingleLine(it.Text), 80))
		}
		return nil
	default:
		fmt.Fprintf(w, "\n%d items\n\n", len(items))
		for _, it := range items {
			fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
			fmt.Fprintf(w, "Type: %s\n", it.Type)
			writeItemBody(w, it)
		}
		return nil
	}
}

// WriteStatus writes store status to w in the given format.
func WriteStatus(w io.Writer, st *models.StatusResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "items:               %d\n", st.Items)
	fmt.Fprintf(w, "backend:             %s\n", st.Backend)
	if st.StoredRows != nil {
		fmt.Fprintf(w, "stored_rows:         %d\n", *st.StoredRows)
	}
	if st.DatabasePath != "" {
		fmt.Fprintf(w, "database_path:       %s\n", st.DatabasePath)
	}
	if st.DiskUsageBytes > 0 {
		fmt.Fprintf(w, "disk_usage_bytes:    %d\n", st.DiskUsageBytes)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "# embedding")
	if st.Embedding.Remote {
		fmt.Fprintf(w, "endpoint:            %s\n", st.Embedding.Endpoint)
		fmt.Fprintf(w, "timeout:             %s\n", st.Embedding.Timeout)
		fmt.Fprintf(w, "cache_size:          %d\n", st.Embedding.CacheSize)
	} else {
		fmt.Fprintln(w, "endpoint:            (none, local fallback only)")
	}
	fmt.Fprintf(w, "fallback_dimensions: %d\n", st.Embedding.FallbackDimensions)
	return nil
}

func writeItemBody(w io.Writer, it *models.VectorItem) {
	fmt.Fprintf(w, "ID: %s | Time: %s\n", it.ID, formatTimestamp(it.Timestamp))
	if len(it.Meta) > 0 {
		keys := make([]string, 0, len(it.Meta))
		for k := range it.Meta {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "  %s: %v\n", k, it.Meta[k])
		}
	}
	fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(it.Text, textPreviewLen))
}

func formatTimestamp(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

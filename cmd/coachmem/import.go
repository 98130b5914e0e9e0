package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/hyperjump/coachmem/internal/models"
)

const (
	defaultImportBatch = 100
	maxImportLineBytes = 1 << 20
)

func (a *app) newImportCmd() *cobra.Command {
	var (
		batchSize int
		quiet     bool
	)
	cmd := &cobra.Command{
		Use:   "import [flags] <file.jsonl>",
		Short: "Bulk load items from JSON Lines (one AddParams object per line, \"-\" for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open import file: %w", err)
				}
				defer f.Close()
				r = f
			}
			params, err := readImportLines(r)
			if err != nil {
				return err
			}
			if len(params) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to import")
				return nil
			}

			b, err := a.open()
			if err != nil {
				return err
			}
			defer b.Close()

			var progressOut io.Writer = cmd.ErrOrStderr()
			if quiet {
				progressOut = io.Discard
			}
			bar := newImportBar(len(params), progressOut)
			if batchSize <= 0 {
				batchSize = defaultImportBatch
			}
			imported := 0
			for start := 0; start < len(params); start += batchSize {
				end := start + batchSize
				if end > len(params) {
					end = len(params)
				}
				items, err := b.BulkAdd(cmd.Context(), params[start:end])
				imported += len(items)
				_ = bar.Add(len(items))
				if err != nil {
					return fmt.Errorf("import stopped after %d items: %w", imported, err)
				}
			}
			_ = bar.Finish()
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d items\n", imported)
			return nil
		},
	}
	cmd.Flags().IntVar(&batchSize, "batch-size", defaultImportBatch, "items per bulk request")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "hide the progress bar")
	return cmd
}

func newImportBar(total int, w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Importing[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(w)
		}),
	)
}

// readImportLines decodes one AddParams per non-blank line and validates it.
// Errors name the 1-based line number.
func readImportLines(r io.Reader) ([]models.AddParams, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxImportLineBytes)
	var out []models.AddParams
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var p models.AddParams
		if err := json.Unmarshal([]byte(text), &p); err != nil {
			return nil, fmt.Errorf("line %d: invalid JSON: %w", line, err)
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read import file: %w", err)
	}
	return out, nil
}

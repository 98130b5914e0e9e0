package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/coachmem/internal/cli"
	"github.com/hyperjump/coachmem/internal/client"
	"github.com/hyperjump/coachmem/internal/models"
	"github.com/hyperjump/coachmem/internal/retention"
	"github.com/hyperjump/coachmem/internal/server"
	"github.com/hyperjump/coachmem/pkg/utils"
)

// app carries the persistent flags shared by every command.
type app struct {
	configPath string
	serverURL  string
	output     string
	debug      bool
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "coachmem",
		Short: "Embedded vector memory for coaching conversations",
		Long: `coachmem stores short coaching texts (messages, moods, tactics, exercises,
summaries) with embeddings and retrieves the most similar ones for a query.

Example usage:
  coachmem server                                    # Start the HTTP API
  coachmem add --type tactic "Try slow breathing"    # Store an item
  coachmem search -k 3 "anxious feelings"            # Retrieve similar items
  coachmem import items.jsonl                        # Bulk load JSON Lines`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", defaultConfigPath, "config file path")
	root.PersistentFlags().StringVar(&a.serverURL, "server", "", "server URL (empty = open the configured store directly)")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", "text", "output format: text, compact or json")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		a.newServerCmd(),
		a.newAddCmd(),
		a.newSearchCmd(),
		a.newPruneCmd(),
		a.newListCmd(),
		a.newStatusCmd(),
		a.newImportCmd(),
		newVersionCmd(),
	)
	return root
}

// open returns a backend for the item commands: the HTTP client when --server
// is set, otherwise the configured store opened in-process.
func (a *app) open() (backend, error) {
	if a.serverURL != "" {
		return remoteBackend{client.New(a.serverURL, nil)}, nil
	}
	cfg, _, err := loadConfig(a.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := utils.NewCLILogger(cfg.Debug || a.debug)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &localBackend{components: components, cfg: cfg}, nil
}

func (a *app) format() (cli.OutputFormat, error) {
	return cli.ParseOutputFormat(a.output)
}

func (a *app) newServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runServer()
		},
	}
}

func (a *app) runServer() error {
	cfg, resolvedConfigPath, err := loadConfig(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	debugMode := cfg.Debug || a.debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.String("backend", cfg.Storage.Backend),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	policy := retention.NewPolicy(components.Engine, cfg.Retention.MaxItems, cfg.Retention.Interval, retention.WithLogger(logger))
	if err := policy.Start(ctx); err != nil {
		if !errors.Is(err, retention.ErrDisabled) {
			return err
		}
		logger.Info("retention loop disabled")
	}
	defer policy.Stop()

	srv := server.NewServer(components.Engine, components.Provider, cfg, logger)
	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigChan:
	case err := <-errc:
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Stop(shutdownCtx)
}

func (a *app) newAddCmd() *cobra.Command {
	var (
		itemType string
		id       string
		ts       int64
		meta     map[string]string
	)
	cmd := &cobra.Command{
		Use:   "add [flags] <text>",
		Short: "Store one item",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := a.format()
			if err != nil {
				return err
			}
			params := models.AddParams{
				ID:        id,
				Type:      itemType,
				Text:      joinArgs(args),
				Timestamp: ts,
				Meta:      parseMeta(meta),
			}
			if err := params.Validate(); err != nil {
				return err
			}
			b, err := a.open()
			if err != nil {
				return err
			}
			defer b.Close()
			item, err := b.Add(cmd.Context(), params)
			if err != nil {
				return fmt.Errorf("add failed: %w", err)
			}
			return cli.WriteItems(cmd.OutOrStdout(), []*models.VectorItem{item}, format)
		},
	}
	cmd.Flags().StringVarP(&itemType, "type", "t", models.TypeMessage, "item type (message, mood, tactic, exercise, summary, ...)")
	cmd.Flags().StringVar(&id, "id", "", "item id (default: generated)")
	cmd.Flags().Int64Var(&ts, "ts", 0, "timestamp in epoch milliseconds (default: now)")
	cmd.Flags().StringToStringVarP(&meta, "meta", "m", nil, "metadata key=value pairs; JSON values are decoded")
	return cmd
}

func (a *app) newSearchCmd() *cobra.Command {
	var (
		k        int
		minScore float64
	)
	cmd := &cobra.Command{
		Use:   "search [flags] <query>",
		Short: "Retrieve the items most similar to a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := a.format()
			if err != nil {
				return err
			}
			query := &models.SearchQuery{Query: joinArgs(args), K: k}
			if cmd.Flags().Changed("min-score") {
				query.MinScore = &minScore
			}
			if err := query.Validate(); err != nil {
				return err
			}
			b, err := a.open()
			if err != nil {
				return err
			}
			defer b.Close()
			resp, err := b.Search(cmd.Context(), query)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			return cli.WriteSearchResults(cmd.OutOrStdout(), resp, format)
		},
	}
	cmd.Flags().IntVarP(&k, "top", "k", 0, "number of results (default from config)")
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "minimum similarity (default from config)")
	return cmd
}

func (a *app) newPruneCmd() *cobra.Command {
	var maxItems int
	cmd := &cobra.Command{
		Use:   "prune --max-items N",
		Short: "Evict the oldest items so that at most N remain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := models.PruneRequest{MaxItems: maxItems}
			if err := req.Validate(); err != nil {
				return err
			}
			b, err := a.open()
			if err != nil {
				return err
			}
			defer b.Close()
			resp, err := b.Prune(cmd.Context(), maxItems)
			if err != nil {
				return fmt.Errorf("prune failed: %w", err)
			}
			if a.output == string(cli.OutputJSON) {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(resp)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d items, %d remain\n", resp.Removed, resp.Size)
			return nil
		},
	}
	cmd.Flags().IntVar(&maxItems, "max-items", 0, "number of items to keep")
	_ = cmd.MarkFlagRequired("max-items")
	return cmd
}

func (a *app) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored items, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := a.format()
			if err != nil {
				return err
			}
			b, err := a.open()
			if err != nil {
				return err
			}
			defer b.Close()
			items, err := b.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list failed: %w", err)
			}
			return cli.WriteItems(cmd.OutOrStdout(), items, format)
		},
	}
}

func (a *app) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show store and embedding status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := a.format()
			if err != nil {
				return err
			}
			b, err := a.open()
			if err != nil {
				return err
			}
			defer b.Close()
			st, err := b.Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("status failed: %w", err)
			}
			return cli.WriteStatus(cmd.OutOrStdout(), st, format)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "coachmem version %s\n", version)
		},
	}
}

// joinArgs joins positional args into one trimmed string, so multi-word
// texts work with or without quotes.
func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// parseMeta converts --meta pairs into item metadata. Values that parse as
// JSON (numbers, booleans, objects) keep their JSON type; others stay strings.
func parseMeta(pairs map[string]string) map[string]interface{} {
	if len(pairs) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(pairs))
	for k, v := range pairs {
		var decoded interface{}
		if err := json.Unmarshal([]byte(v), &decoded); err == nil {
			out[k] = decoded
			continue
		}
		out[k] = v
	}
	return out
}

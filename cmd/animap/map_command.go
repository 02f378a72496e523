package main

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"animap/internal/catalog"
	"animap/internal/config"
	"animap/internal/gateway"
	"animap/internal/jikan"
	"animap/internal/mapstore"
	"animap/internal/match"
	"animap/internal/relations"
	"animap/internal/resolve"
)

func newMapCommand(ctx *commandContext) *cobra.Command {
	var categoryFlag string

	cmd := &cobra.Command{
		Use:   "map",
		Short: "Resolve the catalog tree against the sequential catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			categories, err := parseCategories(categoryFlag)
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}

			lock := flock.New(filepath.Join(cfg.Paths.StoreDir, "animap.lock"))
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire run lock: %w", err)
			}
			if !locked {
				return fmt.Errorf("another animap run is already using %s", cfg.Paths.StoreDir)
			}
			defer func() { _ = lock.Unlock() }()

			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			tree, err := catalog.Load(cfg.Paths.DataDir, logger)
			if err != nil {
				return fmt.Errorf("load catalog tree: %w", err)
			}
			tree = filterTree(tree, categories)

			overrides := resolve.Overrides{}
			for _, cat := range categories {
				pinned, err := catalog.LoadOverrides(cfg.Paths.OverridesDir, cat, logger)
				if err != nil {
					return fmt.Errorf("load overrides: %w", err)
				}
				if len(pinned) > 0 {
					overrides[cat] = pinned
				}
			}

			store, err := mapstore.Open(cfg.Paths.StoreDir)
			if err != nil {
				return fmt.Errorf("open mapping store: %w", err)
			}
			defer func() { _ = store.Close() }()

			client, err := jikan.New(cfg.Jikan.BaseURL, time.Duration(cfg.Jikan.RequestTimeout)*time.Second)
			if err != nil {
				return fmt.Errorf("create catalog client: %w", err)
			}
			gw := gateway.New(client, gatewayConfig(cfg), logger)
			matcher := match.New(match.Config{
				Threshold:         cfg.Matcher.Threshold,
				SubtitleThreshold: cfg.Matcher.SubtitleThreshold,
			})
			walker := relations.New(gw, relations.Config{NameThreshold: cfg.Matcher.RelationThreshold}, logger)
			engine := resolve.New(gw, store, matcher, walker, resolve.Config{
				SeriesWorkers: cfg.Workflow.SeriesWorkers,
				SearchLimit:   cfg.Jikan.SearchLimit,
			}, logger)

			logger.Info("starting mapping run",
				"component", "animap",
				"run_id", engine.RunID(),
				"series", len(tree.All()))
			if err := engine.Run(runCtx, tree, overrides); err != nil {
				return fmt.Errorf("mapping run: %w", err)
			}

			summary, err := store.Summarize(cmd.Context())
			if err != nil {
				return fmt.Errorf("summarize store: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderSummary(summary))
			return nil
		},
	}

	cmd.Flags().StringVar(&categoryFlag, "category", "all", "Category to map (series, movie, or all)")
	return cmd
}

func gatewayConfig(cfg *config.Config) gateway.Config {
	windows := make([]gateway.Window, 0, len(cfg.Gateway.Windows))
	for _, w := range cfg.Gateway.Windows {
		windows = append(windows, gateway.Window{
			Calls: w.Calls,
			Per:   time.Duration(w.PerMillis) * time.Millisecond,
		})
	}
	return gateway.Config{
		Windows:        windows,
		MaxInFlight:    int64(cfg.Gateway.MaxInFlight),
		RetryAttempts:  cfg.Gateway.RetryAttempts,
		BackoffInitial: time.Duration(cfg.Gateway.BackoffInitialMS) * time.Millisecond,
		BackoffMax:     time.Duration(cfg.Gateway.BackoffMaxSec) * time.Second,
	}
}

func parseCategories(value string) ([]catalog.Category, error) {
	switch value {
	case "all", "":
		return catalog.Categories(), nil
	case string(catalog.CategorySeries):
		return []catalog.Category{catalog.CategorySeries}, nil
	case string(catalog.CategoryMovie):
		return []catalog.Category{catalog.CategoryMovie}, nil
	default:
		return nil, fmt.Errorf("unknown category %q (use series, movie, or all)", value)
	}
}

func filterTree(tree *catalog.Tree, categories []catalog.Category) *catalog.Tree {
	filtered := &catalog.Tree{Series: map[catalog.Category][]*catalog.Series{}}
	for _, cat := range categories {
		if series, ok := tree.Series[cat]; ok {
			filtered.Series[cat] = series
		}
	}
	return filtered
}

package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"animap/internal/catalog"
	"animap/internal/jikan"
	"animap/internal/match"
	"animap/internal/mapstore"
	"animap/internal/relations"
	"animap/internal/textutil"
)

// Catalog is the slice of the gateway the engine needs.
type Catalog interface {
	Search(ctx context.Context, query string, opts jikan.SearchOptions) (*jikan.SearchResponse, error)
	Anime(ctx context.Context, id int64) (*jikan.Anime, error)
	EpisodeURL(ctx context.Context, id int64, number int) (string, error)
	Relations(ctx context.Context, id int64) ([]jikan.RelationGroup, error)
}

// Store is the slice of the mapping store the engine needs.
type Store interface {
	Load(ctx context.Context) (map[string]mapstore.Mapping, error)
	RecordMapping(ctx context.Context, m mapstore.Mapping) error
	RecordUnmapped(ctx context.Context, u mapstore.Unmapped) error
}

// Config controls run parallelism and search sizing.
type Config struct {
	// SeriesWorkers bounds how many series resolve in parallel. Traversal
	// within one series is always sequential.
	SeriesWorkers int
	// SearchLimit is the result page size requested from the catalog.
	SearchLimit int
}

func (c Config) withDefaults() Config {
	if c.SeriesWorkers <= 0 {
		c.SeriesWorkers = 4
	}
	if c.SearchLimit <= 0 {
		c.SearchLimit = 10
	}
	return c
}

// Overrides pins node ids to sequential ids ahead of any search, keyed by
// category then hierarchical id.
type Overrides map[catalog.Category]map[string]int64

// Engine resolves a hierarchical tree against the sequential catalog.
type Engine struct {
	catalog Catalog
	store   Store
	matcher *match.Matcher
	walker  *relations.Walker
	cfg     Config
	logger  *slog.Logger
	runID   string
}

// New builds an Engine. Each Engine carries a fresh run id that is stamped
// on every record it writes.
func New(cat Catalog, store Store, matcher *match.Matcher, walker *relations.Walker, cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	runID := uuid.NewString()
	return &Engine{
		catalog: cat,
		store:   store,
		matcher: matcher,
		walker:  walker,
		cfg:     cfg.withDefaults(),
		logger:  logger.With("component", "resolve", "run_id", runID),
		runID:   runID,
	}
}

// RunID returns the identifier stamped on records written by this engine.
func (e *Engine) RunID() string { return e.runID }

// Run resolves every series in the tree. Series run in parallel up to the
// configured worker count; nodes within a series resolve strictly in order.
// Resolution failures are recorded, not returned; Run errors only on
// cancellation or store failure.
func (e *Engine) Run(ctx context.Context, tree *catalog.Tree, overrides Overrides) error {
	cache, err := e.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load mapping cache: %w", err)
	}

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(e.cfg.SeriesWorkers)
	for _, series := range tree.All() {
		series := series
		group.Go(func() error {
			return e.resolveSeries(ctx, series, cache, overrides[series.Category])
		})
	}
	return group.Wait()
}

// resolveSeries anchors one series and descends into its seasons.
func (e *Engine) resolveSeries(ctx context.Context, series *catalog.Series, cache map[string]mapstore.Mapping, overrides map[string]int64) error {
	log := e.logger.With("series", series.ID)

	anchor, err := e.resolveAnchor(ctx, series, cache, overrides, log)
	if err != nil {
		return err
	}
	if anchor == 0 {
		return e.markSubtreeUnmapped(ctx, series, cache)
	}
	if series.Category == catalog.CategoryMovie {
		return nil
	}

	st := &state{}
	st.reset(anchor)

	for _, num := range series.SeasonNumbers() {
		season := series.Season(num)
		if num == 0 {
			if err := e.resolveSpecials(ctx, series, season, cache, log); err != nil {
				return err
			}
			continue
		}
		if err := e.resolveSeason(ctx, series, num, season, st, cache, log); err != nil {
			return err
		}
	}
	return nil
}

// resolveAnchor determines the series-level sequential id: cache first, then
// overrides, then typed title search. Returns 0 when the series cannot be
// anchored; the failure has already been recorded.
func (e *Engine) resolveAnchor(ctx context.Context, series *catalog.Series, cache map[string]mapstore.Mapping, overrides map[string]int64, log *slog.Logger) (int64, error) {
	if m, ok := cache[series.ID]; ok {
		return m.SequentialID, nil
	}

	if id, ok := overrides[series.ID]; ok {
		log.Info("series pinned by override", "sequential_id", id)
		err := e.store.RecordMapping(ctx, mapstore.Mapping{
			NodeID:       series.ID,
			Kind:         mapstore.KindSeries,
			Category:     series.Category,
			SequentialID: id,
			URL:          pageURL(id),
			RunID:        e.runID,
		})
		return id, err
	}

	terms := series.SearchTitles()
	result, candidate, observed, err := e.searchBest(ctx, terms, searchTypes(series.Category), false)
	if err != nil {
		return 0, err
	}
	if candidate == nil {
		log.Info("series unmatched", "terms", len(terms), "observed", len(observed))
		err := e.store.RecordUnmapped(ctx, mapstore.Unmapped{
			NodeID:         series.ID,
			Kind:           mapstore.KindSeries,
			Category:       series.Category,
			SearchTerms:    terms,
			ObservedTitles: observed,
			RunID:          e.runID,
		})
		return 0, err
	}

	log.Info("series matched", "sequential_id", result.ID, "score", result.Score)
	err = e.store.RecordMapping(ctx, mapstore.Mapping{
		NodeID:       series.ID,
		Kind:         mapstore.KindSeries,
		Category:     series.Category,
		SequentialID: result.ID,
		URL:          candidateURL(candidate, result.ID),
		RunID:        e.runID,
	})
	return result.ID, err
}

// markSubtreeUnmapped records every uncached season and episode below a
// series that failed to anchor. Seasons cannot resolve without a series
// anchor, so the whole subtree is skipped in one pass.
func (e *Engine) markSubtreeUnmapped(ctx context.Context, series *catalog.Series, cache map[string]mapstore.Mapping) error {
	terms := series.SearchTitles()
	for _, num := range series.SeasonNumbers() {
		season := series.Season(num)
		if num != 0 {
			if _, ok := cache[season.ID]; !ok {
				err := e.store.RecordUnmapped(ctx, mapstore.Unmapped{
					NodeID:      season.ID,
					Kind:        mapstore.KindSeason,
					Category:    series.Category,
					Season:      ptr(num),
					SearchTerms: terms,
					RunID:       e.runID,
				})
				if err != nil {
					return err
				}
			}
		}
		for _, epNum := range season.EpisodeNumbers() {
			ep := season.Episode(epNum)
			if _, ok := cache[ep.ID]; ok {
				continue
			}
			err := e.store.RecordUnmapped(ctx, mapstore.Unmapped{
				NodeID:      ep.ID,
				Kind:        mapstore.KindEpisode,
				Category:    series.Category,
				Season:      ptr(num),
				Episode:     ptr(epNum),
				SearchTerms: terms,
				RunID:       e.runID,
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// searchBest tries every term under every type filter and returns the first
// candidate clearing the matcher's threshold, plus every title observed
// across failed attempts. Catalog failures degrade to "no data" for that
// attempt; only cancellation is returned as an error.
func (e *Engine) searchBest(ctx context.Context, terms []string, types []string, special bool) (match.Result, *jikan.Anime, []string, error) {
	var observed []string
	for _, typ := range types {
		for _, term := range terms {
			resp, err := e.catalog.Search(ctx, textutil.Normalize(term), jikan.SearchOptions{
				Type:  typ,
				Limit: e.cfg.SearchLimit,
			})
			if err != nil {
				if isCancel(err) {
					return match.Result{}, nil, nil, err
				}
				e.logger.Warn("search failed", "term", term, "type", typ, "error", err)
				continue
			}
			result, found, seen := e.matcher.Best(term, resp.Data, match.Options{
				Movie:   typ == "movie",
				Special: special,
			})
			if found {
				return result, findCandidate(resp.Data, result.ID), observed, nil
			}
			observed = append(observed, seen...)
		}
	}
	return match.Result{}, nil, dedupe(observed), nil
}

// searchTypes returns the type filters tried for a category, in order.
func searchTypes(cat catalog.Category) []string {
	if cat == catalog.CategoryMovie {
		return []string{"movie"}
	}
	return []string{"tv", "ona", "ova"}
}

func findCandidate(candidates []jikan.Anime, id int64) *jikan.Anime {
	for i := range candidates {
		if candidates[i].MalID == id {
			return &candidates[i]
		}
	}
	return nil
}

func candidateURL(candidate *jikan.Anime, id int64) string {
	if candidate != nil && candidate.URL != "" {
		return candidate.URL
	}
	return pageURL(id)
}

func pageURL(id int64) string {
	return "https://myanimelist.net/anime/" + strconv.FormatInt(id, 10)
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func ptr(v int) *int { return &v }

func isCancel(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

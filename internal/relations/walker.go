package relations

import (
	"context"
	"errors"
	"log/slog"

	"animap/internal/jikan"
	"animap/internal/textutil"
)

// Catalog is the slice of the gateway the walker needs.
type Catalog interface {
	Anime(ctx context.Context, id int64) (*jikan.Anime, error)
	Relations(ctx context.Context, id int64) ([]jikan.RelationGroup, error)
}

// Config controls successor selection.
type Config struct {
	// NameThreshold accepts a relation entry whose name matches the preferred
	// title, regardless of the declared relation kind.
	NameThreshold float64
}

func (c Config) withDefaults() Config {
	if c.NameThreshold <= 0 {
		c.NameThreshold = 85
	}
	return c
}

// Walker finds successor entries. Safe for concurrent use; the visited set is
// local to each FindSuccessor call.
type Walker struct {
	catalog Catalog
	cfg     Config
	logger  *slog.Logger
}

// New builds a Walker.
func New(catalog Catalog, cfg Config, logger *slog.Logger) *Walker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Walker{
		catalog: catalog,
		cfg:     cfg.withDefaults(),
		logger:  logger.With("component", "relations"),
	}
}

// FindSuccessor returns the successor of entryID, or ok=false when the
// relation graph is exhausted. A relation entry whose name matches
// preferredTitle wins over the declared Sequel tag; a 1-episode candidate that
// cannot cover requiredMinEpisodes is treated as a placeholder and walked
// through. Lookup failures end the walk; only cancellation is returned as an
// error.
func (w *Walker) FindSuccessor(ctx context.Context, entryID int64, requiredMinEpisodes int, preferredTitle string) (int64, bool, error) {
	preferred := textutil.Normalize(preferredTitle)
	visited := map[int64]struct{}{entryID: {}}
	current := entryID

	for {
		groups, err := w.catalog.Relations(ctx, current)
		if err != nil {
			return 0, false, w.swallow(current, "relations", err)
		}

		next, byName := w.pick(groups, preferred)
		if next == 0 {
			return 0, false, nil
		}
		if _, seen := visited[next]; seen {
			w.logger.Debug("relation cycle detected", "entry", current, "next", next)
			return 0, false, nil
		}
		visited[next] = struct{}{}

		if byName {
			return next, true, nil
		}

		anime, err := w.catalog.Anime(ctx, next)
		if err != nil {
			return 0, false, w.swallow(next, "anime", err)
		}
		episodes := 0
		if anime.Episodes != nil {
			episodes = *anime.Episodes
		}
		if (episodes == 1 && episodes < requiredMinEpisodes) || anime.Type == "OVA" || anime.Type == "Special" {
			w.logger.Debug("skipping placeholder successor",
				"entry", next,
				"type", anime.Type,
				"episodes", episodes,
				"required", requiredMinEpisodes)
			current = next
			continue
		}
		return next, true, nil
	}
}

// pick chooses the next hop: a name match against any relation kind first,
// then the first declared Sequel. Returns whether the pick was by name.
func (w *Walker) pick(groups []jikan.RelationGroup, preferred string) (int64, bool) {
	if preferred != "" {
		for _, group := range groups {
			for _, entry := range group.Entry {
				if entry.Type != "anime" {
					continue
				}
				if textutil.Similarity(textutil.Normalize(entry.Name), preferred) >= w.cfg.NameThreshold {
					w.logger.Debug("matched preferred title in relations",
						"name", entry.Name,
						"relation", group.Relation)
					return entry.MalID, true
				}
			}
		}
	}
	for _, group := range groups {
		if group.Relation != "Sequel" {
			continue
		}
		for _, entry := range group.Entry {
			if entry.Type == "anime" {
				return entry.MalID, false
			}
		}
	}
	return 0, false
}

func (w *Walker) swallow(entryID int64, op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	w.logger.Debug("relation walk lookup failed", "entry", entryID, "operation", op, "error", err)
	return nil
}

package resolve

import (
	"context"
	"log/slog"
	"strconv"

	"animap/internal/catalog"
	"animap/internal/jikan"
	"animap/internal/mapstore"
)

// resolveSeason maps one numbered season and then its episodes. Season 1
// inherits the series anchor; later seasons advance through the relation
// graph only once the active entry's episode count is exhausted, so one
// sequential entry can span several hierarchical seasons.
func (e *Engine) resolveSeason(ctx context.Context, series *catalog.Series, num int, season *catalog.Season, st *state, cache map[string]mapstore.Mapping, log *slog.Logger) error {
	log = log.With("season", num)

	if m, ok := cache[season.ID]; ok {
		st.adoptSeason(m)
		return e.resolveEpisodes(ctx, series, num, season, st, cache, log)
	}

	terms := catalog.CombinedTitles(season.Titles, series.Titles)
	preferred := preferredTitle(season.Titles)
	exhausted := false

	if st.active == 0 {
		// Degraded entry from an earlier season; a direct season search is
		// the only way back in.
		if _, err := e.searchSeason(ctx, st, terms, log); err != nil {
			return err
		}
	} else if num >= 2 && st.offset > 0 {
		if err := e.ensureTotal(ctx, st); err != nil {
			return err
		}
		if st.total > 0 && st.offset >= st.total {
			advanced, err := e.advance(ctx, st, season.EpisodeCount, preferred)
			if err != nil {
				return err
			}
			if !advanced {
				matched, err := e.searchSeason(ctx, st, terms, log)
				if err != nil {
					return err
				}
				// The active entry is spent and neither the relation graph
				// nor a title search produced a fresh one. The season has no
				// identity of its own; the stale entry stays around only so
				// episode resolution can run in degraded mode.
				exhausted = !matched
			}
		}
	}

	if st.active == 0 || exhausted {
		log.Info("season unmatched", "last_sequential_id", st.lastKnown)
		err := e.store.RecordUnmapped(ctx, mapstore.Unmapped{
			NodeID:           season.ID,
			Kind:             mapstore.KindSeason,
			Category:         series.Category,
			Season:           ptr(num),
			SearchTerms:      terms,
			LastSequentialID: st.lastKnown,
			RunID:            e.runID,
		})
		if err != nil {
			return err
		}
	} else {
		err := e.store.RecordMapping(ctx, mapstore.Mapping{
			NodeID:       season.ID,
			Kind:         mapstore.KindSeason,
			Category:     series.Category,
			SequentialID: st.active,
			URL:          pageURL(st.active),
			Season:       ptr(num),
			RunID:        e.runID,
		})
		if err != nil {
			return err
		}
	}

	return e.resolveEpisodes(ctx, series, num, season, st, cache, log)
}

// resolveEpisodes assigns offsets left to right. Cached episodes advance the
// state from their stored locators without touching the catalog.
func (e *Engine) resolveEpisodes(ctx context.Context, series *catalog.Series, num int, season *catalog.Season, st *state, cache map[string]mapstore.Mapping, log *slog.Logger) error {
	singleEpisode := season.EpisodeCount == 1

	for _, epNum := range season.EpisodeNumbers() {
		ep := season.Episode(epNum)
		if m, ok := cache[ep.ID]; ok {
			st.adoptEpisode(m)
			continue
		}
		if st.active == 0 {
			if err := e.recordEpisodeUnmapped(ctx, series, num, epNum, ep, st); err != nil {
				return err
			}
			continue
		}

		st.offset++
		if err := e.ensureTotal(ctx, st); err != nil {
			return err
		}
		if st.total > 0 && st.offset > st.total {
			remaining := season.EpisodeCount - epNum + 1
			advanced, err := e.advance(ctx, st, remaining, preferredTitle(season.Titles))
			if err != nil {
				return err
			}
			if !advanced {
				log.Info("episode numbering exhausted active entry", "episode", epNum, "last_sequential_id", st.lastKnown)
				st.exhaust()
				if err := e.recordEpisodeUnmapped(ctx, series, num, epNum, ep, st); err != nil {
					return err
				}
				continue
			}
			st.offset = 1
			if err := e.ensureTotal(ctx, st); err != nil {
				return err
			}
		}

		if err := e.ensureBase(ctx, st, singleEpisode); err != nil {
			return err
		}
		var url string
		switch {
		case st.base != "":
			url = st.base + strconv.Itoa(st.offset)
		case singleEpisode:
			url = pageURL(st.active)
		default:
			if err := e.recordEpisodeUnmapped(ctx, series, num, epNum, ep, st); err != nil {
				return err
			}
			continue
		}

		err := e.store.RecordMapping(ctx, mapstore.Mapping{
			NodeID:       ep.ID,
			Kind:         mapstore.KindEpisode,
			Category:     series.Category,
			SequentialID: st.active,
			URL:          url,
			Season:       ptr(num),
			Episode:      ptr(epNum),
			RunID:        e.runID,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) recordEpisodeUnmapped(ctx context.Context, series *catalog.Series, num, epNum int, ep *catalog.Episode, st *state) error {
	return e.store.RecordUnmapped(ctx, mapstore.Unmapped{
		NodeID:           ep.ID,
		Kind:             mapstore.KindEpisode,
		Category:         series.Category,
		Season:           ptr(num),
		Episode:          ptr(epNum),
		LastSequentialID: st.lastKnown,
		RunID:            e.runID,
	})
}

// searchSeason runs an untyped title search and, on success, makes the match
// the active entry. Reports whether a candidate was accepted.
func (e *Engine) searchSeason(ctx context.Context, st *state, terms []string, log *slog.Logger) (bool, error) {
	result, candidate, _, err := e.searchBest(ctx, terms, []string{""}, false)
	if err != nil {
		return false, err
	}
	if candidate == nil {
		return false, nil
	}
	log.Info("season matched by title search", "sequential_id", result.ID, "score", result.Score)
	st.reset(result.ID)
	return true, nil
}

// advance replaces the active entry with its relation-graph successor.
func (e *Engine) advance(ctx context.Context, st *state, requiredMinEpisodes int, preferred string) (bool, error) {
	if st.active == 0 {
		return false, nil
	}
	next, ok, err := e.walker.FindSuccessor(ctx, st.active, requiredMinEpisodes, preferred)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	st.reset(next)
	return true, nil
}

// ensureTotal fetches the active entry's declared episode count once. A
// fetch failure or a null count leaves the total unknown, which disables
// exhaustion checks for this entry.
func (e *Engine) ensureTotal(ctx context.Context, st *state) error {
	if st.totalFetched || st.active == 0 {
		return nil
	}
	st.totalFetched = true
	anime, err := e.catalog.Anime(ctx, st.active)
	if err != nil {
		if isCancel(err) {
			return err
		}
		e.logger.Warn("episode count lookup failed", "sequential_id", st.active, "error", err)
		return nil
	}
	if anime.Episodes != nil {
		st.total = *anime.Episodes
	}
	return nil
}

// ensureBase fetches the active entry's episode URL base once. Seasons with
// a single episode use the entry page instead of a numbered episode page.
func (e *Engine) ensureBase(ctx context.Context, st *state, singleEpisode bool) error {
	if st.baseFetched || st.active == 0 {
		return nil
	}
	st.baseFetched = true
	if singleEpisode {
		return nil
	}
	url, err := e.catalog.EpisodeURL(ctx, st.active, 1)
	if err != nil {
		if isCancel(err) {
			return err
		}
		e.logger.Warn("episode url lookup failed", "sequential_id", st.active, "error", err)
		return nil
	}
	st.base = jikan.EpisodeBase(url)
	return nil
}

func preferredTitle(t catalog.Titles) string {
	if t.Eng != "" {
		return t.Eng
	}
	return t.Jpn
}

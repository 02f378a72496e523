package resolve

import (
	"context"
	"log/slog"
	"strconv"

	"animap/internal/catalog"
	"animap/internal/jikan"
	"animap/internal/mapstore"
)

// bridge tracks a multi-part sequential entry being consumed by a run of
// hierarchical specials. It opens when a special matches an entry declaring
// more than one episode, or from a cached special's episode locator on a
// resumed run, and closes once the declared count has been assigned. A count
// of 0 means not yet known.
type bridge struct {
	id       int64
	base     string
	count    int
	consumed int
}

func (b *bridge) open() bool { return b.id != 0 }

func (b *bridge) take() int {
	b.consumed++
	return b.consumed
}

func (b *bridge) closeIfDrained() {
	if b.count > 0 && b.consumed >= b.count {
		*b = bridge{}
	}
}

// adopt aligns the bridge with a cached special so a resumed run keeps
// consuming the same multi-part entry at the stored offset. A page-style
// locator carries no offset and closes any open bridge.
func (b *bridge) adopt(m mapstore.Mapping) {
	base, off, ok := splitEpisodeURL(m.URL)
	if !ok {
		*b = bridge{}
		return
	}
	if b.id == m.SequentialID {
		if off > b.consumed {
			b.consumed = off
		}
	} else {
		*b = bridge{id: m.SequentialID, base: base, consumed: off}
	}
	b.closeIfDrained()
}

// resolveSpecials handles season 0. Specials never join the series' offset
// arithmetic; each one is matched independently by title search, except while
// a bridge is consuming a run of them into one multi-part entry.
func (e *Engine) resolveSpecials(ctx context.Context, series *catalog.Series, season *catalog.Season, cache map[string]mapstore.Mapping, log *slog.Logger) error {
	log = log.With("season", 0)
	var br bridge

	for _, epNum := range season.EpisodeNumbers() {
		ep := season.Episode(epNum)

		if m, ok := cache[ep.ID]; ok {
			// A cached special still counts against the bridge so a resumed
			// run keeps the same offsets.
			br.adopt(m)
			continue
		}

		if br.open() {
			assignable, err := e.ensureBridgeCount(ctx, &br)
			if err != nil {
				return err
			}
			if assignable {
				offset := br.take()
				err := e.store.RecordMapping(ctx, mapstore.Mapping{
					NodeID:       ep.ID,
					Kind:         mapstore.KindEpisode,
					Category:     series.Category,
					SequentialID: br.id,
					URL:          br.base + strconv.Itoa(offset),
					Season:       ptr(0),
					Episode:      ptr(epNum),
					RunID:        e.runID,
				})
				if err != nil {
					return err
				}
				br.closeIfDrained()
				continue
			}
			br = bridge{}
		}

		if err := e.resolveSpecial(ctx, series, epNum, ep, &br, log); err != nil {
			return err
		}
	}
	return nil
}

// ensureBridgeCount fills in the declared episode count of a bridge seeded
// from cached locators, which do not carry one. Reports whether the bridge
// can still assign offsets.
func (e *Engine) ensureBridgeCount(ctx context.Context, br *bridge) (bool, error) {
	if br.count > 0 {
		return br.consumed < br.count, nil
	}
	anime, err := e.catalog.Anime(ctx, br.id)
	if err != nil {
		if isCancel(err) {
			return false, err
		}
		e.logger.Warn("bridge entry lookup failed", "sequential_id", br.id, "error", err)
		return false, nil
	}
	if anime.Episodes == nil || *anime.Episodes <= 1 {
		return false, nil
	}
	br.count = *anime.Episodes
	return br.consumed < br.count, nil
}

// resolveSpecial matches one special by title search and opens a bridge when
// the match declares more than one episode.
func (e *Engine) resolveSpecial(ctx context.Context, series *catalog.Series, epNum int, ep *catalog.Episode, br *bridge, log *slog.Logger) error {
	terms := specialTerms(ep, series)
	if len(terms) == 0 {
		return e.store.RecordUnmapped(ctx, mapstore.Unmapped{
			NodeID:   ep.ID,
			Kind:     mapstore.KindEpisode,
			Category: series.Category,
			Season:   ptr(0),
			Episode:  ptr(epNum),
			RunID:    e.runID,
		})
	}

	searchType := ep.SearchType()
	types := []string{""}
	if searchType != "" {
		types = []string{searchType}
	}

	result, candidate, observed, err := e.searchBest(ctx, terms, types, true)
	if err != nil {
		return err
	}
	if candidate == nil {
		log.Info("special unmatched", "episode", epNum)
		return e.store.RecordUnmapped(ctx, mapstore.Unmapped{
			NodeID:         ep.ID,
			Kind:           mapstore.KindEpisode,
			Category:       series.Category,
			Season:         ptr(0),
			Episode:        ptr(epNum),
			SearchTerms:    terms,
			ObservedTitles: observed,
			RunID:          e.runID,
		})
	}

	total, err := e.specialTotal(ctx, candidate)
	if err != nil {
		return err
	}

	url := candidateURL(candidate, result.ID)
	if total > 1 {
		base, err := e.specialBase(ctx, result.ID)
		if err != nil {
			return err
		}
		if base != "" {
			*br = bridge{id: result.ID, base: base, count: total, consumed: 1}
			url = base + "1"
		}
	}

	log.Info("special matched", "episode", epNum, "sequential_id", result.ID, "score", result.Score, "bridge", br.open())
	return e.store.RecordMapping(ctx, mapstore.Mapping{
		NodeID:       ep.ID,
		Kind:         mapstore.KindEpisode,
		Category:     series.Category,
		SequentialID: result.ID,
		URL:          url,
		Season:       ptr(0),
		Episode:      ptr(epNum),
		RunID:        e.runID,
	})
}

// specialTotal returns the matched entry's declared episode count, fetching
// it when the search result omitted one.
func (e *Engine) specialTotal(ctx context.Context, candidate *jikan.Anime) (int, error) {
	if candidate.Episodes != nil {
		return *candidate.Episodes, nil
	}
	anime, err := e.catalog.Anime(ctx, candidate.MalID)
	if err != nil {
		if isCancel(err) {
			return 0, err
		}
		return 0, nil
	}
	if anime.Episodes == nil {
		return 0, nil
	}
	return *anime.Episodes, nil
}

func (e *Engine) specialBase(ctx context.Context, id int64) (string, error) {
	url, err := e.catalog.EpisodeURL(ctx, id, 1)
	if err != nil {
		if isCancel(err) {
			return "", err
		}
		e.logger.Warn("episode url lookup failed", "sequential_id", id, "error", err)
		return "", nil
	}
	return jikan.EpisodeBase(url), nil
}

// specialTerms builds the search terms for one special: its own title first,
// then aliases, then series-prefixed variants.
func specialTerms(ep *catalog.Episode, series *catalog.Series) []string {
	if ep.Titles.Eng == "" && ep.Titles.Jpn == "" {
		return nil
	}
	var terms []string
	if ep.Titles.Eng != "" {
		terms = append(terms, ep.Titles.Eng)
	}
	terms = append(terms, ep.Aliases...)
	terms = append(terms, catalog.CombinedTitles(ep.Titles, series.Titles)...)
	return dedupe(terms)
}

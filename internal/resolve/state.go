package resolve

import (
	"strconv"
	"strings"

	"animap/internal/mapstore"
)

// state tracks the active sequential entry while descending one series:
// which entry episodes currently resolve against, how many episodes have
// been consumed from it, and the lazily fetched total and episode URL base.
// Totals and bases are fetched only when an uncached episode needs them, so
// a fully cached series costs no catalog calls.
type state struct {
	active    int64
	lastKnown int64
	offset    int

	total        int // 0 means unknown
	totalFetched bool

	base        string
	baseFetched bool
}

// reset makes id the active entry with nothing consumed and nothing fetched.
func (st *state) reset(id int64) {
	st.active = id
	if id != 0 {
		st.lastKnown = id
	}
	st.offset = 0
	st.total = 0
	st.totalFetched = false
	st.base = ""
	st.baseFetched = false
}

// exhaust drops the active entry after an unrecoverable advance failure so
// the remaining episodes fail fast instead of re-walking the relation graph.
func (st *state) exhaust() {
	id := st.lastKnown
	st.reset(0)
	st.lastKnown = id
}

// adoptSeason aligns the state with a cached season mapping. A cached season
// on the same entry keeps the running offset; a different entry starts fresh.
func (st *state) adoptSeason(m mapstore.Mapping) {
	if m.SequentialID != st.active {
		st.reset(m.SequentialID)
	}
}

// adoptEpisode aligns the state with a cached episode mapping, restoring the
// offset and URL base from the stored locator so later uncached episodes
// continue the numbering without any catalog calls.
func (st *state) adoptEpisode(m mapstore.Mapping) {
	if m.SequentialID != st.active {
		st.reset(m.SequentialID)
	}
	if base, off, ok := splitEpisodeURL(m.URL); ok {
		st.base = base
		st.baseFetched = true
		st.offset = off
		return
	}
	st.offset++
}

// splitEpisodeURL splits an episode locator into its base and trailing
// offset. Page-style locators without an episode segment return ok=false.
func splitEpisodeURL(url string) (string, int, bool) {
	if !strings.Contains(url, "/episode/") {
		return "", 0, false
	}
	trimmed := strings.TrimRight(url, "/")
	idx := strings.LastIndexByte(trimmed, '/')
	if idx < 0 {
		return "", 0, false
	}
	off, err := strconv.Atoi(trimmed[idx+1:])
	if err != nil {
		return "", 0, false
	}
	return trimmed[:idx+1], off, true
}

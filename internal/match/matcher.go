package match

import (
	"strings"

	"animap/internal/jikan"
	"animap/internal/textutil"
)

// Config holds the acceptance thresholds on the 0-100 similarity scale.
type Config struct {
	// Threshold accepts a full-title match.
	Threshold float64
	// SubtitleThreshold accepts a movie match on the subtitle alone. Higher
	// than Threshold because subtitles are more often unique.
	SubtitleThreshold float64
}

func (c Config) withDefaults() Config {
	if c.Threshold <= 0 {
		c.Threshold = 85
	}
	if c.SubtitleThreshold <= 0 {
		c.SubtitleThreshold = 90
	}
	return c
}

// Options adjusts scoring for one search.
type Options struct {
	// Movie enables the colon-split subtitle heuristic.
	Movie bool
	// Special strips the search term's trailing parenthetical before
	// comparison; season-0 titles often carry a disambiguator the target
	// catalog omits.
	Special bool
}

// Result identifies the winning candidate.
type Result struct {
	ID    int64
	Score float64
}

// Matcher scores candidates. Pure computation; no catalog access.
type Matcher struct {
	cfg Config
}

// New builds a Matcher.
func New(cfg Config) *Matcher {
	return &Matcher{cfg: cfg.withDefaults()}
}

// Best returns the highest-scoring candidate clearing a threshold, whether one
// was found, and every candidate title observed. Ties keep the first seen.
func (m *Matcher) Best(term string, candidates []jikan.Anime, opts Options) (Result, bool, []string) {
	normalized := textutil.Normalize(term)
	target := normalized
	if opts.Special {
		target = textutil.TrimParenthetical(normalized)
	}

	var subtitle string
	if opts.Movie && strings.Contains(term, ":") {
		subtitle = textutil.Subtitle(strings.ToLower(term))
	}

	var best Result
	var found bool
	var observed []string

	for _, candidate := range candidates {
		for _, title := range candidate.TitleStrings() {
			lowered := strings.ToLower(title)
			observed = append(observed, lowered)

			score := textutil.Similarity(textutil.Normalize(lowered), target)
			if score >= m.cfg.Threshold && score > best.Score {
				best = Result{ID: candidate.MalID, Score: score}
				found = true
			}

			if subtitle == "" {
				continue
			}
			_, rest, ok := strings.Cut(lowered, ":")
			if !ok {
				continue
			}
			subScore := textutil.Similarity(textutil.Normalize(rest), subtitle)
			if subScore >= m.cfg.SubtitleThreshold && subScore > best.Score {
				best = Result{ID: candidate.MalID, Score: subScore}
				found = true
			}
		}
	}

	observed = dedupe(observed)
	return best, found, observed
}

func dedupe(titles []string) []string {
	seen := make(map[string]struct{}, len(titles))
	out := titles[:0]
	for _, t := range titles {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

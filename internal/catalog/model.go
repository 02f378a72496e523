package catalog

import (
	"sort"
	"strconv"
	"strings"
)

// Category partitions the tree by how series resolve: movies match against
// the movie type only and never descend into seasons.
type Category string

const (
	CategorySeries Category = "series"
	CategoryMovie  Category = "movie"
)

// Categories lists the known categories in processing order.
func Categories() []Category {
	return []Category{CategorySeries, CategoryMovie}
}

// Titles holds the primary- and native-language title variants of a node.
type Titles struct {
	Eng string `json:"eng"`
	Jpn string `json:"jpn"`
}

// Episode is one hierarchical episode. SpecialCategory is populated for
// season-0 items only.
type Episode struct {
	ID              string   `json:"ID"`
	Titles          Titles   `json:"Titles"`
	Aliases         []string `json:"Aliases,omitempty"`
	SpecialCategory string   `json:"TYPE,omitempty"`
}

// SearchType maps the special-category tag to a sequential-catalog type
// filter. Only movie-like specials get one; typed searches for the other
// categories proved unreliable against the target catalog.
func (e *Episode) SearchType() string {
	if e.SpecialCategory == "Movies" {
		return "movie"
	}
	return ""
}

// Season is one hierarchical season. Episode numbers are 1-based and
// contiguous within the season as declared by the source.
type Season struct {
	ID           string              `json:"ID"`
	Titles       Titles              `json:"Titles"`
	EpisodeCount int                 `json:"# Episodes"`
	Episodes     map[string]*Episode `json:"Episodes"`
}

// EpisodeNumbers returns the season's episode numbers in ascending order.
func (s *Season) EpisodeNumbers() []int {
	return sortedNumericKeys(len(s.Episodes), func(yield func(string)) {
		for k := range s.Episodes {
			yield(k)
		}
	})
}

// Episode returns the episode with the given number, or nil.
func (s *Season) Episode(number int) *Episode {
	return s.Episodes[strconv.Itoa(number)]
}

// Series is one hierarchical series. The ID is the source catalog's primary
// key and is assigned from the file name on load.
type Series struct {
	ID       string             `json:"-"`
	Category Category           `json:"-"`
	Titles   Titles             `json:"Titles"`
	Aliases  []string           `json:"Aliases"`
	Seasons  map[string]*Season `json:"Seasons"`
}

// SeasonNumbers returns the season numbers in ascending order. Season 0, when
// present, comes first.
func (s *Series) SeasonNumbers() []int {
	return sortedNumericKeys(len(s.Seasons), func(yield func(string)) {
		for k := range s.Seasons {
			yield(k)
		}
	})
}

// Season returns the season with the given number, or nil.
func (s *Series) Season(number int) *Season {
	return s.Seasons[strconv.Itoa(number)]
}

// SearchTitles returns the series' title variants in search order: primary,
// native, then aliases.
func (s *Series) SearchTitles() []string {
	out := make([]string, 0, 2+len(s.Aliases))
	for _, t := range []string{s.Titles.Eng, s.Titles.Jpn} {
		if t != "" {
			out = append(out, t)
		}
	}
	out = append(out, s.Aliases...)
	return out
}

// CombinedTitles builds season/episode search terms, prefixing the series
// title when the node title does not already contain it.
func CombinedTitles(node, series Titles) []string {
	eng := combine(node.Eng, series.Eng)
	jpn := combine(node.Jpn, series.Jpn)
	out := make([]string, 0, 2)
	for _, t := range []string{eng, jpn} {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func combine(node, series string) string {
	if node == "" {
		return ""
	}
	if series == "" || strings.Contains(strings.ToLower(node), strings.ToLower(series)) {
		return node
	}
	return series + " " + node
}

// Tree is the full hierarchical input, partitioned by category.
type Tree struct {
	Series map[Category][]*Series
}

// All returns every series across categories, series first, stable order.
func (t *Tree) All() []*Series {
	var out []*Series
	for _, cat := range Categories() {
		out = append(out, t.Series[cat]...)
	}
	return out
}

func sortedNumericKeys(capacity int, each func(func(string))) []int {
	out := make([]int, 0, capacity)
	each(func(k string) {
		n, err := strconv.Atoi(k)
		if err != nil {
			return
		}
		out = append(out, n)
	})
	sort.Ints(out)
	return out
}

package jikan

import "strings"

// TitleEntry is one of an entry's declared title variants.
type TitleEntry struct {
	Type  string `json:"type"`
	Title string `json:"title"`
}

// Anime is a single sequential-catalog entry.
type Anime struct {
	MalID    int64        `json:"mal_id"`
	URL      string       `json:"url"`
	Title    string       `json:"title"`
	Type     string       `json:"type"`
	Episodes *int         `json:"episodes"`
	Titles   []TitleEntry `json:"titles"`
}

// TitleStrings returns every declared title variant, falling back to the
// primary title when the variant list is absent.
func (a Anime) TitleStrings() []string {
	if len(a.Titles) == 0 {
		if a.Title == "" {
			return nil
		}
		return []string{a.Title}
	}
	out := make([]string, 0, len(a.Titles))
	for _, t := range a.Titles {
		if t.Title != "" {
			out = append(out, t.Title)
		}
	}
	return out
}

// Pagination models the search response paging envelope.
type Pagination struct {
	LastVisiblePage int  `json:"last_visible_page"`
	HasNextPage     bool `json:"has_next_page"`
}

// SearchResponse is a page of search results.
type SearchResponse struct {
	Data       []Anime    `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// Episode is a single episode page of an entry.
type Episode struct {
	MalID int64  `json:"mal_id"`
	URL   string `json:"url"`
}

// RelationEntry is one related entry inside a relation group.
type RelationEntry struct {
	MalID int64  `json:"mal_id"`
	Type  string `json:"type"`
	Name  string `json:"name"`
	URL   string `json:"url"`
}

// RelationGroup collects the related entries declared under one relation kind
// (Sequel, Side story, Summary, ...).
type RelationGroup struct {
	Relation string          `json:"relation"`
	Entry    []RelationEntry `json:"entry"`
}

// EpisodeBase strips the trailing episode number from an episode URL so a
// caller can append its own offset.
func EpisodeBase(episodeURL string) string {
	trimmed := strings.TrimRight(episodeURL, "/")
	idx := strings.LastIndexByte(trimmed, '/')
	if idx < 0 {
		return episodeURL
	}
	return trimmed[:idx+1]
}

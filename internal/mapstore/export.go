package mapstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"animap/internal/catalog"
)

type mappedEntry struct {
	Season    *int   `json:"season,omitempty"`
	Episode   *int   `json:"episode,omitempty"`
	SourceURL string `json:"thetvdb url"`
	TargetURL string `json:"myanimelist url"`
	Target    int64  `json:"myanimelist"`
	Source    any    `json:"thetvdb"`
}

type unmappedEntry struct {
	Season         *int     `json:"season,omitempty"`
	Episode        *int     `json:"episode,omitempty"`
	SourceURL      string   `json:"thetvdb url"`
	Source         any      `json:"thetvdb"`
	SearchTerms    []string `json:"search terms,omitempty"`
	ObservedTitles []string `json:"Jikan titles,omitempty"`
	PreviousID     int64    `json:"previous malid,omitempty"`
}

// Export writes the mapping artifacts into outDir: one mapped file per
// category plus the three unmapped files partitioned by hierarchy level.
func (s *Store) Export(ctx context.Context, outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("ensure export dir: %w", err)
	}

	for _, cat := range catalog.Categories() {
		mappings, err := s.Mappings(ctx, cat)
		if err != nil {
			return err
		}
		entries := make([]mappedEntry, 0, len(mappings))
		for _, m := range mappings {
			entries = append(entries, mappedEntry{
				Season:    m.Season,
				Episode:   m.Episode,
				SourceURL: sourceURL(m.Kind, m.NodeID),
				TargetURL: m.URL,
				Target:    m.SequentialID,
				Source:    numericID(m.NodeID),
			})
		}
		path := filepath.Join(outDir, fmt.Sprintf("mapped-%s.json", cat))
		if err := writeJSON(path, entries); err != nil {
			return err
		}
	}

	for kind, name := range map[NodeKind]string{
		KindSeries:  "unmapped-series.json",
		KindSeason:  "unmapped-seasons.json",
		KindEpisode: "unmapped-episodes.json",
	} {
		records, err := s.UnmappedByKind(ctx, kind)
		if err != nil {
			return err
		}
		entries := make([]unmappedEntry, 0, len(records))
		for _, u := range records {
			entries = append(entries, unmappedEntry{
				Season:         u.Season,
				Episode:        u.Episode,
				SourceURL:      sourceURL(u.Kind, u.NodeID),
				Source:         numericID(u.NodeID),
				SearchTerms:    u.SearchTerms,
				ObservedTitles: u.ObservedTitles,
				PreviousID:     u.LastSequentialID,
			})
		}
		if err := writeJSON(filepath.Join(outDir, name), entries); err != nil {
			return err
		}
	}
	return nil
}

func sourceURL(kind NodeKind, nodeID string) string {
	return fmt.Sprintf("https://www.thetvdb.com/dereferrer/%s/%s", kind, nodeID)
}

// numericID keeps exported ids numeric when the source key parses as one.
func numericID(id string) any {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n
	}
	return id
}

// writeJSON writes via a temp file and rename so a crash never leaves a
// half-written artifact.
func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
